package captcha

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	captchaai "github.com/anatolykoptev/go-captchaai"
)

const balanceWarnLevel = 5.0 // warn when balance drops below $5

// account is the part of *captchaai.Client the solvers need.
type account interface {
	Process(ctx context.Context, task captchaai.Task) (*captchaai.TaskResultResponse, error)
	Balance(ctx context.Context) (*captchaai.ControlResponse, error)
}

var _ Solver = (*FunCaptcha)(nil)

// FunCaptcha implements Solver for Arkose Labs FunCaptcha.
type FunCaptcha struct {
	client account

	// Subdomain is the optional funcaptchaApiJSSubdomain.
	Subdomain string
}

// NewFunCaptcha creates a FunCaptcha solver on top of client.
func NewFunCaptcha(client *captchaai.Client) *FunCaptcha {
	return &FunCaptcha{client: client}
}

// Solve submits a FunCaptchaTaskProxyLess and waits for its token.
func (f *FunCaptcha) Solve(ctx context.Context, siteKey, pageURL string) (string, error) {
	warnLowBalance(ctx, f.client)

	res, err := f.client.Process(ctx, captchaai.FunCaptchaTaskProxyLess{
		WebsiteURL:               pageURL,
		WebsitePublicKey:         siteKey,
		FuncaptchaAPIJSSubdomain: f.Subdomain,
	})
	if err != nil {
		return "", fmt.Errorf("funcaptcha: %w", err)
	}
	if err := checkResult(res); err != nil {
		return "", fmt.Errorf("funcaptcha: %w", err)
	}
	token := res.SolutionString("token")
	if token == "" {
		return "", fmt.Errorf("funcaptcha: ready but empty token")
	}
	return token, nil
}

// Balance returns the account balance in USD.
func (f *FunCaptcha) Balance(ctx context.Context) (float64, error) {
	return balance(ctx, f.client)
}

// Image solves image-to-text captchas.
type Image struct {
	client account
}

// NewImage creates an image solver on top of client.
func NewImage(client *captchaai.Client) *Image {
	return &Image{client: client}
}

// SolveImage submits raw image bytes and returns the recognised text.
func (i *Image) SolveImage(ctx context.Context, image []byte) (string, error) {
	warnLowBalance(ctx, i.client)

	res, err := i.client.Process(ctx, captchaai.ImageToTextTask{
		Body: base64.StdEncoding.EncodeToString(image),
	})
	if err != nil {
		return "", fmt.Errorf("image: %w", err)
	}
	if err := checkResult(res); err != nil {
		return "", fmt.Errorf("image: %w", err)
	}
	text := res.SolutionString("text")
	if text == "" {
		return "", fmt.Errorf("image: ready but empty text")
	}
	return text, nil
}

// Balance returns the account balance in USD.
func (i *Image) Balance(ctx context.Context) (float64, error) {
	return balance(ctx, i.client)
}

// checkResult turns a terminal response that is not a success into an error.
func checkResult(res *captchaai.TaskResultResponse) error {
	switch {
	case res.ErrorID:
		return fmt.Errorf("service error %s: %s", res.ErrorCode, res.ErrorDescription)
	case res.Status != captchaai.StatusReady:
		return fmt.Errorf("task %s ended with status %q", res.TaskID, res.Status)
	}
	return nil
}

func balance(ctx context.Context, client account) (float64, error) {
	res, err := client.Balance(ctx)
	if err != nil {
		return 0, err
	}
	if res.ErrorID {
		return 0, fmt.Errorf("balance error %s: %s", res.ErrorCode, res.ErrorDescription)
	}
	return res.Balance, nil
}

// warnLowBalance logs when the balance is low. Lookup failures are ignored.
func warnLowBalance(ctx context.Context, client account) {
	bal, err := balance(ctx, client)
	if err == nil && bal < balanceWarnLevel {
		slog.Warn("captcha balance low", slog.Float64("balance", bal))
	}
}
