package captchaai

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	stealth "github.com/anatolykoptev/go-stealth"
	fhttp "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
)

// poolBackend is the tls-client transport behind the default Doer. The Client
// keeps a handle to it so Close can drop pooled connections.
type poolBackend struct {
	client tls_client.HttpClient
}

var _ stealth.HTTPDoer = (*poolBackend)(nil)

func newPoolBackend(cfg stealth.BackendConfig) (*poolBackend, error) {
	profile, ok := profiles.MappedTLSClients[string(cfg.Profile)]
	if !ok {
		profile = profiles.Chrome_131
	}
	opts := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(cfg.TimeoutSeconds),
		tls_client.WithClientProfile(profile),
		tls_client.WithCookieJar(tls_client.NewCookieJar()),
	}
	if !cfg.FollowRedirects {
		opts = append(opts, tls_client.WithNotFollowRedirects())
	}
	if cfg.ProxyURL != "" {
		opts = append(opts, tls_client.WithProxyUrl(cfg.ProxyURL))
	}
	client, err := tls_client.NewHttpClient(nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("tls-client init: %w", err)
	}
	return &poolBackend{client: client}, nil
}

// Do implements stealth.HTTPDoer. Response header keys are lowercased.
func (b *poolBackend) Do(req *stealth.Request) (*stealth.Response, error) {
	httpReq, err := fhttp.NewRequest(req.Method, req.URL, req.Body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if len(req.HeaderOrder) > 0 {
		httpReq.Header[fhttp.HeaderOrderKey] = req.HeaderOrder
	}

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("tls request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &stealth.Response{StatusCode: resp.StatusCode}, fmt.Errorf("read body: %w", err)
	}
	headers := make(map[string]string, len(resp.Header))
	for k, v := range resp.Header {
		if len(v) > 0 {
			headers[strings.ToLower(k)] = v[0]
		}
	}
	return &stealth.Response{Body: data, Headers: headers, StatusCode: resp.StatusCode}, nil
}

// SetProxy implements stealth.HTTPDoer.
func (b *poolBackend) SetProxy(proxyURL string) error {
	return b.client.SetProxy(proxyURL)
}

// GetCookieValue implements stealth.HTTPDoer.
func (b *poolBackend) GetCookieValue(rawURL, name string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	for _, c := range b.client.GetCookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// CloseIdleConnections releases pooled connections.
func (b *poolBackend) CloseIdleConnections() {
	b.client.CloseIdleConnections()
}
