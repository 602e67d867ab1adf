package captchaai

import (
	"fmt"
	"net/url"
)

// DefaultBaseURL is the API address requests are sent to unless overridden.
const DefaultBaseURL = "https://api.captchaai.io/"

// appID identifies this library to the service in every createTask payload.
const appID = "5A1E2F9B-2C4D-4B6A-9E3F-7C8D1A2B3C4D"

// Endpoint postfixes relative to the base URL.
const (
	endpointCreateTask    = "createTask"
	endpointGetTaskResult = "getTaskResult"
	endpointGetBalance    = "getBalance"
)

// endpointURL joins the base URL and an endpoint postfix.
func endpointURL(base, endpoint string) (string, error) {
	u, err := url.JoinPath(base, endpoint)
	if err != nil {
		return "", fmt.Errorf("join %s: %w", endpoint, err)
	}
	return u, nil
}
