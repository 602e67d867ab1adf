package captchaai

// defaultUserAgent is the fallback User-Agent when no browser profile is set.
const defaultUserAgent = "go-captchaai/1.0"

// apiHeaders returns the headers sent with every JSON API call.
func apiHeaders(userAgent string) map[string]string {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return map[string]string{
		"content-type":    "application/json",
		"accept":          "application/json",
		"accept-encoding": "gzip",
		"user-agent":      userAgent,
	}
}

// apiHeaderOrder is the header order used for every request.
var apiHeaderOrder = []string{
	"content-type",
	"accept",
	"accept-encoding",
	"user-agent",
}
