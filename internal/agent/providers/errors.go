package providers

import (
	"errors"
	"net"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ErrNoAPIKey indicates the provider was constructed without credentials.
var ErrNoAPIKey = errors.New("no API key configured")

// isRetryable classifies transport-level failures worth retrying when
// opening a stream: rate limits, server errors, and network hiccups.
// Client errors (bad request, auth) fail immediately.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, hint := range []string{"rate limit", "overloaded", "timeout", "connection reset", "temporarily unavailable"} {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}
