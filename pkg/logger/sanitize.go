package logger

import (
	"log/slog"
	"net/url"
	"strings"
)

var sensitiveParams = []string{
	"password", "token", "secret", "auth", "refresh",
}

// RedactedAttr returns a redacted slog attribute for sensitive values
// In production, returns "[REDACTED]"; in development, returns the actual value
func RedactedAttr(key, value, env string) slog.Attr {
	if env == "production" {
		return slog.String(key, "[REDACTED]")
	}
	return slog.String(key, value)
}

// SanitizeQueryString reports whether rawQuery names a sensitive parameter
// and should be redacted from logs entirely.
func SanitizeQueryString(rawQuery string) bool {
	if rawQuery == "" {
		return false
	}

	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		// Unparseable queries are redacted
		return true
	}

	for key := range values {
		key = strings.ToLower(key)
		for _, param := range sensitiveParams {
			if strings.Contains(key, param) {
				return true
			}
		}
	}
	return false
}
