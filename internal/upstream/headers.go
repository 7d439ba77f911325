package upstream

import (
	"net/url"
	"strings"
)

//nolint:gochecknoglobals // Read-only set.
var forbiddenHeaders = map[string]struct{}{
	"host":       {},
	"origin":     {},
	"referer":    {},
	"connection": {},
}

// SanitizeHeaders returns a copy of headers without the fields that belong to
// the inbound browser request. Matching is case-insensitive.
func SanitizeHeaders(headers map[string]string) map[string]string {
	clean := make(map[string]string, len(headers))
	for name, value := range headers {
		if _, forbidden := forbiddenHeaders[strings.ToLower(strings.TrimSpace(name))]; forbidden {
			continue
		}
		clean[name] = value
	}
	return clean
}

// RedactURL hides credentials carried in the URL so it can be logged.
func RedactURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "<unparseable url>"
	}

	if parsed.User != nil {
		parsed.User = url.User("redacted")
	}

	query := parsed.Query()
	if query.Has("key") {
		query.Set("key", "redacted")
		parsed.RawQuery = query.Encode()
	}

	return parsed.String()
}
