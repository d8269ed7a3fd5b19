package engine

import "strings"

const placeholderURL = "https://t.me/"

// NormalizeURL coerces admin-entered links into something Telegram accepts
// as a button URL. Empty input maps to a harmless placeholder, @handles map
// to t.me links, and bare domains get an https scheme.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return placeholderURL
	}
	if strings.HasPrefix(raw, "@") {
		return "https://t.me/" + strings.TrimPrefix(raw, "@")
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	if strings.HasPrefix(raw, "t.me/") {
		return "https://" + raw
	}
	return "https://" + raw
}
