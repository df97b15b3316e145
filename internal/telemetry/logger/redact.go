package logger

import (
	"log/slog"
	"net/url"
	"strings"
)

// Keys whose values are message bodies. They are never written to logs.
var bodyKeys = map[string]struct{}{
	"content": {},
	"body":    {},
}

// Sensitive key patterns that should be redacted.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"psk",
	"key",
	"credential",
}

// redactedValue is the placeholder for redacted sensitive data.
const redactedValue = "***REDACTED***"

// redactSensitive checks if an attribute contains sensitive data
// and redacts it if necessary.
func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}
	if a.Value.Kind() != slog.KindString {
		return a
	}

	strVal := a.Value.String()
	if strVal == "" {
		return a
	}
	keyLower := strings.ToLower(a.Key)

	if _, ok := bodyKeys[keyLower]; ok {
		return slog.String(a.Key, redactedValue)
	}
	if keyLower == "url" || strings.HasSuffix(keyLower, "_url") {
		return slog.String(a.Key, RedactURL(strVal))
	}
	if IsSensitiveKey(keyLower) {
		return slog.String(a.Key, redactedValue)
	}
	return a
}

// RedactURL hides the parts of a URL that can carry a key: the password,
// the fragment (Meshtastic channel URLs encode the PSK there) and the psk
// and key query parameters.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return redactedValue
	}
	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "***")
		}
	}
	if u.Fragment != "" {
		u.Fragment = "***"
		u.RawFragment = ""
	}
	if u.RawQuery != "" {
		q := u.Query()
		for k := range q {
			if IsSensitiveKey(k) {
				q.Set(k, "***")
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}
