package logging

import (
	"log/slog"
	"net/url"
	"regexp"
	"strings"
)

const (
	// MaskChar is the character used for masking.
	MaskChar = "*"
	// DefaultMaskLength is how many mask characters replace a hidden value.
	DefaultMaskLength = 3
)

// SensitiveFields are attribute names whose values are always hidden.
var SensitiveFields = []string{
	"token",
	"secret",
	"password",
	"api_key",
	"apikey",
	"authorization",
	"bearer",
	"credential",
	"private_key",
	"redis_url",
	"postgres_url",
	"database_url",
}

// urlFields are attribute names whose values are URLs with secrets in the path.
var urlFields = map[string]bool{
	KeyURL:        true,
	"feed_url":    true,
	"webhook_url": true,
}

var urlPattern = regexp.MustCompile(`(?i)(https?|webcal)://[^\s"']+`)

// MaskURL keeps the scheme and host of a URL and hides the rest. Private
// calendar feeds (Google "secret address", Outlook published calendars) carry
// their access token in the path, so the path is never logged.
func MaskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return MaskPartial(raw, 12)
	}
	if u.Path == "" || u.Path == "/" {
		if u.RawQuery == "" {
			return u.Scheme + "://" + u.Host
		}
	}
	return u.Scheme + "://" + u.Host + "/" + strings.Repeat(MaskChar, DefaultMaskLength)
}

// MaskValue masks a sensitive value completely.
func MaskValue(value string) string {
	if value == "" {
		return ""
	}
	return strings.Repeat(MaskChar, min(len(value), 8))
}

// MaskPartial shows the first showChars characters of value.
func MaskPartial(value string, showChars int) string {
	if len(value) <= showChars {
		return strings.Repeat(MaskChar, len(value))
	}
	return value[:showChars] + strings.Repeat(MaskChar, DefaultMaskLength)
}

// IsSensitiveField reports whether an attribute name indicates secret data.
func IsSensitiveField(name string) bool {
	lower := strings.ToLower(name)
	for _, keyword := range SensitiveFields {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// MaskString masks every URL embedded in s. Local URLs are masked too; a
// self-hosted feed still carries its token in the path.
func MaskString(s string) string {
	return urlPattern.ReplaceAllStringFunc(s, MaskURL)
}

// MaskArgs masks sensitive values in key-value logging arguments.
func MaskArgs(args []any) []any {
	result := make([]any, len(args))
	copy(result, args)

	for i := 0; i+1 < len(result); i += 2 {
		key, ok := result[i].(string)
		if !ok {
			continue
		}
		result[i+1] = maskValueFor(key, result[i+1])
	}
	return result
}

// MaskSensitiveData masks sensitive values in a string map, such as webhook
// headers or activity metadata before display.
func MaskSensitiveData(m map[string]string) map[string]string {
	result := make(map[string]string, len(m))
	for key, value := range m {
		if v, ok := maskValueFor(key, value).(string); ok {
			result[key] = v
		}
	}
	return result
}

func maskValueFor(key string, value any) any {
	str, isString := value.(string)
	switch {
	case IsSensitiveField(key):
		if isString {
			return MaskValue(str)
		}
		return strings.Repeat(MaskChar, 8)
	case urlFields[strings.ToLower(key)] && isString:
		return MaskURL(str)
	case isString:
		return MaskString(str)
	}
	return value
}

// maskAttr is installed as slog ReplaceAttr on every handler.
func maskAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindAny {
		if err, ok := a.Value.Any().(error); ok && err != nil {
			if IsSensitiveField(a.Key) {
				return slog.String(a.Key, strings.Repeat(MaskChar, 8))
			}
			return slog.String(a.Key, MaskString(err.Error()))
		}
	}
	if a.Value.Kind() != slog.KindString {
		if IsSensitiveField(a.Key) {
			return slog.String(a.Key, strings.Repeat(MaskChar, 8))
		}
		return a
	}
	if a.Key == slog.MessageKey || a.Key == slog.SourceKey {
		return a
	}
	if masked, ok := maskValueFor(a.Key, a.Value.String()).(string); ok {
		return slog.String(a.Key, masked)
	}
	return a
}
