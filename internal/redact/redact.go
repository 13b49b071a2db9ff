// Package redact hides credentials in values that end up on a terminal or in
// a log file: server env maps, argument vectors and endpoint URLs.
package redact

import (
	"net/url"
	"strings"
)

// secretKeyPatterns are substrings that mark a key as sensitive. Matched
// case-insensitively.
var secretKeyPatterns = []string{
	"TOKEN",
	"KEY",
	"SECRET",
	"PASSWORD",
	"AUTH",
	"CREDENTIAL",
	"PRIVATE",
}

// tokenPrefixes identify well-known API token formats regardless of key name.
var tokenPrefixes = []string{
	"ghp_",  // GitHub personal access token
	"gho_",  // GitHub OAuth token
	"ghu_",  // GitHub user-to-server token
	"ghs_",  // GitHub server-to-server token
	"ghr_",  // GitHub refresh token
	"sk-",   // OpenAI/Anthropic keys
	"pk-",   // publishable keys
	"AKIA",  // AWS access key
	"xoxb-", // Slack bot token
	"xoxp-", // Slack user token
	"xoxa-", // Slack app token
	"xoxr-", // Slack refresh token
}

// Env returns a copy of env with sensitive values masked.
func Env(env map[string]string) map[string]string {
	if env == nil {
		return nil
	}

	masked := make(map[string]string, len(env))
	for k, v := range env {
		if ShouldMask(k) || ContainsTokenPrefix(v) {
			masked[k] = Value(v)
		} else {
			masked[k] = v
		}
	}
	return masked
}

// Args returns a copy of args with secret flag values masked. Both the
// "--api-key=value" and "--api-key value" forms are handled.
func Args(args []string) []string {
	if args == nil {
		return nil
	}

	out := make([]string, len(args))
	maskNext := false
	for i, arg := range args {
		switch {
		case maskNext:
			out[i] = Value(arg)
			maskNext = false
		case strings.HasPrefix(arg, "-"):
			name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
			switch {
			case !ShouldMask(name):
				out[i] = arg
			case hasValue:
				out[i] = arg[:len(arg)-len(value)] + Value(value)
			default:
				out[i] = arg
				maskNext = true
			}
		case ContainsTokenPrefix(arg):
			out[i] = Value(arg)
		default:
			out[i] = arg
		}
	}
	return out
}

// Value masks a single string, keeping the last four characters when the
// value is long enough to make that safe.
func Value(value string) string {
	if len(value) <= 4 {
		return "********"
	}
	return "****" + value[len(value)-4:]
}

// URL masks the password component of rawURL. Unparseable input is
// returned unchanged.
func URL(rawURL string) string {
	if rawURL == "" {
		return rawURL
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.User == nil {
		return rawURL
	}

	password, ok := parsed.User.Password()
	if !ok || password == "" {
		return rawURL
	}
	parsed.User = url.UserPassword(parsed.User.Username(), Value(password))
	return parsed.String()
}

// ShouldMask reports whether key names something sensitive.
func ShouldMask(key string) bool {
	upper := strings.ToUpper(key)
	for _, pattern := range secretKeyPatterns {
		if strings.Contains(upper, pattern) {
			return true
		}
	}
	return false
}

// ContainsTokenPrefix reports whether value starts with a known token prefix.
func ContainsTokenPrefix(value string) bool {
	for _, prefix := range tokenPrefixes {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}
	return false
}
