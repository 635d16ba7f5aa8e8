// Package redact scrubs credentials out of strings before they reach logs or
// API responses.
package redact

import (
	"regexp"
	"strings"
)

var (
	// "Bearer <token>" as sent to the scraping API
	bearerTokenRe = regexp.MustCompile(`(?i)\bBearer\s+[^\s"']+`)

	// token=... query parameters leak through url.Error messages
	tokenParamRe = regexp.MustCompile(`(?i)([?&](?:token|api[_-]?key|access[_-]?key)=)[^&\s"']+`)

	// key=value and key: value formats in upstream error strings
	apiKeyKVRe = regexp.MustCompile(`(?i)\b(api[_-]?token|api[_-]?key|secret)\b\s*[:=]\s*[^\s"'&]+`)

	// Apify personal tokens
	apifyTokenRe = regexp.MustCompile(`\bapify_api_[A-Za-z0-9]+`)
)

// Secrets removes obvious secret-bearing substrings from error/log strings.
// It is safe to call on any message, including user-provided input.
func Secrets(s string) string {
	if s == "" {
		return ""
	}
	out := s
	out = bearerTokenRe.ReplaceAllString(out, "Bearer <redacted>")
	out = tokenParamRe.ReplaceAllString(out, "${1}<redacted>")
	out = apiKeyKVRe.ReplaceAllString(out, "<redacted_kv>")
	out = apifyTokenRe.ReplaceAllString(out, "<redacted_token>")
	return strings.TrimSpace(out)
}

// Mask hides all but the last four characters of a secret using a fixed
// width prefix, so the length of the secret is not revealed.
func Mask(secret string) string {
	const prefix = "********************"
	if len(secret) > 4 {
		return prefix + secret[len(secret)-4:]
	}
	return prefix + "****"
}
