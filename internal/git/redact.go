package git

import "strings"

// Mask replaces every redacted secret.
const Mask = "******"

// Redact replaces each non-blank secret in s with Mask. Secrets are applied in
// order, so a secret that contains another must be listed first.
func Redact(s string, secrets []string) string {
	for _, secret := range secrets {
		secret = strings.TrimSpace(secret)
		if secret == "" {
			continue
		}
		s = strings.ReplaceAll(s, secret, Mask)
	}
	return s
}

// RedactAll redacts every line.
func RedactAll(lines []string, secrets []string) []string {
	if len(lines) == 0 {
		return lines
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = Redact(l, secrets)
	}
	return out
}
