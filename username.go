package accounts

import (
	"context"
	"strconv"
	"strings"
)

// UsernameExistsFunc reports whether a candidate username is already taken.
type UsernameExistsFunc func(ctx context.Context, username string) (bool, error)

const usernameFallback = "user"

// SanitizeUsername lowercases the input and strips every rune outside the
// host platform's allowed username set [a-z0-9._-].
func SanitizeUsername(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// UsernameFromEmail derives the base username candidate from the local part
// of an email address. A local part that sanitizes away entirely falls back
// to "user".
func UsernameFromEmail(email string) string {
	local := email
	if at := strings.Index(email, "@"); at >= 0 {
		local = email[:at]
	}

	if name := SanitizeUsername(local); name != "" {
		return name
	}
	return usernameFallback
}

// GenerateUsername probes base, base1, base2, ... against the store until a
// free name turns up. The loop carries no hard cap; the store is the
// terminator, and in practice the suffix stays small.
func GenerateUsername(ctx context.Context, email string, exists UsernameExistsFunc) (string, error) {
	base := UsernameFromEmail(email)

	candidate := base
	for i := 1; ; i++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + strconv.Itoa(i)
	}
}
