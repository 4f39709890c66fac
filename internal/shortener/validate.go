package shortener

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultCodeLength     = 7
	MinCodeLength         = 3
	MaxCodeLength         = 64
	MaxURLLength          = 2048
	DefaultCodeMaxRetries = 5
)

// allowedSchemes is the destination scheme policy.
var allowedSchemes = map[string]bool{
	"http":  true,
	"https": true,
}

// reservedCodes would shadow fixed routes if used as codes, custom or generated.
var reservedCodes = map[string]bool{
	"api":     true,
	"history": true,
	"metrics": true,
	"shorten": true,
	"stats":   true,
	"x":       true,
}

// IsValidDestination reports whether candidate is an absolute http(s) URL.
// It never touches the network.
func IsValidDestination(candidate string) bool {
	return ValidateDestination(candidate) == nil
}

// ValidateDestination explains why candidate is not an acceptable destination.
// Scheme-less input such as "example.com" is rejected, not corrected.
func ValidateDestination(candidate string) error {
	if candidate == "" {
		return errors.New("destination cannot be empty")
	}
	if len(candidate) > MaxURLLength {
		return fmt.Errorf("destination too long (max %d characters)", MaxURLLength)
	}
	if strings.TrimSpace(candidate) != candidate {
		return errors.New("destination cannot have surrounding whitespace")
	}

	for i := range len(candidate) {
		if !isURLByte(candidate[i]) {
			return fmt.Errorf("destination contains invalid character %q", candidate[i])
		}
	}

	u, err := url.Parse(candidate)
	if err != nil {
		return errors.New("invalid destination format")
	}
	if u.Scheme == "" {
		return errors.New("destination must include scheme (http or https)")
	}
	if !allowedSchemes[strings.ToLower(u.Scheme)] {
		return errors.New("destination scheme must be http or https")
	}
	if u.Host == "" || u.Hostname() == "" {
		return errors.New("destination must include host")
	}
	if strings.Trim(u.Hostname(), ".-") == "" {
		return errors.New("destination host is invalid")
	}
	if p := u.Port(); p != "" {
		if n, err := strconv.Atoi(p); err != nil || n < 1 || n > 65535 {
			return errors.New("destination port must be between 1 and 65535")
		}
	} else if strings.HasSuffix(u.Host, ":") {
		return errors.New("destination port cannot be empty")
	}
	return nil
}

// isURLByte reports whether b may appear in a URI: RFC 3986 unreserved and
// reserved characters plus '%' for percent-encoding.
func isURLByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	}
	return strings.IndexByte("-._~:/?#[]@!$&'()*+,;=%", b) >= 0
}

// ValidateCustomCode checks the format of a caller-supplied code. Uniqueness is
// left to the store.
func ValidateCustomCode(code string) error {
	if code == "" {
		return errors.New("code cannot be empty")
	}
	if len(code) < MinCodeLength {
		return fmt.Errorf("code too short (minimum %d characters)", MinCodeLength)
	}
	if len(code) > MaxCodeLength {
		return fmt.Errorf("code too long (maximum %d characters)", MaxCodeLength)
	}
	if strings.HasPrefix(code, "-") || strings.HasPrefix(code, "_") ||
		strings.HasSuffix(code, "-") || strings.HasSuffix(code, "_") {
		return errors.New("code cannot start or end with dash or underscore")
	}
	for _, c := range code {
		if !isCodeChar(c) {
			return errors.New("code contains invalid characters (only alphanumeric, dash, and underscore allowed)")
		}
	}
	if reservedCodes[strings.ToLower(code)] {
		return fmt.Errorf("code %q is reserved", code)
	}
	return nil
}

// isLookupCode reports whether code could belong to a stored link at all.
func isLookupCode(code string) bool {
	if code == "" || len(code) > MaxCodeLength {
		return false
	}
	for _, c := range code {
		if !isCodeChar(c) {
			return false
		}
	}
	return true
}

func isCodeChar(c rune) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '-' || c == '_':
		return true
	default:
		return false
	}
}
