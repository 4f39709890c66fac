package shortener

import (
	"strings"
	"testing"
)

func TestIsValidDestination(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"https", "https://example.com", true},
		{"http with path and query", "http://example.com/a/b?c=d#frag", true},
		{"uppercase scheme", "HTTPS://example.com", true},
		{"with port", "https://example.com:8443/x", true},
		{"ip host", "http://127.0.0.1/", true},
		{"empty", "", false},
		{"no scheme", "example.com", false},
		{"plain word", "invalid-url", false},
		{"ftp", "ftp://example.com/file", false},
		{"javascript", "javascript:alert(1)", false},
		{"mailto", "mailto:someone@example.com", false},
		{"scheme only", "https://", false},
		{"port only", "https://:8080", false},
		{"leading space", " https://example.com", false},
		{"too long", "https://example.com/" + strings.Repeat("a", MaxURLLength), false},
		{"percent encoded", "https://example.com/a%20b?q=%3C", true},
		{"ipv6 host", "http://[::1]:8080/", true},
		{"space in path", "https://example.com/path with space", false},
		{"angle brackets", "https://example.com/<script>", false},
		{"space in host", "http://a b.com", false},
		{"non-ascii", "https://exämple.com", false},
		{"port out of range", "https://example.com:99999", false},
		{"port zero", "https://example.com:0/", false},
		{"empty port", "https://example.com:/", false},
		{"dash host", "http://-", false},
		{"dot host", "https://.", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidDestination(tt.url); got != tt.want {
				t.Errorf("IsValidDestination(%q) = %v, want %v (err: %v)", tt.url, got, tt.want, ValidateDestination(tt.url))
			}
		})
	}
}

func TestValidateCustomCode(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantErr string
	}{
		{"alphanumeric", "abc123", ""},
		{"dash and underscore inside", "my-link_2", ""},
		{"minimum length", "abc", ""},
		{"maximum length", strings.Repeat("a", MaxCodeLength), ""},
		{"empty", "", "empty"},
		{"too short", "ab", "too short"},
		{"too long", strings.Repeat("a", MaxCodeLength+1), "too long"},
		{"leading dash", "-abc", "start or end"},
		{"trailing underscore", "abc_", "start or end"},
		{"slash", "a/b/c", "invalid characters"},
		{"space", "my link", "invalid characters"},
		{"unicode", "héllo", "invalid characters"},
		{"reserved", "stats", "reserved"},
		{"reserved any case", "History", "reserved"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCustomCode(tt.code)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("ValidateCustomCode(%q) unexpected error: %v", tt.code, err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ValidateCustomCode(%q) error = %v, want containing %q", tt.code, err, tt.wantErr)
			}
		})
	}
}

func TestIsLookupCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"Ab3xK9q", true},
		{"my-link", true},
		{"_x", true},
		{"", false},
		{"a.b", false},
		{strings.Repeat("z", MaxCodeLength+1), false},
	}

	for _, tt := range tests {
		if got := isLookupCode(tt.code); got != tt.want {
			t.Errorf("isLookupCode(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}
