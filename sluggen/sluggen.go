// Package sluggen generates random short codes for links.
// Generators are safe for concurrent use and never perform I/O beyond reading
// from crypto/rand.
package sluggen

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
)

// Base62 is the default alphabet: digits plus upper and lower case ASCII letters.
const Base62 = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Generator generates short codes.
// Implementations should be safe for concurrent use.
type Generator interface {
	Generate(length int) (string, error)
}

type alphabetGenerator struct {
	alphabet string
	// limit is the largest multiple of len(alphabet) that fits in a byte;
	// random bytes at or above it are discarded so every symbol is equally likely.
	limit int
}

// NewBase62 returns a generator drawing from the Base62 alphabet.
func NewBase62() Generator {
	g, _ := NewAlphabet(Base62)
	return g
}

// NewAlphabet returns a generator drawing uniformly from alphabet.
// The alphabet must hold between 2 and 256 distinct bytes.
func NewAlphabet(alphabet string) (Generator, error) {
	if len(alphabet) < 2 || len(alphabet) > 256 {
		return nil, fmt.Errorf("alphabet must have between 2 and 256 characters, got %d", len(alphabet))
	}
	for i := range len(alphabet) {
		if strings.IndexByte(alphabet[i+1:], alphabet[i]) >= 0 {
			return nil, fmt.Errorf("alphabet contains duplicate character %q", alphabet[i])
		}
	}
	return &alphabetGenerator{
		alphabet: alphabet,
		limit:    256 - 256%len(alphabet),
	}, nil
}

// Generate returns a random code of the given length.
func (g *alphabetGenerator) Generate(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("length must be positive")
	}

	out := make([]byte, 0, length)
	buf := make([]byte, length+length/2)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= g.limit {
				continue
			}
			out = append(out, g.alphabet[int(b)%len(g.alphabet)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}

// Matches reports whether every character of code belongs to alphabet.
func Matches(code, alphabet string) bool {
	if code == "" {
		return false
	}
	for i := range len(code) {
		if strings.IndexByte(alphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}
