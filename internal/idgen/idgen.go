// Package idgen produces surrogate primary keys for stored links.
package idgen

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator generates unique identifiers.
// Implementations should be safe for concurrent use.
type Generator interface {
	Generate() (uuid.UUID, error)
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func() (uuid.UUID, error)

func (f GeneratorFunc) Generate() (uuid.UUID, error) { return f() }

// NewV7 returns a Generator that produces time-ordered UUID v7 values, which keep
// the links primary key index append-mostly. A failed read from the entropy source
// is retried up to retries more times.
func NewV7(retries int) Generator {
	if retries < 0 {
		retries = 0
	}
	return GeneratorFunc(func() (uuid.UUID, error) {
		var last error
		for range retries + 1 {
			id, err := uuid.NewV7()
			if err == nil {
				return id, nil
			}
			last = err
		}
		return uuid.Nil, fmt.Errorf("uuid v7 generation failed after %d attempts: %w", retries+1, last)
	})
}
