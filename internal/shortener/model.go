package shortener

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Link maps a short code to its destination URL.
type Link struct {
	ID          uuid.UUID
	Code        string
	Destination string
	OwnerID     string // empty for anonymously created links
	Clicks      int64
	CreatedAt   time.Time
}

// Anonymous reports whether the link was created without an owner.
func (l Link) Anonymous() bool { return l.OwnerID == "" }

var (
	// ErrLinkNotFound is wrapped by lookups that match no link.
	ErrLinkNotFound = errors.New("link not found")

	// ErrCodeConflict is wrapped by Repository.Insert when the code is already stored.
	ErrCodeConflict = errors.New("code already exists")

	// ErrDuplicateDestination is wrapped by Repository.Insert when the owner already
	// has a link for the destination.
	ErrDuplicateDestination = errors.New("destination already shortened by owner")

	// ErrCodeTaken is returned when a caller-supplied code belongs to another link.
	ErrCodeTaken = errors.New("code already taken")

	// ErrRetriesExhausted is returned when every generated code collided.
	ErrRetriesExhausted = errors.New("could not generate a unique code")

	// ErrAuthRequired is returned by owner-scoped operations called without an owner.
	ErrAuthRequired = errors.New("authentication required")
)
