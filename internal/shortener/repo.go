package shortener

import "context"

// Repository is the durable mapping from code to Link.
//
// Errors carry an errx.Kind: NotFound for missing links, Conflict for uniqueness
// violations (wrapping ErrCodeConflict or ErrDuplicateDestination) and Unavailable
// when the store cannot be reached.
type Repository interface {
	Insert(ctx context.Context, link Link) (Link, error)
	FindByCode(ctx context.Context, code string) (Link, error)
	FindByOwnerAndDestination(ctx context.Context, ownerID, destination string) (Link, error)
	// ListByOwner returns the owner's links, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]Link, error)
	// IncrementClicks adds one to the link's counter in a single atomic statement.
	IncrementClicks(ctx context.Context, code string) error
}
