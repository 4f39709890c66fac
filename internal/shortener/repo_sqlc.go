package shortener

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	db "github.com/sundayezeilo/shortlinks/internal/db/sqlc"
	"github.com/sundayezeilo/shortlinks/internal/errx"
	"github.com/sundayezeilo/shortlinks/internal/idgen"
)

// querier is an internal interface that abstracts *db.Queries
type querier interface {
	CreateLink(ctx context.Context, arg db.CreateLinkParams) (db.Link, error)
	GetLinkByCode(ctx context.Context, code string) (db.Link, error)
	GetLinkByOwnerAndDestination(ctx context.Context, arg db.GetLinkByOwnerAndDestinationParams) (db.Link, error)
	ListLinksByOwner(ctx context.Context, ownerID pgtype.Text) ([]db.Link, error)
	IncrementLinkClicks(ctx context.Context, code string) (int64, error)
}

type repo struct {
	q       querier
	ids     idgen.Generator
	metrics *Metrics
}

// RepositoryConfig holds configuration for the repository
type RepositoryConfig struct {
	IDGenerator idgen.Generator
	Metrics     *Metrics // optional
}

// NewRepository creates a new Repository backed by sqlc queries.
func NewRepository(q querier, config *RepositoryConfig) Repository {
	if config == nil {
		config = &RepositoryConfig{}
	}

	ids := config.IDGenerator
	if ids == nil {
		ids = idgen.NewV7(1)
	}

	return &repo{
		q:       q,
		ids:     ids,
		metrics: config.Metrics,
	}
}

func ownerText(ownerID string) pgtype.Text {
	return pgtype.Text{String: ownerID, Valid: ownerID != ""}
}

func mustTime(ts pgtype.Timestamptz, field string) (time.Time, error) {
	if !ts.Valid {
		return time.Time{}, fmt.Errorf("%s unexpectedly NULL", field)
	}
	return ts.Time, nil
}

func toDomainLink(x db.Link) (Link, error) {
	createdAt, err := mustTime(x.CreatedAt, "created_at")
	if err != nil {
		return Link{}, err
	}

	return Link{
		ID:          x.ID,
		Code:        x.Code,
		Destination: x.Destination,
		OwnerID:     x.OwnerID.String,
		Clicks:      x.Clicks,
		CreatedAt:   createdAt,
	}, nil
}

func mapRepoError(op string, err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return errx.E(op, errx.NotFound, fmt.Errorf("%w: %w", ErrLinkNotFound, err))

	case isUniqueViolation(err, codeUniqueConstraint):
		return errx.E(op, errx.Conflict, fmt.Errorf("%w: %w", ErrCodeConflict, err))

	case isUniqueViolation(err, ownerDestinationUniqueConstraint):
		return errx.E(op, errx.Conflict, fmt.Errorf("%w: %w", ErrDuplicateDestination, err))

	case isCheckViolation(err):
		return errx.E(op, errx.Invalid, err)

	default:
		return errx.E(op, errx.Unavailable, err)
	}
}

// queryStatus labels a query outcome for metrics.
func queryStatus(err error) string {
	switch {
	case err == nil:
		return statusSuccess
	case errors.Is(err, pgx.ErrNoRows):
		return statusNotFound
	case isUniqueViolation(err, codeUniqueConstraint):
		return statusCollision
	default:
		return statusError
	}
}

func (r *repo) Insert(ctx context.Context, link Link) (Link, error) {
	const op = "shortener.repo.Insert"

	if link.ID == uuid.Nil {
		id, err := r.ids.Generate()
		if err != nil {
			return Link{}, errx.E(op, errx.Unavailable, err)
		}
		link.ID = id
	}

	start := time.Now()
	row, err := r.q.CreateLink(ctx, db.CreateLinkParams{
		ID:          link.ID,
		Code:        link.Code,
		Destination: link.Destination,
		OwnerID:     ownerText(link.OwnerID),
	})
	r.metrics.observeQuery("create_link", start, queryStatus(err))
	if err != nil {
		return Link{}, mapRepoError(op, err)
	}

	return toDomainLink(row)
}

func (r *repo) FindByCode(ctx context.Context, code string) (Link, error) {
	const op = "shortener.repo.FindByCode"

	start := time.Now()
	row, err := r.q.GetLinkByCode(ctx, code)
	r.metrics.observeQuery("get_link_by_code", start, queryStatus(err))
	if err != nil {
		return Link{}, mapRepoError(op, err)
	}
	return toDomainLink(row)
}

func (r *repo) FindByOwnerAndDestination(ctx context.Context, ownerID, destination string) (Link, error) {
	const op = "shortener.repo.FindByOwnerAndDestination"

	if ownerID == "" {
		return Link{}, errx.E(op, errx.NotFound, ErrLinkNotFound)
	}

	start := time.Now()
	row, err := r.q.GetLinkByOwnerAndDestination(ctx, db.GetLinkByOwnerAndDestinationParams{
		OwnerID:     ownerText(ownerID),
		Destination: destination,
	})
	r.metrics.observeQuery("get_link_by_owner_and_destination", start, queryStatus(err))
	if err != nil {
		return Link{}, mapRepoError(op, err)
	}
	return toDomainLink(row)
}

func (r *repo) ListByOwner(ctx context.Context, ownerID string) ([]Link, error) {
	const op = "shortener.repo.ListByOwner"

	links := []Link{}
	if ownerID == "" {
		return links, nil
	}

	start := time.Now()
	rows, err := r.q.ListLinksByOwner(ctx, ownerText(ownerID))
	r.metrics.observeQuery("list_links_by_owner", start, queryStatus(err))
	if err != nil {
		return nil, mapRepoError(op, err)
	}

	for _, row := range rows {
		link, err := toDomainLink(row)
		if err != nil {
			return nil, errx.E(op, errx.Internal, err)
		}
		links = append(links, link)
	}
	return links, nil
}

func (r *repo) IncrementClicks(ctx context.Context, code string) error {
	const op = "shortener.repo.IncrementClicks"

	start := time.Now()
	affected, err := r.q.IncrementLinkClicks(ctx, code)
	if err == nil && affected == 0 {
		err = pgx.ErrNoRows
	}
	r.metrics.observeQuery("increment_link_clicks", start, queryStatus(err))
	if err != nil {
		return mapRepoError(op, err)
	}
	return nil
}
