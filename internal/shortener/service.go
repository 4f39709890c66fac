package shortener

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/sundayezeilo/shortlinks/internal/errx"
	"github.com/sundayezeilo/shortlinks/sluggen"
)

// CreateLinkRequest represents the parameters for creating a new link.
type CreateLinkRequest struct {
	Destination string
	CustomCode  string // optional: if empty, a code is generated
	OwnerID     string // empty for anonymous requests
}

// CreateLinkResult is the outcome of Service.Create.
type CreateLinkResult struct {
	Link Link
	// Created is false when an existing link was returned instead.
	Created bool
}

// DestinationCache is an optional read-through cache in front of Resolve.
type DestinationCache interface {
	GetDestination(ctx context.Context, code string) (destination string, ok bool, err error)
	SetDestination(ctx context.Context, code, destination string) error
}

// Service defines the business logic operations for URL shortening.
type Service interface {
	Create(ctx context.Context, req CreateLinkRequest) (CreateLinkResult, error)
	Resolve(ctx context.Context, code string) (string, error)
	Stats(ctx context.Context, code string) (Link, error)
	History(ctx context.Context, ownerID string) ([]Link, error)
}

type service struct {
	repo           Repository
	codeGenerator  sluggen.Generator
	codeLength     int
	codeMaxRetries int
	cache          DestinationCache
	metrics        *Metrics
	logger         *slog.Logger
}

// ServiceConfig holds configuration for the service.
type ServiceConfig struct {
	CodeGenerator  sluggen.Generator
	CodeLength     int
	CodeMaxRetries int              // insert attempts with generated codes (default: 5)
	Cache          DestinationCache // optional
	Metrics        *Metrics         // optional
	Logger         *slog.Logger
}

// NewService creates a new service instance.
func NewService(repo Repository, config *ServiceConfig) Service {
	if config == nil {
		config = &ServiceConfig{}
	}

	codeGen := config.CodeGenerator
	if codeGen == nil {
		codeGen = sluggen.NewBase62()
	}

	codeLength := config.CodeLength
	if codeLength < MinCodeLength || codeLength > MaxCodeLength {
		codeLength = DefaultCodeLength
	}

	retries := config.CodeMaxRetries
	if retries <= 0 {
		retries = DefaultCodeMaxRetries
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &service{
		repo:           repo,
		codeGenerator:  codeGen,
		codeLength:     codeLength,
		codeMaxRetries: retries,
		cache:          config.Cache,
		metrics:        config.Metrics,
		logger:         logger,
	}
}

// Create stores a new link, or returns the caller's existing link for the same
// destination. Anonymous requests always create a fresh link.
func (s *service) Create(ctx context.Context, req CreateLinkRequest) (CreateLinkResult, error) {
	const op = "shortener.service.Create"

	if err := ValidateDestination(req.Destination); err != nil {
		return CreateLinkResult{}, errx.E(op, errx.Invalid, err)
	}
	if req.CustomCode != "" {
		if err := ValidateCustomCode(req.CustomCode); err != nil {
			return CreateLinkResult{}, errx.E(op, errx.Invalid, err)
		}
	}

	if req.OwnerID != "" {
		existing, err := s.repo.FindByOwnerAndDestination(ctx, req.OwnerID, req.Destination)
		switch {
		case err == nil:
			return CreateLinkResult{Link: existing}, nil
		case errx.KindOf(err) != errx.NotFound:
			return CreateLinkResult{}, errx.Wrap(op, err)
		}
	}

	link := Link{Destination: req.Destination, OwnerID: req.OwnerID}
	if req.CustomCode != "" {
		link.Code = req.CustomCode
		return s.insertCustom(ctx, link)
	}
	return s.insertGenerated(ctx, link)
}

func (s *service) insertCustom(ctx context.Context, link Link) (CreateLinkResult, error) {
	const op = "shortener.service.Create"

	created, err := s.repo.Insert(ctx, link)
	switch {
	case err == nil:
		return CreateLinkResult{Link: created, Created: true}, nil

	case errors.Is(err, ErrDuplicateDestination):
		return s.existingForOwner(ctx, link)

	case errors.Is(err, ErrCodeConflict):
		// The code is only reusable by the owner who already maps it to this destination.
		if !link.Anonymous() {
			existing, findErr := s.repo.FindByCode(ctx, link.Code)
			if findErr == nil && existing.OwnerID == link.OwnerID && existing.Destination == link.Destination {
				return CreateLinkResult{Link: existing}, nil
			}
		}
		return CreateLinkResult{}, errx.E(op, errx.Conflict, fmt.Errorf("%w: %q", ErrCodeTaken, link.Code))

	default:
		return CreateLinkResult{}, errx.Wrap(op, err)
	}
}

func (s *service) insertGenerated(ctx context.Context, link Link) (CreateLinkResult, error) {
	const op = "shortener.service.Create"

	for attempt := range s.codeMaxRetries {
		code, err := s.codeGenerator.Generate(s.codeLength)
		if err != nil {
			return CreateLinkResult{}, errx.E(op, errx.Unavailable, err)
		}
		if reservedCodes[strings.ToLower(code)] {
			s.metrics.codeRetry()
			s.logger.DebugContext(ctx, "generated code is reserved",
				"code", code,
				"attempt", attempt+1,
			)
			continue
		}
		link.Code = code

		created, err := s.repo.Insert(ctx, link)
		switch {
		case err == nil:
			return CreateLinkResult{Link: created, Created: true}, nil

		case errors.Is(err, ErrCodeConflict):
			s.metrics.codeRetry()
			s.logger.DebugContext(ctx, "generated code collided",
				"code", code,
				"attempt", attempt+1,
			)
			continue

		case errors.Is(err, ErrDuplicateDestination):
			return s.existingForOwner(ctx, link)

		default:
			return CreateLinkResult{}, errx.Wrap(op, err)
		}
	}

	return CreateLinkResult{}, errx.E(op, errx.Unavailable,
		fmt.Errorf("%w after %d attempts", ErrRetriesExhausted, s.codeMaxRetries))
}

// existingForOwner re-reads the link a concurrent request stored for the same
// owner and destination.
func (s *service) existingForOwner(ctx context.Context, link Link) (CreateLinkResult, error) {
	const op = "shortener.service.Create"

	existing, err := s.repo.FindByOwnerAndDestination(ctx, link.OwnerID, link.Destination)
	if err != nil {
		return CreateLinkResult{}, errx.Wrap(op, err)
	}
	return CreateLinkResult{Link: existing}, nil
}

// Resolve returns the destination for code. It does not count the visit.
func (s *service) Resolve(ctx context.Context, code string) (string, error) {
	const op = "shortener.service.Resolve"

	if !isLookupCode(code) {
		return "", errx.E(op, errx.NotFound, ErrLinkNotFound)
	}

	if s.cache != nil {
		destination, ok, err := s.cache.GetDestination(ctx, code)
		if err != nil {
			s.logger.WarnContext(ctx, "destination cache read failed", "code", code, "error", err)
		}
		if ok {
			return destination, nil
		}
	}

	link, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return "", errx.Wrap(op, err)
	}

	if s.cache != nil {
		if err := s.cache.SetDestination(ctx, code, link.Destination); err != nil {
			s.logger.WarnContext(ctx, "destination cache write failed", "code", code, "error", err)
		}
	}
	return link.Destination, nil
}

// Stats returns the link for code including its click counter.
func (s *service) Stats(ctx context.Context, code string) (Link, error) {
	const op = "shortener.service.Stats"

	if !isLookupCode(code) {
		return Link{}, errx.E(op, errx.NotFound, ErrLinkNotFound)
	}

	link, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return Link{}, errx.Wrap(op, err)
	}
	return link, nil
}

// History lists the owner's links, newest first.
func (s *service) History(ctx context.Context, ownerID string) ([]Link, error) {
	const op = "shortener.service.History"

	if ownerID == "" {
		return nil, errx.E(op, errx.Unauthorized, ErrAuthRequired)
	}

	links, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, errx.Wrap(op, err)
	}
	return links, nil
}
