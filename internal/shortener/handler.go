package shortener

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sundayezeilo/shortlinks/internal/auth"
	"github.com/sundayezeilo/shortlinks/internal/errx"
	"github.com/sundayezeilo/shortlinks/internal/httpx"
)

// ShortenRequest is the JSON body of POST /shorten.
type ShortenRequest struct {
	Destination string `json:"destination" validate:"required"`
	CustomCode  string `json:"customCode,omitempty"`
}

// ShortenResponse is returned by POST /shorten.
type ShortenResponse struct {
	Destination string `json:"destination"`
	ShortURL    string `json:"shortUrl"`
	Code        string `json:"code"`
}

// StatsResponse is returned by GET /stats/{code}.
type StatsResponse struct {
	Destination string    `json:"destination"`
	ShortURL    string    `json:"shortUrl"`
	Clicks      int64     `json:"clicks"`
	CreatedAt   time.Time `json:"createdAt"`
}

// HistoryItem is one element of the GET /history response.
type HistoryItem struct {
	Code        string    `json:"code"`
	Destination string    `json:"destination"`
	ShortURL    string    `json:"shortUrl"`
	Clicks      int64     `json:"clicks"`
	CreatedAt   time.Time `json:"createdAt"`
	OwnerID     string    `json:"ownerId"`
}

// VisitRecorder counts a redirect.
type VisitRecorder interface {
	RecordVisit(ctx context.Context, code string)
}

// Handler provides HTTP handlers for the URL shortener service.
type Handler struct {
	service Service
	visits  VisitRecorder
	logger  *slog.Logger
	baseURL string
}

// HandlerConfig holds configuration for the handler.
type HandlerConfig struct {
	Service Service
	Visits  VisitRecorder
	Logger  *slog.Logger
	BaseURL string // e.g. "https://sho.rt"; short URLs are BaseURL + "/" + code
}

// NewHandler creates a new Handler instance.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		service: cfg.Service,
		visits:  cfg.Visits,
		logger:  logger,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}
}

func (h *Handler) shortURL(code string) string {
	return h.baseURL + "/" + code
}

func (h *Handler) requestLogger(r *http.Request) *slog.Logger {
	return h.logger.With(
		"request_id", httpx.GetRequestID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
	)
}

// Shorten handles POST /shorten. It answers 201 for a new link and 200 when the
// caller's existing link is returned.
func (h *Handler) Shorten(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	req, err := httpx.DecodeAndValidate[ShortenRequest](r)
	if err != nil {
		logger.WarnContext(ctx, "invalid shorten request", "error", err.Error())
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	ownerID := auth.OwnerID(ctx)
	result, err := h.service.Create(ctx, CreateLinkRequest{
		Destination: req.Destination,
		CustomCode:  req.CustomCode,
		OwnerID:     ownerID,
	})
	if err != nil {
		h.handleCreateError(ctx, logger, w, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
		logger.InfoContext(ctx, "link created",
			"code", result.Link.Code,
			"custom_code", req.CustomCode != "",
			"anonymous", ownerID == "",
		)
	}

	httpx.WriteJSON(w, status, ShortenResponse{
		Destination: result.Link.Destination,
		ShortURL:    h.shortURL(result.Link.Code),
		Code:        result.Link.Code,
	})
}

// Redirect handles GET /{code}: it counts the visit and sends a 302.
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := r.PathValue("code")

	destination, err := h.service.Resolve(ctx, code)
	if err != nil {
		h.handleLookupError(ctx, h.requestLogger(r), w, err, code)
		return
	}

	if h.visits != nil {
		h.visits.RecordVisit(ctx, code)
	}
	httpx.Redirect(w, r, destination)
}

// Stats handles GET /stats/{code}.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := r.PathValue("code")

	link, err := h.service.Stats(ctx, code)
	if err != nil {
		h.handleLookupError(ctx, h.requestLogger(r), w, err, code)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, StatsResponse{
		Destination: link.Destination,
		ShortURL:    h.shortURL(link.Code),
		Clicks:      link.Clicks,
		CreatedAt:   link.CreatedAt.UTC(),
	})
}

// History handles GET /history for the authenticated owner.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	links, err := h.service.History(ctx, auth.OwnerID(ctx))
	if err != nil {
		h.handleLookupError(ctx, h.requestLogger(r), w, err, "")
		return
	}

	items := make([]HistoryItem, 0, len(links))
	for _, link := range links {
		items = append(items, HistoryItem{
			Code:        link.Code,
			Destination: link.Destination,
			ShortURL:    h.shortURL(link.Code),
			Clicks:      link.Clicks,
			CreatedAt:   link.CreatedAt.UTC(),
			OwnerID:     link.OwnerID,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, items)
}

func errorAttrs(err error) []any {
	return []any{
		"error", err.Error(),
		"error_kind", errx.KindOf(err).String(),
		"operation", errx.OpOf(err),
	}
}

// handleCreateError handles errors from the Create service method.
func (h *Handler) handleCreateError(ctx context.Context, logger *slog.Logger, w http.ResponseWriter, err error) {
	logAttrs := errorAttrs(err)

	switch kind := errx.KindOf(err); {
	case kind == errx.Conflict && errors.Is(err, ErrCodeTaken):
		logger.WarnContext(ctx, "custom code taken", logAttrs...)
		httpx.WriteError(w, http.StatusConflict, "code_taken",
			"This code is already taken",
			map[string]string{
				"hint": "Try a different custom code or omit it to get a generated one",
			})

	case kind == errx.Invalid:
		logger.WarnContext(ctx, "invalid link request", logAttrs...)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_input", errx.Cause(err).Error(), nil)

	case kind == errx.Unavailable && errors.Is(err, ErrRetriesExhausted):
		logger.ErrorContext(ctx, "code space exhausted", logAttrs...)
		httpx.WriteError(w, http.StatusServiceUnavailable, "unavailable",
			"Unable to allocate a short code right now. Please try again.", nil)

	case kind == errx.Unavailable:
		logger.ErrorContext(ctx, "link store unavailable", logAttrs...)
		httpx.WriteError(w, http.StatusServiceUnavailable, "unavailable",
			"Unable to create short link at this time. Please try again.", nil)

	default:
		logger.ErrorContext(ctx, "unexpected error creating link", logAttrs...)
		httpx.WriteKindError(w, err, "Unable to create short link at this time. Please try again.")
	}
}

// handleLookupError handles errors from Resolve, Stats and History.
func (h *Handler) handleLookupError(ctx context.Context, logger *slog.Logger, w http.ResponseWriter, err error, code string) {
	logAttrs := append(errorAttrs(err), "code", code)

	switch errx.KindOf(err) {
	case errx.NotFound:
		logger.InfoContext(ctx, "code not found", logAttrs...)
		httpx.WriteKindError(w, err, "short link doesn't exist")

	case errx.Unauthorized:
		logger.InfoContext(ctx, "history requested without owner", logAttrs...)
		httpx.WriteKindError(w, err, "authentication required")

	case errx.Unavailable:
		logger.ErrorContext(ctx, "link store unavailable", logAttrs...)
		httpx.WriteKindError(w, err, "Unable to look up this link at this time")

	default:
		logger.ErrorContext(ctx, "unexpected error looking up link", logAttrs...)
		httpx.WriteKindError(w, err, "Unable to look up this link at this time")
	}
}
