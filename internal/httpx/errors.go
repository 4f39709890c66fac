package httpx

import (
	"net/http"

	"github.com/sundayezeilo/shortlinks/internal/errx"
)

type kindResponse struct {
	status int
	code   string
}

var kindResponses = map[errx.Kind]kindResponse{
	errx.NotFound:     {http.StatusNotFound, "not_found"},
	errx.Conflict:     {http.StatusConflict, "conflict"},
	errx.Invalid:      {http.StatusBadRequest, "invalid_input"},
	errx.Unauthorized: {http.StatusUnauthorized, "unauthorized"},
	errx.Unavailable:  {http.StatusServiceUnavailable, "unavailable"},
	errx.Internal:     {http.StatusInternalServerError, "internal_error"},
}

var fallbackResponse = kindResponse{http.StatusInternalServerError, "internal_error"}

func responseFor(kind errx.Kind) kindResponse {
	if resp, ok := kindResponses[kind]; ok {
		return resp
	}
	return fallbackResponse
}

// WriteKindError writes the status and code for err's kind with the given message.
func WriteKindError(w http.ResponseWriter, err error, message string) {
	resp := responseFor(errx.KindOf(err))
	WriteError(w, resp.status, resp.code, message, nil)
}
