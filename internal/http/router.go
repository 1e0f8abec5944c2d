// Package http serves the command API over HTTP.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mfenderov/pageocr/internal/apperr"
	"github.com/mfenderov/pageocr/internal/command"
)

const maxCommandBytes = 8 << 20

// Dispatcher executes commands. *command.Dispatcher satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd command.Command) (any, error)
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// NewRouter creates the HTTP router.
func NewRouter(d Dispatcher) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(LoggerMiddleware)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/commands", commandHandler(d))
	})

	return r
}

func commandHandler(d Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := LoggerFromContext(ctx)

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCommandBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: err.Error(), Kind: "too_large"})
				return
			}
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "failed to read body"})
			return
		}

		cmd, err := command.Decode(body)
		if err != nil {
			logger.WarnContext(ctx, "invalid command", "error", err)
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: "invalid_command"})
			return
		}

		resp, err := d.Dispatch(ctx, cmd)
		if err != nil {
			status, kind := classify(err)
			if status >= http.StatusInternalServerError {
				logger.ErrorContext(ctx, "command failed", "type", cmd.Type(), "error", err)
			} else {
				logger.InfoContext(ctx, "command rejected", "type", cmd.Type(), "error", err)
			}
			writeJSON(w, status, ErrorResponse{Error: err.Error(), Kind: kind})
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// classify maps an error to an HTTP status and a machine-readable kind.
func classify(err error) (int, string) {
	var fe *apperr.FetchError
	switch {
	case errors.Is(err, apperr.ErrEntryNotFound):
		return http.StatusNotFound, "entry_not_found"
	case apperr.IsConfiguration(err):
		return http.StatusPreconditionFailed, "configuration"
	case errors.As(err, &fe):
		return http.StatusBadGateway, "fetch"
	case apperr.IsBackend(err):
		return http.StatusBadGateway, "backend"
	case errors.Is(err, context.Canceled):
		return 499, "canceled"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
