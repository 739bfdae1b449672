package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"provisionr/pkg/db"
	"provisionr/pkg/render"
	"provisionr/services/provisioner"
)

func decodeJSON(r *http.Request, dest any) error {
	if r.Body == nil {
		return errors.New("request body required")
	}
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	respondJSON(w, status, map[string]any{"error": err.Error()})
}

func respondText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, provisioner.ErrInvalidIdentity), errors.Is(err, provisioner.ErrInvalidTargetOS):
		return http.StatusUnprocessableEntity
	case errors.Is(err, render.ErrInvalidTemplateName):
		return http.StatusBadRequest
	case errors.Is(err, render.ErrTemplateNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with its mapped status. Server side failures are logged;
// only template errors keep their detail in the response.
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status < http.StatusInternalServerError {
		respondError(w, status, err)
		return
	}

	a.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	var renderErr *render.Error
	if errors.As(err, &renderErr) {
		respondError(w, status, renderErr)
		return
	}
	respondError(w, status, errors.New(http.StatusText(status)))
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, db.DefaultTimeout)
}
