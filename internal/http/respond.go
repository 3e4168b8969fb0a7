package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"painel/internal/auth"
	"painel/internal/core"
	plog "painel/internal/log"
)

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		plog.Default(plog.ComponentHTTP).Error("Failed to encode response", plog.FieldError, err)
	}
}

// writeError maps domain errors to status codes. Unknown errors are logged
// and answered with a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *core.ValidationError
		dependents *core.DependentsError
	)
	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: validation.Msg, Field: validation.Field})
	case errors.As(err, &dependents):
		writeJSON(w, http.StatusConflict, errorBody{Error: dependents.Error()})
	case errors.Is(err, core.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "não encontrado"})
	case errors.Is(err, auth.ErrMissingToken), errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		w.Header().Set("WWW-Authenticate", `Bearer realm="painel"`)
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "não autorizado"})
	default:
		plog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			plog.FieldMethod, r.Method,
			plog.FieldPath, r.URL.Path,
			plog.FieldError, err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "erro interno"})
	}
}
