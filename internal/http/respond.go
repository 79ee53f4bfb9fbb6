package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/haw0k/mern-links/internal/validate"
)

// writeJSON writes JSON response with status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeMessage sends a response carrying only a user-safe message.
func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// writeValidation sends the full per-field failure list plus a summary.
func writeValidation(w http.ResponseWriter, fields []validate.FieldError, summary string) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"errors":  fields,
		"message": summary,
	})
}
