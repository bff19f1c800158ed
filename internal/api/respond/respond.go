// Package respond writes JSON responses and maps service errors to HTTP.
package respond

import (
	"encoding/json"
	"net/http"

	"wishwell/internal/apperr"
)

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes the user-safe message for err with the mapped status. Raw
// store errors collapse to a generic internal error.
func Error(w http.ResponseWriter, err error) {
	JSON(w, apperr.HTTPStatus(err), map[string]string{
		"code":  string(apperr.CodeOf(err)),
		"error": apperr.Message(err),
	})
}
