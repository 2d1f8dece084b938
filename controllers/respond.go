package controllers

import (
	"encoding/json"
	"log"
	"net/http"

	"convo_server/apperrors"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Printf("Failed to encode response: %v", err)
		}
	}
}

// writeError maps a domain error onto its HTTP status. Server-side failures
// are logged with their cause but surfaced without internals.
func writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		log.Printf("Request failed: %v", err)
		message = "something went wrong"
	}
	writeJSON(w, status, map[string]string{
		"error": message,
		"code":  string(apperrors.CodeOf(err)),
	})
}
