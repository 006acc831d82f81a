package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"pocketbook-server/src/util"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: Failed to encode response: %v", err)
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writePayloadError answers 400 for validation and parse errors and reports
// whether err was one of them.
func writePayloadError(w http.ResponseWriter, err error) bool {
	var fieldErrs util.FieldErrors
	if errors.As(err, &fieldErrs) {
		writeJSON(w, http.StatusBadRequest, fieldErrs)
		return true
	}
	var payloadErr *util.PayloadError
	if errors.As(err, &payloadErr) {
		writeDetail(w, http.StatusBadRequest, payloadErr.Error())
		return true
	}
	return false
}

// notFound answers 404 with an empty body.
func notFound(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNotFound)
}
