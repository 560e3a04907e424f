package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// RequireMethod validates that the request uses the specified HTTP method
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// RequireSemesterKey rejects keys that are not "{year}_{term}"
func RequireSemesterKey(w http.ResponseWriter, key string) bool {
	if _, _, err := ParseSemesterKey(key); err != nil {
		http.Error(w, ErrInvalidSemester, http.StatusBadRequest)
		return false
	}
	return true
}

// RequireYear rejects years that are not numbers
func RequireYear(w http.ResponseWriter, year string) bool {
	if _, err := strconv.Atoi(year); err != nil {
		http.Error(w, ErrInvalidYear, http.StatusBadRequest)
		return false
	}
	return true
}

// WriteJSON encodes v as the response body
func WriteJSON(w http.ResponseWriter, log *zap.Logger, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Error encoding response", zap.Error(err))
	}
}

// StatusForError maps load errors to an HTTP status and message
func StatusForError(err error) (int, string) {
	var fe *FetchError
	switch {
	case errors.Is(err, ErrUnknownSemester):
		return http.StatusNotFound, ErrNotFound
	case errors.Is(err, ErrInvalidKey):
		return http.StatusBadRequest, ErrInvalidSemester
	case errors.As(err, &fe) && fe.StatusCode == http.StatusNotFound:
		return http.StatusNotFound, ErrNotFound
	default:
		return http.StatusInternalServerError, ErrInternalServer
	}
}
