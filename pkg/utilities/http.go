package utilities

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
)

// WriteJSON writes v as a JSON body with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteDetail writes the {"detail": msg} error body used across the API.
func WriteDetail(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"detail": msg})
}

// MaxPageSize caps the limit query parameter on list endpoints.
const MaxPageSize = 100

// Pagination reads page and limit from q. A missing or non-positive page is 1;
// a missing or non-positive limit is defaultLimit; limits above MaxPageSize are
// clamped.
func Pagination(q url.Values, defaultLimit int) (page, limit int) {
	page, _ = strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = defaultLimit
	}
	return page, min(limit, MaxPageSize)
}
