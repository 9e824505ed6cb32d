// Package httpx holds the JSON plumbing shared by every handler: responses
// are plain JSON, errors follow the RFC 7807 problem-details shape.
package httpx

import (
	"encoding/json"
	"net/http"
)

// ProblemDetail is the error body returned by every endpoint. Amounts and
// field names from validation failures land in Detail.
type ProblemDetail struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// JSON writes data with the given status. Encoding failures are dropped;
// headers are already on the wire by then.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Problem writes an RFC 7807 error body.
func Problem(w http.ResponseWriter, status int, title, detail string) {
	JSON(w, status, ProblemDetail{
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

// DecodeJSON reads the request body into target.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}
