// Package response writes JSON and HTML bodies with consistent headers.
package response

import (
	"encoding/json"
	"net/http"
	"strconv"
)

const (
	// ContentTypeJSON is the content type of JSON responses
	ContentTypeJSON = "application/json"
	// ContentTypeHTML is the content type of HTML responses
	ContentTypeHTML = "text/html; charset=utf-8"
)

// ErrorResponse is the body of every error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// JSON encodes v and writes it with the given status. An encoding failure becomes a 500.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	Raw(w, status, ContentTypeJSON, body)
}

// Error writes {"error": message} with the given status
func Error(w http.ResponseWriter, status int, message string) {
	body, _ := json.Marshal(ErrorResponse{Error: message})
	Raw(w, status, ContentTypeJSON, body)
}

// NotFound writes a 404 error, defaulting the message to "Not found"
func NotFound(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Not found"
	}
	Error(w, http.StatusNotFound, message)
}

// MethodNotAllowed writes a 405 error listing the allowed methods
func MethodNotAllowed(w http.ResponseWriter, allowed ...string) {
	for _, m := range allowed {
		w.Header().Add("Allow", m)
	}
	Error(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// HTML writes an HTML document with the given status
func HTML(w http.ResponseWriter, status int, body []byte) {
	Raw(w, status, ContentTypeHTML, body)
}

// Raw writes body with an explicit content type and length
func Raw(w http.ResponseWriter, status int, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	w.Write(body)
}
