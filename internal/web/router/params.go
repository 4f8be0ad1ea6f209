package router

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// PathParam returns a path parameter
func PathParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

// lastQueryValue returns the last value of a repeated query parameter
func lastQueryValue(r *http.Request, name string) (string, bool) {
	values := r.URL.Query()[name]
	if len(values) == 0 {
		return "", false
	}
	return values[len(values)-1], true
}

// QueryParam returns a query parameter, or defaultValue when it is absent. The last
// occurrence wins when the parameter is repeated.
func QueryParam(r *http.Request, name, defaultValue string) string {
	if value, ok := lastQueryValue(r, name); ok {
		return value
	}
	return defaultValue
}

// QueryParamBool reads a flag that is true only when its value lower-cases to "true".
// An absent parameter yields defaultValue; a present but empty one is false.
func QueryParamBool(r *http.Request, name string, defaultValue bool) bool {
	value, ok := lastQueryValue(r, name)
	if !ok {
		return defaultValue
	}
	return strings.ToLower(value) == "true"
}

// QueryParamList splits a comma-separated query parameter. Items are kept verbatim, empty
// ones included, so "a,,b" has three items. An absent or empty parameter yields nil.
func QueryParamList(r *http.Request, name string) []string {
	value, _ := lastQueryValue(r, name)
	if value == "" {
		return nil
	}
	return strings.Split(value, ",")
}
