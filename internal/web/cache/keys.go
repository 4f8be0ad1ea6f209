package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"sort"
	"strings"
)

// RequestKey derives a key from the method, path and query. Query parameters are sorted
// so equivalent URLs share an entry.
func RequestKey(r *http.Request) string {
	parts := []string{r.Method, r.URL.Path}

	if r.URL.RawQuery != "" {
		query := r.URL.Query()
		pairs := make([]string, 0, len(query))
		for key, values := range query {
			for _, value := range values {
				pairs = append(pairs, key+"="+value)
			}
		}
		sort.Strings(pairs)
		parts = append(parts, strings.Join(pairs, "&"))
	}

	hash := sha256.Sum256([]byte(strings.Join(parts, "\n")))
	return "http:" + hex.EncodeToString(hash[:16])
}
