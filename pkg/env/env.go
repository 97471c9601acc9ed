package env

import (
	"os"
	"strings"
)

// First returns the first non-blank value among keys, or fallback when none
// is set. Values are returned trimmed.
func First(fallback string, keys ...string) string {
	for _, key := range keys {
		if val := strings.TrimSpace(os.Getenv(key)); val != "" {
			return val
		}
	}
	return fallback
}
