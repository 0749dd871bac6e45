package env

import (
	"os"
	"strings"
)

// Lookup returns the first non-blank value among keys, or fallback.
func Lookup(fallback string, keys ...string) string {
	for _, key := range keys {
		if val := strings.TrimSpace(os.Getenv(key)); val != "" {
			return val
		}
	}
	return fallback
}

// LogFormat is read before config loading so bootstrap errors use the same
// output format as the rest of the process.
func LogFormat() string {
	return strings.ToLower(Lookup("json", "REPAIRDESK_LOG_FORMAT", "LOG_FORMAT"))
}
