package instrumentation

import "strings"

// Cardinality helpers. Label values derived from user input must pass
// through one of these before reaching a metric.

// knownPaths lists the routes served by the HTTP surface.
var knownPaths = map[string]bool{
	"/auth":             true,
	"/oauth2callback":   true,
	"/schedule":         true,
	"/debug/token":      true,
	"/debug/calendar":   true,
	"/healthz":          true,
	"/readyz":           true,
	"/healthz/detailed": true,
}

// NormalizePath maps request paths to a bounded label set.
// Unknown paths collapse into "other".
func NormalizePath(path string) string {
	if knownPaths[path] {
		return path
	}
	return "other"
}

// ExtractUserDomain extracts the lower-cased domain of an email address.
//
//	ExtractUserDomain("ada@Example.com")  // "example.com"
//	ExtractUserDomain("invalid")          // "unknown"
func ExtractUserDomain(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) == 2 && parts[1] != "" {
		return strings.ToLower(parts[1])
	}
	return "unknown"
}
