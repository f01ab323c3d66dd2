// Package server provides the HTTP surface of the booking service.
//
// Routes:
//   - GET /auth returns the Google consent URL
//   - GET /oauth2callback exchanges the authorization code and installs the token
//   - POST /schedule books a meeting and returns the classified outcome
//   - GET /debug/token and GET /debug/calendar report credential state and
//     calendar connectivity when debug routes are enabled
//   - GET /healthz, /readyz and /healthz/detailed for probes
//
// Prometheus metrics are served by a separate MetricsServer on its own port.
package server
