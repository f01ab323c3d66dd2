// Package logging provides structured logging utilities for meetingbooker.
//
// This package centralizes logging patterns so that every component logs with
// the same attribute names, using the standard library's slog package.
//
// # Key Features
//
//   - Handler construction from configuration (text or JSON, level)
//   - PII sanitization (attendee email anonymization)
//   - Consistent attribute naming across the codebase
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "schedule")
//	logger.Info("meeting scheduled",
//	    logging.EventID(result.EventID),
//	    logging.UserHash(req.AttendeeEmail))
//
// # Security Considerations
//
//   - Attendee emails are hashed to prevent PII leakage while allowing correlation
//   - OAuth tokens are never logged directly, only their length via SanitizeToken
package logging
