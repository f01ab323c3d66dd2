// Package scheduling turns a booking request into a calendar event and a
// confirmation email.
//
// The Orchestrator runs two steps in order. Creating the event is a hard
// dependency: if it fails nothing was scheduled and the caller gets an error.
// Sending the confirmation is a soft dependency: if it fails the meeting still
// exists, and the caller gets a success carrying a warning. Malformed input is
// rejected before either step runs.
//
// Every call returns an Outcome, a closed set of three results (client error,
// hard failure, success) that maps to exactly one HTTP status and response body.
package scheduling
