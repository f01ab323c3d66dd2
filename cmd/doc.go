// Package cmd implements the command-line interface for meetingbooker.
//
// This package provides the following commands:
//   - serve: Start the HTTP scheduling service
//   - auth: Authorize the service identity with Google and store the token
//   - schedule: Schedule a single meeting from the command line
//   - mcp: Expose the scheduler as MCP tools for AI assistants
//   - generate-docs: Generate markdown documentation for all MCP tools
//   - version: Display version information
//
// Every flag can also be set through an environment variable. A flag given on
// the command line always wins over its environment variable.
package cmd
