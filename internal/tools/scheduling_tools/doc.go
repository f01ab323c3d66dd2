// Package scheduling_tools exposes meeting booking to MCP clients.
//
// Available tools:
//   - schedule_meeting: create a Google Meet event and email the attendee
//   - check_calendar: verify the service can reach the booking calendar
package scheduling_tools
