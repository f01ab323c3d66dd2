package scheduling_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/meetingbooker/internal/calendar"
	"github.com/teemow/meetingbooker/internal/instrumentation"
	"github.com/teemow/meetingbooker/internal/scheduling"
	"github.com/teemow/meetingbooker/internal/tools/common"
)

// Tool names.
const (
	ToolScheduleMeeting = "schedule_meeting"
	ToolCheckCalendar   = "check_calendar"
)

// Scheduler runs one scheduling attempt. *scheduling.Orchestrator implements it.
type Scheduler interface {
	Schedule(ctx context.Context, source string, raw scheduling.RawRequest) scheduling.Outcome
}

// CalendarChecker verifies calendar access. *calendar.Client implements it.
type CalendarChecker interface {
	GetCalendar(ctx context.Context, calendarID string) (*calendar.CalendarInfo, error)
}

// Deps are the collaborators of the scheduling tools.
type Deps struct {
	Scheduler Scheduler
	// Calendar is optional; check_calendar is only registered when set.
	Calendar   CalendarChecker
	CalendarID string
	Metrics    *instrumentation.Metrics
	Logger     *slog.Logger
}

// RegisterSchedulingTools registers the scheduling tools with the MCP server.
func RegisterSchedulingTools(s *mcpserver.MCPServer, deps Deps) error {
	if deps.Scheduler == nil {
		return fmt.Errorf("scheduler is required")
	}
	if deps.CalendarID == "" {
		deps.CalendarID = scheduling.DefaultCalendarID
	}

	scheduleTool := mcp.NewTool(ToolScheduleMeeting,
		mcp.WithDescription("Schedule a Google Meet meeting with one attendee and email them a confirmation. "+
			"Creates the calendar event first; if only the email fails the meeting still exists and a warning is returned."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Attendee display name"),
		),
		mcp.WithString("email",
			mcp.Required(),
			mcp.Description("Attendee email address"),
		),
		mcp.WithString("dateTime",
			mcp.Required(),
			mcp.Description("Meeting start in RFC 3339, e.g. 2025-03-10T09:00:00+05:30. Without an offset the configured timezone is used."),
		),
	)

	s.AddTool(scheduleTool, common.InstrumentedToolHandler(ToolScheduleMeeting, deps.Metrics, deps.Logger,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleScheduleMeeting(ctx, request, deps.Scheduler)
		}))

	if deps.Calendar != nil {
		checkTool := mcp.NewTool(ToolCheckCalendar,
			mcp.WithDescription("Check that the booking calendar is reachable with the configured Google credentials"),
		)
		s.AddTool(checkTool, common.InstrumentedToolHandler(ToolCheckCalendar, deps.Metrics, deps.Logger,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return handleCheckCalendar(ctx, deps.Calendar, deps.CalendarID)
			}))
	}

	return nil
}

func handleScheduleMeeting(ctx context.Context, request mcp.CallToolRequest, sched Scheduler) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	raw := scheduling.RawRequest{
		Name:     common.StringArg(args, "name"),
		Email:    common.StringArg(args, "email"),
		DateTime: common.StringArg(args, "dateTime"),
	}

	outcome := sched.Schedule(ctx, instrumentation.SourceMCP, raw)

	body, err := json.MarshalIndent(outcome.Response(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	if outcome.Kind() != scheduling.KindSuccess {
		return mcp.NewToolResultError(string(body)), nil
	}
	return mcp.NewToolResultText(string(body)), nil
}

func handleCheckCalendar(ctx context.Context, checker CalendarChecker, calendarID string) (*mcp.CallToolResult, error) {
	info, err := checker.GetCalendar(ctx, calendarID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Calendar %s is not reachable (%s): %v",
			calendarID, scheduling.NewProviderError(err).Reason, err)), nil
	}

	result := fmt.Sprintf("Calendar %s is reachable.\n", info.ID)
	if info.Summary != "" {
		result += fmt.Sprintf("   Summary: %s\n", info.Summary)
	}
	if info.TimeZone != "" {
		result += fmt.Sprintf("   Time Zone: %s\n", info.TimeZone)
	}
	if info.AccessRole != "" {
		result += fmt.Sprintf("   Access Role: %s\n", info.AccessRole)
	}
	return mcp.NewToolResultText(result), nil
}
