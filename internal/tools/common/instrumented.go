package common

import (
	"context"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/meetingbooker/internal/instrumentation"
	"github.com/teemow/meetingbooker/internal/logging"
)

// InstrumentedToolHandler wraps a tool handler with a span, invocation metrics
// and a debug log line.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", metrics, logger, handler))
func InstrumentedToolHandler(
	toolName string,
	metrics *instrumentation.Metrics,
	logger *slog.Logger,
	handler mcpserver.ToolHandlerFunc,
) mcpserver.ToolHandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logging.WithTool(logger, toolName)

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, span := instrumentation.StartToolSpan(ctx, toolName)
		defer span.End()

		start := time.Now()
		result, err := handler(ctx, request)
		duration := time.Since(start)

		status := instrumentation.StatusSuccess
		if err != nil || (result != nil && result.IsError) {
			status = instrumentation.StatusError
		}
		if err != nil {
			instrumentation.SetSpanError(span, err)
		} else {
			instrumentation.SetSpanSuccess(span)
		}

		metrics.RecordToolInvocation(ctx, toolName, status, duration)
		logger.DebugContext(ctx, "tool invoked",
			logging.Status(status),
			slog.Duration(logging.KeyDuration, duration))

		return result, err
	}
}

// StringArg returns the string argument key, or "" when absent or not a string.
func StringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}
