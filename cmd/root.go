package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the meetingbooker application
var rootCmd = &cobra.Command{
	Use:   "meetingbooker",
	Short: "Books Google Calendar meetings with a Meet link and emails a confirmation",
	Long: `meetingbooker schedules a meeting on a Google Calendar, allocates a Google
Meet link for it and sends the attendee a confirmation email.

It can run as:
  - An HTTP service accepting POST /schedule (serve)
  - A one-shot CLI (schedule)
  - An MCP (Model Context Protocol) server for AI assistants (mcp)`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "meetingbooker version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newScheduleCmd())
	rootCmd.AddCommand(newMCPCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
