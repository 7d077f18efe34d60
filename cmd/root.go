package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/agendabot/internal/config"
	"github.com/teemow/agendabot/internal/logging"
)

// rootCmd represents the base command for the agendabot application
var rootCmd = &cobra.Command{
	Use:   "agendabot",
	Short: "Appointment booking engine for conversational agents",
	Long: `agendabot books appointments on a business's Google Calendar on behalf of
a conversational agent.

It can run as:
  - An MCP (Model Context Protocol) server exposing the booking operations
  - A chat front end driving OpenAI Assistants runs against those operations
  - A CLI for operators (hours, direct operation calls, migrations)`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// version will be set by main
var version = "dev"

var (
	logLevel  string
	logFormat string

	// cfg is loaded before any subcommand runs.
	cfg config.Config
)

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "agendabot version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the environment and installs the default logger.
// Logs go to stderr so stdout stays free for the stdio transport.
func loadConfig(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		loaded.LogLevel = logLevel
	}
	if cmd.Flags().Changed("log-format") {
		loaded.LogFormat = logFormat
	}
	cfg = loaded
	slog.SetDefault(logging.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat))
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error (env LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json (env LOG_FORMAT)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newCallCmd())
	rootCmd.AddCommand(newHoursCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
