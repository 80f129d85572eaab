// Package root contains the root command for the application
package root

import (
	"fmt"

	"fjacquet/bankfeed/internal/config"
	"fjacquet/bankfeed/internal/container"
	"fjacquet/bankfeed/internal/logging"

	"github.com/spf13/cobra"
)

// GlobalFlags are the persistent flags shared by every subcommand.
type GlobalFlags struct {
	LogLevel  string
	LogFormat string
	Database  string
	Memory    bool
}

var (
	// SharedFlags holds the parsed persistent flags.
	SharedFlags = GlobalFlags{}

	// AppContainer is built before any subcommand runs and closed after it.
	AppContainer *container.Container

	// Cmd is the root command
	Cmd = &cobra.Command{
		Use:   "bankfeed",
		Short: "Import Indian bank statements into a categorized, deduplicated ledger.",
		Long: `bankfeed imports HDFC, ICICI, SBI and Axis statement exports into one local database.
Each import deduplicates against history, categorizes transactions from learned merchant
rules and links transfers between your own accounts.`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  setup,
		PersistentPostRunE: func(*cobra.Command, []string) error { return Close() },
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Init registers the persistent flags on the root command.
func Init() {
	Cmd.PersistentFlags().StringVar(&SharedFlags.LogLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	Cmd.PersistentFlags().StringVar(&SharedFlags.LogFormat, "log-format", "", "Log format (text or json)")
	Cmd.PersistentFlags().StringVar(&SharedFlags.Database, "db", "", "Path to the SQLite database (default ~/.bankfeed/bankfeed.db)")
	Cmd.PersistentFlags().BoolVar(&SharedFlags.Memory, "memory", false, "Use a throwaway in-memory store")
}

func setup(cmd *cobra.Command, args []string) error {
	if AppContainer != nil {
		return nil
	}
	config.LoadEnv(nil)

	cfg, err := config.InitializeConfig()
	if err != nil {
		return err
	}
	if SharedFlags.LogLevel != "" {
		cfg.Log.Level = SharedFlags.LogLevel
	}
	if SharedFlags.LogFormat != "" {
		cfg.Log.Format = SharedFlags.LogFormat
	}
	if SharedFlags.Database != "" {
		cfg.Storage.Path = SharedFlags.Database
	}

	var opts []container.Option
	if SharedFlags.Memory {
		opts = append(opts, container.WithMemoryStore())
	}
	c, err := container.NewContainer(cmd.Context(), cfg, opts...)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	AppContainer = c
	return nil
}

// Close releases the container. Safe to call when nothing was set up.
func Close() error {
	if AppContainer == nil {
		return nil
	}
	err := AppContainer.Close()
	AppContainer = nil
	return err
}

// GetContainer returns the container for the running command.
func GetContainer() *container.Container {
	return AppContainer
}

// GetConfig returns the loaded configuration, or nil before setup.
func GetConfig() *config.Config {
	if AppContainer == nil {
		return nil
	}
	return AppContainer.GetConfig()
}

// GetLogger returns the container logger, or the default logger before setup.
func GetLogger() logging.Logger {
	if AppContainer == nil {
		return logging.OrDefault(nil)
	}
	return AppContainer.GetLogger()
}
