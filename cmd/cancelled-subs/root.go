package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/David-Botos/cancelled-subs/pkg/config"
	"github.com/David-Botos/cancelled-subs/pkg/logging"
	"github.com/David-Botos/cancelled-subs/pkg/pipeline"
)

// flagEnv maps string flags onto the environment variables they override
var flagEnv = map[string]string{
	"source":        "SOURCE_DB_PATH",
	"published":     "PUBLISHED_DB_PATH",
	"table":         "PUBLISHED_TABLE",
	"error-log":     "ERROR_LOG_PATH",
	"change-log":    "CHANGE_LOG_PATH",
	"log-level":     "LOG_LEVEL",
	"log-format":    "LOG_FORMAT",
	"source-driver": "SOURCE_DRIVER",
}

// NewRootCommand builds the command tree
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	rc := &cobra.Command{
		Use:   "cancelled-subs",
		Short: "Clean, validate and publish the cancelled subscriber dataset.",
		Long: `cancelled-subs loads the student, course and job tables from the source
database, cleans and merges them, validates the result and appends new
students to the published table.

Configuration is read from the environment and an optional .env file.
Flags override the matching environment variables.`,
		SilenceUsage: true,
	}

	rc.AddCommand(newRunCommand(stdout, stderr))
	rc.AddCommand(newConfigCommand(stdout))

	rc.SetOut(stdout)
	rc.SetErr(stderr)
	return rc
}

func newRunCommand(stdout, stderr io.Writer) *cobra.Command {
	var (
		envFile  string
		advisory bool
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, envFile)
			if err != nil {
				return err
			}
			if advisory {
				cfg.StrictValidation = false
			}

			logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer logger.Sync() //nolint:errcheck
			zap.ReplaceGlobals(logger)

			streams, err := logging.NewRecordStreams(cfg.ErrorLogPath, cfg.ChangeLogPath)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := streams.Close(); cerr != nil {
					logger.Warn("Failed to close record streams", zap.Error(cerr))
				}
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			summary, runErr := pipeline.New(cfg, logger, streams).Run(ctx)
			if summary != nil {
				summary.Log(logger)
				if err := printSummary(stdout, summary, asJSON); err != nil {
					return err
				}
			}
			if runErr != nil {
				if errors.Is(runErr, pipeline.ErrValidationFailed) {
					fmt.Fprintf(stderr, "validation failed, see %s\n", cfg.ErrorLogPath)
				}
				return runErr
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&envFile, "env-file", "", "Environment file to read before the default .env")
	flags.BoolVar(&advisory, "advisory", false, "Publish even when validation checks fail")
	flags.BoolVar(&asJSON, "json", false, "Print the run summary as JSON")
	flags.String("source", "", "Path of the SQLite source database")
	flags.String("source-driver", "", "Source driver: sqlite, postgres or snowflake")
	flags.String("published", "", "Path of the SQLite published database")
	flags.String("table", "", "Name of the published table")
	flags.String("error-log", "", "Path of the error record file")
	flags.String("change-log", "", "Path of the change record file")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.String("log-format", "", "Log format: json or console")

	return cmd
}

func newConfigCommand(stdout io.Writer) *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Validate the configuration and print where data is read and written",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, envFile)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "source:           %s (%s)\n", cfg.Source.Name(), cfg.Source.Driver)
			fmt.Fprintf(stdout, "published:        %s (%s)\n", cfg.Published.Name(), cfg.Published.Driver)
			fmt.Fprintf(stdout, "published table:  %s\n", cfg.PublishedTable)
			fmt.Fprintf(stdout, "strict:           %t\n", cfg.StrictValidation)
			fmt.Fprintf(stdout, "error log:        %s\n", cfg.ErrorLogPath)
			fmt.Fprintf(stdout, "change log:       %s\n", cfg.ChangeLogPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Environment file to read before the default .env")
	for _, name := range []string{"source", "source-driver", "published", "table"} {
		cmd.Flags().String(name, "", "Overrides "+flagEnv[name])
	}
	return cmd
}

// loadConfig applies changed flags to the environment, then loads and
// validates the configuration
func loadConfig(cmd *cobra.Command, envFile string) (*config.Config, error) {
	if envFile != "" {
		if err := config.LoadEnvFile(envFile); err != nil {
			return nil, err
		}
	}

	for name, key := range flagEnv {
		flag := cmd.Flags().Lookup(name)
		if flag == nil || !flag.Changed {
			continue
		}
		if err := os.Setenv(key, flag.Value.String()); err != nil {
			return nil, fmt.Errorf("failed to set %s: %w", key, err)
		}
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func printSummary(w io.Writer, summary *pipeline.Summary, asJSON bool) error {
	if !asJSON {
		_, err := fmt.Fprint(w, summary.String())
		return err
	}
	data, err := summary.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
