// Package cmd implements the schema-filter command tree.
package cmd

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/llehouerou/go-graphql-schema-filter/internal/config"
)

var (
	cfgPath string
	verbose bool

	// logger is initialized before any subcommand runs and handed to
	// the filter engine explicitly; nothing reads global log state.
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "schema-filter",
	Short: "Derive audience-specific public GraphQL schemas",
	Long: `schema-filter reads an annotated GraphQL schema and produces the
subset visible to a named audience.

Fields declare their audiences with the repeatable @visibleTo directive:

  type User {
    id: ID!
    salary: Float @visibleTo(tags: ["admin"])
  }

Types can opt out of the implicit-public default with @noAutoExpose.
Root type fields are never exposed implicitly; tag them explicitly.

Defaults can be placed in ` + config.ConfigFileName + ` next to the schema.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	},
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if logger != nil {
			logger.Error(err.Error())
		} else {
			os.Stderr.WriteString(err.Error() + "\n")
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "",
		"path to a config file (default "+config.ConfigFileName+" if present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"enable debug logging")
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(targetsCmd)
}

// loadConfig returns the explicit config, the one in the working
// directory, or the defaults when neither exists.
func loadConfig() (*config.Config, error) {
	if cfgPath != "" {
		return config.Load(cfgPath)
	}
	cfg, err := config.LoadDefault()
	if errors.Is(err, config.ErrConfigNotFound) {
		return config.Default(), nil
	}
	return cfg, err
}
