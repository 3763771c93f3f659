// Package cli wires the patch engine, planner and data-feed parsers
// into the docpatch command tree.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/landmark-intel/docpatch/internal/config"
	"github.com/landmark-intel/docpatch/internal/logger"
)

var (
	cfgFile   string
	debugMode bool
)

// NewRootCommand builds the docpatch command tree.
func NewRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "docpatch",
		Short: "docpatch applies targeted text changes to DOCX documents without disturbing formatting",
		Long: `docpatch applies batches of change operations to Word documents. The
document is never regenerated: untouched parts of the file pass through
byte for byte, and edits splice replacement text into the existing
structure so fonts, styles and layout survive.

Operation batches are JSON arrays of four operation kinds:
  - replace_all:     replace every occurrence of a string
  - replace_value:   replace one value, disambiguated by nearby context
  - replace_section: replace a longer passage, tolerant of whitespace drift
  - add_after:       insert new text after an anchor passage`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging")

	rootCmd.AddCommand(newApplyCommand())
	rootCmd.AddCommand(newPlanCommand())
	rootCmd.AddCommand(newCrossrefCommand())

	return rootCmd
}

func newCommandLogger() *zap.Logger {
	return logger.NewLogger(debugMode)
}

func loadConfig(log *zap.Logger) *config.Config {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		log.Warn("failed to load config, using defaults", zap.Error(err))
		return config.Default()
	}
	if debugMode {
		cfg.Debug = true
	}
	return cfg
}
