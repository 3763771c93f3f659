package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/landmark-intel/docpatch/internal/engine"
)

var applyAsText bool

func newApplyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply input_file ops_file output_file",
		Short: "Apply a change-operation batch to a document",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(args[0], args[1], args[2])
		},
	}

	cmd.Flags().BoolVar(&applyAsText, "text", false, "treat the input as plain text instead of DOCX")

	return cmd
}

func runApply(inputPath, opsPath, outputPath string) error {
	log := newCommandLogger()
	defer func() {
		_ = log.Sync()
	}()
	cfg := loadConfig(log)

	opsData, err := os.ReadFile(opsPath)
	if err != nil {
		return fmt.Errorf("failed to read operations file: %w", err)
	}
	ops, err := engine.ParseOps(opsData)
	if err != nil {
		return err
	}

	input, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	eng := engine.New(cfg, log)

	var (
		result *engine.Result
		output []byte
	)
	if applyAsText {
		patched, res, applyErr := eng.ApplyText(string(input), ops)
		if applyErr != nil {
			return applyErr
		}
		result = res
		output = []byte(patched)
	} else {
		res, applyErr := eng.Apply(input, ops)
		if applyErr != nil {
			return applyErr
		}
		result = res
		output = res.Docx
	}

	if err := os.WriteFile(outputPath, output, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	log.Info("batch applied",
		zap.String("batchID", result.BatchID),
		zap.Int("applied", result.Applied),
		zap.Int("total", result.Total),
		zap.String("output", outputPath))

	printOperationReport(result)

	// Unapplied operations are reported through the log and summary
	// table; a written output file is success for the exit status.
	if result.Applied < result.Total {
		log.Warn("some operations could not be applied",
			zap.Int("failed", result.Total-result.Applied),
			zap.Int("total", result.Total))
	}
	return nil
}
