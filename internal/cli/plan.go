package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/landmark-intel/docpatch/internal/container"
	"github.com/landmark-intel/docpatch/internal/docmap"
	"github.com/landmark-intel/docpatch/internal/engine"
	"github.com/landmark-intel/docpatch/internal/planner"
)

var (
	planAsText     bool
	planOutputPath string
)

func newPlanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan input_file instruction",
		Short: "Turn a natural-language instruction into a change-operation batch",
		Long: `plan sends the document text and an instruction to the configured
language model and writes the resulting operation batch as JSON. The
document itself is not modified; feed the batch to apply.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd.Context(), args[0], args[1])
		},
	}

	cmd.Flags().BoolVar(&planAsText, "text", false, "treat the input as plain text instead of DOCX")
	cmd.Flags().StringVarP(&planOutputPath, "output", "o", "", "write the operation batch to a file instead of stdout")

	return cmd
}

func runPlan(ctx context.Context, inputPath, instruction string) error {
	log := newCommandLogger()
	defer func() {
		_ = log.Sync()
	}()
	cfg := loadConfig(log)

	input, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	text := string(input)
	if !planAsText {
		text, err = extractText(input, cfg.MaxEntryBytes, cfg.MaxTotalBytes, log)
		if err != nil {
			return err
		}
	}

	p, err := planner.New(cfg.Planner, log)
	if err != nil {
		return err
	}

	ops, err := p.Plan(ctx, text, instruction)
	if err != nil {
		return err
	}
	log.Info("plan complete", zap.Int("operations", len(ops)))

	encoded, err := engine.MarshalOps(ops)
	if err != nil {
		return fmt.Errorf("failed to encode operations: %w", err)
	}

	if planOutputPath != "" {
		if err := os.WriteFile(planOutputPath, encoded, 0o644); err != nil {
			return fmt.Errorf("failed to write operations file: %w", err)
		}
		return nil
	}
	fmt.Println(string(encoded))
	return nil
}

// extractText pulls the flattened visible text out of a DOCX container.
func extractText(docxData []byte, maxEntry, maxTotal int64, log *zap.Logger) (string, error) {
	c, err := container.Open(docxData, container.Limits{MaxEntryBytes: maxEntry, MaxTotalBytes: maxTotal}, log)
	if err != nil {
		return "", err
	}
	m, err := docmap.Map(c.Document())
	if err != nil {
		return "", err
	}
	return m.Flat, nil
}
