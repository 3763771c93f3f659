package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/landmark-intel/docpatch/internal/registry"
	"github.com/landmark-intel/docpatch/pkg/entitymatch"
)

var (
	crossrefRegistryPaths []string
	crossrefTransfersPath string
	crossrefPermitsPath   string
	crossrefMinPermit     float64
	crossrefThreshold     float64
	crossrefOutputPath    string
)

func newCrossrefCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crossref",
		Short: "Cross-reference corporate registry entities against transfers and permits",
		Long: `crossref parses corporate registry profile reports, a property
transfer list and a building permit report, then links entities across
the three feeds by fuzzy company-name matching.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrossref()
		},
	}

	cmd.Flags().StringSliceVar(&crossrefRegistryPaths, "registry", nil, "registry profile report text files")
	cmd.Flags().StringVar(&crossrefTransfersPath, "transfers", "", "transfer list CSV file")
	cmd.Flags().StringVar(&crossrefPermitsPath, "permits", "", "building permit report text file")
	cmd.Flags().Float64Var(&crossrefMinPermit, "min-permit-value", registry.DefaultMinPermitValue, "minimum permit value to keep")
	cmd.Flags().Float64Var(&crossrefThreshold, "threshold", entitymatch.CompanyThreshold, "company name match threshold")
	cmd.Flags().StringVarP(&crossrefOutputPath, "output", "o", "", "write links as JSON to a file")

	return cmd
}

func runCrossref() error {
	log := newCommandLogger()
	defer func() {
		_ = log.Sync()
	}()

	var entities []*registry.Entity
	for _, path := range crossrefRegistryPaths {
		text, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read registry report: %w", err)
		}
		entity := registry.ParseCorporateRegistry(string(text))
		log.Debug("parsed registry entity",
			zap.String("name", entity.EntityName),
			zap.String("number", entity.EntityNumber))
		entities = append(entities, entity)
	}

	var transfers []registry.Transfer
	if crossrefTransfersPath != "" {
		f, err := os.Open(crossrefTransfersPath)
		if err != nil {
			return fmt.Errorf("failed to open transfer list: %w", err)
		}
		transfers, err = registry.ParseTransferList(f)
		_ = f.Close()
		if err != nil {
			return err
		}
	}

	var permits []registry.Permit
	if crossrefPermitsPath != "" {
		text, err := os.ReadFile(crossrefPermitsPath)
		if err != nil {
			return fmt.Errorf("failed to read permit report: %w", err)
		}
		permits = registry.ParseBuildingPermits(string(text), crossrefMinPermit)
	}

	log.Info("cross-referencing",
		zap.Int("entities", len(entities)),
		zap.Int("transfers", len(transfers)),
		zap.Int("permits", len(permits)))

	result := registry.CrossReference(entities, transfers, permits, crossrefThreshold)

	if crossrefOutputPath != "" {
		encoded, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode links: %w", err)
		}
		if err := os.WriteFile(crossrefOutputPath, encoded, 0o644); err != nil {
			return fmt.Errorf("failed to write links file: %w", err)
		}
	}

	printCrossrefReport(result)
	return nil
}

func printCrossrefReport(result *registry.CrossRefResult) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendRow(table.Row{"Entity", "Matched", "Source", "Score"})
	tw.AppendSeparator()
	for _, link := range result.Links {
		name := link.RegistryEntity
		if name == "" {
			name = link.TransferEntity
		}
		tw.AppendRow(table.Row{name, link.MatchedName, link.MatchedSource, fmt.Sprintf("%.2f", link.Score)})
	}
	tw.AppendSeparator()
	tw.AppendRow(table.Row{"Links", len(result.Links), "", ""})
	tw.SetStyle(table.StyleLight)
	tw.Render()
}
