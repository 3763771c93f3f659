package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pterm/pterm"

	"github.com/landmark-intel/docpatch/internal/engine"
)

// printOperationReport echoes the per-operation outcome log and a
// summary table for the batch.
func printOperationReport(result *engine.Result) {
	for _, line := range result.Log {
		switch {
		case strings.HasPrefix(line, "✓ "):
			pterm.Success.Println(strings.TrimPrefix(line, "✓ "))
		case strings.HasPrefix(line, "✗ "):
			pterm.Error.Println(strings.TrimPrefix(line, "✗ "))
		default:
			pterm.Info.Println(line)
		}
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendRow(table.Row{"Batch", result.BatchID})
	tw.AppendSeparator()
	tw.AppendRow(table.Row{"Operations", result.Total})
	tw.AppendRow(table.Row{"Applied", result.Applied})
	tw.AppendRow(table.Row{"Failed", result.Total - result.Applied})
	tw.SetStyle(table.StyleLight)
	tw.Render()
	fmt.Println()
}
