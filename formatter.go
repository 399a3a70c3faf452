package aat

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/ethereum/go-ethereum/log"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/device-infra/app-acceptor/runner"
	"github.com/device-infra/app-acceptor/types"
)

// ResultFormatter is responsible for formatting and displaying suite results.
type ResultFormatter interface {
	FormatResults(result *runner.SuiteResult) error
}

// ConsoleResultFormatter implements the ResultFormatter interface.
type ConsoleResultFormatter struct {
	logger log.Logger
}

// NewConsoleResultFormatter creates a new ConsoleResultFormatter.
func NewConsoleResultFormatter(logger log.Logger) *ConsoleResultFormatter {
	return &ConsoleResultFormatter{
		logger: logger,
	}
}

// FormatResults formats and displays the suite results.
func (f *ConsoleResultFormatter) FormatResults(result *runner.SuiteResult) error {
	f.logger.Info("Printing results...")
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)

	mode := "serial"
	if result.IsParallel {
		mode = "parallel"
	}
	t.SetTitle(fmt.Sprintf("Acceptance Results: %s (%s, %s)", result.SuiteName, mode, formatDuration(result.Duration)))

	// Configure columns
	t.AppendHeader(table.Row{
		"Test", "Category", "Priority", "Duration", "Attempts", "Status", "Details",
	})

	// Set column configurations for better readability
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Test", WidthMax: 50, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Attempts", Align: text.AlignRight},
		{Name: "Details", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
	})

	// Print tests in submission order
	for i, tr := range result.Results {
		prefix := "├──"
		if i == len(result.Results)-1 {
			prefix = "└──"
		}

		details := tr.SkipReason
		if tr.Err != nil {
			details = extractKeyErrorMessage(tr.Err)
		}

		t.AppendRow(table.Row{
			fmt.Sprintf("%s %s", prefix, tr.Case.GetName()),
			string(tr.Case.Category),
			string(tr.Case.Priority),
			formatDuration(tr.Duration),
			tr.AttemptCount(),
			getResultString(tr.Status),
			details,
		})
	}

	// Update the table style setting based on result status
	if result.Status == types.TestStatusPass {
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	} else if result.Status == types.TestStatusSkip {
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	} else {
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}

	// Add summary footer
	t.AppendFooter(table.Row{
		"TOTAL",
		"",
		"",
		formatDuration(result.Duration),
		fmt.Sprintf("%d tests", result.Stats.Total),
		getResultString(result.Status),
		fmt.Sprintf("%d passed, %d failed, %d skipped", result.Stats.Passed, result.Stats.FailedTotal(), result.Stats.Skipped),
	})

	t.Render()
	return nil
}

// extractKeyErrorMessage extracts the most pertinent part of the error message
// for display. ANSI escape sequences are stripped so test actions that write
// colored output don't corrupt the table.
func extractKeyErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	errStr := stripansi.Strip(err.Error())

	// Look for assertion failures
	if idx := strings.Index(errStr, "assertion failed:"); idx != -1 {
		start := idx
		end := len(errStr)
		if newLine := strings.Index(errStr[start:], "\n"); newLine != -1 {
			end = start + newLine
		}
		return errStr[start:end]
	}

	// Look for panics
	if idx := strings.Index(errStr, "panic:"); idx != -1 {
		start := idx
		end := len(errStr)
		if newLine := strings.Index(errStr[start:], "\n"); newLine != -1 {
			end = start + newLine
		}
		return errStr[start:end]
	}

	// If we can't find a specific pattern, limit to the first line or 80 chars
	if idx := strings.Index(errStr, "\n"); idx != -1 {
		errStr = errStr[:idx]
	}
	if len(errStr) > 80 {
		return errStr[:70] + "..."
	}

	return errStr
}

// getResultString returns a symbol-prefixed string representing the test result
func getResultString(status types.TestStatus) string {
	switch status {
	case types.TestStatusPass:
		return "✓ pass"
	case types.TestStatusSkip:
		return "- skip"
	case types.TestStatusTimeout:
		return "✗ timeout"
	case types.TestStatusSetupFailed:
		return "✗ setup"
	default:
		return "✗ fail"
	}
}

// Helper function to format duration to seconds with 1 decimal place
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
