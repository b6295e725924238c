package output

import (
	"fmt"
	"os"
	"strings"

	"github.com/tanq16/fetcher/internal/utils"
	"golang.org/x/term"
)

func PrintSuccess(text string) {
	fmt.Fprintln(writer, successStyle.Render(text))
}
func PrintError(text string) {
	fmt.Fprintln(writer, errorStyle.Render(text))
}
func PrintWarning(text string) {
	fmt.Fprintln(writer, warningStyle.Render(text))
}
func PrintPending(text string) {
	fmt.Fprintln(writer, pendingStyle.Render(text))
}
func PrintHeader(text string) {
	fmt.Fprintln(writer, headerStyle.Render(text))
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// FormatOutcome renders one download result as a single styled line.
func FormatOutcome(name string, outcome utils.Outcome) string {
	if outcome.Succeeded() {
		return successStyle.Render(fmt.Sprintf("%s %s %s %s (%s, %s tier)",
			StyleSymbols["pass"], name, StyleSymbols["arrow"], outcome.Path,
			utils.FormatBytes(uint64(outcome.SizeBytes)), outcome.Tier))
	}
	return errorStyle.Render(fmt.Sprintf("%s %s %s %s", StyleSymbols["fail"], name, StyleSymbols["arrow"], outcome.Reason))
}

func PrintOutcome(name string, outcome utils.Outcome) {
	fmt.Fprintln(writer, FormatOutcome(name, outcome))
}

// PrintSummary prints a header line and the success/failure counts of a batch.
func PrintSummary(outcomes []utils.Outcome) {
	var ok, failed int
	var bytes int64
	for _, o := range outcomes {
		if o.Succeeded() {
			ok++
			bytes += o.SizeBytes
		} else {
			failed++
		}
	}
	PrintHeader(strings.Repeat(StyleSymbols["hline"], 40))
	summary := fmt.Sprintf("%d downloaded (%s), %d failed", ok, utils.FormatBytes(uint64(bytes)), failed)
	if failed > 0 {
		PrintWarning(summary)
		return
	}
	PrintSuccess(summary)
}
