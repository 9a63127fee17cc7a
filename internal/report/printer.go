// Package report renders per-file status lines and the run summary, and
// persists accepted artifacts with their validation reports.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"ctestgen/internal/regen"
	"ctestgen/internal/validate"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107")).Bold(true)
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#808890"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
)

// Printer writes human-readable progress to a terminal.
type Printer struct {
	out io.Writer
}

func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// FileLine prints one status line for a finished file.
func (p *Printer) FileLine(res regen.FileResult) {
	if res.Failed() {
		fmt.Fprintf(p.out, "%s %s %s\n",
			failStyle.Render("✗"),
			res.File,
			mutedStyle.Render(fmt.Sprintf("failed after %d attempt(s): %v", res.Attempts, res.Err)))
		return
	}

	mark := successStyle.Render("✓")
	tier := tierStyle(res.Report.Quality).Render(res.Report.Quality.String())
	fmt.Fprintf(p.out, "%s %s %s %s\n",
		mark, res.File, tier,
		mutedStyle.Render(fmt.Sprintf("compiles=%v realistic=%v issues=%d attempts=%d",
			res.Report.Compiles, res.Report.Realistic, len(res.Report.Issues), res.Attempts)))

	for _, iss := range res.Report.Issues {
		fmt.Fprintf(p.out, "    %s\n", mutedStyle.Render("- "+iss))
	}
}

// Summary prints the end-of-run totals.
func (p *Printer) Summary(snap regen.Snapshot, unmet int) {
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, headerStyle.Render("Run summary"))
	fmt.Fprintf(p.out, "  accepted:        %d\n", snap.FilesAccepted)
	fmt.Fprintf(p.out, "  failed:          %d\n", snap.FilesFailed)
	fmt.Fprintf(p.out, "  below threshold: %d\n", snap.FilesBelowThreshold)
	fmt.Fprintf(p.out, "  attempts issued: %d\n", snap.AttemptsIssued)
	fmt.Fprintf(p.out, "  regenerations that fixed a file: %d\n", snap.SuccessfulRegenerations)
	if unmet > 0 {
		fmt.Fprintln(p.out, failStyle.Render(
			fmt.Sprintf("  %d file(s) remain below the quality threshold", unmet)))
	}
}

func tierStyle(t validate.Tier) lipgloss.Style {
	switch t {
	case validate.TierHigh:
		return successStyle
	case validate.TierMedium:
		return warnStyle
	default:
		return failStyle
	}
}

// PlainIssueList renders issues one per line, for report files.
func PlainIssueList(issues []string) string {
	if len(issues) == 0 {
		return "none"
	}
	var sb strings.Builder
	for _, iss := range issues {
		fmt.Fprintf(&sb, "- %s\n", iss)
	}
	return strings.TrimRight(sb.String(), "\n")
}
