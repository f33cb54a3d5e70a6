package cmd

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/modelsync/modelsync/internal/syncer"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	summaryStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
)

// reporter prints sync notices to the terminal.
type reporter struct {
	out io.Writer
}

func newReporter(out io.Writer) *reporter {
	return &reporter{out: out}
}

func (r *reporter) Synced(model, path string) {
	fmt.Fprintln(r.out, successStyle.Render("✓")+fmt.Sprintf(" Model %s synced to %s", model, path))
}

func (r *reporter) Created(path string) {
	fmt.Fprintln(r.out, successStyle.Render("✓")+" Migration created: "+path)
}

func (r *reporter) Skipped(subject, reason string) {
	fmt.Fprintln(r.out, dimStyle.Render(fmt.Sprintf("- Skipping %s: %s", subject, reason)))
}

func (r *reporter) Warn(msg string) {
	fmt.Fprintln(r.out, warnStyle.Render("⚠ "+msg))
}

func (r *reporter) summary(res syncer.Result) {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, summaryStyle.Render(fmt.Sprintf("Synced: %d, created: %d, skipped: %d", res.Synced, res.Created, res.Skipped)))
}

var _ syncer.Reporter = (*reporter)(nil)
