package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"parsegen/internal/forge"
	"parsegen/internal/target"
	"parsegen/internal/types"
)

var (
	colorSuccess = lipgloss.Color("#8BC34A")
	colorFailure = lipgloss.Color("#e53935")
	colorInfo    = lipgloss.Color("#2196F3")
	colorMuted   = lipgloss.Color("#8a94a6")
)

// printer renders progress lines. It implements forge.Observer.
type printer struct {
	w io.Writer

	header lipgloss.Style
	pass   lipgloss.Style
	fail   lipgloss.Style
	muted  lipgloss.Style
	banner lipgloss.Style
}

func newPrinter(w io.Writer) *printer {
	r := lipgloss.NewRenderer(w)
	return &printer{
		w:      w,
		header: r.NewStyle().Bold(true).Foreground(colorInfo),
		pass:   r.NewStyle().Bold(true).Foreground(colorSuccess),
		fail:   r.NewStyle().Bold(true).Foreground(colorFailure),
		muted:  r.NewStyle().Foreground(colorMuted),
		banner: r.NewStyle().Bold(true).Padding(0, 1).Border(lipgloss.RoundedBorder()),
	}
}

func (p *printer) start(tgt target.Target, maxAttempts int) {
	fmt.Fprintf(p.w, "Starting agent for '%s' (up to %d attempts)...\n", tgt.ID, maxAttempts)
}

func (p *printer) OnState(state forge.State, attemptIndex int) {}

func (p *printer) OnAttempt(a forge.Attempt, maxAttempts int) {
	fmt.Fprintln(p.w, p.header.Render(fmt.Sprintf("--- Attempt %d of %d ---", a.Index+1, maxAttempts)))
	fmt.Fprintf(p.w, "Strategy: %s\n", a.Strategy.Description())
	if a.Passed() {
		fmt.Fprintf(p.w, "%s %s\n", p.pass.Render("PASS"), p.muted.Render(a.Duration.Round(time.Millisecond).String()))
		return
	}
	fmt.Fprintf(p.w, "%s %s: %s\n", p.fail.Render("FAIL"), a.Failure.Kind, firstLine(a.Failure.Message))
}

func (p *printer) finish(report *forge.Report) {
	if report.Success {
		fmt.Fprintln(p.w, p.banner.BorderForeground(colorSuccess).Render(
			fmt.Sprintf("Success: the generated parser passed validation\n%s", report.Target.SourcePath)))
		return
	}
	fmt.Fprintln(p.w, p.banner.BorderForeground(colorFailure).Render(
		fmt.Sprintf("Exhausted %d attempts for '%s'\nlast source: %s", len(report.Attempts), report.Target.ID, report.Target.SourcePath)))
}

func (p *printer) verdict(tgt target.Target, v types.Verdict) {
	if v.Pass {
		fmt.Fprintf(p.w, "%s %s: %s\n", p.pass.Render("PASS"), tgt.SourcePath, v.Reason)
		return
	}
	fmt.Fprintf(p.w, "%s %s: %s\n", p.fail.Render("FAIL"), tgt.SourcePath, firstLine(v.Reason))
}

// firstLine keeps progress output to one line; stack traces go to the log.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
