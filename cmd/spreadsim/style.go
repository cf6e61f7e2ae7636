package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"spreadsim/internal/adapters/exports"
	"spreadsim/pkg/domain"
)

var (
	styleBold    = lipgloss.NewStyle().Bold(true)
	styleDim     = lipgloss.NewStyle().Faint(true)
	styleSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	styleWarning = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	styleHeader  = lipgloss.NewStyle().Bold(true).Underline(true)
	styleBox     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)

	categoryStyles = map[domain.Category]lipgloss.Style{
		domain.CategorySusceptible:  lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		domain.CategorySymptomatic:  lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		domain.CategoryAsymptomatic: lipgloss.NewStyle().Foreground(lipgloss.Color("5")),
		domain.CategorySelfCured:    lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		domain.CategoryQuarantined:  lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
)

func statusStyle(status domain.RunStatus) lipgloss.Style {
	switch status {
	case domain.RunStatusCompleted:
		return styleSuccess
	case domain.RunStatusCancelled:
		return styleWarning
	default:
		return styleError
	}
}

// renderRunSummary prints the boxed report shown after a run and by runs show.
func renderRunSummary(w io.Writer, run domain.Run) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", styleBold.Render(run.Name), styleDim.Render(run.ID))
	fmt.Fprintf(&b, "status   %s\n", statusStyle(run.Status).Render(string(run.Status)))
	fmt.Fprintf(&b, "seed     %d\n", run.Seed)
	fmt.Fprintf(&b, "grid     %s\n", run.Grid)
	fmt.Fprintf(&b, "ticks    %d\n", run.Ticks)
	if !run.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "elapsed  %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	}
	if run.Error != "" {
		fmt.Fprintf(&b, "error    %s\n", styleError.Render(run.Error))
	}
	b.WriteString("\n")
	for _, c := range domain.Categories() {
		fmt.Fprintf(&b, "%-22s %6d\n", categoryStyles[c].Render(string(c)), run.Final.Of(c))
	}
	peakTick, peak := run.PeakInfectious()
	fmt.Fprintf(&b, "\npeak infectious %d at tick %d\n", peak, peakTick)
	fmt.Fprintf(&b, "infections caused %d", run.InfectionsCaused)
	_, _ = fmt.Fprintln(w, styleBox.Render(b.String()))
}

// renderRunTable prints one line per stored run.
func renderRunTable(w io.Writer, runs []domain.RunSummary) {
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(w, styleDim.Render("No stored runs."))
		return
	}
	header := fmt.Sprintf("%-36s  %-16s  %-9s  %5s  %5s  %5s  %5s  %5s", "ID", "NAME", "STATUS", "TICKS", "S", "I+", "I-", "CURED")
	_, _ = fmt.Fprintln(w, styleHeader.Render(header))
	for _, r := range runs {
		status := statusStyle(r.Status).Render(fmt.Sprintf("%-9s", r.Status))
		_, _ = fmt.Fprintf(w, "%-36s  %-16s  %s  %5d  %5d  %5d  %5d  %5d\n",
			r.ID, truncate(r.Name, 16), status, r.Ticks,
			r.Final.Susceptible, r.Final.Symptomatic, r.Final.Asymptomatic, r.Final.SelfCured)
	}
}

func renderArtifacts(w io.Writer, artifacts []exports.ExportArtifact) {
	if len(artifacts) == 0 {
		return
	}
	_, _ = fmt.Fprintln(w, styleBold.Render("Artifacts"))
	for _, a := range artifacts {
		location := a.URL
		if location == "" {
			location = a.ID
		}
		_, _ = fmt.Fprintf(w, "  %s %-4s %8d bytes  %s\n", styleSuccess.Render("✓"), a.Format, a.SizeBytes, location)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
