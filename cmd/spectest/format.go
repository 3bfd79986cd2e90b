package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/wasm-spectest/harness"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	passStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	skipStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

func render(style lipgloss.Style, styled bool, s string) string {
	if !styled {
		return s
	}
	return style.Render(s)
}

// formatReport renders one script's result on a line, followed by the
// fatal error when the run stopped.
func formatReport(r *harness.Report, styled bool) string {
	var b strings.Builder
	if r.OK() {
		b.WriteString(render(passStyle, styled, "PASS"))
	} else {
		b.WriteString(render(errorStyle, styled, "FAIL"))
	}
	b.WriteString(" ")
	b.WriteString(render(nameStyle, styled, r.TestSet))
	fmt.Fprintf(&b, "  passed %d", r.Passed())
	if n := r.Skipped(); n > 0 {
		b.WriteString(render(skipStyle, styled, fmt.Sprintf("  skipped %d", n)))
	}
	if r.Fatal != nil {
		b.WriteString("\n  ")
		b.WriteString(render(errorStyle, styled, r.Fatal.Error()))
	}
	return b.String()
}

// formatSkips lists the skipped commands of r with their reasons.
func formatSkips(r *harness.Report, styled bool) string {
	var b strings.Builder
	for _, o := range r.Outcomes {
		if o.Status != harness.StatusSkip {
			continue
		}
		line := fmt.Sprintf("  %s:%d %s", r.TestSet, o.Line, o.Type)
		if o.Field != "" {
			line += " " + o.Field
		}
		b.WriteString(line)
		b.WriteString(render(helpStyle, styled, " ("+o.Reason+")"))
		b.WriteString("\n")
	}
	return b.String()
}

func formatTotals(reports []*harness.Report, styled bool) string {
	var scripts, failed, passed, skipped int
	for _, r := range reports {
		scripts++
		if !r.OK() {
			failed++
		}
		passed += r.Passed()
		skipped += r.Skipped()
	}
	summary := fmt.Sprintf("%d scripts, %d failed, %d commands passed, %d skipped", scripts, failed, passed, skipped)
	if failed > 0 {
		return render(errorStyle, styled, summary)
	}
	return render(passStyle, styled, summary)
}
