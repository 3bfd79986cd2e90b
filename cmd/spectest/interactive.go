package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/wippyai/wasm-spectest/harness"
)

type interactiveModel struct {
	runner   *runner
	scripts  []string
	reports  []*harness.Report
	spinner  spinner.Model
	selected int
	state    modelState
}

type modelState int

const (
	stateRunning modelState = iota
	stateBrowse
	stateDetail
)

// scriptDoneMsg carries the report of the script at index.
type scriptDoneMsg struct {
	report *harness.Report
	index  int
}

func newInteractiveModel(r *runner, scripts []string) *interactiveModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = nameStyle
	return &interactiveModel{
		runner:  r,
		scripts: scripts,
		spinner: s,
		state:   stateRunning,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.runScript(0))
}

// runScript runs scripts one at a time; the next starts when the previous
// one's message arrives.
func (m *interactiveModel) runScript(index int) tea.Cmd {
	path := m.scripts[index]
	return func() tea.Msg {
		report, _ := m.runner.run(context.Background(), path)
		return scriptDoneMsg{index: index, report: report}
	}
}

func (m *interactiveModel) failed() bool {
	for _, r := range m.reports {
		if !r.OK() {
			return true
		}
	}
	return len(m.reports) < len(m.scripts)
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.state == stateBrowse && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateBrowse && m.selected < len(m.reports)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateBrowse:
				m.state = stateDetail
			case stateDetail:
				m.state = stateBrowse
			}

		case "esc":
			if m.state == stateDetail {
				m.state = stateBrowse
			}
		}

	case scriptDoneMsg:
		m.reports = append(m.reports, msg.report)
		if next := msg.index + 1; next < len(m.scripts) {
			return m, m.runScript(next)
		}
		m.state = stateBrowse

	case spinner.TickMsg:
		if m.state != stateRunning {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("WASM Spectest"))
	fmt.Fprintf(&b, " %d/%d scripts\n\n", len(m.reports), len(m.scripts))

	switch m.state {
	case stateRunning:
		for _, r := range m.reports {
			b.WriteString(formatReport(r, true))
			b.WriteString("\n")
		}
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
		b.WriteString(m.scripts[len(m.reports)])
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("q quit"))

	case stateBrowse:
		for i, r := range m.reports {
			line := formatReport(r, true)
			if i == m.selected {
				first, rest, _ := strings.Cut(line, "\n")
				line = selectedStyle.Render("> "+first) + prefixRest(rest)
			} else {
				line = "  " + line
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(formatTotals(m.reports, true))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter details • q quit"))

	case stateDetail:
		r := m.reports[m.selected]
		b.WriteString(formatReport(r, true))
		b.WriteString("\n\n")
		if skips := formatSkips(r, true); skips != "" {
			b.WriteString("Skipped:\n")
			b.WriteString(skips)
		} else {
			b.WriteString(helpStyle.Render("No skipped commands."))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter/esc back • q quit"))
	}

	return b.String()
}

func prefixRest(rest string) string {
	if rest == "" {
		return ""
	}
	return "\n  " + rest
}

// runInteractive runs every script under the TUI and reports whether any
// of them failed or was left unrun.
func runInteractive(r *runner, scripts []string) (bool, error) {
	m := newInteractiveModel(r, scripts)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return true, err
	}
	return m.failed(), nil
}
