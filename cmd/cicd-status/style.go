package main

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/cicd-ai-toolkit/cicd-status/pkg/platform"
)

// stateColors follows the usual CI palette.
var stateColors = map[platform.ChangeState]lipgloss.Color{
	platform.StatePending: lipgloss.Color("214"),
	platform.StateSuccess: lipgloss.Color("42"),
	platform.StateFailure: lipgloss.Color("196"),
	platform.StateError:   lipgloss.Color("160"),
}

// renderState styles a state for w. Plain text is written when w is not a
// terminal.
func renderState(w io.Writer, state platform.ChangeState) string {
	r := lipgloss.NewRenderer(w)
	style := r.NewStyle().Bold(true)
	if c, ok := stateColors[state]; ok {
		style = style.Foreground(c)
	}
	return style.Render(state.String())
}

// renderDim styles secondary output such as SHAs.
func renderDim(w io.Writer, s string) string {
	return lipgloss.NewRenderer(w).NewStyle().Foreground(lipgloss.Color("241")).Render(s)
}
