package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/ruffel/cexec"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("33")) // Blue

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")) // Gray

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("160")) // Red

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // Amber

	passedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("40"))

	failedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("160"))

	indexStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))
)

// renderPreview is cexec.RenderPreview with the index and the dry-run marker
// styled for the terminal.
func renderPreview(entries []cexec.Invocation) string {
	var b strings.Builder

	for i, e := range entries {
		b.WriteString(indexStyle.Render(fmt.Sprintf("[%d]", i+1)))
		b.WriteByte(' ')
		b.WriteString(cexec.FormatCommandLine(e.Binary, e.Args))

		if e.Simulated {
			b.WriteByte(' ')
			b.WriteString(warningStyle.Render(cexec.SimulatedMarker))
		}

		b.WriteByte('\n')
	}

	return b.String()
}
