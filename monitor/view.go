package monitor

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	markerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA")).Background(lipgloss.Color("#7D56F4")).Padding(0, 1)
	downStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)
	appStyle    = lipgloss.NewStyle().Margin(1, 2, 0, 2)
)

func (m Model) View() string {
	s := m.snapshot

	var b strings.Builder
	state := "stopped"
	if s.Rolling {
		state = m.spinner.View() + " rolling"
	}
	fmt.Fprintf(&b, "%s  %s\n\n", markerStyle.Render(s.Marker()), state)
	fmt.Fprintf(&b, "BBT     %v\n", s.BBT)
	fmt.Fprintf(&b, "Beat    %.3f\n", s.Beat)
	fmt.Fprintf(&b, "Sample  %d\n", s.Sample)
	fmt.Fprintf(&b, "Tempo   %s\n", lipgloss.NewStyle().Foreground(m.colour(s.Tempo.PulsesPerMinute())).Render(s.Tempo.String()))
	fmt.Fprintf(&b, "Meter   %v\n\n", s.Meter)

	b.WriteString(m.beatDots())
	b.WriteString("\n")
	b.WriteString(m.bar.ViewAs(s.BarPhase))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "%s\n", dimStyle.Render(fmt.Sprintf("%d beats reported, last %v", m.beats, m.last.BBT())))
	if m.err != nil {
		fmt.Fprintf(&b, "%s\n", errorStyle.Render(m.err.Error()))
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))

	if m.quitting {
		b.WriteString("\n")
	}
	return appStyle.Render(b.String())
}

// beatDots draws one dot per division of the current bar, the current one filled.
func (m Model) beatDots() string {
	n := int(math.Ceil(m.snapshot.Meter.DivisionsPerBar()))
	dots := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		switch {
		case uint32(i) != m.snapshot.BBT.Beats:
			dots = append(dots, dimStyle.Render("○"))
		case i == 1:
			dots = append(dots, downStyle.Render("●"))
		default:
			dots = append(dots, "●")
		}
	}
	return strings.Join(dots, " ")
}
