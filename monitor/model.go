// Package monitor is a terminal view of a transport playing a tempo map.
package monitor

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/robmorgan/metric/tempomap"
	"github.com/robmorgan/metric/transport"
)

// refresh is how often the view redraws between beats.
const refresh = 25 * time.Millisecond

// tempoStep is how far [ and ] move the tempo, in beats per minute.
const tempoStep = 1.0

type Model struct {
	tr   *transport.Transport
	tm   *tempomap.TempoMap
	keys keyMap
	help help.Model

	spinner spinner.Model
	bar     progress.Model

	snapshot transport.Snapshot
	last     tempomap.BBTPoint
	beats    int
	colour   func(bpm float64) lipgloss.Color
	err      error
	quitting bool
}

// New returns a model showing tr. colour picks the colour the tempo is drawn in and may be nil.
func New(tr *transport.Transport, tm *tempomap.TempoMap, colour func(bpm float64) lipgloss.Color) Model {
	s := spinner.New()
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))

	if colour == nil {
		colour = func(float64) lipgloss.Color { return lipgloss.Color("63") }
	}
	return Model{
		tr:      tr,
		tm:      tm,
		keys:    newKeyMap(),
		help:    help.New(),
		spinner: s,
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(40),
			progress.WithoutPercentage(),
		),
		snapshot: tr.Snapshot(),
		colour:   colour,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.spinner.Tick)
}

// BeatMsg reports a grid point the transport crossed.
type BeatMsg tempomap.BBTPoint

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
