package monitor

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/robmorgan/metric/tempomap"
	"github.com/robmorgan/metric/utils"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Toggle):
			if m.tr.Rolling() {
				m.tr.Stop()
			} else {
				m.tr.Start()
			}
		case key.Matches(msg, m.keys.Slower):
			m.nudge(-tempoStep)
		case key.Matches(msg, m.keys.Faster):
			m.nudge(tempoStep)
		case key.Matches(msg, m.keys.PrevBar):
			if s := m.tr.Sample(); s > 0 {
				m.tr.Locate(m.tm.RoundToBar(s-1, tempomap.RoundDown))
			}
		case key.Matches(msg, m.keys.NextBar):
			m.tr.Locate(m.tm.RoundToBar(m.tr.Sample()+1, tempomap.RoundUp))
		case key.Matches(msg, m.keys.Start):
			m.tr.Locate(0)
		}
		m.snapshot = m.tr.Snapshot()
		return m, nil
	case BeatMsg:
		m.last = tempomap.BBTPoint(msg)
		m.beats++
		return m, nil
	case tickMsg:
		m.snapshot = m.tr.Snapshot()
		return m, tickCmd()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// nudge changes the tempo of the section under the play head by delta beats per minute.
func (m *Model) nudge(delta float64) {
	s := m.tr.Sample()
	ts := m.tm.TempoSectionAt(s)
	bpm := utils.ClampBeatsPerMinute(ts.BeatsPerMinute() + delta)
	m.err = m.tm.ChangeExistingTempoAt(s, bpm, ts.NoteType())
}
