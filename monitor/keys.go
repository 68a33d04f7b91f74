package monitor

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Toggle  key.Binding
	Slower  key.Binding
	Faster  key.Binding
	PrevBar key.Binding
	NextBar key.Binding
	Start   key.Binding
	Quit    key.Binding
}

func binding(help string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(keys[0], help))
}

func newKeyMap() keyMap {
	return keyMap{
		Toggle:  key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "start/stop")),
		Slower:  binding("slower", "["),
		Faster:  binding("faster", "]"),
		PrevBar: binding("previous bar", "left", "h"),
		NextBar: binding("next bar", "right", "l"),
		Start:   binding("to start", "home", "0"),
		Quit:    binding("quit", "q", "ctrl+c"),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Slower, k.Faster, k.PrevBar, k.NextBar, k.Start, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
