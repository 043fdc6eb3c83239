package monitor

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Next     key.Binding
	Prev     key.Binding
	Load     key.Binding
	Show     key.Binding
	Click    key.Binding
	Fill     key.Binding
	Pause    key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Top      key.Binding
	Bottom   key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Next:     key.NewBinding(key.WithKeys("tab", "right"), key.WithHelp("tab", "next surface")),
		Prev:     key.NewBinding(key.WithKeys("shift+tab", "left"), key.WithHelp("shift+tab", "prev surface")),
		Load:     key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "load")),
		Show:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "show")),
		Click:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "click")),
		Fill:     key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "toggle fill")),
		Pause:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "suspend/resume")),
		PageUp:   key.NewBinding(key.WithKeys("pgup", "ctrl+b", "alt+up", "ctrl+up")),
		PageDown: key.NewBinding(key.WithKeys("pgdown", "ctrl+f", "alt+down", "ctrl+down")),
		Top:      key.NewBinding(key.WithKeys("home")),
		Bottom:   key.NewBinding(key.WithKeys("end")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
	}
}

// hints lists the bindings shown in the status line.
func (k keyMap) hints() []key.Binding {
	return []key.Binding{k.Next, k.Load, k.Show, k.Click, k.Fill, k.Pause, k.Quit}
}
