package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Start     key.Binding
	Stop      key.Binding
	Torch     key.Binding
	SelectAll key.Binding
	Delete    key.Binding
	Toggle    key.Binding
	Up        key.Binding
	Down      key.Binding
	Manual    key.Binding
	Dismiss   key.Binding
	Quit      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Start:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start scan")),
		Stop:      key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop scan")),
		Torch:     key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "flashlight")),
		SelectAll: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "select all")),
		Delete:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete selected")),
		Toggle:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "select")),
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Manual:    key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "type a code")),
		Dismiss:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "close result")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "exit")),
	}
}

func (k keyMap) help() []key.Binding {
	return []key.Binding{k.Start, k.Stop, k.Torch, k.Toggle, k.SelectAll, k.Delete, k.Manual, k.Quit}
}
