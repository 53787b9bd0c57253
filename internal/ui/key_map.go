package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up     key.Binding
	down   key.Binding
	play   key.Binding
	remove key.Binding
	next   key.Binding
	prev   key.Binding
	clear  key.Binding
	help   key.Binding
	quit   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		play:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "play")),
		remove: key.NewBinding(key.WithKeys("delete", "backspace", "d"), key.WithHelp("d", "remove")),
		next:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next")),
		prev:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "previous")),
		clear:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear")),
		help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.play, k.next, k.prev, k.help, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.play},
		{k.remove, k.clear},
		{k.next, k.prev},
		{k.help, k.quit},
	}
}
