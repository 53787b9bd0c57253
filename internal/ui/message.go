package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/spotiq/internal/events"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgRefresh MsgKind = iota
	MsgEvent
	MsgActionDone
	MsgBusClosed
)

// refreshInterval is how often rows are re-read while metadata loads in the background.
const refreshInterval = 250 * time.Millisecond

type actionResult struct {
	action string
	end    bool
	err    error
}

// refreshMsg is the constructor for [MsgRefresh]
func refreshMsg() Msg {
	return Msg{kind: MsgRefresh}
}

// eventMsg is the constructor for [MsgEvent]
func eventMsg(ev events.Event) Msg {
	return Msg{kind: MsgEvent, data: ev}
}

// actionDoneMsg is the constructor for [MsgActionDone]
func actionDoneMsg(action string, end bool, err error) Msg {
	return Msg{kind: MsgActionDone, data: actionResult{action: action, end: end, err: err}}
}

// busClosedMsg is the constructor for [MsgBusClosed]
func busClosedMsg() Msg {
	return Msg{kind: MsgBusClosed}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg { return refreshMsg() })
}
