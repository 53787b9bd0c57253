package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/spotiq/internal/events"
	"github.com/desertthunder/spotiq/internal/queue"
)

// Model represents the TUI application state.
type Model struct {
	ctx             context.Context
	queue           *queue.Queue
	skipUnavailable bool
	inbound         <-chan events.Event
	unsubscribe     func()
	width           int
	height          int
	list            list.Model
	status          string
	err             error
	help            help.Model
	keys            keyMap
}

// NewModel creates a queue view and subscribes it to the queue's outbound events.
//
// Call [Model.Close] when the program exits.
func NewModel(ctx context.Context, q *queue.Queue, skipUnavailable bool) *Model {
	l := list.New(nil, entryDelegate{}, 0, 0)
	l.Title = "Queue"
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetStatusBarItemName("entry", "entries")

	inbound, unsubscribe := q.Bus().Subscribe(events.ChannelPlaylist)
	m := &Model{
		ctx:             ctx,
		queue:           q,
		skipUnavailable: skipUnavailable,
		inbound:         inbound,
		unsubscribe:     unsubscribe,
		list:            l,
		help:            help.New(),
		keys:            newKeyMap(),
	}
	m.refresh()
	return m
}

// Close releases the event subscription.
func (m *Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// Init starts the refresh ticker and the event listener.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(tick(), m.waitForEvent())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width-2, msg.Height-6)
		m.help.Width = msg.Width
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case Msg:
		switch msg.kind {
		case MsgRefresh:
			m.refresh()
			return m, tick()
		case MsgEvent:
			m.status = describeEvent(msg.data.(events.Event))
			m.refresh()
			return m, m.waitForEvent()
		case MsgActionDone:
			r := msg.data.(actionResult)
			m.status, m.err = "", r.err
			if r.end {
				m.status = fmt.Sprintf("%s: nothing left to play", r.action)
			}
			m.refresh()
			return m, nil
		case MsgBusClosed:
			m.status = "event bus closed"
			return m, nil
		}
	}

	return m, nil
}

// View renders the queue, a status line and the key help.
func (m *Model) View() string {
	status := styles.help.Render(m.status)
	if m.err != nil {
		status = styles.err.Render(fmt.Sprintf("Error: %v", m.err))
	}
	return fmt.Sprintf("%s\n%s\n\n%s", m.list.View(), status, m.help.View(m.keys))
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.err = nil

	switch {
	case key.Matches(msg, m.keys.quit):
		m.Close()
		return m, tea.Quit
	case key.Matches(msg, m.keys.help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.up):
		m.err = m.queue.HandleKey(m.ctx, queue.KeyArrowUp)
	case key.Matches(msg, m.keys.down):
		m.err = m.queue.HandleKey(m.ctx, queue.KeyArrowDown)
	case key.Matches(msg, m.keys.remove):
		m.err = m.queue.HandleKey(m.ctx, queue.KeyDelete)
	case key.Matches(msg, m.keys.clear):
		m.queue.Clear()
		m.status = "queue cleared"
	case key.Matches(msg, m.keys.play):
		return m, m.run("play", func(ctx context.Context) (bool, error) {
			return false, m.queue.HandleKey(ctx, queue.KeyEnter)
		})
	case key.Matches(msg, m.keys.next):
		return m, m.run("next", func(ctx context.Context) (bool, error) {
			return m.queue.Next(ctx, m.skipUnavailable)
		})
	case key.Matches(msg, m.keys.prev):
		return m, m.run("previous", func(ctx context.Context) (bool, error) {
			return m.queue.Previous(ctx, m.skipUnavailable)
		})
	}

	m.refresh()
	return m, nil
}

// run performs a queue operation that may block on the player or metadata service off the update loop.
func (m *Model) run(action string, fn func(ctx context.Context) (bool, error)) tea.Cmd {
	m.status = action + "..."
	ctx := m.ctx
	return func() tea.Msg {
		end, err := fn(ctx)
		return actionDoneMsg(action, end, err)
	}
}

func (m *Model) waitForEvent() tea.Cmd {
	inbound := m.inbound
	return func() tea.Msg {
		ev, ok := <-inbound
		if !ok {
			return busClosedMsg()
		}
		return eventMsg(ev)
	}
}

// refresh re-reads the queue into the list, mirrors the anchor as the list cursor and notifies visible rows.
func (m *Model) refresh() {
	entries := m.ensureAnchor(m.queue.Entries())

	items := make([]list.Item, len(entries))
	for i, e := range entries {
		items[i] = entryItem{entry: e}
	}
	m.list.SetItems(items)

	if idx := m.queue.IndexOf(m.queue.Anchor()); idx >= 0 {
		m.list.Select(idx)
	}
	m.notifyVisible()
}

// ensureAnchor selects the loaded entry, or the first one, when nothing is selected. A target removed after the
// snapshot was taken is retried against a fresh snapshot, which is returned.
func (m *Model) ensureAnchor(entries []queue.Entry) []queue.Entry {
	for m.queue.Anchor() == nil && len(entries) > 0 {
		target := entries[0]
		if loaded := m.queue.Loaded(); loaded != nil {
			target = loaded
		}
		if err := m.queue.Select(target); err == nil {
			break
		}
		entries = m.queue.Entries()
	}
	return entries
}

// notifyVisible tells every entry on the current page that it is on screen.
func (m *Model) notifyVisible() {
	for _, e := range m.visible() {
		m.queue.NotifyVisible(m.ctx, e)
	}
}

func (m *Model) visible() []queue.Entry {
	items := m.list.Items()
	start, end := m.list.Paginator.GetSliceBounds(len(items))

	entries := make([]queue.Entry, 0, end-start)
	for _, item := range items[start:end] {
		entries = append(entries, item.(entryItem).entry)
	}
	return entries
}

func describeEvent(ev events.Event) string {
	switch ev.Type {
	case events.TrackLoaded:
		if ev.Metadata != nil {
			return "loaded " + ev.Metadata.DisplayName()
		}
		return "track loaded"
	case events.PlayRequested:
		return "playing"
	case events.EndOfQueueReached:
		return "end of queue"
	default:
		return ev.Type.String()
	}
}
