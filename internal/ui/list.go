package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/spotiq/internal/queue"
)

var (
	_ list.Item         = entryItem{}
	_ list.ItemDelegate = entryDelegate{}
)

// entryItem wraps a [queue.Entry] to implement [list.Item].
type entryItem struct {
	entry queue.Entry
}

func (i entryItem) FilterValue() string { return i.entry.DisplayName() }

// entryDelegate renders one line per entry. The list's own cursor mirrors the queue anchor.
type entryDelegate struct{}

func (entryDelegate) Height() int                             { return 1 }
func (entryDelegate) Spacing() int                            { return 0 }
func (entryDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d entryDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(entryItem)
	if !ok {
		return
	}
	fmt.Fprint(w, renderEntry(it.entry, index == m.Index(), m.Width()))
}

// renderEntry formats a row as "<marker> <name> <duration>".
//
// The loaded track is marked with ▶, unavailable tracks are struck through and failures are shown in red.
func renderEntry(e queue.Entry, selected bool, width int) string {
	marker := "  "
	if e.IsLoaded() {
		marker = "▶ "
	}

	line := marker + e.DisplayName()
	if d := e.DisplayDuration(); d != "" {
		line = fmt.Sprintf("%s  %s", line, d)
	}
	if width > 0 && len([]rune(line)) > width {
		line = string([]rune(line)[:max(width-1, 0)]) + "…"
	}

	switch {
	case selected:
		return styles.selected.Render(line)
	case e.IsLoaded():
		return styles.ok.Render(line)
	}

	switch e := e.(type) {
	case *queue.TrackEntry:
		switch {
		case e.State() == queue.TrackFailed:
			return styles.err.Render(line)
		case e.Unavailable():
			return styles.dim.Render(line)
		}
	case *queue.CollectionEntry:
		if e.State() == queue.CollectionExpandFailed {
			return styles.err.Render(line)
		}
		return styles.warn.Render(line)
	}
	return line
}
