// Package ui implements the interactive queue view using bubbletea's Elm architecture.
//
// The (view) [Model] renders the queue as a single-page list. Every refresh re-reads the entries, mirrors the
// queue's selection anchor as the list cursor and calls [queue.Queue.NotifyVisible] for the rows on the current
// page, so metadata is only fetched for what is on screen and playlists expand once they scroll into view.
//
// Rows change in the background while metadata loads, so the model refreshes on a short tick and whenever the
// queue publishes on the playlist channel. Operations that talk to the player (play, next, previous) run as
// commands off the update loop and report back through the Msg union type.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, d, n/p, c, q) with contextual help displayed via
// charmbracelet/bubbles/help.
package ui
