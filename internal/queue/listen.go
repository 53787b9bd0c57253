package queue

import (
	"context"

	"github.com/desertthunder/spotiq/internal/events"
	"github.com/desertthunder/spotiq/internal/shared"
)

// Listen reacts to player events until ctx is done or the bus closes.
//
// Events are handled one at a time in delivery order.
func (q *Queue) Listen(ctx context.Context) error {
	ch, unsubscribe := q.bus.Subscribe(events.ChannelPlayer)
	defer unsubscribe()

	q.logger.Debug("listening for player events")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-ch:
			if !ok {
				return shared.ErrBusClosed
			}
			q.handle(ctx, ev)
		}
	}
}

func (q *Queue) handle(ctx context.Context, ev events.Event) {
	q.logger.Debug("player event", "event", ev.Type)

	switch ev.Type {
	case events.NextPressed:
		end, err := q.Next(ctx, true)
		if err != nil {
			q.logger.Warn("next failed", "error", err)
			return
		}
		if end {
			q.publish(ctx, events.Event{Type: events.EndOfQueueReached})
		}
	case events.PreviousPressed:
		top, err := q.Previous(ctx, true)
		if err != nil {
			q.logger.Warn("previous failed", "error", err)
			return
		}
		if top {
			q.logger.Debug("top of queue reached")
		}
	case events.UrlsDropped:
		q.Clear()
		for _, err := range q.AddURLs(ctx, ev.URLs) {
			q.logger.Warn("ignoring dropped item", "error", err)
		}
	case events.EndOfTrack:
		end, err := q.Next(ctx, true)
		if err != nil {
			q.logger.Warn("advance after end of track failed", "uri", ev.URI, "error", err)
			return
		}
		if !end {
			return
		}
		q.publish(ctx, events.Event{Type: events.EndOfQueueReached})
		if err := q.player.Stop(ctx); err != nil {
			_ = q.playbackFailed(err)
		}
	default:
		q.logger.Debug("ignoring event", "event", ev.Type)
	}
}
