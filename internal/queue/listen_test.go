package queue

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/desertthunder/spotiq/internal/events"
	"github.com/desertthunder/spotiq/internal/models"
	"github.com/desertthunder/spotiq/internal/shared"
	tu "github.com/desertthunder/spotiq/internal/testing"
)

func receive(t *testing.T, ch <-chan events.Event) events.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return events.Event{}
	}
}

func TestListen(t *testing.T) {
	ctx := context.Background()

	t.Run("Reacts To Player Events", func(t *testing.T) {
		f := newFixture(t)
		out, unsubscribe := f.bus.Subscribe(events.ChannelPlaylist)
		defer unsubscribe()

		lctx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() { done <- f.q.Listen(lctx) }()
		eventually(t, func() bool { return f.bus.Subscribers(events.ChannelPlayer) == 1 })

		a, b := tu.TrackID(1), tu.TrackID(2)
		publish := func(ev events.Event) {
			t.Helper()
			if err := f.bus.Publish(ctx, events.ChannelPlayer, ev); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		publish(events.Dropped(a.URL(), "garbage", b.String()))
		if ev := receive(t, out); ev.Type != events.TrackLoaded || ev.Metadata.Resource != a {
			t.Fatalf("expected TrackLoaded for %v, got %+v", a, ev)
		}

		publish(events.Event{Type: events.NextPressed})
		if ev := receive(t, out); ev.Type != events.TrackLoaded || ev.Metadata.Resource != b {
			t.Fatalf("expected TrackLoaded for %v, got %+v", b, ev)
		}

		publish(events.Event{Type: events.NextPressed})
		if ev := receive(t, out); ev.Type != events.EndOfQueueReached {
			t.Fatalf("expected EndOfQueueReached, got %v", ev.Type)
		}

		publish(events.Event{Type: events.PreviousPressed})
		if ev := receive(t, out); ev.Type != events.TrackLoaded || ev.Metadata.Resource != a {
			t.Fatalf("expected TrackLoaded for %v, got %+v", a, ev)
		}

		cancel()
		if err := <-done; !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if got := resources(f.q.Entries()); !slices.Equal(got, []models.ResourceID{a, b}) {
			t.Errorf("expected [%v %v], got %v", a, b, got)
		}
	})

	t.Run("Dropped URLs Replace The Queue", func(t *testing.T) {
		f := newFixture(t)
		f.q.Restore([]models.ResourceID{tu.TrackID(1), tu.TrackID(2)})
		c := tu.TrackID(3)

		f.q.handle(ctx, events.Dropped(c.URL()))

		if got := resources(f.q.Entries()); !slices.Equal(got, []models.ResourceID{c}) {
			t.Errorf("expected [%v], got %v", c, got)
		}
		if loadedResource(f.q) != c {
			t.Errorf("expected %v loaded, got %v", c, loadedResource(f.q))
		}
	})

	t.Run("End Of Track At End Stops Player", func(t *testing.T) {
		f := newFixture(t)
		out, unsubscribe := f.bus.Subscribe(events.ChannelPlaylist)
		defer unsubscribe()
		a := tu.TrackID(1)
		f.q.AddResource(ctx, a)
		receive(t, out)

		f.q.handle(ctx, events.Event{Type: events.EndOfTrack, URI: a.String()})

		if ev := receive(t, out); ev.Type != events.EndOfQueueReached {
			t.Errorf("expected EndOfQueueReached, got %v", ev.Type)
		}
		if want := []string{"load " + a.String(), "stop"}; !slices.Equal(f.player.Commands(), want) {
			t.Errorf("expected %v, got %v", want, f.player.Commands())
		}
	})

	t.Run("End Of Track Advances", func(t *testing.T) {
		f := newFixture(t)
		a, b := tu.TrackID(1), tu.TrackID(2)
		f.q.AddResource(ctx, a)
		f.q.AddResource(ctx, b)

		f.q.handle(ctx, events.Event{Type: events.EndOfTrack, URI: a.String()})

		if loadedResource(f.q) != b {
			t.Errorf("expected %v loaded, got %v", b, loadedResource(f.q))
		}
		if slices.Contains(f.player.Commands(), "stop") {
			t.Error("player should not be stopped mid queue")
		}
	})

	t.Run("Stop Failure Is Reported", func(t *testing.T) {
		f := newFixture(t)
		f.player.Err = errors.New("player gone")

		f.q.handle(ctx, events.Event{Type: events.EndOfTrack})

		if reports := f.reports(); len(reports) != 1 || !errors.Is(reports[0], shared.ErrPlaybackCommand) {
			t.Errorf("expected one playback report, got %v", reports)
		}
	})

	t.Run("Bus Closed", func(t *testing.T) {
		f := newFixture(t)
		f.bus.Close()

		if err := f.q.Listen(ctx); !errors.Is(err, shared.ErrBusClosed) {
			t.Errorf("expected ErrBusClosed, got %v", err)
		}
	})
}
