package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/spotiq/internal/events"
	"github.com/desertthunder/spotiq/internal/server"
	"github.com/desertthunder/spotiq/internal/shared"
)

// Serve runs the queue engine headless: the player connects over WebSocket and drives it with bus events.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	e, err := r.newEngine(r.config.Queue.RestoreOnStart && !cmd.Bool("fresh"))
	if err != nil {
		return err
	}
	defer e.close()

	addr := r.config.Server.Addr()
	if a := cmd.String("addr"); a != "" {
		addr = a
	}

	r.logger.Info("serving queue", "addr", addr, "bus", r.config.Bus.Path, "entries", e.queue.Len())
	return e.run(ctx, addr, r.config.Bus.Path)
}

// Send publishes one player event to a running engine, as the player would.
func (r *Runner) Send(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) == 0 {
		return fmt.Errorf("%w: event name", shared.ErrMissingArgument)
	}

	ev, err := playerEvent(args[0], args[1:])
	if err != nil {
		return err
	}

	url := cmd.String("url")
	if url == "" {
		url = "ws://" + r.config.Server.Addr() + r.config.Bus.Path
	}

	r.logger.Debug("sending event", "event", ev.Type, "url", url)
	if err := server.SendFrame(ctx, url, ev); err != nil {
		return err
	}
	r.writePlain("✓ Sent %s\n", ev.Type)
	return nil
}

// playerEvent builds an inbound event from its wire tag. Tags are matched case-insensitively.
func playerEvent(tag string, args []string) (events.Event, error) {
	var typ events.Type
	for _, t := range []events.Type{events.NextPressed, events.PreviousPressed, events.UrlsDropped, events.EndOfTrack} {
		if strings.EqualFold(t.String(), tag) {
			typ = t
		}
	}

	switch typ {
	case events.NextPressed, events.PreviousPressed:
		return events.Event{Type: typ}, nil
	case events.UrlsDropped:
		if len(args) == 0 {
			return events.Event{}, fmt.Errorf("%w: UrlsDropped needs at least one url", shared.ErrMissingArgument)
		}
		return events.Dropped(args...), nil
	case events.EndOfTrack:
		ev := events.Event{Type: typ}
		if len(args) > 0 {
			ev.URI = args[0]
		}
		return ev, nil
	default:
		return events.Event{}, fmt.Errorf("%w: unknown player event %q", shared.ErrInvalidArgument, tag)
	}
}

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the queue engine and the WebSocket event bus",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "Listen address (default: server.host:server.port)"},
			&cli.BoolFlag{Name: "fresh", Usage: "Start with an empty queue"},
		},
		Action: r.Serve,
	}
}

func sendCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "send",
		Usage:     "Send a player event (NextPressed, PreviousPressed, UrlsDropped, EndOfTrack) to a running engine",
		ArgsUsage: "<event> [url...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Usage: "Bus WebSocket URL (default: ws://server.host:server.port/bus.path)"},
		},
		Action: r.Send,
	}
}
