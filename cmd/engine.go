package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/spotiq/internal/events"
	"github.com/desertthunder/spotiq/internal/formatter"
	"github.com/desertthunder/spotiq/internal/loader"
	"github.com/desertthunder/spotiq/internal/queue"
	"github.com/desertthunder/spotiq/internal/repositories"
	"github.com/desertthunder/spotiq/internal/server"
	"github.com/desertthunder/spotiq/internal/shared"
)

// engine is a queue wired to the metadata cache, the saved queue and an in-process bus.
type engine struct {
	db     *sql.DB
	bus    *events.MemoryBus
	loader *loader.Loader
	queue  *queue.Queue
	saved  *repositories.QueueRepository
	logger *log.Logger
}

// newEngine opens the database and builds a queue. The saved queue is restored when restore is set.
func (r *Runner) newEngine(restore bool) (*engine, error) {
	if err := r.requireCatalog(); err != nil {
		return nil, err
	}

	db, err := r.openDatabase()
	if err != nil {
		return nil, err
	}

	store := repositories.NewTrackCacheAdapter(repositories.NewTrackRepository(db))
	e := &engine{
		db:     db,
		bus:    events.NewMemoryBus(r.config.Bus.Buffer),
		loader: loader.New(r.catalog, store, shared.WithLogger(r.logger, "component", "loader")),
		saved:  repositories.NewQueueRepository(db),
		logger: r.logger,
	}
	// A fetch may wait on the rate limiter before its request starts.
	if timeout := r.config.Credentials.Spotify.RequestTimeout(); timeout > 0 {
		e.loader.SetTimeout(2 * timeout)
	}
	e.queue = queue.New(queue.Options{
		Loader:   e.loader,
		Expander: r.catalog,
		Player:   r.player,
		Bus:      e.bus,
		Logger:   r.logger,
	})

	if restore {
		ids, err := e.saved.Load()
		if err != nil {
			e.close()
			return nil, fmt.Errorf("failed to load saved queue: %w", err)
		}
		e.queue.Restore(ids)
		r.logger.Info("queue restored", "entries", len(ids))
	}
	return e, nil
}

// save writes the current queue contents to the database.
func (e *engine) save() error {
	if err := e.saved.Save(e.queue.Snapshot()); err != nil {
		return fmt.Errorf("failed to save queue: %w", err)
	}
	return nil
}

// close waits for background loads, then releases the bus and the database.
func (e *engine) close() {
	e.queue.Wait()
	e.bus.Close()
	e.db.Close()
}

// export snapshots the queue, resolving metadata for every track first.
func (e *engine) export(ctx context.Context, name string) *formatter.QueueExport {
	for _, entry := range e.queue.Entries() {
		if t, ok := entry.(*queue.TrackEntry); ok {
			if _, err := t.EnsureMetadata(ctx); err != nil {
				e.logger.Warn("metadata unavailable for export", "uri", t.Resource(), "error", err)
			}
		}
	}
	return formatter.FromEntries(name, e.queue.Entries())
}

// handler serves the bus bridge and a read-only view of the queue.
func (e *engine) handler(bridge *server.BusBridge) http.Handler {
	router := server.NewBasicRouter()
	router.Use(server.Logging(e.logger))
	router.Handler(bridge)
	router.Handle(http.MethodGet, "/queue", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		format := r.URL.Query().Get("format")
		if format == "" {
			format = formatter.FormatJSON
		}

		data, err := formatter.Export(formatter.FromEntries("queue", e.queue.Entries()), format)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		switch format {
		case formatter.FormatJSON:
			w.Header().Set("Content-Type", "application/json")
		case formatter.FormatCSV:
			w.Header().Set("Content-Type", "text/csv")
		default:
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		}
		w.Write(data)
	}))
	return router
}

// run serves the bridge on addr and applies player events to the queue until ctx is done.
//
// The queue is saved when it stops.
func (e *engine) run(ctx context.Context, addr, path string) error {
	bridge := server.NewBusBridge(e.bus, path, e.logger)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return e.queue.Listen(ctx) })
	g.Go(func() error { return bridge.Run(ctx) })
	g.Go(func() error { return server.Serve(ctx, addr, e.handler(bridge), e.logger) })

	err := g.Wait()
	if serr := e.save(); serr != nil {
		e.logger.Error("failed to save queue on shutdown", "error", serr)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
