package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/spotiq/internal/events"
	"github.com/desertthunder/spotiq/internal/formatter"
	"github.com/desertthunder/spotiq/internal/models"
	"github.com/desertthunder/spotiq/internal/repositories"
	"github.com/desertthunder/spotiq/internal/shared"
)

// Resolve fetches and prints the metadata for a single track, going through the local cache.
func (r *Runner) Resolve(ctx context.Context, cmd *cli.Command) error {
	id, err := parseArg(cmd.StringArg("resource"))
	if err != nil {
		return err
	}
	if id.Kind != models.KindTrack {
		return fmt.Errorf("%w: %s is a %s, use 'spotiq expand'", shared.ErrInvalidArgument, id, id.Kind)
	}

	e, err := r.newEngine(false)
	if err != nil {
		return err
	}
	defer e.close()

	if cmd.Bool("refresh") {
		e.loader.Forget(id)
	}

	meta, err := e.loader.Load(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(meta, true)
	}

	r.writePlain("%s  %s\n", meta.DisplayName(), meta.DisplayDuration())
	r.writePlain("   URI: %s\n", meta.Resource)
	if meta.Unavailable {
		r.writePlain("   Unavailable in your market\n")
	}
	return nil
}

// Expand lists the tracks of a playlist or album.
func (r *Runner) Expand(ctx context.Context, cmd *cli.Command) error {
	id, err := parseArg(cmd.StringArg("resource"))
	if err != nil {
		return err
	}
	if !id.Kind.IsCollection() {
		return fmt.Errorf("%w: %s is not a playlist or album", shared.ErrInvalidArgument, id)
	}
	if err := r.requireCatalog(); err != nil {
		return err
	}

	r.logger.Infof("expanding %v", id)
	ids, err := r.catalog.ExpandCollection(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrCollectionExpand, err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(ids, true)
	}

	r.writePlainHeader(fmt.Sprintf("%s (%d tracks)", id, len(ids)))
	for i, child := range ids {
		r.writePlain("%d. %s\n", i+1, child)
	}
	return nil
}

// QueueAdd appends resources to the saved queue without loading anything.
func (r *Runner) QueueAdd(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) == 0 {
		return fmt.Errorf("%w: at least one url or uri", shared.ErrMissingArgument)
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	saved := repositories.NewQueueRepository(db)
	ids, err := saved.Load()
	if err != nil {
		return err
	}

	added := 0
	for _, arg := range args {
		for _, raw := range events.SplitDropPayload(arg) {
			id, err := models.ParseResource(raw)
			if err != nil {
				r.logger.Warn("skipping unrecognized resource", "input", raw, "error", err)
				continue
			}
			ids = append(ids, id)
			added++
		}
	}

	if err := saved.Save(ids); err != nil {
		return err
	}
	r.writePlain("✓ Added %d entries (%d queued)\n", added, len(ids))
	return nil
}

// QueueClear empties the saved queue.
func (r *Runner) QueueClear(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repositories.NewQueueRepository(db).Save(nil); err != nil {
		return err
	}
	r.writePlain("✓ Queue cleared\n")
	return nil
}

// QueueShow prints the saved queue with resolved metadata.
func (r *Runner) QueueShow(ctx context.Context, cmd *cli.Command) error {
	e, err := r.newEngine(true)
	if err != nil {
		return err
	}
	defer e.close()

	data, err := formatter.Export(e.export(ctx, "queue"), cmd.String("format"))
	if err != nil {
		return err
	}
	_, err = r.output.Write(data)
	return err
}

// QueueExport writes the saved queue to a file.
func (r *Runner) QueueExport(ctx context.Context, cmd *cli.Command) error {
	e, err := r.newEngine(true)
	if err != nil {
		return err
	}
	defer e.close()

	export := e.export(ctx, cmd.String("name"))
	path, err := formatter.WriteExport(export, cmd.String("format"), cmd.String("output"))
	if err != nil {
		return err
	}

	r.logger.Infof("queue exported to %v with %v entries", path, len(export.Rows))
	r.writePlain("✓ Queue exported to %s\n", path)
	r.writePlain("  Entries: %d\n", len(export.Rows))
	return nil
}

func parseArg(raw string) (models.ResourceID, error) {
	if raw == "" {
		return models.ResourceID{}, fmt.Errorf("%w: url or uri", shared.ErrMissingArgument)
	}
	return models.ParseResource(raw)
}

func resolveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Show metadata for a track URL or URI",
		Arguments: []cli.Argument{&cli.StringArg{Name: "resource"}},
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "refresh", Usage: "Drop the cached value and fetch again"},
			&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
		},
		Action: r.Resolve,
	}
}

func expandCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "expand",
		Usage:     "List the tracks of a playlist or album URL or URI",
		Arguments: []cli.Argument{&cli.StringArg{Name: "resource"}},
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
		},
		Action: r.Expand,
	}
}

// queueCommand handles the saved queue
func queueCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "queue",
		Usage: "Inspect and edit the saved queue",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Append track, playlist or album links",
				ArgsUsage: "<url|uri>...",
				Action:    r.QueueAdd,
			},
			{
				Name:   "clear",
				Usage:  "Remove every entry",
				Action: r.QueueClear,
			},
			{
				Name:  "show",
				Usage: "Print the queue",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format (txt, markdown, csv, json)",
						Value:   formatter.FormatText,
					},
				},
				Action: r.QueueShow,
			},
			{
				Name:  "export",
				Usage: "Write the queue to a file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format (txt, markdown, csv, json)",
						Value:   formatter.FormatMarkdown,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default: queue.<format>)",
					},
					&cli.StringFlag{
						Name:  "name",
						Usage: "Title written into the export",
						Value: "spotiq queue",
					},
				},
				Action: r.QueueExport,
			},
		},
	}
}
