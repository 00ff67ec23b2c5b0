package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"simdash/internal/exporter"
	"simdash/internal/files"
	"simdash/internal/services"
	"simdash/pkg/contracts/domain"
)

type processOptions struct {
	maxRows   int
	format    string
	outDir    string
	jobs      int
	catalogue bool
}

// pointLine is one JSON line of process output
type pointLine struct {
	Source string           `json:"source"`
	Point  domain.PlotPoint `json:"point"`
}

func newProcessCmd(c *cli) *cobra.Command {
	var opts processOptions

	cmd := &cobra.Command{
		Use:   "process <source>...",
		Short: "Classify action logs and print or export their plot points",
		Long: `Classify one or more action logs concurrently.

A source is a file path, an http(s) URL or a gdrive://<file-id> reference.
With --catalogue, sources are data source ids inside the configured data
directory. Without --format, points are printed to stdout as JSON lines.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.process(cmd.Context(), args, opts)
		},
	}

	cmd.Flags().IntVar(&opts.maxRows, "max-rows", -1, "rows searched backwards for an error target (default from config)")
	cmd.Flags().StringVar(&opts.format, "format", "", "export format: csv or xlsx")
	cmd.Flags().StringVar(&opts.outDir, "out", ".", "output directory for exports")
	cmd.Flags().IntVar(&opts.jobs, "jobs", runtime.NumCPU(), "sources processed in parallel")
	cmd.Flags().BoolVar(&opts.catalogue, "catalogue", false, "treat sources as data source ids")

	return cmd
}

func (c *cli) process(ctx context.Context, refs []string, opts processOptions) error {
	var popts services.ProcessOptions
	if opts.maxRows >= 0 {
		popts.MaxRowsToCheck = &opts.maxRows
	}
	if _, err := c.service.ResolveMaxRows(popts); err != nil {
		return err
	}

	var format exporter.Format
	if opts.format != "" {
		f, err := exporter.ParseFormat(opts.format)
		if err != nil {
			return err
		}
		format = f
	}

	run := c.service.ProcessSource
	if opts.catalogue {
		run = c.service.ProcessDataSource
	}

	out := &lineWriter{w: c.stdout}
	manager := files.NewManager(c.fs, opts.outDir, c.logger)

	var g errgroup.Group
	if opts.jobs > 0 {
		g.SetLimit(opts.jobs)
	}

	errs := make([]error, len(refs))
	for i, ref := range refs {
		g.Go(func() error {
			var err error
			if format == "" {
				err = c.printSource(ctx, run, ref, popts, out)
			} else {
				err = c.exportSource(ctx, run, manager, ref, format, popts)
			}
			if err != nil {
				c.logger.ErrorContext(ctx, "failed to process source",
					slog.String("source", ref),
					slog.String("error", err.Error()))
				errs[i] = fmt.Errorf("%s: %w", ref, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

type runFunc func(ctx context.Context, ref string, opts services.ProcessOptions, fn services.PointHandler) (*domain.ActionsSummary, error)

func (c *cli) printSource(ctx context.Context, run runFunc, ref string, opts services.ProcessOptions, out *lineWriter) error {
	summary, err := run(ctx, ref, opts, func(p domain.PlotPoint) error {
		return out.WriteJSON(pointLine{Source: ref, Point: p})
	})
	if err != nil {
		return err
	}
	logSummary(ctx, c.logger, summary)
	return nil
}

func (c *cli) exportSource(ctx context.Context, run runFunc, m *files.Manager, ref string, format exporter.Format, opts services.ProcessOptions) error {
	name := exportName(ref, format)
	w, err := exporter.Create(m, name, format, c.logger)
	if err != nil {
		return err
	}

	summary, err := run(ctx, ref, opts, w.WritePoint)
	if err == nil {
		err = exporter.WriteSummary(w, summary)
	}
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		if rerr := m.Remove(name); rerr != nil {
			c.logger.WarnContext(ctx, "failed to remove partial export",
				slog.String("file", name),
				slog.String("error", rerr.Error()))
		}
		return err
	}

	logSummary(ctx, c.logger, summary)
	return nil
}

func logSummary(ctx context.Context, logger *slog.Logger, s *domain.ActionsSummary) {
	logger.InfoContext(ctx, "source processed",
		slog.String("source", s.Source),
		slog.Int("rows_read", s.RowsRead),
		slog.Int("row_errors", s.RowErrors),
		slog.Int("points", s.Points()),
		slog.Duration("duration", s.Duration))
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// exportName derives an output file name from a source reference, e.g.
// "logs/run 1/actions.csv" becomes "logs-run-1-actions-actions.csv".
func exportName(ref string, format exporter.Format) string {
	ref = strings.TrimSuffix(ref, filepath.Ext(ref))
	for _, prefix := range []string{"https://", "http://", "gdrive://"} {
		ref = strings.TrimPrefix(ref, prefix)
	}
	name := strings.Trim(unsafeNameChars.ReplaceAllString(ref, "-"), "-.")
	if name == "" {
		name = "source"
	}
	return name + "-actions" + format.Extension()
}

// lineWriter serializes JSON lines written from concurrent pipelines
type lineWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lineWriter) WriteJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = l.w.Write(data)
	return err
}
