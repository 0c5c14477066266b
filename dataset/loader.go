package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"bikeshare-risk/config"
)

// Loader reads raw trip and crash exports into validated tables. A Loader
// holds only configuration and may be reused across loads.
type Loader struct {
	tripColumns  *ColumnMap
	crashColumns *ColumnMap
	times        timeParser
	cyclistsOnly bool
	maxWarnings  int
	logger       *slog.Logger
}

type options struct {
	tripAliases  map[string]string
	crashAliases map[string]string
	layouts      []string
	loc          *time.Location
	cyclistsOnly bool
	maxWarnings  int
	logger       *slog.Logger
}

type Option func(*options)

// WithTripAliases adds {source column -> canonical field} trip mappings.
func WithTripAliases(aliases map[string]string) Option {
	return func(o *options) { o.tripAliases = aliases }
}

// WithCrashAliases adds {source column -> canonical field} crash mappings.
func WithCrashAliases(aliases map[string]string) Option {
	return func(o *options) { o.crashAliases = aliases }
}

// WithTimeLayouts prepends layouts to DefaultTimeLayouts.
func WithTimeLayouts(layouts ...string) Option {
	return func(o *options) { o.layouts = append(o.layouts, layouts...) }
}

// WithLocation sets the zone for timestamps without an offset.
func WithLocation(loc *time.Location) Option {
	return func(o *options) { o.loc = loc }
}

// WithCyclistsOnly keeps only crashes that involve a cyclist.
func WithCyclistsOnly(on bool) Option {
	return func(o *options) { o.cyclistsOnly = on }
}

// WithMaxWarnings caps the per-row warnings kept in a report. Counts are
// always complete.
func WithMaxWarnings(n int) Option {
	return func(o *options) { o.maxWarnings = n }
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func NewLoader(opts ...Option) (*Loader, error) {
	o := options{loc: time.UTC, maxWarnings: 100}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.maxWarnings < 0 {
		o.maxWarnings = 0
	}

	trips, err := NewColumnMap(DefaultTripAliases, o.tripAliases)
	if err != nil {
		return nil, fmt.Errorf("trip aliases: %w", err)
	}
	crashes, err := NewColumnMap(DefaultCrashAliases, o.crashAliases)
	if err != nil {
		return nil, fmt.Errorf("crash aliases: %w", err)
	}

	return &Loader{
		tripColumns:  trips,
		crashColumns: crashes,
		times:        newTimeParser(o.layouts, o.loc),
		cyclistsOnly: o.cyclistsOnly,
		maxWarnings:  o.maxWarnings,
		logger:       o.logger,
	}, nil
}

// FromConfig builds a Loader from the dataset section of cfg.
func FromConfig(cfg *config.Config, logger *slog.Logger) (*Loader, error) {
	loc, err := time.LoadLocation(cfg.Dataset.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("time zone: %w", err)
	}
	return NewLoader(
		WithTripAliases(cfg.Dataset.TripAliases),
		WithCrashAliases(cfg.Dataset.CrashAliases),
		WithTimeLayouts(cfg.Dataset.TimeLayouts...),
		WithLocation(loc),
		WithCyclistsOnly(cfg.Dataset.CyclistsOnly),
		WithMaxWarnings(cfg.Dataset.MaxWarnings),
		WithLogger(logger),
	)
}

// rowHandler validates one data row and folds it into the table under
// construction. A non-nil rowError skips the row.
type rowHandler interface {
	header(source string, cols columns) error
	row(rec []string) *rowError
}

// readCSV drives h over one CSV stream. Header problems are fatal; row
// problems are recorded in report and reading continues.
func (l *Loader) readCSV(ctx context.Context, r io.Reader, source string, cm *ColumnMap, h rowHandler, report *LoadReport) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	head, err := cr.Read()
	if err == io.EOF {
		head = nil
	} else if err != nil {
		return fmt.Errorf("read header of %s: %w", source, err)
	}
	cols := cm.resolve(head)
	if err := h.header(source, cols); err != nil {
		return err
	}
	report.Sources = append(report.Sources, source)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return fmt.Errorf("read %s: %w", source, err)
			}
			report.Rows++
			l.skipRow(report, RowValidationWarning{
				Source: source, Line: perr.Line, Reason: ReasonMalformedRow, Detail: perr.Err.Error(),
			})
			continue
		}

		report.Rows++
		line, _ := cr.FieldPos(0)
		if len(rec) != cols.width {
			l.skipRow(report, RowValidationWarning{
				Source: source, Line: line, Reason: ReasonFieldCount,
				Detail: fmt.Sprintf("got %d fields, header has %d", len(rec), cols.width),
			})
			continue
		}
		if rerr := h.row(rec); rerr != nil {
			l.skipRow(report, RowValidationWarning{
				Source: source, Line: line, Reason: rerr.reason, Detail: rerr.detail,
			})
		}
	}
}

func (l *Loader) skipRow(report *LoadReport, w RowValidationWarning) {
	report.skip(w)
	l.logger.Debug("row skipped",
		slog.String("source", w.Source),
		slog.Int("line", w.Line),
		slog.String("reason", string(w.Reason)),
		slog.String("detail", w.Detail))
}

// readPath resolves path and feeds every CSV it contains to read.
func readPath(ctx context.Context, path string, read func(ctx context.Context, r io.Reader, source string) error) error {
	srcs, err := resolveSources(path)
	if err != nil {
		return err
	}
	for _, src := range srcs {
		rc, err := src.open()
		if err != nil {
			return err
		}
		err = read(ctx, rc, src.name)
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) logReport(kind string, report LoadReport) {
	l.logger.Info(kind+" loaded",
		slog.String("batch_id", report.BatchID),
		slog.Int("sources", len(report.Sources)),
		slog.Int("rows", report.Rows),
		slog.Int("loaded", report.Loaded),
		slog.Int("skipped", report.Skipped),
		slog.Int("filtered", report.Filtered),
		slog.Int("unlocated", report.Unlocated))
}
