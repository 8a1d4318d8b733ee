// Package pipeline wires a roster source through loading, filtering and
// output.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/robfig/cron/v3"

	"rostercal/internal/ics"
	"rostercal/internal/metrics"
	"rostercal/internal/models"
	"rostercal/internal/roster"
)

// Filter narrows the loaded roster. Zero values keep everything.
type Filter struct {
	Person   string
	DutyType string
}

// Publisher uploads events somewhere, e.g. a CalDAV calendar.
type Publisher interface {
	Publish(ctx context.Context, events []models.Event, dryRun bool) (int, error)
}

// Pipeline loads a roster from its source on demand.
type Pipeline struct {
	logger *slog.Logger
	source Source
	loader *roster.Loader
}

// New creates a Pipeline.
func New(logger *slog.Logger, source Source, loader *roster.Loader) *Pipeline {
	return &Pipeline{
		logger: logger,
		source: source,
		loader: loader,
	}
}

// Load reads and parses the roster, then applies f.
func (p *Pipeline) Load(ctx context.Context, f Filter) ([]models.Event, error) {
	rows, err := p.source.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open roster source %s: %w", p.source, err)
	}
	events, err := p.loader.Load(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster from %s: %w", p.source, err)
	}

	total := len(events)
	metrics.RosterEvents.Set(float64(total))
	if f.Person != "" {
		events = roster.FilterByPerson(events, f.Person)
	}
	if f.DutyType != "" {
		events = roster.FilterByDutyType(events, f.DutyType)
	}
	if f.Person != "" || f.DutyType != "" {
		p.logger.Info("Filtered roster.", "person", f.Person, "dutyType", f.DutyType, "kept", len(events), "total", total)
	}
	return events, nil
}

// Render loads the roster and serializes it.
func (p *Pipeline) Render(ctx context.Context, f Filter, s ics.Serializer) (string, error) {
	events, err := p.Load(ctx, f)
	if err != nil {
		return "", err
	}
	return s.Render(events), nil
}

// WriteFile renders the calendar to path. The file is replaced atomically
// so subscribers never see a partial document.
func (p *Pipeline) WriteFile(ctx context.Context, f Filter, s ics.Serializer, path string) error {
	doc, err := p.Render(ctx, f, s)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".rostercal-*.ics.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(doc); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write calendar: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write calendar: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	p.logger.Info("Wrote calendar.", "file", path, "bytes", len(doc))
	return nil
}

// Publish loads the roster and hands the events to pub.
func (p *Pipeline) Publish(ctx context.Context, f Filter, pub Publisher, dryRun bool) (int, error) {
	events, err := p.Load(ctx, f)
	if err != nil {
		return 0, err
	}
	return pub.Publish(ctx, events, dryRun)
}

// cronLogger routes cron's own messages through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}

// scheduleChain skips a tick while the previous conversion is still running,
// so a slow source never produces overlapping writes.
func scheduleChain(logger *slog.Logger) cron.Chain {
	return cron.NewChain(cron.SkipIfStillRunning(cronLogger{logger: logger}))
}

// RunScheduled writes the calendar once, then again on every tick of the
// cron spec until ctx is cancelled. Failed runs are logged and retried on
// the next tick.
func (p *Pipeline) RunScheduled(ctx context.Context, spec string, f Filter, s ics.Serializer, path string) error {
	c := cron.New(cron.WithChain(scheduleChain(p.logger).Then))
	_, err := c.AddFunc(spec, func() {
		if err := p.WriteFile(ctx, f, s, path); err != nil {
			p.logger.Error("Scheduled conversion failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule '%s': %w", spec, err)
	}

	if err := p.WriteFile(ctx, f, s, path); err != nil {
		p.logger.Error("Initial conversion failed", "error", err)
	}

	p.logger.Info("Starting scheduler.", "schedule", spec, "file", path)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	p.logger.Info("Scheduler stopped.")
	return nil
}
