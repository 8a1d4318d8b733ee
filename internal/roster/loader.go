// Package roster parses duty roster exports into events.
package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"rostercal/internal/ics"
	"rostercal/internal/models"
	"rostercal/internal/people"
)

// Column headers expected in the first record.
const (
	ColumnTitle        = "Title"
	ColumnStart        = "Start"
	ColumnEnd          = "End"
	ColumnDutyType     = "Duty Type"
	ColumnAssignedTo   = "Assigned To"
	ColumnDutyComplete = "Duty Complete"
)

var requiredColumns = []string{
	ColumnTitle, ColumnStart, ColumnEnd, ColumnDutyType, ColumnAssignedTo, ColumnDutyComplete,
}

// RowReader yields one record per call and io.EOF when done.
// *csv.Reader satisfies it.
type RowReader interface {
	Read() ([]string, error)
}

// fieldPositioner reports where a field of the last record started.
// *csv.Reader satisfies it, which lets row numbers follow physical lines
// when quoted fields span several of them.
type fieldPositioner interface {
	FieldPos(field int) (line, column int)
}

// Loader reads a whole roster into events.
type Loader struct {
	logger *slog.Logger
	canon  *people.Canonicalizer
	loc    *time.Location
	learn  bool
}

// NewLoader creates a Loader. When learn is set, full names seen in
// "Assigned To" columns are used to expand first names elsewhere in the
// same roster.
func NewLoader(logger *slog.Logger, canon *people.Canonicalizer, loc *time.Location, learn bool) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if canon == nil {
		canon = people.New()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Loader{
		logger: logger,
		canon:  canon,
		loc:    loc,
		learn:  learn,
	}
}

// NewCSVReader returns a csv.Reader configured for roster exports. Field
// counts are checked by the Loader so the error names the roster row.
func NewCSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	return cr
}

// LoadFile loads a CSV roster from path.
func (l *Loader) LoadFile(path string) ([]models.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open roster: %w", err)
	}
	defer f.Close()
	return l.Load(NewCSVReader(f))
}

// Load parses every record from r in order. The first malformed row aborts
// the load; no partial result is returned.
func (l *Loader) Load(r RowReader) ([]models.Event, error) {
	rows, err := readRows(r)
	if err != nil {
		return nil, err
	}

	canon := l.canon
	if l.learn {
		dir := canon.Directory().Clone()
		for _, row := range rows {
			if raw := strings.TrimSpace(row.AssignedTo); raw != "" {
				for _, name := range canon.Assigned(raw) {
					dir.Add(name)
				}
			}
		}
		canon = canon.WithDirectory(dir)
		l.logger.Debug("Learned full names from roster.", "count", dir.Len())
	}

	events := make([]models.Event, 0, len(rows))
	for _, row := range rows {
		ev, err := ParseRow(row, canon, l.loc)
		if err != nil {
			return nil, &RowError{Row: row.Line, Err: err}
		}
		if !ev.HasPeople() {
			l.logger.Debug("No people found for row.", "row", ev.Row, "title", ev.Summary)
		}
		events = append(events, ev)
	}

	ics.AssignUIDs(events)

	l.logger.Info("Loaded roster.", "events", len(events))
	return events, nil
}

func readRows(r RowReader) ([]Row, error) {
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyRoster
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read roster header: %w", err)
	}
	idx, err := indexColumns(header)
	if err != nil {
		return nil, err
	}

	pos, _ := r.(fieldPositioner)
	var rows []Row
	for n := 2; ; n++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read roster row %d: %w", n, err)
		}
		line := n
		if pos != nil && len(rec) > 0 {
			line, _ = pos.FieldPos(0)
		}
		if len(rec) != len(header) {
			return nil, &RowError{
				Row: line,
				Err: fmt.Errorf("%w: got %d, want %d", ErrColumnCount, len(rec), len(header)),
			}
		}
		if blank(rec) {
			continue
		}
		rows = append(rows, Row{
			Title:        rec[idx[ColumnTitle]],
			Start:        rec[idx[ColumnStart]],
			End:          rec[idx[ColumnEnd]],
			DutyType:     rec[idx[ColumnDutyType]],
			AssignedTo:   rec[idx[ColumnAssignedTo]],
			DutyComplete: rec[idx[ColumnDutyComplete]],
			Line:         line,
		})
	}
	return rows, nil
}

func indexColumns(header []string) (map[string]int, error) {
	byName := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		byName[strings.ToLower(h)] = i
	}
	idx := make(map[string]int, len(requiredColumns))
	var missing []string
	for _, col := range requiredColumns {
		i, ok := byName[strings.ToLower(col)]
		if !ok {
			missing = append(missing, col)
			continue
		}
		idx[col] = i
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return idx, nil
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
