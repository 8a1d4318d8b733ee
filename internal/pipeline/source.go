package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"rostercal/internal/google"
	"rostercal/internal/roster"
)

// Source supplies raw roster records.
type Source interface {
	Rows(ctx context.Context) (roster.RowReader, error)
	String() string
}

// FileSource reads a CSV export from disk. The file is read whole on every
// call so edits are picked up without a restart.
type FileSource struct {
	Path string
}

func (s FileSource) Rows(_ context.Context) (roster.RowReader, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster file: %w", err)
	}
	return roster.NewCSVReader(bytes.NewReader(data)), nil
}

func (s FileSource) String() string {
	return "file:" + s.Path
}

// SheetSource reads a Google Sheets range.
type SheetSource struct {
	Client        *google.SheetsClient
	SpreadsheetID string
	Range         string
}

func (s SheetSource) Rows(ctx context.Context) (roster.RowReader, error) {
	return s.Client.Rows(ctx, s.SpreadsheetID, s.Range)
}

func (s SheetSource) String() string {
	return "sheet:" + s.SpreadsheetID + "!" + s.Range
}
