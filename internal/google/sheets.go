// Package google reads duty rosters from Google Sheets.
package google

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsClient reads spreadsheet ranges.
type SheetsClient struct {
	service *sheets.Service
	logger  *slog.Logger
}

// NewClient creates a Sheets client authenticated with the stored token of
// accountName (see the auth command).
func NewClient(ctx context.Context, logger *slog.Logger, clientID, clientSecret, accountName string) (*SheetsClient, error) {
	config, err := getOAuthConfig(clientID, clientSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to get OAuth config: %w", err)
	}

	tokenFile := TokenFile(accountName)
	token, err := tokenFromFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("could not load token for account %s: %w. Please run the 'auth' command first", accountName, err)
	}

	return NewClientWithOptions(ctx, logger, option.WithHTTPClient(config.Client(ctx, token)))
}

// NewClientWithOptions creates a client from raw API options.
func NewClientWithOptions(ctx context.Context, logger *slog.Logger, opts ...option.ClientOption) (*SheetsClient, error) {
	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &SheetsClient{service: service, logger: logger}, nil
}

// Rows fetches readRange as displayed in the sheet.
func (c *SheetsClient) Rows(ctx context.Context, spreadsheetID, readRange string) (*SheetRows, error) {
	c.logger.Debug("Fetching roster range", "spreadsheetID", spreadsheetID, "range", readRange)

	resp, err := c.service.Spreadsheets.Values.Get(spreadsheetID, readRange).
		ValueRenderOption("FORMATTED_VALUE").
		MajorDimension("ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read spreadsheet range: %w", err)
	}

	c.logger.Info("Fetched roster from Google Sheets", "rows", len(resp.Values), "spreadsheetID", spreadsheetID)
	return NewSheetRows(resp.Values), nil
}

// SheetRows replays spreadsheet values as roster records. The API drops
// trailing empty cells, so short rows are padded to the header width.
type SheetRows struct {
	values [][]interface{}
	width  int
	next   int
}

// NewSheetRows wraps raw API values.
func NewSheetRows(values [][]interface{}) *SheetRows {
	r := &SheetRows{values: values}
	if len(values) > 0 {
		r.width = len(values[0])
	}
	return r
}

// Read returns the next record, or io.EOF.
func (r *SheetRows) Read() ([]string, error) {
	if r.next >= len(r.values) {
		return nil, io.EOF
	}
	row := r.values[r.next]
	r.next++

	n := len(row)
	if n < r.width {
		n = r.width
	}
	rec := make([]string, n)
	for i, cell := range row {
		if cell != nil {
			rec[i] = fmt.Sprint(cell)
		}
	}
	return rec, nil
}
