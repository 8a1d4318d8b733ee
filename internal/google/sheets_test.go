package google

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"rostercal/internal/people"
	"rostercal/internal/roster"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSheetRowsPadsShortRows(t *testing.T) {
	rows := NewSheetRows([][]interface{}{
		{"Title", "Start", "End", "Duty Type", "Assigned To", "Duty Complete"},
		{"Team Duty", "01/10/2025 18:00", "01/10/2025 22:00", "", "Andrew", "FALSE"},
		{"RA On Call: Alice", "21/10/2025 18:00", "21/10/2025 22:00"},
	})

	header, err := rows.Read()
	require.NoError(t, err)
	assert.Len(t, header, 6)

	first, err := rows.Read()
	require.NoError(t, err)
	assert.Equal(t, "FALSE", first[5])

	short, err := rows.Read()
	require.NoError(t, err)
	assert.Equal(t, []string{"RA On Call: Alice", "21/10/2025 18:00", "21/10/2025 22:00", "", "", ""}, short)

	_, err = rows.Read()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSheetRowsEmpty(t *testing.T) {
	_, err := NewSheetRows(nil).Read()
	assert.ErrorIs(t, err, io.EOF)
}

func TestRowsFromAPI(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"range":          "Roster!A1:F3",
			"majorDimension": "ROWS",
			"values": [][]string{
				{"Title", "Start", "End", "Duty Type", "Assigned To", "Duty Complete"},
				{"Team Duty", "01/10/2025 18:00", "01/10/2025 22:00", `["6pm-10pm"]`, "Andrew", "FALSE"},
				{"Spooky, Game Night", "10/10/2025 19:00", "10/10/2025 21:00", `["Event"]`, "Ellen Mphande;Andrew", "TRUE"},
			},
		})
	}))
	defer srv.Close()

	ctx := context.Background()
	client, err := NewClientWithOptions(ctx, testLogger(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)

	rows, err := client.Rows(ctx, "sheet-id", "Roster!A:F")
	require.NoError(t, err)
	assert.True(t, strings.Contains(gotPath, "/spreadsheets/sheet-id/values/"), gotPath)

	events, err := roster.NewLoader(testLogger(), people.New(), time.UTC, true).Load(rows)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, []string{"Ellen Mphande", "Andrew"}, events[1].People)
	assert.True(t, events[1].DutyComplete)
}

func TestRowsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
	}))
	defer srv.Close()

	ctx := context.Background()
	client, err := NewClientWithOptions(ctx, testLogger(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)

	_, err = client.Rows(ctx, "missing", "A:F")
	assert.Error(t, err)
}

func TestTokenFiles(t *testing.T) {
	dir := t.TempDir()
	tok := &oauth2.Token{AccessToken: "abc", TokenType: "Bearer", RefreshToken: "def"}

	path := filepath.Join(dir, TokenFile("work"))
	require.NoError(t, SaveToken(path, tok))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.json"), []byte("{}"), 0o600))

	loaded, err := tokenFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", loaded.AccessToken)
	assert.Equal(t, "def", loaded.RefreshToken)

	accounts, err := GetTokenAccounts(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"work"}, accounts)
}

func TestOAuthConfigFromClientCredentials(t *testing.T) {
	cfg, err := GetOAuthConfigForAuthFlow("id", "secret")
	require.NoError(t, err)
	assert.Equal(t, "id", cfg.ClientID)
	assert.Equal(t, redirectURL, cfg.RedirectURL)
	assert.Len(t, cfg.Scopes, 1)
}
