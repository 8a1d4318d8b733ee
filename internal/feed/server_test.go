package feed

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rostercal/internal/ics"
	"rostercal/internal/metrics"
	"rostercal/internal/models"
	"rostercal/internal/pipeline"
	"rostercal/internal/roster"
)

type stubSource struct {
	events []models.Event
	err    error
	calls  int
}

func (s *stubSource) Load(_ context.Context, f pipeline.Filter) ([]models.Event, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	events := s.events
	if f.Person != "" {
		events = roster.FilterByPerson(events, f.Person)
	}
	if f.DutyType != "" {
		events = roster.FilterByDutyType(events, f.DutyType)
	}
	return events, nil
}

func testEvents() []models.Event {
	day := time.Date(2025, 10, 20, 19, 0, 0, 0, time.UTC)
	return []models.Event{
		{
			Summary:     "Hot Chocolate",
			Start:       day,
			End:         day.Add(time.Hour),
			DutyType:    "Event",
			AssignedRaw: "Alice Gleadle;Andrew",
			People:      []string{"Alice Gleadle", "Andrew"},
		},
		{
			Summary:  "Team Duty",
			Start:    day.AddDate(0, 0, 1),
			End:      day.AddDate(0, 0, 1).Add(3 * time.Hour),
			DutyType: "6pm-10pm",
			People:   []string{"Andrew"},
		},
	}
}

func newTestServer(src EventSource) *httptest.Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewServer(logger, src, ics.Serializer{CalendarName: "Duty"}, ":0", "test")
	return httptest.NewServer(s.Router())
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestCalendar(t *testing.T) {
	src := &stubSource{events: testEvents()}
	ts := newTestServer(src)
	defer ts.Close()

	tests := []struct {
		name     string
		query    string
		contains []string
		absent   []string
	}{
		{"all", "", []string{"SUMMARY:Hot Chocolate", "SUMMARY:Team Duty", "X-WR-CALNAME:Duty"}, nil},
		{"person", "?person=alice%20gleadle", []string{"SUMMARY:Hot Chocolate"}, []string{"Team Duty"}},
		{"duty type", "?duty_type=6pm", []string{"SUMMARY:Team Duty"}, []string{"Hot Chocolate"}},
		{"no match", "?person=Zed", []string{"BEGIN:VCALENDAR", "END:VCALENDAR"}, []string{"BEGIN:VEVENT"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := get(t, ts.URL+"/calendar.ics"+tt.query)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "text/calendar; charset=utf-8", resp.Header.Get("Content-Type"))
			for _, s := range tt.contains {
				assert.Contains(t, body, s)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, body, s)
			}
		})
	}
	assert.Equal(t, len(tests), src.calls)
}

func TestCORS(t *testing.T) {
	ts := newTestServer(&stubSource{events: testEvents()})
	defer ts.Close()

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/calendar.ics", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://calendar.example.com")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestPeople(t *testing.T) {
	ts := newTestServer(&stubSource{events: testEvents()})
	defer ts.Close()

	resp, body := get(t, ts.URL+"/people")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got []roster.PersonCount
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, []roster.PersonCount{
		{Name: "Alice Gleadle", Events: 1},
		{Name: "Andrew", Events: 2},
	}, got)
}

func TestLoadError(t *testing.T) {
	ts := newTestServer(&stubSource{err: errors.New("sheet unavailable")})
	defer ts.Close()

	before := testutil.ToFloat64(metrics.FeedLoadErrors)

	resp, body := get(t, ts.URL+"/calendar.ics")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body, "sheet unavailable")

	resp, _ = get(t, ts.URL+"/people")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	assert.Equal(t, before+2, testutil.ToFloat64(metrics.FeedLoadErrors))
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(&stubSource{})
	defer ts.Close()

	resp, body := get(t, ts.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, body)

	_, body = get(t, ts.URL+"/version")
	assert.Equal(t, "test\n", body)

	resp, body = get(t, ts.URL+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `rostercal_feed_requests_total{code="200",route="/healthz"}`)

	resp, _ = get(t, ts.URL+"/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRunShutdown(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewServer(logger, &stubSource{events: testEvents()}, ics.Serializer{}, addr, "test")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRunListenError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewServer(logger, &stubSource{}, ics.Serializer{}, l.Addr().String(), "test")

	err = s.Run(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "address already in use") || strings.Contains(err.Error(), "bind"))
}
