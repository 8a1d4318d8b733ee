// Package caldav publishes roster events to a CalDAV calendar.
package caldav

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	gocaldav "github.com/emersion/go-webdav/caldav"

	"rostercal/internal/ics"
	"rostercal/internal/models"
)

// basicAuthTransport adds Basic Auth and a User-Agent to each request.
type basicAuthTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if t.Username != "" {
		req.SetBasicAuth(t.Username, t.Password)
	}
	req.Header.Set("User-Agent", "rostercal/1.0")
	return t.Transport.RoundTrip(req)
}

// Options configures a Publisher.
type Options struct {
	Endpoint string
	Username string
	Password string
	// Calendar is either a display name, resolved through discovery, or a
	// collection path starting with "/".
	Calendar  string
	ProductID string
}

// Publisher writes every event as its own calendar object. Objects are
// named after the event UID, so publishing the same roster again
// overwrites instead of duplicating.
type Publisher struct {
	caldavClient *gocaldav.Client
	webdavClient *webdav.Client
	logger       *slog.Logger
	calendarPath string
	productID    string
	now          func() time.Time
}

// NewPublisher connects to the server and locates the target calendar.
func NewPublisher(ctx context.Context, logger *slog.Logger, opts Options) (*Publisher, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("caldav endpoint is not set")
	}
	if opts.Calendar == "" {
		return nil, fmt.Errorf("caldav calendar is not set")
	}

	httpClient := &http.Client{Transport: &basicAuthTransport{
		Username:  opts.Username,
		Password:  opts.Password,
		Transport: http.DefaultTransport,
	}}

	caldavClient, err := gocaldav.NewClient(httpClient, opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}
	webdavClient, err := webdav.NewClient(httpClient, opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create webdav client: %w", err)
	}

	p := &Publisher{
		caldavClient: caldavClient,
		webdavClient: webdavClient,
		logger:       logger,
		productID:    opts.ProductID,
		now:          time.Now,
	}
	if p.productID == "" {
		p.productID = ics.DefaultProductID
	}

	if strings.HasPrefix(opts.Calendar, "/") {
		p.calendarPath = opts.Calendar
	} else {
		logger.Info("Finding CalDAV calendar", "calendarName", opts.Calendar)
		p.calendarPath, err = p.findCalendar(ctx, opts.Calendar)
		if err != nil {
			return nil, fmt.Errorf("could not find calendar '%s': %w", opts.Calendar, err)
		}
	}
	logger.Info("Using CalDAV calendar", "path", p.calendarPath)
	return p, nil
}

// Publish uploads events and returns how many were written. With dryRun
// nothing is sent.
func (p *Publisher) Publish(ctx context.Context, events []models.Event, dryRun bool) (int, error) {
	uids := ics.UIDs(events)
	stamp := p.now().UTC()

	published := 0
	for i, ev := range events {
		objectPath := path.Join(p.calendarPath, uids[i]+".ics")
		if dryRun {
			p.logger.Info("[DRY RUN] Would publish event", "title", ev.Summary, "startTime", ev.Start, "path", objectPath)
			continue
		}
		if err := p.put(ctx, objectPath, p.toICal(ev, uids[i], stamp)); err != nil {
			return published, fmt.Errorf("failed to publish %q (row %d): %w", ev.Summary, ev.Row, err)
		}
		p.logger.Debug("Published event", "title", ev.Summary, "path", objectPath)
		published++
	}

	p.logger.Info("Publish finished.", "published", published, "total", len(events), "dryRun", dryRun)
	return published, nil
}

func (p *Publisher) put(ctx context.Context, objectPath string, cal *ical.Calendar) error {
	writer, err := p.webdavClient.Create(ctx, objectPath)
	if err != nil {
		return fmt.Errorf("failed to create object on CalDAV server: %w", err)
	}
	if err := ical.NewEncoder(writer).Encode(cal); err != nil {
		writer.Close()
		return fmt.Errorf("failed to encode event to iCal format: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}
	return nil
}

// toICal wraps one event in its own VCALENDAR. Times are sent in UTC so
// the object does not depend on a VTIMEZONE the server may not know.
func (p *Publisher) toICal(ev models.Event, uid string, stamp time.Time) *ical.Calendar {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, uid)
	ve.Props.SetText(ical.PropSummary, ev.Summary)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, stamp)
	ve.Props.SetDateTime(ical.PropDateTimeStart, ev.Start.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeEnd, ev.End.UTC())
	if desc := ics.Description(ev); desc != "" {
		ve.Props.SetText(ical.PropDescription, desc)
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, p.productID)
	cal.Children = append(cal.Children, ve)
	return cal
}

// findCalendar discovers the user's calendars and returns the path of the one with the matching name.
func (p *Publisher) findCalendar(ctx context.Context, name string) (string, error) {
	principalPath, err := p.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := p.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := p.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	for _, cal := range calendars {
		if cal.Name == name {
			return cal.Path, nil
		}
	}

	return "", fmt.Errorf("no calendar found with name '%s'", name)
}
