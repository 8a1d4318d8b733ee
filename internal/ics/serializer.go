// Package ics renders roster events as an iCalendar document.
package ics

import (
	"io"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"rostercal/internal/models"
)

const (
	DefaultProductID = "-//rostercal//Duty Roster//EN"

	uidDomain       = "rostercal"
	localTimeLayout = "20060102T150405"
	utcTimeLayout   = "20060102T150405Z"
)

// uidNamespace scopes name-based UIDs so they cannot collide with UUIDs
// minted by other tools for the same text.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:rostercal:event"))

// Serializer converts events to iCalendar text. The zero value writes
// floating local times with DefaultProductID.
type Serializer struct {
	ProductID    string    // PRODID; DefaultProductID when empty
	CalendarName string    // X-WR-CALNAME, omitted when empty
	UTC          bool      // write DTSTART/DTEND in UTC instead of floating local time
	Stamp        time.Time // DTSTAMP for every event, omitted when zero
}

// Render returns the document as a string with CRLF line endings.
func (s Serializer) Render(events []models.Event) string {
	return s.Calendar(events).Serialize(ical.WithNewLineWindows)
}

// Encode writes the document to w.
func (s Serializer) Encode(w io.Writer, events []models.Event) error {
	return s.Calendar(events).SerializeTo(w, ical.WithNewLineWindows)
}

// Calendar builds the calendar object without serializing it.
func (s Serializer) Calendar(events []models.Event) *ical.Calendar {
	cal := ical.NewCalendar()
	pid := s.ProductID
	if pid == "" {
		pid = DefaultProductID
	}
	cal.SetProductId(pid)
	if s.CalendarName != "" {
		cal.SetXWRCalName(s.CalendarName)
	}

	uids := UIDs(events)
	for i, ev := range events {
		cal.AddVEvent(s.event(ev, uids[i]))
	}
	return cal
}

func (s Serializer) event(ev models.Event, uid string) *ical.VEvent {
	ve := &ical.VEvent{}
	ve.AddProperty(ical.ComponentPropertySummary, ev.Summary)
	ve.AddProperty(ical.ComponentPropertyDtStart, s.timestamp(ev.Start))
	ve.AddProperty(ical.ComponentPropertyDtEnd, s.timestamp(ev.End))
	if desc := Description(ev); desc != "" {
		ve.AddProperty(ical.ComponentPropertyDescription, desc)
	}
	ve.AddProperty(ical.ComponentPropertyUniqueId, uid)
	if !s.Stamp.IsZero() {
		ve.SetDtStampTime(s.Stamp)
	}
	return ve
}

func (s Serializer) timestamp(t time.Time) string {
	if s.UTC {
		return t.UTC().Format(utcTimeLayout)
	}
	return t.Format(localTimeLayout)
}

// Description is the human readable DESCRIPTION text: the duty type and the
// raw assignment, one per line, each only when present.
func Description(ev models.Event) string {
	var lines []string
	if ev.DutyType != "" {
		lines = append(lines, "Duty Type: "+ev.DutyType)
	}
	if ev.AssignedRaw != "" {
		lines = append(lines, "Assigned To: "+ev.AssignedRaw)
	}
	return strings.Join(lines, "\n")
}

// UIDs returns a stable identifier per event. Events that already carry a
// UID keep it. Others get one derived from the summary, times and duty type,
// so reassigning a duty keeps its UID. Identical rows are told apart by their
// order of appearance.
func UIDs(events []models.Event) []string {
	seen := make(map[string]int, len(events))
	out := make([]string, len(events))
	for i, ev := range events {
		key := strings.Join([]string{
			ev.Summary,
			ev.Start.Format(time.RFC3339),
			ev.End.Format(time.RFC3339),
			ev.DutyType,
		}, "\x1f")
		n := seen[key]
		seen[key] = n + 1
		if ev.UID != "" {
			out[i] = ev.UID
			continue
		}
		id := uuid.NewSHA1(uidNamespace, []byte(key+"\x1f"+strconv.Itoa(n)))
		out[i] = id.String() + "@" + uidDomain
	}
	return out
}

// AssignUIDs sets UID on every event that lacks one. It must run over the
// whole roster before filtering: the occurrence counter then sees every
// twin row, and a filtered subset keeps the UIDs it has in the full feed.
func AssignUIDs(events []models.Event) {
	for i, uid := range UIDs(events) {
		events[i].UID = uid
	}
}
