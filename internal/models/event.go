package models

import "time"

// Event is one parsed roster row.
// It is built once by the roster parser and treated as read-only afterwards.
type Event struct {
	Summary      string    // Title column, used verbatim as the calendar SUMMARY
	Start        time.Time // Start of the duty in the roster's local time
	End          time.Time // End of the duty; may precede Start if the source does
	DutyType     string    // Duty classification, empty when the column is blank
	AssignedRaw  string    // Unprocessed "Assigned To" text
	People       []string  // Canonical person names in first-seen order
	DutyComplete bool      // Informational completion flag
	Row          int       // 1-based source line of the record (the header is line 1)
	UID          string    // Calendar UID, assigned over the whole roster before any filtering
}

// HasPeople reports whether any person was derived for the event.
func (e Event) HasPeople() bool {
	return len(e.People) > 0
}
