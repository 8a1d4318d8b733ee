package roster

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"rostercal/internal/models"
	"rostercal/internal/people"
)

// TimeLayout is the roster's "DD/MM/YYYY HH:MM" format. Single digit days
// and months parse as well.
const TimeLayout = "2/1/2006 15:04"

// Row is one raw roster record, addressed by column name.
type Row struct {
	Title        string
	Start        string
	End          string
	DutyType     string
	AssignedTo   string
	DutyComplete string
	Line         int
}

// ParseRow turns a raw row into an Event. Times are read in loc.
func ParseRow(row Row, canon *people.Canonicalizer, loc *time.Location) (models.Event, error) {
	start, err := parseTime(row.Start, loc)
	if err != nil {
		return models.Event{}, fmt.Errorf("start: %w", err)
	}
	end, err := parseTime(row.End, loc)
	if err != nil {
		return models.Event{}, fmt.Errorf("end: %w", err)
	}
	complete, err := parseFlag(row.DutyComplete)
	if err != nil {
		return models.Event{}, err
	}

	assigned := strings.TrimSpace(row.AssignedTo)
	var who []string
	if assigned != "" {
		who = canon.Assigned(assigned)
	} else {
		who = canon.FromTitle(row.Title)
	}

	return models.Event{
		Summary:      row.Title,
		Start:        start,
		End:          end,
		DutyType:     cleanDutyType(row.DutyType),
		AssignedRaw:  assigned,
		People:       who,
		DutyComplete: complete,
		Row:          row.Line,
	}, nil
}

func parseTime(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(TimeLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q", ErrMalformedTime, s)
	}
	return t, nil
}

func parseFlag(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("%w %q", ErrMalformedFlag, s)
	}
}

// cleanDutyType unwraps the exported list form (["6pm-10pm"]) into plain
// text. Anything that is not a JSON string list is kept as written.
func cleanDutyType(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "[") {
		return raw
	}
	var items []string
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return raw
	}
	parts := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			parts = append(parts, it)
		}
	}
	return strings.Join(parts, ", ")
}
