package roster

import (
	"slices"
	"strings"

	"rostercal/internal/models"
	"rostercal/internal/people"
)

// Matches reports whether name is one of the event's people, ignoring case
// and surrounding or repeated whitespace. An empty name matches nothing.
func Matches(e models.Event, name string) bool {
	key := people.Key(name)
	if key == "" {
		return false
	}
	for _, p := range e.People {
		if people.Key(p) == key {
			return true
		}
	}
	return false
}

// FilterByPerson returns the events assigned to name, in their original order.
func FilterByPerson(events []models.Event, name string) []models.Event {
	out := make([]models.Event, 0, len(events))
	for _, e := range events {
		if Matches(e, name) {
			out = append(out, e)
		}
	}
	return out
}

// FilterByDutyType keeps events whose duty type contains dutyType,
// case-insensitively. An empty dutyType keeps everything.
func FilterByDutyType(events []models.Event, dutyType string) []models.Event {
	needle := strings.ToLower(strings.TrimSpace(dutyType))
	out := make([]models.Event, 0, len(events))
	for _, e := range events {
		if needle == "" || strings.Contains(strings.ToLower(e.DutyType), needle) {
			out = append(out, e)
		}
	}
	return out
}

// PersonCount is a canonical person and how many events they appear in.
type PersonCount struct {
	Name   string `json:"name"`
	Events int    `json:"events"`
}

// People lists everyone named in events, sorted by name.
func People(events []models.Event) []PersonCount {
	index := make(map[string]int)
	var out []PersonCount
	for _, e := range events {
		for _, p := range e.People {
			key := people.Key(p)
			i, ok := index[key]
			if !ok {
				i = len(out)
				index[key] = i
				out = append(out, PersonCount{Name: p})
			}
			out[i].Events++
		}
	}
	slices.SortStableFunc(out, func(a, b PersonCount) int {
		return strings.Compare(people.Key(a.Name), people.Key(b.Name))
	})
	return out
}
