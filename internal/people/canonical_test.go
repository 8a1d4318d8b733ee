package people

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssigned(t *testing.T) {
	c := New()

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "semicolon list", in: "Alice Gleadle;Sangwon Kang;Keira Rafferty", want: []string{"Alice Gleadle", "Sangwon Kang", "Keira Rafferty"}},
		{name: "leave annotation", in: "Andrew - On Leave - Approved", want: []string{"Andrew"}},
		{name: "single name", in: "Andrew", want: []string{"Andrew"}},
		{name: "whitespace noise", in: "  Ellen   Mphande ;; ;Andrew  ", want: []string{"Ellen Mphande", "Andrew"}},
		{name: "case duplicates keep first", in: "Andrew;andrew;ANDREW ", want: []string{"Andrew"}},
		{name: "parenthetical", in: "Keira (cover);Alice", want: []string{"Keira", "Alice"}},
		{name: "commas are not separators", in: "Smith, John", want: []string{"Smith, John"}},
		{name: "empty", in: "", want: []string{}},
		{name: "only separators", in: " ; ; ", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Assigned(tt.in))
		})
	}
}

func TestFromTitle(t *testing.T) {
	c := New()

	tests := []struct {
		name  string
		title string
		want  []string
	}{
		{name: "on call list", title: "RA On Call: Alice, Sangwon, Keira", want: []string{"Alice", "Sangwon", "Keira"}},
		{name: "and joined", title: "PG Duty: Ellen and Andrew", want: []string{"Ellen", "Andrew"}},
		{name: "ampersand", title: "Cover: Ellen & Andrew", want: []string{"Ellen", "Andrew"}},
		{name: "no label", title: "Spooky, Game Night", want: []string{}},
		{name: "plain title", title: "Hot Chocolate", want: []string{}},
		{name: "non name fragments dropped", title: "Meeting at 10:30", want: []string{}},
		{name: "duplicate in title", title: "On Call: Alice, alice", want: []string{"Alice"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.FromTitle(tt.title))
		})
	}
}

func TestRulesIndividually(t *testing.T) {
	rules := map[string]Rule{}
	for _, r := range DefaultRules() {
		rules[r.Name] = r
	}

	assert.Equal(t, "Andrew", rules["leave"].Apply("Andrew - On Leave - Approved"))
	assert.Equal(t, "Andrew", rules["leave"].Apply("Andrew - Annual Leave"))
	assert.Equal(t, "Ellen", rules["approval"].Apply("Ellen - Approved"))
	assert.Equal(t, "Keira", rules["parenthetical"].Apply("Keira (cover)"))
	assert.Equal(t, "Sangwon", rules["qualifier"].Apply("Sangwon - late start"))
	assert.Equal(t, "Mary-Jane", rules["qualifier"].Apply("Mary-Jane"))
}

func TestCustomRule(t *testing.T) {
	r, err := NewRule("shift", `(?i)\s+shift\s+\d+$`, "")
	require.NoError(t, err)

	c := New(WithRules(r))
	assert.Equal(t, []string{"Alice"}, c.Assigned("Alice shift 2"))

	_, err = NewRule("broken", `(`, "")
	assert.Error(t, err)
}

func TestNoDuplicatesOrEmptyEntries(t *testing.T) {
	c := New(WithDirectory(NewDirectory(map[string]string{"Al": "Alice Gleadle"})))
	inputs := []string{
		"Alice Gleadle; alice gleadle ;Al; ;",
		"  ;Andrew - On Leave - Approved;Andrew;  andrew ",
		"\tKeira\t;Keira (cover);KEIRA",
	}
	for _, in := range inputs {
		got := c.Assigned(in)
		seen := map[string]bool{}
		for _, p := range got {
			assert.NotEmpty(t, p)
			assert.Equal(t, collapse(p), p)
			assert.False(t, seen[Key(p)], "duplicate %q in %v", p, got)
			seen[Key(p)] = true
		}
	}
}

func TestClean(t *testing.T) {
	c := New()
	assert.Equal(t, "Andrew", c.Clean("  Andrew   - On Leave - Approved "))
	assert.Equal(t, "", c.Clean("   "))
}
