// Package people turns free-text roster fragments into canonical person names.
package people

import (
	"regexp"
	"strings"
)

var (
	assignedSeparator = regexp.MustCompile(`;`)
	titleSeparator    = regexp.MustCompile(`(?i)\s*(?:[;,&/]|\band\b)\s*`)
	titleLabel        = regexp.MustCompile(`^\s*[^:,;]+:\s*(.*)$`)
	nameLike          = regexp.MustCompile(`^\p{L}[\p{L}\p{M}'’.\- ]*$`)
)

// Canonicalizer maps raw "Assigned To" text and titles to person names.
// It holds no mutable state and is safe for concurrent use.
type Canonicalizer struct {
	rules []Rule
	dir   *Directory
}

// Option configures a Canonicalizer.
type Option func(*Canonicalizer)

// WithRules appends rules after the default ones.
func WithRules(rules ...Rule) Option {
	return func(c *Canonicalizer) {
		c.rules = append(c.rules, rules...)
	}
}

// WithDirectory sets the directory used to expand short names.
func WithDirectory(d *Directory) Option {
	return func(c *Canonicalizer) {
		c.dir = d
	}
}

// New returns a Canonicalizer using DefaultRules plus any options.
func New(opts ...Option) *Canonicalizer {
	c := &Canonicalizer{rules: DefaultRules()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Directory returns the configured directory, which may be nil.
func (c *Canonicalizer) Directory() *Directory {
	return c.dir
}

// WithDirectory returns a copy of c that expands names through d.
func (c *Canonicalizer) WithDirectory(d *Directory) *Canonicalizer {
	cp := *c
	cp.dir = d
	return &cp
}

// Assigned canonicalizes an "Assigned To" field. Only semicolons separate
// people here; commas may be part of a single annotation. Names are
// expanded through configured aliases only: an explicit "Andrew" stays
// "Andrew" even when "Andrew Smith" appears elsewhere in the roster.
func (c *Canonicalizer) Assigned(text string) []string {
	return c.canonicalize(assignedSeparator.Split(text, -1), false)
}

// FromTitle extracts people from a title of the form "Label: A, B and C".
// Titles without a label yield no people. First names expand to a unique
// known full name.
func (c *Canonicalizer) FromTitle(title string) []string {
	m := titleLabel.FindStringSubmatch(title)
	if m == nil {
		return []string{}
	}
	return c.canonicalize(titleSeparator.Split(m[1], -1), true)
}

// Clean applies whitespace normalization and the suffix rules to a single
// fragment without directory expansion.
func (c *Canonicalizer) Clean(fragment string) string {
	s := collapse(fragment)
	for _, r := range c.rules {
		s = collapse(r.Apply(s))
		if s == "" {
			break
		}
	}
	return s
}

// canonicalize cleans and dedupes fragments. Title fragments must look like
// names and may expand to learned full names.
func (c *Canonicalizer) canonicalize(fragments []string, fromTitle bool) []string {
	out := make([]string, 0, len(fragments))
	seen := make(map[string]struct{}, len(fragments))
	for _, f := range fragments {
		name := c.Clean(f)
		if name == "" {
			continue
		}
		if fromTitle {
			if !nameLike.MatchString(name) {
				continue
			}
			name = c.dir.Expand(name)
		} else {
			name = c.dir.Alias(name)
		}
		key := Key(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	return out
}

// Key is the case- and whitespace-insensitive identity of a name.
func Key(name string) string {
	return strings.ToLower(collapse(name))
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
