package people

import "strings"

// Directory expands short names to full canonical names.
//
// Explicit aliases always win. Otherwise a single-word name expands when
// exactly one known full name starts with that word, so "Alice" becomes
// "Alice Gleadle" but "Sam" stays "Sam" if both "Sam Hill" and "Sam Ng"
// are known.
type Directory struct {
	aliases map[string]string
	byFirst map[string][]string
	known   map[string]struct{}
}

// NewDirectory returns a Directory seeded with alias -> canonical name pairs.
func NewDirectory(aliases map[string]string) *Directory {
	d := &Directory{
		aliases: make(map[string]string, len(aliases)),
		byFirst: make(map[string][]string),
		known:   make(map[string]struct{}),
	}
	for alias, name := range aliases {
		alias, name = collapse(alias), collapse(name)
		if alias == "" || name == "" {
			continue
		}
		d.aliases[Key(alias)] = name
		d.Add(name)
	}
	return d
}

// Add records a full name. Names of a single word are ignored since they
// cannot disambiguate anything.
func (d *Directory) Add(name string) {
	name = collapse(name)
	words := strings.Fields(name)
	if len(words) < 2 {
		return
	}
	key := Key(name)
	if _, ok := d.known[key]; ok {
		return
	}
	d.known[key] = struct{}{}
	first := strings.ToLower(words[0])
	d.byFirst[first] = append(d.byFirst[first], name)
}

// Expand returns the canonical form of name, or name itself when nothing
// applies. A nil Directory expands nothing.
func (d *Directory) Expand(name string) string {
	if d == nil {
		return name
	}
	key := Key(name)
	if full, ok := d.aliases[key]; ok {
		return full
	}
	if strings.Contains(key, " ") {
		return name
	}
	if candidates := d.byFirst[key]; len(candidates) == 1 {
		return candidates[0]
	}
	return name
}

// Alias returns the configured canonical name for name, ignoring learned
// full names.
func (d *Directory) Alias(name string) string {
	if d == nil {
		return name
	}
	if full, ok := d.aliases[Key(name)]; ok {
		return full
	}
	return name
}

// Len returns the number of known full names.
func (d *Directory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.known)
}

// Clone returns an independent copy, so per-load learning never leaks
// into a shared directory.
func (d *Directory) Clone() *Directory {
	c := NewDirectory(nil)
	if d == nil {
		return c
	}
	for k, v := range d.aliases {
		c.aliases[k] = v
	}
	for k, v := range d.known {
		c.known[k] = v
	}
	for k, v := range d.byFirst {
		c.byFirst[k] = append([]string(nil), v...)
	}
	return c
}
