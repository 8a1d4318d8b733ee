package people

import (
	"fmt"
	"regexp"
)

// Rule rewrites one name fragment. Rules run in order and each sees the
// output of the previous one.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Replace string
}

// NewRule compiles pattern into a Rule.
func NewRule(name, pattern, replace string) (Rule, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("invalid pattern for rule %q: %w", name, err)
	}
	return Rule{Name: name, Pattern: re, Replace: replace}, nil
}

// Apply returns s with the rule applied.
func (r Rule) Apply(s string) string {
	if r.Pattern == nil {
		return s
	}
	return r.Pattern.ReplaceAllString(s, r.Replace)
}

var (
	leaveSuffix       = regexp.MustCompile(`(?i)\s+[-–]\s+(?:on\s+)?(?:annual\s+|sick\s+)?leave\b.*$`)
	approvalSuffix    = regexp.MustCompile(`(?i)\s+[-–]\s+(?:approved|pending|requested|rejected|declined|cancell?ed)\s*$`)
	parentheticalTail = regexp.MustCompile(`\s*\([^()]*\)\s*$`)
	dashQualifierTail = regexp.MustCompile(`\s+[-–]\s+.*$`)
)

// DefaultRules returns the built-in suffix rules:
//
//	"Andrew - On Leave - Approved" -> "Andrew"
//	"Ellen - Approved"             -> "Ellen"
//	"Keira (cover)"                -> "Keira"
//	"Sangwon - late start"         -> "Sangwon"
func DefaultRules() []Rule {
	return []Rule{
		{Name: "leave", Pattern: leaveSuffix},
		{Name: "approval", Pattern: approvalSuffix},
		{Name: "parenthetical", Pattern: parentheticalTail},
		{Name: "qualifier", Pattern: dashQualifierTail},
	}
}
