package catalog

import (
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Cutoff is the minimum similarity ratio for a fuzzy match.
const Cutoff = 0.6

// Similarity returns the matching-blocks ratio of a and b in [0, 1].
func Similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	m := difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, ""))
	return m.Ratio()
}

// FuzzySuggest returns up to k catalog names whose similarity to name is at
// least Cutoff, best first. Equal scores keep catalog order.
func FuzzySuggest(name string, k int) []string {
	if k <= 0 || name == "" {
		return nil
	}
	type scored struct {
		name  string
		score float64
	}
	var matches []scored
	for _, e := range entries {
		if s := Similarity(e.Name, name); s >= Cutoff {
			matches = append(matches, scored{e.Name, s})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	if len(matches) > k {
		matches = matches[:k]
	}
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = m.name
	}
	return names
}

var errorHints = []struct {
	pattern string
	message string
}{
	{"no such object", "The specified DN does not exist"},
	{"already exists", "Entry already exists"},
	{"invalid filter", "The LDAP filter syntax is incorrect"},
	{"insufficient access rights", "You don't have permission for this operation"},
	{"invalid dn syntax", "The DN syntax is incorrect - check for proper escaping and formatting"},
}

// ExplainError maps a server error message to a short explanation.
// Matching is case-insensitive and the first matching pattern wins.
func ExplainError(msg string) (string, bool) {
	lower := strings.ToLower(msg)
	for _, h := range errorHints {
		if strings.Contains(lower, h.pattern) {
			return h.message, true
		}
	}
	return "", false
}
