package genre

import (
	"sort"
	"strings"
	"unicode"
)

// Genre is a label that is a member of the AllowList.
type Genre string

// AllowList is the fixed set of genres the classifier may return.
// It is built once at startup and never mutated.
type AllowList struct {
	members map[Genre]struct{}
	sorted  []string
}

// NewAllowList lower-cases and de-duplicates genres. Blank entries are dropped.
func NewAllowList(genres []string) *AllowList {
	a := &AllowList{members: make(map[Genre]struct{}, len(genres))}
	for _, g := range genres {
		g = strings.ToLower(strings.TrimSpace(g))
		if g == "" {
			continue
		}
		if _, dup := a.members[Genre(g)]; dup {
			continue
		}
		a.members[Genre(g)] = struct{}{}
		a.sorted = append(a.sorted, g)
	}
	sort.Strings(a.sorted)
	return a
}

// Contains reports exact membership.
func (a *AllowList) Contains(g string) bool {
	_, ok := a.members[Genre(g)]
	return ok
}

// Sorted returns a copy of the members in lexical order.
func (a *AllowList) Sorted() []string {
	return append([]string(nil), a.sorted...)
}

func (a *AllowList) Len() int {
	return len(a.sorted)
}

// Normalize reduces a raw model answer to a candidate label: trim, lowercase, keep the
// part before the first comma or newline, trim again, then strip trailing periods and
// whitespace. Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.IndexAny(s, ",\n"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	return strings.TrimRightFunc(s, func(r rune) bool {
		return r == '.' || unicode.IsSpace(r)
	})
}
