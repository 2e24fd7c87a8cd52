package regional

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/EmpoweredVote/address-holidays/internal/holidays"
)

// Location is the resolved jurisdiction a rule is matched against.
type Location struct {
	State    string
	LGA      string
	Postcode string
	Locality string
}

// Match returns rules for loc's state whose declared key equals the matching
// location value. Comparison is case-insensitive with whitespace collapsed;
// empty location values never match. Rules not applying to ALL are left out
// unless includeRestricted is set.
func Match(rules []Rule, loc Location, includeRestricted bool) []Rule {
	fold := cases.Fold()
	norm := func(s string) string {
		return fold.String(strings.Join(strings.Fields(s), " "))
	}

	state := norm(loc.State)
	if state == "" {
		return nil
	}
	values := map[MatchType]string{
		MatchLGA:      norm(loc.LGA),
		MatchPostcode: norm(loc.Postcode),
		MatchLocality: norm(loc.Locality),
	}

	var out []Rule
	for _, r := range rules {
		if norm(r.State) != state {
			continue
		}
		if !includeRestricted && r.AppliesTo != holidays.AppliesToAll {
			continue
		}
		want := values[r.MatchType]
		if want != "" && norm(r.MatchValue) == want {
			out = append(out, r)
		}
	}
	return out
}

// Merge adds rule holidays to base, skipping any (date, name) already
// present, and returns a new list sorted by (date, name). base is not modified.
func Merge(base []holidays.Holiday, rules []Rule) []holidays.Holiday {
	seen := make(map[string]bool, len(base)+len(rules))
	out := make([]holidays.Holiday, 0, len(base)+len(rules))
	for _, h := range base {
		seen[h.Key()] = true
		out = append(out, h)
	}
	for _, r := range rules {
		h := r.Holiday()
		if seen[h.Key()] {
			continue
		}
		seen[h.Key()] = true
		out = append(out, h)
	}
	holidays.Sort(out)
	return out
}
