// Package regional loads curated per-year regional holiday rules (by LGA,
// postcode or locality) and merges matching rules into a base holiday list.
package regional

import (
	"slices"

	"github.com/EmpoweredVote/address-holidays/internal/holidays"
)

type MatchType string

const (
	MatchLGA      MatchType = "LGA"
	MatchPostcode MatchType = "POSTCODE"
	MatchLocality MatchType = "LOCALITY"
)

// StateCodes are the eight Australian state and territory codes.
var StateCodes = []string{"ACT", "NSW", "NT", "QLD", "SA", "TAS", "VIC", "WA"}

// Rule is one validated row of regional_holidays_{year}.csv.
type Rule struct {
	Date       string
	Name       string
	State      string
	MatchType  MatchType
	MatchValue string
	Scope      holidays.Scope
	AppliesTo  holidays.AppliesTo
	Source     string
	Notes      string
}

// ID identifies the rule in audit output.
func (r Rule) ID() string { return r.Date + ":" + r.Name }

// Holiday converts the rule to a regional holiday.
func (r Rule) Holiday() holidays.Holiday {
	return holidays.Holiday{
		Date:       r.Date,
		Name:       r.Name,
		Scope:      r.Scope,
		AppliesTo:  r.AppliesTo,
		Source:     r.Source,
		IsRegional: true,
		Notes:      r.Notes,
	}
}

func knownState(s string) bool { return slices.Contains(StateCodes, s) }
