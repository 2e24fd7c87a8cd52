// Package holidays fetches Australian public holidays from the Nager.Date
// API and filters them to a state or territory.
package holidays

import (
	"cmp"
	"slices"
	"strings"
)

type Scope string

const (
	ScopeFullDay   Scope = "FULL_DAY"
	ScopeHalfDayAM Scope = "HALF_DAY_AM"
	ScopeHalfDayPM Scope = "HALF_DAY_PM"
)

type AppliesTo string

const (
	AppliesToAll               AppliesTo = "ALL"
	AppliesToPublicServiceOnly AppliesTo = "PUBLIC_SERVICE_ONLY"
	AppliesToBankingOnly       AppliesTo = "BANKING_ONLY"
)

// SourceNational tags holidays that came from the national holiday service.
const SourceNational = "national-holiday-service"

// Holiday is one observed holiday for a location. Date is YYYY-MM-DD.
// (Date, Name) identifies a holiday for de-duplication.
type Holiday struct {
	Date       string    `json:"date"`
	Name       string    `json:"name"`
	LocalName  string    `json:"local_name,omitempty"`
	Scope      Scope     `json:"scope"`
	AppliesTo  AppliesTo `json:"applies_to"`
	Source     string    `json:"source"`
	IsRegional bool      `json:"is_regional"`
	Notes      string    `json:"notes,omitempty"`
}

// Key is the de-duplication key.
func (h Holiday) Key() string { return h.Date + "|" + h.Name }

// Entry is a raw Nager.Date PublicHoliday record.
type Entry struct {
	Date        string   `json:"date"`
	LocalName   string   `json:"localName"`
	Name        string   `json:"name"`
	CountryCode string   `json:"countryCode"`
	Global      bool     `json:"global"`
	Counties    []string `json:"counties"`
	Types       []string `json:"types"`
}

// FilterForSubdivision keeps entries that are nationwide or list "AU-<code>"
// among their counties.
func FilterForSubdivision(entries []Entry, code string) []Entry {
	target := "AU-" + strings.ToUpper(strings.TrimSpace(code))
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Global || slices.Contains(e.Counties, target) {
			out = append(out, e)
		}
	}
	return out
}

// Normalise converts raw entries to Holidays with default scope, applies_to
// and source.
func Normalise(entries []Entry) []Holiday {
	out := make([]Holiday, 0, len(entries))
	for _, e := range entries {
		name := e.Name
		if name == "" {
			name = e.LocalName
		}
		out = append(out, Holiday{
			Date:      e.Date,
			Name:      name,
			LocalName: e.LocalName,
			Scope:     ScopeFullDay,
			AppliesTo: AppliesToAll,
			Source:    SourceNational,
		})
	}
	return out
}

// Sort orders holidays by (date, name).
func Sort(hs []Holiday) {
	slices.SortStableFunc(hs, func(a, b Holiday) int {
		if c := cmp.Compare(a.Date, b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
}

// InPeriod returns holidays whose date falls within [start, end]. Empty
// bounds are open. Dates compare as YYYY-MM-DD strings.
func InPeriod(hs []Holiday, start, end string) []Holiday {
	out := make([]Holiday, 0, len(hs))
	for _, h := range hs {
		if start != "" && h.Date < start {
			continue
		}
		if end != "" && h.Date > end {
			continue
		}
		out = append(out, h)
	}
	return out
}
