package geocoding

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

var stateCodes = map[string]string{
	"Victoria":                     "VIC",
	"New South Wales":              "NSW",
	"Queensland":                   "QLD",
	"South Australia":              "SA",
	"Western Australia":            "WA",
	"Tasmania":                     "TAS",
	"Northern Territory":           "NT",
	"Australian Capital Territory": "ACT",
}

var (
	leadingNumberRe = regexp.MustCompile(`^\s*\d+\s+`)
	streetSuffixRe  = regexp.MustCompile(`(?i)\b(st|street|rd|road|ave|avenue|blvd|boulevard|dr|drive|ct|court|ln|lane|pde|parade)\b\.?`)
	streetAddressRe = regexp.MustCompile(`(?i)\b\d+[a-z]?(?:[/-]\d+[a-z]?)?\s+(?:[^\s,]+[\s,]+)+?(?:st|street|rd|road|ave|avenue|blvd|boulevard|dr|drive|ct|court|ln|lane|pde|parade|hwy|highway|cres|crescent|pl|place|tce|terrace|way|cl|close)\b`)
)

// StateCode maps a long state name to its short code. Unknown names are
// returned unchanged.
func StateCode(name string) string {
	if code, ok := stateCodes[name]; ok {
		return code
	}
	return name
}

// NormalizeKey is the cache key for an address: case-folded with runs of
// whitespace collapsed to a single space.
func NormalizeKey(address string) string {
	// cases.Caser keeps state between calls and is not safe to share.
	return cases.Fold().String(collapse(address))
}

// FallbackQuery derives a coarser query for retrying a zero-results lookup.
// With two or more comma separated parts it keeps the last two (usually
// suburb and state/postcode). Otherwise it drops a leading house number and
// street suffix words.
func FallbackQuery(address string) string {
	a := strings.TrimSpace(address)

	var parts []string
	for _, p := range strings.Split(a, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) >= 2 {
		return strings.Join(parts[len(parts)-2:], ", ")
	}

	a = leadingNumberRe.ReplaceAllString(a, "")
	a = streetSuffixRe.ReplaceAllString(a, "")
	return collapse(a)
}

// LooksStreetLevel reports whether a query reads like a precise street
// address: a house number, at least one street name word, then a street
// type word. Suburbs such as "St Kilda VIC 3182" do not qualify.
func LooksStreetLevel(query string) bool {
	return streetAddressRe.MatchString(query)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
