// Package lookup sequences geocoding, LGA resolution, holiday fetch and
// regional rule merging into one audited result per address.
package lookup

import (
	"time"

	"github.com/EmpoweredVote/address-holidays/internal/holidays"
)

// Status is the terminal outcome of a lookup.
type Status string

const (
	StatusOK                  Status = "OK"
	StatusLowConfidence       Status = "LOW_CONFIDENCE"
	StatusAmbiguousLGA        Status = "AMBIGUOUS_LGA"
	StatusNotFound            Status = "NOT_FOUND"
	StatusRulesMissing        Status = "RULES_MISSING"
	StatusUpstreamUnavailable Status = "UPSTREAM_UNAVAILABLE"
	StatusError               Status = "ERROR"
)

// Statuses lists every Status.
var Statuses = []Status{
	StatusOK, StatusLowConfidence, StatusAmbiguousLGA, StatusNotFound,
	StatusRulesMissing, StatusUpstreamUnavailable, StatusError,
}

const (
	msgOK            = "Resolved via geocode coordinates and LGA polygon match; holidays calculated with regional rules."
	msgLowConfidence = "Result generated but geocode confidence is low; manual review recommended."
	msgRulesMissing  = "No holidays matched for the derived state/subdivision; manual review recommended."
	msgAmbiguousLGA  = "Could not deterministically resolve LGA from coordinates."
	msgAmbiguousLow  = "Could not deterministically resolve LGA from coordinates (low confidence geocode)."
	msgNoCoordinates = "Geocoding returned no coordinates."
	msgUnexpected    = "An unexpected error occurred while processing this address."
)

const (
	lowConfidence       = 0.7
	rulesMissingCeiling = 0.6
	geocodeProvider     = "google"
	qualityUnknown      = "unknown"
	resolutionPolygon   = "polygon"
	dateLayout          = "2006-01-02"
	minYear, maxYear    = 1900, 2200
)

// Request is one lookup. Zero Start or End means that bound is open.
type Request struct {
	Address           string
	Year              int
	Start             time.Time
	End               time.Time
	IncludeRestricted bool
}

type PayPeriod struct {
	Start *string `json:"start"`
	End   *string `json:"end"`
}

// Result is the fixed-schema outcome of a lookup. It is built fresh per call
// and not modified after Lookup returns.
type Result struct {
	LookupID                string             `json:"lookup_id"`
	InputAddress            string             `json:"input_address"`
	FormattedAddress        string             `json:"formatted_address"`
	State                   string             `json:"state"`
	Postcode                string             `json:"postcode"`
	Locality                *string            `json:"locality"`
	LGA                     *string            `json:"lga"`
	Holidays                []holidays.Holiday `json:"holidays"`
	HolidayCount            int                `json:"holiday_count"`
	PayPeriod               PayPeriod          `json:"pay_period"`
	HolidaysInPeriod        []holidays.Holiday `json:"holidays_in_period"`
	HolidayCountInPeriod    int                `json:"holiday_count_in_period"`
	RegionalHolidaysApplied []string           `json:"regional_holidays_applied"`

	Status              Status   `json:"status"`
	ManualReview        bool     `json:"manual_review"`
	Confidence          float64  `json:"confidence"`
	AuditMessage        string   `json:"audit_message"`
	GeocodeProvider     string   `json:"geocode_provider"`
	GeocodeQuality      string   `json:"geocode_quality"`
	LGAResolutionMethod string   `json:"lga_resolution_method"`
	RulesApplied        []string `json:"rules_applied"`
	IsFallbackMatch     bool     `json:"is_fallback_match"`
	Error               *string  `json:"error"`
}

// LGAName is the resolved LGA or "".
func (r Result) LGAName() string {
	if r.LGA == nil {
		return ""
	}
	return *r.LGA
}

// LocalityName is the geocoded locality or "".
func (r Result) LocalityName() string {
	if r.Locality == nil {
		return ""
	}
	return *r.Locality
}
