// Package geocoding turns free-text Australian addresses into coordinates and
// administrative components using the Google Maps Geocoding API.
package geocoding

import "strings"

// Quality is the provider's location_type for the first result.
type Quality string

const (
	QualityRooftop           Quality = "ROOFTOP"
	QualityRangeInterpolated Quality = "RANGE_INTERPOLATED"
	QualityGeometricCenter   Quality = "GEOMETRIC_CENTER"
	QualityApproximate       Quality = "APPROXIMATE"
	QualityUnknown           Quality = ""
)

// Confidence maps a location type to a score in [0, 1].
func (q Quality) Confidence() float64 {
	switch Quality(strings.ToUpper(string(q))) {
	case QualityRooftop:
		return 1.0
	case QualityRangeInterpolated:
		return 0.8
	case QualityGeometricCenter, "GEOMETRIC_CENTRE":
		return 0.6
	case QualityApproximate:
		return 0.4
	default:
		return 0.5
	}
}

// Result holds structured data from a geocoding response. Values are never
// mutated after Resolve returns them.
type Result struct {
	FormattedAddress string   `json:"formatted_address"`
	Lat              float64  `json:"lat"`
	Lon              float64  `json:"lon"`
	State            string   `json:"state"` // VIC, NSW, ... when mapped
	Postcode         string   `json:"postcode"`
	Locality         string   `json:"locality"`
	Quality          Quality  `json:"quality"`
	IsFallbackMatch  bool     `json:"is_fallback_match"`
	QueryUsed        string   `json:"query_used"`
	ResultTypes      []string `json:"result_types,omitempty"`
}

// HasCoordinates reports whether the provider returned a usable point.
func (r Result) HasCoordinates() bool {
	return r.Lat != 0 || r.Lon != 0
}
