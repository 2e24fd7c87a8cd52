package lookup

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/EmpoweredVote/address-holidays/internal/geocoding"
	"github.com/EmpoweredVote/address-holidays/internal/holidays"
	"github.com/EmpoweredVote/address-holidays/internal/regional"
)

type Geocoder interface {
	Resolve(ctx context.Context, address string) (geocoding.Result, error)
}

type JurisdictionResolver interface {
	LGAForState(lat, lon float64, state string) (string, bool)
}

type HolidaySource interface {
	ForCountryYear(ctx context.Context, year int) ([]holidays.Entry, error)
}

type RuleSource interface {
	Load(year int) ([]regional.Rule, error)
}

// ValidationError is a malformed Request.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// PanicError wraps a value recovered from a panicking collaborator.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }

// Service runs lookups. It holds no per-request state and is safe for
// concurrent use when its collaborators are.
type Service struct {
	geocoder Geocoder
	areas    JurisdictionResolver
	holidays HolidaySource
	rules    RuleSource
	log      *zap.Logger
}

func NewService(g Geocoder, areas JurisdictionResolver, hs HolidaySource, rules RuleSource, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{geocoder: g, areas: areas, holidays: hs, rules: rules, log: log}
}

// Lookup resolves req.Address and never returns an error: every failure is
// reported through Status, AuditMessage and Error.
func (s *Service) Lookup(ctx context.Context, req Request) (res Result) {
	res = newResult(req)

	defer func() {
		if p := recover(); p != nil {
			s.log.Error("lookup panicked", zap.String("address", req.Address), zap.Any("panic", p))
			s.fail(&res, &PanicError{Value: p})
		}
		finalise(&res)
		s.log.Info("lookup finished",
			zap.String("lookup_id", res.LookupID),
			zap.String("status", string(res.Status)),
			zap.Float64("confidence", res.Confidence),
			zap.Int("holidays_in_period", res.HolidayCountInPeriod))
	}()

	if err := validate(req); err != nil {
		res.Status = StatusError
		res.AuditMessage = err.Error()
		res.Confidence = 0
		res.Error = describe(err)
		return res
	}

	geo, err := s.geocoder.Resolve(ctx, req.Address)
	if err != nil {
		s.fail(&res, err)
		return res
	}
	res.FormattedAddress = geo.FormattedAddress
	res.State = geo.State
	res.Postcode = geo.Postcode
	if geo.Locality != "" {
		res.Locality = &geo.Locality
	}
	res.IsFallbackMatch = geo.IsFallbackMatch
	if geo.Quality != geocoding.QualityUnknown {
		res.GeocodeQuality = string(geo.Quality)
	}

	if !geo.HasCoordinates() {
		res.Status = StatusNotFound
		res.Confidence = 0
		res.AuditMessage = msgNoCoordinates
		return res
	}
	res.Confidence = geo.Quality.Confidence()

	res.LGAResolutionMethod = resolutionPolygon
	lga, ok := s.areas.LGAForState(geo.Lat, geo.Lon, geo.State)
	if !ok {
		res.Status = StatusAmbiguousLGA
		res.AuditMessage = msgAmbiguousLGA
		if res.Confidence < lowConfidence {
			res.AuditMessage = msgAmbiguousLow
		}
		return res
	}
	res.LGA = &lga

	entries, err := s.holidays.ForCountryYear(ctx, req.Year)
	if err != nil {
		s.fail(&res, err)
		return res
	}
	base := holidays.Normalise(holidays.FilterForSubdivision(entries, geo.State))

	rules, err := s.rules.Load(req.Year)
	if err != nil {
		s.fail(&res, err)
		return res
	}
	matched := regional.Match(rules, regional.Location{
		State:    geo.State,
		LGA:      lga,
		Postcode: geo.Postcode,
		Locality: geo.Locality,
	}, req.IncludeRestricted)
	for _, r := range matched {
		res.RulesApplied = append(res.RulesApplied, r.ID())
		res.RegionalHolidaysApplied = append(res.RegionalHolidaysApplied, r.Date+" - "+r.Name)
	}
	merged := regional.Merge(base, matched)

	res.Status = StatusOK
	if res.Confidence < lowConfidence {
		res.Status = StatusLowConfidence
	}
	if len(merged) == 0 {
		res.Status = StatusRulesMissing
		res.Confidence = math.Min(res.Confidence, rulesMissingCeiling)
	}

	res.Holidays = merged
	res.HolidayCount = len(merged)
	res.HolidaysInPeriod = holidays.InPeriod(merged, formatDate(req.Start), formatDate(req.End))
	res.HolidayCountInPeriod = len(res.HolidaysInPeriod)

	switch res.Status {
	case StatusOK:
		res.AuditMessage = msgOK
	case StatusLowConfidence:
		res.AuditMessage = msgLowConfidence
	case StatusRulesMissing:
		res.AuditMessage = msgRulesMissing
	}
	return res
}

// fail classifies err by kind and clears the holiday lists.
func (s *Service) fail(res *Result, err error) {
	res.Holidays = []holidays.Holiday{}
	res.HolidayCount = 0
	res.HolidaysInPeriod = []holidays.Holiday{}
	res.HolidayCountInPeriod = 0
	res.RegionalHolidaysApplied = []string{}
	res.RulesApplied = []string{}
	res.Confidence = 0
	res.Error = describe(err)

	switch {
	case errors.Is(err, geocoding.ErrNotFound):
		res.Status = StatusNotFound
		res.AuditMessage = geocoding.UserMessage(err)
	case errors.Is(err, geocoding.ErrUpstream), errors.Is(err, holidays.ErrUpstream):
		res.Status = StatusUpstreamUnavailable
		res.AuditMessage = "Upstream service unavailable: " + err.Error()
		s.log.Warn("upstream unavailable", zap.String("address", res.InputAddress), zap.Error(err))
	default:
		res.Status = StatusError
		res.AuditMessage = msgUnexpected
		s.log.Error("lookup failed", zap.String("address", res.InputAddress), zap.Error(err))
	}
}

func newResult(req Request) Result {
	res := Result{
		LookupID:                uuid.NewString(),
		InputAddress:            req.Address,
		Holidays:                []holidays.Holiday{},
		HolidaysInPeriod:        []holidays.Holiday{},
		RegionalHolidaysApplied: []string{},
		RulesApplied:            []string{},
		GeocodeProvider:         geocodeProvider,
		GeocodeQuality:          qualityUnknown,
		Status:                  StatusError,
	}
	if d := formatDate(req.Start); d != "" {
		res.PayPeriod.Start = &d
	}
	if d := formatDate(req.End); d != "" {
		res.PayPeriod.End = &d
	}
	return res
}

func validate(req Request) error {
	switch {
	case strings.TrimSpace(req.Address) == "":
		return &ValidationError{Reason: "Address is required."}
	case req.Year < minYear || req.Year > maxYear:
		return &ValidationError{Reason: fmt.Sprintf("Year %d is outside %d-%d.", req.Year, minYear, maxYear)}
	case !req.Start.IsZero() && !req.End.IsZero() && req.Start.After(req.End):
		return &ValidationError{Reason: "Pay period start is after its end."}
	}
	return nil
}

// finalise enforces manual_review == (status != OK) and a confidence in [0, 1].
func finalise(res *Result) {
	res.ManualReview = res.Status != StatusOK
	switch {
	case math.IsNaN(res.Confidence):
		res.Confidence = 0
	case res.Confidence < 0:
		res.Confidence = 0
	case res.Confidence > 1:
		res.Confidence = 1
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// describe renders err as "<Type>: <message>", naming the first error in the
// chain that is not a plain fmt wrapper.
func describe(err error) *string {
	typed := err
	for {
		name := fmt.Sprintf("%T", typed)
		if name != "*fmt.wrapError" && name != "*fmt.wrapErrors" {
			break
		}
		next := errors.Unwrap(typed)
		if next == nil {
			break
		}
		typed = next
	}

	name := strings.TrimPrefix(fmt.Sprintf("%T", typed), "*")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	s := name + ": " + err.Error()
	return &s
}
