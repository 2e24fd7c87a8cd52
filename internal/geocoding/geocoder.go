package geocoding

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// Cache stores resolved results under NormalizeKey(address).
type Cache interface {
	Get(ctx context.Context, key string) (Result, bool, error)
	Put(ctx context.Context, key string, r Result) error
}

var (
	streetLevelTypes = []string{"street_address", "premise", "subpremise"}
	localityChain    = []string{"locality", "postal_town", "sublocality", "sublocality_level_1", "administrative_area_level_2"}
)

// Geocoder resolves addresses through a cache, the provider, and a single
// fallback retry on zero results.
type Geocoder struct {
	provider Provider
	cache    Cache
	log      *zap.Logger
}

// NewGeocoder wires a provider and an optional cache. A nil cache disables caching.
func NewGeocoder(p Provider, c Cache, log *zap.Logger) *Geocoder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Geocoder{provider: p, cache: c, log: log}
}

// Resolve geocodes address. It returns an error matching ErrNotFound when the
// address cannot be resolved (including street-level addresses that only
// matched a coarser area) and one matching ErrUpstream on provider failure.
func (g *Geocoder) Resolve(ctx context.Context, address string) (Result, error) {
	key := NormalizeKey(address)
	if key == "" {
		return Result{}, &NotFoundError{Query: address, Message: notFoundMessage}
	}

	if g.cache != nil {
		cached, ok, err := g.cache.Get(ctx, key)
		if err != nil {
			g.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		} else if ok {
			g.log.Debug("cache hit", zap.String("key", key))
			return cached, nil
		}
	}

	res, err := g.query(ctx, address, false)

	var nf *NotFoundError
	if errors.As(err, &nf) && nf.ZeroResults {
		fallback := FallbackQuery(address)
		if fallback != "" && fallback != strings.TrimSpace(address) {
			g.log.Info("zero results, retrying with fallback query",
				zap.String("address", address), zap.String("fallback", fallback))
			res, err = g.query(ctx, fallback, true)
		}
	}
	if err != nil {
		return Result{}, err
	}

	if g.cache != nil {
		if err := g.cache.Put(ctx, key, res); err != nil {
			g.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return res, nil
}

func (g *Geocoder) query(ctx context.Context, q string, fallback bool) (Result, error) {
	resp, err := g.provider.Query(ctx, q)
	if err != nil {
		if errors.Is(err, ErrUpstream) {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("geocoding %q: %w", q, err)
	}

	switch resp.Status {
	case "OK":
		if len(resp.Results) == 0 {
			return Result{}, &NotFoundError{Query: q, Message: notFoundMessage}
		}
	case "ZERO_RESULTS":
		return Result{}, &NotFoundError{Query: q, Message: notFoundMessage, ZeroResults: true}
	default:
		return Result{}, &UpstreamError{Status: resp.Status, Message: resp.ErrorMessage}
	}

	first := resp.Results[0]
	if LooksStreetLevel(q) && !isStreetLevel(first) {
		g.log.Info("street-level query matched a coarser result",
			zap.String("query", q), zap.Strings("types", first.Types), zap.Bool("partial_match", first.PartialMatch))
		return Result{}, &NotFoundError{Query: q, Message: notStreetLevelHint}
	}

	return extract(first, q, fallback), nil
}

func isStreetLevel(r APIResult) bool {
	if r.PartialMatch {
		return false
	}
	for _, t := range r.Types {
		if slices.Contains(streetLevelTypes, t) {
			return true
		}
	}
	var route, number bool
	for _, comp := range r.AddressComponents {
		route = route || slices.Contains(comp.Types, "route")
		number = number || slices.Contains(comp.Types, "street_number")
	}
	return route && number
}

func extract(r APIResult, q string, fallback bool) Result {
	components := make(map[string]string)
	for _, comp := range r.AddressComponents {
		for _, t := range comp.Types {
			if _, seen := components[t]; !seen {
				components[t] = comp.LongName
			}
		}
	}

	out := Result{
		FormattedAddress: r.FormattedAddress,
		Lat:              r.Geometry.Location.Lat,
		Lon:              r.Geometry.Location.Lng,
		State:            StateCode(components["administrative_area_level_1"]),
		Postcode:         components["postal_code"],
		Quality:          Quality(r.Geometry.LocationType),
		IsFallbackMatch:  fallback,
		QueryUsed:        q,
		ResultTypes:      slices.Clone(r.Types),
	}
	for _, t := range localityChain {
		if v := components[t]; v != "" {
			out.Locality = v
			break
		}
	}
	return out
}
