// Package jurisdiction maps coordinates to Local Government Areas using a
// pre-simplified GeoJSON polygon artifact held in memory.
package jurisdiction

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"go.uber.org/zap"

	"github.com/EmpoweredVote/address-holidays/internal/geocoding"
)

// ErrUnsupportedCRS is returned when the artifact declares a CRS that is not
// geographic WGS84 or a datum within a metre of it.
var ErrUnsupportedCRS = errors.New("jurisdiction: unsupported CRS, reproject the artifact to WGS84")

// Accepted legacy "crs" names. GDA94 and GDA2020 are within a metre of WGS84,
// which is far below LGA boundary precision in a simplified artifact.
var acceptedCRS = []string{"CRS84", "EPSG::4326", "EPSG:4326", "EPSG::4283", "EPSG:4283", "EPSG::7844", "EPSG:7844"}

// Options names the feature properties holding the LGA name and state.
type Options struct {
	NameProperty  string
	StateProperty string
}

func (o Options) withDefaults() Options {
	if o.NameProperty == "" {
		o.NameProperty = "LGA_NAME_2025"
	}
	if o.StateProperty == "" {
		o.StateProperty = "state"
	}
	return o
}

// Area is one LGA polygon.
type Area struct {
	Name     string
	State    string
	Geometry orb.MultiPolygon
	Bound    orb.Bound
}

type indexed struct {
	area  *Area
	order int
	rect  rtreego.Rect
}

func (i *indexed) Bounds() rtreego.Rect { return i.rect }

// Resolver answers point-in-polygon queries. It is read-only after Load and
// safe for concurrent use.
type Resolver struct {
	areas []*Area
	tree  *rtreego.Rtree
	log   *zap.Logger
}

// Load reads the artifact at path.
func Load(path string, opts Options, log *zap.Logger) (*Resolver, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening LGA artifact: %w", err)
	}
	defer f.Close()
	return Decode(f, opts, log)
}

// Decode builds a Resolver from a GeoJSON FeatureCollection. Features that
// are not Polygon or MultiPolygon, or have no name, are skipped.
func Decode(r io.Reader, opts Options, log *zap.Logger) (*Resolver, error) {
	if log == nil {
		log = zap.NewNop()
	}
	opts = opts.withDefaults()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading LGA artifact: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decoding LGA artifact: %w", err)
	}
	if err := checkCRS(fc.ExtraMembers); err != nil {
		return nil, err
	}

	res := &Resolver{log: log}
	var (
		items   []rtreego.Spatial
		skipped int
	)
	for _, f := range fc.Features {
		var mp orb.MultiPolygon
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			mp = orb.MultiPolygon{g}
		case orb.MultiPolygon:
			mp = g
		default:
			skipped++
			continue
		}

		name := property(f.Properties, opts.NameProperty)
		if name == "" || len(mp) == 0 {
			skipped++
			continue
		}

		a := &Area{
			Name:     name,
			State:    property(f.Properties, opts.StateProperty),
			Geometry: mp,
			Bound:    mp.Bound(),
		}
		rect, err := rtreego.NewRectFromPoints(
			rtreego.Point{a.Bound.Min.X(), a.Bound.Min.Y()},
			rtreego.Point{a.Bound.Max.X(), a.Bound.Max.Y()},
		)
		if err != nil {
			return nil, fmt.Errorf("indexing %s: %w", name, err)
		}
		items = append(items, &indexed{area: a, order: len(res.areas), rect: rect})
		res.areas = append(res.areas, a)
	}

	res.tree = rtreego.NewTree(2, 25, 50, items...)
	log.Info("loaded LGA polygons", zap.Int("areas", len(res.areas)), zap.Int("skipped", skipped))
	return res, nil
}

// Len is the number of indexed areas.
func (r *Resolver) Len() int { return len(r.areas) }

// AreaFor returns the first area, in artifact order, containing the point.
func (r *Resolver) AreaFor(lat, lon float64) (Area, bool) {
	pt := orb.Point{lon, lat}
	hits := r.tree.SearchIntersect(rtreego.Point{lon, lat}.ToRect(1e-9))

	var (
		best  *indexed
		count int
	)
	for _, h := range hits {
		it := h.(*indexed)
		if !planar.MultiPolygonContains(it.area.Geometry, pt) {
			continue
		}
		count++
		if best == nil || it.order < best.order {
			best = it
		}
	}
	if best == nil {
		return Area{}, false
	}
	if count > 1 {
		r.log.Warn("overlapping LGA polygons", zap.Float64("lat", lat), zap.Float64("lon", lon),
			zap.Int("matches", count), zap.String("chosen", best.area.Name))
	}
	return *best.area, true
}

// LGAFor returns the LGA name containing the point.
func (r *Resolver) LGAFor(lat, lon float64) (string, bool) {
	return r.LGAForState(lat, lon, "")
}

// LGAForState is LGAFor for a point the geocoder placed in state. An area
// tagged with a different state is reported as unresolved. Long state names
// compare equal to their codes and an empty state matches anything.
func (r *Resolver) LGAForState(lat, lon float64, state string) (string, bool) {
	a, ok := r.AreaFor(lat, lon)
	if !ok {
		return "", false
	}
	if state != "" && a.State != "" && !strings.EqualFold(geocoding.StateCode(a.State), geocoding.StateCode(state)) {
		r.log.Warn("LGA state disagrees with geocoded state",
			zap.Float64("lat", lat), zap.Float64("lon", lon),
			zap.String("lga", a.Name), zap.String("lga_state", a.State), zap.String("geocoded_state", state))
		return "", false
	}
	return a.Name, true
}

func property(p geojson.Properties, key string) string {
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// checkCRS accepts a missing crs member (RFC 7946 WGS84) or a legacy named
// CRS from acceptedCRS.
func checkCRS(extra geojson.Properties) error {
	raw, ok := extra["crs"]
	if !ok || raw == nil {
		return nil
	}
	m, _ := raw.(map[string]interface{})
	props, _ := m["properties"].(map[string]interface{})
	name, _ := props["name"].(string)
	for _, c := range acceptedCRS {
		if strings.HasSuffix(strings.ToUpper(name), c) {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedCRS, name)
}
