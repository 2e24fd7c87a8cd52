package jurisdiction

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"
)

func loadFixture(t *testing.T) *Resolver {
	t.Helper()
	r, err := Load("testdata/lga_fixture.geojson", Options{}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return r
}

func TestLoadSkipsNonPolygons(t *testing.T) {
	r := loadFixture(t)
	if r.Len() != 5 {
		t.Errorf("Len = %d, want 5 (point feature skipped)", r.Len())
	}
}

func TestLGAFor(t *testing.T) {
	r := loadFixture(t)

	tests := []struct {
		name     string
		lat, lon float64
		want     string
		ok       bool
	}{
		{"federation square", -37.8179789, 144.9690576, "Melbourne", true},
		{"fitzroy", -37.7990, 145.0200, "Yarra", true},
		{"hobart first part", -42.8821, 147.3272, "Hobart", true},
		{"hobart second part", -42.9200, 147.4200, "Hobart", true},
		{"numeric name property", -33.95, 151.05, "12345", true},
		{"offshore", -38.5, 144.5, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.LGAFor(tt.lat, tt.lon)
			if ok != tt.ok || got != tt.want {
				t.Errorf("LGAFor(%v, %v) = %q, %v; want %q, %v", tt.lat, tt.lon, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestAreaForOverlapPrefersArtifactOrder(t *testing.T) {
	r := loadFixture(t)

	// Inside both Melbourne and the overlapping test area; Melbourne comes first.
	a, ok := r.AreaFor(-37.81, 144.96)
	if !ok {
		t.Fatal("expected a match")
	}
	if a.Name != "Melbourne" || a.State != "VIC" {
		t.Errorf("AreaFor = %s/%s, want Melbourne/VIC", a.Name, a.State)
	}
}

func TestLGAForStateRejectsCrossBorderMatch(t *testing.T) {
	r := loadFixture(t)

	tests := []struct {
		name  string
		state string
		want  string
		ok    bool
	}{
		{"same state", "VIC", "Melbourne", true},
		{"case folded", "vic", "Melbourne", true},
		{"long name", "Victoria", "Melbourne", true},
		{"unknown state", "", "Melbourne", true},
		{"other state", "NSW", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.LGAForState(-37.84, 144.92, tt.state)
			if ok != tt.ok || got != tt.want {
				t.Errorf("LGAForState(%q) = %q, %v; want %q, %v", tt.state, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestDecodeCustomProperties(t *testing.T) {
	src := `{"type":"FeatureCollection","features":[
	  {"type":"Feature","properties":{"LGA_NAME24":"Brimbank","STE":"VIC"},
	   "geometry":{"type":"Polygon","coordinates":[[[144.7,-37.8],[144.9,-37.8],[144.9,-37.7],[144.7,-37.7],[144.7,-37.8]]]}}]}`

	r, err := Decode(strings.NewReader(src), Options{NameProperty: "LGA_NAME24", StateProperty: "STE"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	a, ok := r.AreaFor(-37.75, 144.8)
	if !ok || a.Name != "Brimbank" || a.State != "VIC" {
		t.Errorf("AreaFor = %+v, %v", a, ok)
	}
}

func TestDecodeRejectsProjectedCRS(t *testing.T) {
	src := `{"type":"FeatureCollection",
	  "crs":{"type":"name","properties":{"name":"urn:ogc:def:crs:EPSG::3857"}},
	  "features":[]}`

	_, err := Decode(strings.NewReader(src), Options{}, zaptest.NewLogger(t))
	if !errors.Is(err, ErrUnsupportedCRS) {
		t.Fatalf("err = %v, want ErrUnsupportedCRS", err)
	}
}

func TestDecodeAcceptsGDA2020(t *testing.T) {
	src := `{"type":"FeatureCollection",
	  "crs":{"type":"name","properties":{"name":"EPSG:7844"}},
	  "features":[]}`

	r, err := Decode(strings.NewReader(src), Options{}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if _, ok := r.LGAFor(-37.8, 144.9); ok {
		t.Error("empty resolver matched a point")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("testdata/nope.geojson", Options{}, nil); err == nil {
		t.Fatal("expected error for missing artifact")
	}
}

func TestConcurrentQueries(t *testing.T) {
	r := loadFixture(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if name, ok := r.LGAFor(-37.8179789, 144.9690576); !ok || name != "Melbourne" {
					t.Errorf("LGAFor = %q, %v", name, ok)
					return
				}
			}
		}()
	}
	wg.Wait()
}
