package lookup

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/EmpoweredVote/address-holidays/internal/geocoding"
	"github.com/EmpoweredVote/address-holidays/internal/holidays"
	"github.com/EmpoweredVote/address-holidays/internal/jurisdiction"
	"github.com/EmpoweredVote/address-holidays/internal/regional"
)

const melbourneGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": { "LGA_NAME_2025": "Melbourne", "state": "VIC" },
      "geometry": {
        "type": "Polygon",
        "coordinates": [[[144.90, -37.85], [144.99, -37.85], [144.99, -37.77], [144.90, -37.77], [144.90, -37.85]]]
      }
    }
  ]
}`

func fedSquareGoogle(t *testing.T) *httptest.Server {
	t.Helper()
	body := geocoding.Response{
		Status: "OK",
		Results: []geocoding.APIResult{{
			FormattedAddress: "Federation Square, Swanston St & Flinders St, Melbourne VIC 3000, Australia",
			Types:            []string{"premise"},
			Geometry: geocoding.Geometry{
				Location:     geocoding.LatLng{Lat: -37.8179789, Lng: 144.9690576},
				LocationType: "ROOFTOP",
			},
			AddressComponents: []geocoding.AddressComponent{
				{LongName: "Melbourne", ShortName: "Melbourne", Types: []string{"locality", "political"}},
				{LongName: "Victoria", ShortName: "VIC", Types: []string{"administrative_area_level_1", "political"}},
				{LongName: "3000", ShortName: "3000", Types: []string{"postal_code"}},
			},
		}},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func nagerServer(t *testing.T) *httptest.Server {
	t.Helper()
	entries := []holidays.Entry{
		{Date: "2025-01-01", LocalName: "New Year's Day", Name: "New Year's Day", CountryCode: "AU", Global: true},
		{Date: "2025-03-10", LocalName: "Labour Day", Name: "Labour Day", CountryCode: "AU", Counties: []string{"AU-VIC"}},
		{Date: "2025-04-25", LocalName: "Anzac Day", Name: "Anzac Day", CountryCode: "AU", Global: true},
		{Date: "2025-06-02", LocalName: "Western Australia Day", Name: "Western Australia Day", CountryCode: "AU", Counties: []string{"AU-WA"}},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/PublicHolidays/2025/AU" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(entries)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLookupFederationSquare(t *testing.T) {
	log := zaptest.NewLogger(t)

	client, err := geocoding.NewClient(geocoding.Options{APIKey: "test-key", BaseURL: fedSquareGoogle(t).URL})
	if err != nil {
		t.Fatal(err)
	}
	areas, err := jurisdiction.Decode(strings.NewReader(melbourneGeoJSON), jurisdiction.Options{}, log)
	if err != nil {
		t.Fatal(err)
	}
	nager := holidays.NewClient(holidays.Options{BaseURL: nagerServer(t).URL}, log)

	dir := t.TempDir()
	rules := "date,name,state,match_type,match_value,scope,applies_to,source,notes\n" +
		"2025-09-26,Friday before the AFL Grand Final,VIC,LGA,Melbourne,,,council,\n"
	if err := os.WriteFile(filepath.Join(dir, "regional_holidays_2025.csv"), []byte(rules), 0o644); err != nil {
		t.Fatal(err)
	}

	svc := NewService(geocoding.NewGeocoder(client, nil, log), areas, nager, regional.NewLoader(dir, log), log)
	res := svc.Lookup(context.Background(), Request{Address: "Federation Square, Melbourne VIC 3000", Year: 2025})

	if res.Status != StatusOK {
		t.Fatalf("status = %s (%s)", res.Status, res.AuditMessage)
	}
	if res.State != "VIC" || res.Postcode != "3000" || res.LocalityName() != "Melbourne" {
		t.Errorf("state/postcode/locality = %s/%s/%s", res.State, res.Postcode, res.LocalityName())
	}
	if res.LGAName() != "Melbourne" {
		t.Errorf("lga = %q", res.LGAName())
	}
	// New Year's Day, Labour Day (VIC), Anzac Day and the regional rule.
	if res.HolidayCount != 4 {
		t.Errorf("holiday_count = %d, want 4: %+v", res.HolidayCount, res.Holidays)
	}
	if len(res.RegionalHolidaysApplied) != 1 {
		t.Errorf("regional_holidays_applied = %v", res.RegionalHolidaysApplied)
	}
	for _, h := range res.Holidays {
		if h.Name == "Western Australia Day" {
			t.Error("WA-only holiday leaked into a VIC result")
		}
	}
}
