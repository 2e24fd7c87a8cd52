package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const rulesHeader = "date,name,state,match_type,match_value,scope,applies_to,source,notes\n"

func TestRulesCheckValidFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "rules.csv", rulesHeader+
		"2025-10-01,Bendigo Show Day,VIC,LGA,Greater Bendigo,,,council,\n")

	out, err := execute(t, "rules", "check", path)
	if err != nil {
		t.Fatalf("rules check: %v\n%s", err, out)
	}
	if !strings.Contains(out, "1 rules, 0 rows skipped, 0 warnings") {
		t.Errorf("output = %q", out)
	}
}

func TestRulesCheckReportsBadRows(t *testing.T) {
	path := writeFile(t, t.TempDir(), "rules.csv", rulesHeader+
		"2025-13-01,Bad Date Day,VIC,LGA,Greater Bendigo,,,,\n"+
		"2025-10-01,Show Day,ZZ,LGA,Somewhere,,,,\n")

	out, err := execute(t, "rules", "check", path)
	if err == nil {
		t.Fatal("expected an error for skipped rows")
	}
	if !strings.Contains(out, "skipped line 2: date") || !strings.Contains(out, "warning line 3") {
		t.Errorf("output = %q", out)
	}
}

func TestRulesCheckByYear(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "regional_holidays_2030.csv", rulesHeader)
	t.Setenv("HOLIDAYS_CONFIG_FILE", "")
	t.Setenv("REGIONAL_RULES_DIR", dir)

	out, err := execute(t, "rules", "check", "--year", "2030")
	if err != nil {
		t.Fatalf("rules check: %v\n%s", err, out)
	}
	if !strings.Contains(out, "0 rules") {
		t.Errorf("output = %q", out)
	}
}

func TestRulesCheckMissingColumn(t *testing.T) {
	path := writeFile(t, t.TempDir(), "rules.csv", "date,name\n2025-01-01,x\n")
	if _, err := execute(t, "rules", "check", path); err == nil {
		t.Error("expected missing column error")
	}
}

func TestCacheEvict(t *testing.T) {
	t.Setenv("HOLIDAYS_CONFIG_FILE", "")
	t.Setenv("GEOCODE_CACHE_BACKEND", "sqlite")
	t.Setenv("GEOCODE_CACHE_PATH", filepath.Join(t.TempDir(), "cache.db"))

	out, err := execute(t, "cache", "evict", "  15 Sydney Rd,   Brunswick VIC ")
	if err != nil {
		t.Fatalf("cache evict: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Deleted cache") {
		t.Errorf("output = %q", out)
	}
}

func TestParseDateFlag(t *testing.T) {
	if _, err := parseDateFlag("start", "2025-04-18"); err != nil {
		t.Errorf("valid date: %v", err)
	}
	if d, err := parseDateFlag("start", ""); err != nil || !d.IsZero() {
		t.Errorf("empty = %v, %v", d, err)
	}
	if _, err := parseDateFlag("end", "18/04/2025"); err == nil {
		t.Error("expected error for bad date")
	}
}
