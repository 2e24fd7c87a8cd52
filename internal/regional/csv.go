package regional

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/EmpoweredVote/address-holidays/internal/holidays"
)

// scope, applies_to, source and notes are optional.
var requiredColumns = []string{"date", "name", "state", "match_type", "match_value"}

// ErrMissingColumn is returned by Parse when the header lacks a required column.
var ErrMissingColumn = errors.New("regional rules: missing required column")

// RowError describes a problem with one CSV line. Skipped rows were dropped;
// the rest are warnings on rules that were kept.
type RowError struct {
	Line    int
	Field   string
	Reason  string
	Skipped bool
}

func (e RowError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("line %d: %s: %s", e.Line, e.Field, e.Reason)
}

// ruleRow is the raw CSV row validated before it becomes a Rule.
type ruleRow struct {
	Date       string `csv:"date" validate:"required,datetime=2006-01-02"`
	Name       string `csv:"name" validate:"required"`
	State      string `csv:"state" validate:"required"`
	MatchType  string `csv:"match_type" validate:"required,oneof=LGA POSTCODE LOCALITY"`
	MatchValue string `csv:"match_value" validate:"required"`
	Scope      string `csv:"scope" validate:"oneof=FULL_DAY HALF_DAY_AM HALF_DAY_PM"`
	AppliesTo  string `csv:"applies_to" validate:"oneof=ALL PUBLIC_SERVICE_ONLY BANKING_ONLY"`
	Source     string `csv:"source"`
	Notes      string `csv:"notes"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("csv")
	})
	return v
}

// Parse reads a rules CSV. A header missing a required column yields no rules
// and an error wrapping ErrMissingColumn. Invalid rows are reported and
// skipped; one bad row never stops the rest of the file.
func Parse(r io.Reader) ([]Rule, []RowError, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("%w: empty file", ErrMissingColumn)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}
	// Handle BOM on first header cell
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, k := range requiredColumns {
		if _, ok := col[k]; !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrMissingColumn, k)
		}
	}

	var (
		rules []Rule
		diags []RowError
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				diags = append(diags, RowError{Line: pe.Line, Reason: pe.Err.Error(), Skipped: true})
				continue
			}
			return rules, diags, fmt.Errorf("reading rules: %w", err)
		}
		line, _ := cr.FieldPos(0)

		get := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		row := ruleRow{
			Date:       get("date"),
			Name:       get("name"),
			State:      strings.ToUpper(get("state")),
			MatchType:  strings.ToUpper(get("match_type")),
			MatchValue: get("match_value"),
			Scope:      strings.ToUpper(get("scope")),
			AppliesTo:  strings.ToUpper(get("applies_to")),
			Source:     get("source"),
			Notes:      get("notes"),
		}
		if row == (ruleRow{}) {
			continue
		}
		if row.Scope == "" {
			row.Scope = string(holidays.ScopeFullDay)
		}
		if row.AppliesTo == "" {
			row.AppliesTo = string(holidays.AppliesToAll)
		}

		if err := validate.Struct(row); err != nil {
			var ves validator.ValidationErrors
			if !errors.As(err, &ves) {
				return rules, diags, err
			}
			for _, fe := range ves {
				diags = append(diags, RowError{Line: line, Field: fe.Field(), Reason: reason(fe), Skipped: true})
			}
			continue
		}

		if !knownState(row.State) {
			diags = append(diags, RowError{Line: line, Field: "state", Reason: fmt.Sprintf("unknown state %q", row.State)})
		}

		rules = append(rules, Rule{
			Date:       row.Date,
			Name:       row.Name,
			State:      row.State,
			MatchType:  MatchType(row.MatchType),
			MatchValue: row.MatchValue,
			Scope:      holidays.Scope(row.Scope),
			AppliesTo:  holidays.AppliesTo(row.AppliesTo),
			Source:     row.Source,
			Notes:      row.Notes,
		})
	}
	return rules, diags, nil
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "datetime":
		return fmt.Sprintf("%q is not a YYYY-MM-DD date", fe.Value())
	case "oneof":
		return fmt.Sprintf("%q must be one of %s", fe.Value(), fe.Param())
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}
