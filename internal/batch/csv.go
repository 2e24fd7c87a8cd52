// Package batch runs lookups over an employee CSV and writes one enriched
// row per input row.
package batch

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/EmpoweredVote/address-holidays/internal/lookup"
)

var ErrEmptyInput = errors.New("batch: input has no header row")

// Row is one input record. Missing columns read as "".
type Row struct {
	EmployeeID    string
	OfficeAddress string
	HomeAddress   string
	WorkMode      string
	Year          string
	StartDate     string
	EndDate       string
}

// OutputColumns is the header of the results CSV.
var OutputColumns = []string{
	"row", "employee_id", "work_mode", "input_address", "formatted_address",
	"state", "postcode", "locality", "lga", "pay_period_start", "pay_period_end",
	"holiday_count_in_period", "holiday_dates_in_period", "holiday_names_in_period",
	"status", "manual_review", "confidence", "audit_message", "geocode_quality",
	"lga_resolution_method", "rules_applied", "error",
}

// ReadRows parses the input CSV. Only the header is mandatory; rows with
// unknown work modes or no address are reported per row by the Runner.
func ReadRows(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", len(rows)+1, err)
		}
		get := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		rows = append(rows, Row{
			EmployeeID:    get("employee_id"),
			OfficeAddress: get("office_address"),
			HomeAddress:   get("home_address"),
			WorkMode:      get("work_mode"),
			Year:          get("year"),
			StartDate:     get("start_date"),
			EndDate:       get("end_date"),
		})
	}
	return rows, nil
}

// WriteCSV writes outputs in the order given.
func WriteCSV(w io.Writer, outs []Output) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(OutputColumns); err != nil {
		return err
	}
	for _, o := range outs {
		if err := cw.Write(o.record()); err != nil {
			return fmt.Errorf("writing row %d: %w", o.Row, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func (o Output) record() []string {
	rec := make([]string, len(OutputColumns))
	rec[0] = strconv.Itoa(o.Row)
	rec[1] = o.EmployeeID
	rec[2] = o.WorkMode
	rec[3] = o.InputAddress
	rec[21] = o.Error
	if o.Result == nil {
		return rec
	}

	res := o.Result
	dates, names := periodColumns(res)
	rec[4] = res.FormattedAddress
	rec[5] = res.State
	rec[6] = res.Postcode
	rec[7] = res.LocalityName()
	rec[8] = res.LGAName()
	rec[9] = deref(res.PayPeriod.Start)
	rec[10] = deref(res.PayPeriod.End)
	rec[11] = strconv.Itoa(res.HolidayCountInPeriod)
	rec[12] = dates
	rec[13] = names
	rec[14] = string(res.Status)
	rec[15] = strconv.FormatBool(res.ManualReview)
	rec[16] = strconv.FormatFloat(res.Confidence, 'f', -1, 64)
	rec[17] = res.AuditMessage
	rec[18] = res.GeocodeQuality
	rec[19] = res.LGAResolutionMethod
	rec[20] = strings.Join(res.RulesApplied, "; ")
	return rec
}

// periodColumns joins the distinct in-period dates and, aligned with them,
// the first holiday name seen for each date.
func periodColumns(res *lookup.Result) (string, string) {
	var dates []string
	names := map[string]string{}
	for _, h := range res.HolidaysInPeriod {
		if h.Date == "" {
			continue
		}
		if _, ok := names[h.Date]; !ok {
			dates = append(dates, h.Date)
			names[h.Date] = h.Name
		}
	}
	aligned := make([]string, len(dates))
	for i, d := range dates {
		aligned[i] = names[d]
	}
	return strings.Join(dates, "; "), strings.Join(aligned, "; ")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
