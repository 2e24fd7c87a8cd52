package batch

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/EmpoweredVote/address-holidays/internal/lookup"
)

const (
	errInvalidWorkMode = "Invalid work_mode (must be OFFICE or HOME)"
	errMissingAddress  = "Missing address for work_mode"
)

// Looker is satisfied by *lookup.Service.
type Looker interface {
	Lookup(ctx context.Context, req lookup.Request) lookup.Result
}

// Output is the outcome for one input row. Result is nil when the row was
// rejected before a lookup.
type Output struct {
	Row          int
	EmployeeID   string
	WorkMode     string
	InputAddress string
	Result       *lookup.Result
	Error        string
}

// Options are defaults applied to rows that leave year or dates blank.
type Options struct {
	Workers           int
	Year              int
	Start             time.Time
	End               time.Time
	IncludeRestricted bool
	// OnRow is called from worker goroutines as each row finishes.
	OnRow func(Output)
}

type Runner struct {
	svc  Looker
	opts Options
	log  *zap.Logger
}

func NewRunner(svc Looker, opts Options, log *zap.Logger) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Year == 0 {
		opts.Year = time.Now().Year()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{svc: svc, opts: opts, log: log}
}

// Run looks up every row with at most Workers lookups in flight. Outputs are
// in input order. Row failures are recorded on the row; only cancellation of
// ctx fails the run.
func (r *Runner) Run(ctx context.Context, rows []Row) ([]Output, error) {
	out := make([]Output, len(rows))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i, row := range rows {
		i, row := i, row
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = r.process(ctx, i, row)
			if r.opts.OnRow != nil {
				r.opts.OnRow(out[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch cancelled: %w", err)
	}
	return out, nil
}

func (r *Runner) process(ctx context.Context, idx int, row Row) Output {
	o := Output{Row: idx, EmployeeID: row.EmployeeID}

	mode := strings.ToUpper(strings.TrimSpace(row.WorkMode))
	var address string
	switch mode {
	case "OFFICE":
		address = row.OfficeAddress
	case "HOME":
		address = row.HomeAddress
	default:
		o.Error = errInvalidWorkMode
		return o
	}
	o.WorkMode = mode

	address = strings.TrimSpace(address)
	if address == "" {
		o.Error = errMissingAddress
		return o
	}
	o.InputAddress = address

	req := lookup.Request{
		Address:           address,
		Year:              r.opts.Year,
		Start:             r.opts.Start,
		End:               r.opts.End,
		IncludeRestricted: r.opts.IncludeRestricted,
	}
	if y, err := strconv.Atoi(row.Year); err == nil {
		req.Year = y
	}
	if d, ok := parseDate(row.StartDate); ok {
		req.Start = d
	}
	if d, ok := parseDate(row.EndDate); ok {
		req.End = d
	}

	res := r.svc.Lookup(ctx, req)
	o.Result = &res
	if res.Error != nil {
		o.Error = *res.Error
	}
	r.log.Debug("row processed", zap.Int("row", idx), zap.String("status", string(res.Status)))
	return o
}

// parseDate accepts YYYY-MM-DD; anything else falls back to the run default.
func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", s)
	return t, err == nil
}

// Summary tallies a finished batch.
type Summary struct {
	Rows             int
	RowErrors        int
	ManualReview     int
	HolidaysInPeriod int
	ByStatus         map[lookup.Status]int
	Elapsed          time.Duration
}

func Summarise(outs []Output, elapsed time.Duration) Summary {
	s := Summary{Rows: len(outs), ByStatus: map[lookup.Status]int{}, Elapsed: elapsed}
	for _, o := range outs {
		if o.Result == nil {
			s.RowErrors++
			continue
		}
		s.ByStatus[o.Result.Status]++
		s.HolidaysInPeriod += o.Result.HolidayCountInPeriod
		if o.Result.ManualReview {
			s.ManualReview++
		}
	}
	return s
}

func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s rows in %s", humanize.Comma(int64(s.Rows)), s.Elapsed.Round(time.Millisecond))
	for _, st := range lookup.Statuses {
		if n := s.ByStatus[st]; n > 0 {
			fmt.Fprintf(&b, ", %s %s", st, humanize.Comma(int64(n)))
		}
	}
	if s.RowErrors > 0 {
		fmt.Fprintf(&b, ", %s rejected", humanize.Comma(int64(s.RowErrors)))
	}
	fmt.Fprintf(&b, "; %s need manual review; %s holidays in period",
		humanize.Comma(int64(s.ManualReview)), humanize.Comma(int64(s.HolidaysInPeriod)))
	return b.String()
}
