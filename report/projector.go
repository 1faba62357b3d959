/*
Package report aggregates per-employee entitlement calculations into
organization-wide summaries and group breakdowns.

PURPOSE:
  Runs the full entitlement pipeline (service years -> accrual ->
  gratuity -> netting) for every employee matching a filter set and folds
  the results into:

  - overall summary totals (counts, sums, average service years)
  - breakdown tables by branch / job title / department / classification

MAP-REDUCE SHAPE:
  The per-employee calculation is a pure function of that employee's own
  data, so the map phase runs on a bounded worker pool with no ordering
  requirement. The reduce phase folds results by input index, so summary
  totals are deterministic regardless of completion order; with decimal
  arithmetic the fold is exact, not merely within tolerance.

FAILURE ISOLATION:
  One employee's invalid data must not abort the whole report. Failed
  calculations are skipped and surfaced in Report.Skipped so the rest of
  the report still renders.

GROUPING:
  Employees with an empty grouping key are bucketed under the explicit
  "غير محدد" (unspecified) label rather than dropped.
*/
package report

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sanad/entitlement-engine/entitlement"
	"github.com/sanad/entitlement-engine/store"
)

// UnspecifiedGroup is the bucket label for empty grouping keys. The
// Arabic label is the one the existing bilingual UI renders.
const UnspecifiedGroup = "غير محدد"

// Status filters employees by separation state.
type Status string

const (
	StatusActive     Status = "ACTIVE"
	StatusTerminated Status = "TERMINATED"
	StatusAll        Status = "ALL"
)

// Filter is the query surface of the aggregated report.
type Filter struct {
	CompanyID      string
	Branch         string
	JobTitle       string
	Department     string
	Classification string
	Status         Status

	// FiscalYearEnd, when set, is both the hire-date cutoff (employees
	// hired after it are excluded) and the as-of date for projecting
	// active employees. Nil means "today" at the boundary.
	FiscalYearEnd *time.Time
}

// Summary is the overall totals block.
type Summary struct {
	TotalEmployees           int
	TotalActiveEmployees     int
	TotalTerminatedEmployees int

	TotalGrossEOS          decimal.Decimal
	TotalNetEOS            decimal.Decimal
	TotalLeaveCompensation decimal.Decimal
	TotalLeaveDeductions   decimal.Decimal
	TotalOtherDeductions   decimal.Decimal
	TotalDeductions        decimal.Decimal
	TotalFinalPayable      decimal.Decimal

	AverageServiceYears float64
}

// GroupTotal is one breakdown row.
type GroupTotal struct {
	Key                    string
	EmployeeCount          int
	TotalEntitlements      decimal.Decimal
	TotalLeaveCompensation decimal.Decimal
}

// Skipped records an employee whose calculation failed.
type Skipped struct {
	EmployeeID string
	FullName   string
	Reason     string
}

// Report is the aggregated output.
type Report struct {
	Summary   Summary
	Employees []entitlement.Result

	BranchBreakdown         []GroupTotal
	JobTitleBreakdown       []GroupTotal
	DepartmentBreakdown     []GroupTotal
	ClassificationBreakdown []GroupTotal

	Skipped []Skipped

	Filter Filter
	AsOf   time.Time
}

// Projector runs aggregated entitlement reports against a store.
type Projector struct {
	Store store.Reader

	// Workers bounds the parallel map phase. Zero means 8.
	Workers int
}

// Aggregate computes the report for the filter. asOf resolution: the
// filter's fiscal-year-end if set, otherwise the supplied now.
func (p *Projector) Aggregate(ctx context.Context, f Filter, now time.Time) (*Report, error) {
	asOf := now
	var hiredBefore *time.Time
	if f.FiscalYearEnd != nil {
		asOf = *f.FiscalYearEnd
		hiredBefore = f.FiscalYearEnd
	}

	employees, err := p.Store.ListEmployees(ctx, store.EmployeeFilter{
		CompanyID:       f.CompanyID,
		Branch:          f.Branch,
		JobTitle:        f.JobTitle,
		Department:      f.Department,
		Classification:  f.Classification,
		ActiveOnly:      f.Status == StatusActive,
		TerminatedOnly:  f.Status == StatusTerminated,
		HiredOnOrBefore: hiredBefore,
	})
	if err != nil {
		return nil, err
	}

	// Map phase: per-employee calculation on a bounded worker pool.
	// Results land at their input index so the fold is deterministic.
	type outcome struct {
		result *entitlement.Result
		err    error
	}
	outcomes := make([]outcome, len(employees))

	workers := p.Workers
	if workers <= 0 {
		workers = 8
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i := range employees {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			r, err := p.calculateOne(ctx, employees[i], asOf)
			outcomes[i] = outcome{result: r, err: err}
		}(i)
	}
	wg.Wait()

	// Reduce phase: sequential fold in input order.
	rep := &Report{Filter: f, AsOf: asOf}
	branches := newGrouping()
	jobTitles := newGrouping()
	departments := newGrouping()
	classifications := newGrouping()
	totalServiceYears := 0.0

	for i, oc := range outcomes {
		if oc.err != nil {
			rep.Skipped = append(rep.Skipped, Skipped{
				EmployeeID: employees[i].ID,
				FullName:   employees[i].FullName,
				Reason:     oc.err.Error(),
			})
			continue
		}
		r := *oc.result

		rep.Summary.TotalEmployees++
		if r.IsActive {
			rep.Summary.TotalActiveEmployees++
		} else {
			rep.Summary.TotalTerminatedEmployees++
		}

		rep.Summary.TotalGrossEOS = rep.Summary.TotalGrossEOS.Add(r.GrossEOS)
		rep.Summary.TotalNetEOS = rep.Summary.TotalNetEOS.Add(r.NetEOS)
		rep.Summary.TotalLeaveCompensation = rep.Summary.TotalLeaveCompensation.Add(r.LeaveCompensation)
		rep.Summary.TotalLeaveDeductions = rep.Summary.TotalLeaveDeductions.Add(r.LeaveDeductions)
		rep.Summary.TotalOtherDeductions = rep.Summary.TotalOtherDeductions.Add(r.OtherDeductions)
		rep.Summary.TotalDeductions = rep.Summary.TotalDeductions.Add(r.TotalDeductions)
		rep.Summary.TotalFinalPayable = rep.Summary.TotalFinalPayable.Add(r.FinalPayable)
		totalServiceYears += r.ServiceYears

		branches.add(r.Branch, r)
		jobTitles.add(r.JobTitle, r)
		departments.add(r.Department, r)
		classifications.add(r.Classification, r)

		rep.Employees = append(rep.Employees, r.Rounded())
	}

	if rep.Summary.TotalEmployees > 0 {
		rep.Summary.AverageServiceYears = totalServiceYears / float64(rep.Summary.TotalEmployees)
	}

	rep.BranchBreakdown = branches.rows()
	rep.JobTitleBreakdown = jobTitles.rows()
	rep.DepartmentBreakdown = departments.rows()
	rep.ClassificationBreakdown = classifications.rows()

	// Totals stay full precision internally; round at the boundary.
	rep.Summary.TotalGrossEOS = rep.Summary.TotalGrossEOS.Round(2)
	rep.Summary.TotalNetEOS = rep.Summary.TotalNetEOS.Round(2)
	rep.Summary.TotalLeaveCompensation = rep.Summary.TotalLeaveCompensation.Round(2)
	rep.Summary.TotalLeaveDeductions = rep.Summary.TotalLeaveDeductions.Round(2)
	rep.Summary.TotalOtherDeductions = rep.Summary.TotalOtherDeductions.Round(2)
	rep.Summary.TotalDeductions = rep.Summary.TotalDeductions.Round(2)
	rep.Summary.TotalFinalPayable = rep.Summary.TotalFinalPayable.Round(2)

	return rep, nil
}

func (p *Projector) calculateOne(ctx context.Context, emp entitlement.Employee, asOf time.Time) (*entitlement.Result, error) {
	txs, err := p.Store.LeaveTransactions(ctx, emp.ID)
	if err != nil {
		return nil, err
	}
	deds, err := p.Store.Deductions(ctx, store.DeductionFilter{
		EmployeeID: emp.ID,
		Status:     entitlement.DeductionPending,
	})
	if err != nil {
		return nil, err
	}

	return entitlement.Project(entitlement.Inputs{
		Employee:     emp,
		Transactions: txs,
		Deductions:   deds,
	}, asOf)
}

// =============================================================================
// GROUPING
// =============================================================================

type grouping struct {
	totals map[string]*GroupTotal
}

func newGrouping() *grouping {
	return &grouping{totals: make(map[string]*GroupTotal)}
}

func (g *grouping) add(key string, r entitlement.Result) {
	if key == "" {
		key = UnspecifiedGroup
	}
	t, ok := g.totals[key]
	if !ok {
		t = &GroupTotal{Key: key}
		g.totals[key] = t
	}
	t.EmployeeCount++
	t.TotalEntitlements = t.TotalEntitlements.Add(r.FinalPayable)
	t.TotalLeaveCompensation = t.TotalLeaveCompensation.Add(r.LeaveCompensation)
}

// rows returns the breakdown sorted by key for stable output.
func (g *grouping) rows() []GroupTotal {
	out := make([]GroupTotal, 0, len(g.totals))
	for _, t := range g.totals {
		out = append(out, GroupTotal{
			Key:                    t.Key,
			EmployeeCount:          t.EmployeeCount,
			TotalEntitlements:      t.TotalEntitlements.Round(2),
			TotalLeaveCompensation: t.TotalLeaveCompensation.Round(2),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
