/*
projector_test.go - Aggregated report tests

PURPOSE:
  Validates the map-reduce projection over a seeded in-memory store:
  deterministic summary totals under parallelism, grouping with the
  unspecified bucket, per-employee failure isolation, and the
  fiscal-year-end filter semantics.
*/
package report_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanad/entitlement-engine/entitlement"
	"github.com/sanad/entitlement-engine/report"
	"github.com/sanad/entitlement-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var anchor = time.Date(2019, time.January, 1, 0, 0, 0, 0, time.UTC)

func d(n float64) decimal.Decimal { return decimal.NewFromFloat(n) }

func requireDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	require.True(t, got.Equal(decimal.RequireFromString(want)),
		"want %s, got %s (%v)", want, got.String(), msgAndArgs)
}

// yearsAfter builds exact 365.25-day-year offsets in whole hours.
func yearsAfter(from time.Time, years float64) time.Time {
	return from.Add(time.Duration(years*8766) * time.Hour)
}

func seedEmployee(t *testing.T, st *memory.Memory, e entitlement.Employee) {
	t.Helper()
	require.NoError(t, st.CreateEmployee(context.Background(), &e))
}

// newSeededStore seeds three employees:
//
//	a1: active, Riyadh, basic 3000, hired 3 years before the as-of date
//	a2: active, no branch recorded, basic 6000, hired 1 year before
//	t1: terminated by the employer after exactly 5 years, Riyadh, basic 3000
//
// All salaries have no allowances, so total == basic.
func newSeededStore(t *testing.T) (*memory.Memory, time.Time) {
	st := memory.New()
	asOf := yearsAfter(anchor, 5)

	seedEmployee(t, st, entitlement.Employee{
		ID:          "a1",
		FullName:    "Active One",
		CompanyID:   "co-1",
		HireDate:    yearsAfter(anchor, 2),
		Branch:      "Riyadh",
		JobTitle:    "Engineer",
		BasicSalary: d(3000),
	})
	seedEmployee(t, st, entitlement.Employee{
		ID:          "a2",
		FullName:    "Active Two",
		CompanyID:   "co-1",
		HireDate:    yearsAfter(anchor, 4),
		JobTitle:    "Engineer",
		BasicSalary: d(6000),
	})
	end := asOf
	seedEmployee(t, st, entitlement.Employee{
		ID:              "t1",
		FullName:        "Terminated One",
		CompanyID:       "co-1",
		HireDate:        anchor,
		EndDate:         &end,
		TerminationType: entitlement.TerminationDismissal,
		Branch:          "Riyadh",
		JobTitle:        "Supervisor",
		BasicSalary:     d(3000),
	})

	return st, asOf
}

// =============================================================================
// SUMMARY TOTALS
// =============================================================================

func TestAggregate_SummaryTotals(t *testing.T) {
	// GIVEN: Two active employees (3 and 1 years in) and one terminated
	//        at exactly 5 years, no ledger activity, no deductions
	// WHEN: The report is aggregated at the as-of date
	// THEN: gross = 4500 + 3000 + 7500, counts split 2/1, and the
	//       average service years is (3+1+5)/3

	st, asOf := newSeededStore(t)
	p := &report.Projector{Store: st}

	rep, err := p.Aggregate(context.Background(), report.Filter{CompanyID: "co-1"}, asOf)
	require.NoError(t, err)

	assert.Equal(t, 3, rep.Summary.TotalEmployees)
	assert.Equal(t, 2, rep.Summary.TotalActiveEmployees)
	assert.Equal(t, 1, rep.Summary.TotalTerminatedEmployees)
	assert.Empty(t, rep.Skipped)

	requireDec(t, "15000", rep.Summary.TotalGrossEOS, "4500 + 3000 + 7500")
	requireDec(t, "15000", rep.Summary.TotalNetEOS, "all non-resignation, full ratio")
	assert.InDelta(t, 3.0, rep.Summary.AverageServiceYears, 1e-9)

	// comp: a1 63 days * 100, a2 21 days * 200, t1 105 days * 100
	requireDec(t, "21000", rep.Summary.TotalLeaveCompensation, "6300 + 4200 + 10500")
	requireDec(t, "0", rep.Summary.TotalDeductions)
	requireDec(t, "36000", rep.Summary.TotalFinalPayable, "net EOS plus compensation")

	require.Len(t, rep.Employees, 3)
}

func TestAggregate_Idempotent_ExactEquality(t *testing.T) {
	// GIVEN: A fixed store state and as-of date
	// WHEN: The same report runs twice over the parallel worker pool
	// THEN: All totals match exactly; completion order never leaks into
	//       the folded figures

	st, asOf := newSeededStore(t)
	p := &report.Projector{Store: st, Workers: 2}

	first, err := p.Aggregate(context.Background(), report.Filter{CompanyID: "co-1"}, asOf)
	require.NoError(t, err)
	second, err := p.Aggregate(context.Background(), report.Filter{CompanyID: "co-1"}, asOf)
	require.NoError(t, err)

	require.True(t, first.Summary.TotalGrossEOS.Equal(second.Summary.TotalGrossEOS))
	require.True(t, first.Summary.TotalFinalPayable.Equal(second.Summary.TotalFinalPayable))
	assert.Equal(t, first.Summary.AverageServiceYears, second.Summary.AverageServiceYears)
	assert.Equal(t, first.BranchBreakdown, second.BranchBreakdown)

	// The per-employee list is in listing order (full name), not
	// completion order.
	require.Len(t, first.Employees, 3)
	for i := range first.Employees {
		assert.Equal(t, first.Employees[i].EmployeeID, second.Employees[i].EmployeeID)
	}
}

// =============================================================================
// GROUPING
// =============================================================================

func TestAggregate_BranchBreakdown_UnspecifiedBucket(t *testing.T) {
	// GIVEN: Two employees in Riyadh and one with no branch recorded
	// WHEN: The report is aggregated
	// THEN: Rows are sorted by key and the missing branch lands in the
	//       explicit unspecified bucket instead of being dropped

	st, asOf := newSeededStore(t)
	p := &report.Projector{Store: st}

	rep, err := p.Aggregate(context.Background(), report.Filter{CompanyID: "co-1"}, asOf)
	require.NoError(t, err)

	require.Len(t, rep.BranchBreakdown, 2)

	byKey := map[string]report.GroupTotal{}
	for _, row := range rep.BranchBreakdown {
		byKey[row.Key] = row
	}
	require.Contains(t, byKey, "Riyadh")
	require.Contains(t, byKey, report.UnspecifiedGroup)
	assert.Equal(t, 2, byKey["Riyadh"].EmployeeCount)
	assert.Equal(t, 1, byKey[report.UnspecifiedGroup].EmployeeCount)

	// a1: 4500 net + 6300 comp; t1: 7500 net + 10500 comp
	requireDec(t, "28800", byKey["Riyadh"].TotalEntitlements)
	requireDec(t, "16800", byKey["Riyadh"].TotalLeaveCompensation)
}

func TestAggregate_JobTitleFilter(t *testing.T) {
	// GIVEN: Two engineers and one supervisor
	// WHEN: The report filters on the Engineer job title
	// THEN: Only the engineers are computed

	st, asOf := newSeededStore(t)
	p := &report.Projector{Store: st}

	rep, err := p.Aggregate(context.Background(),
		report.Filter{CompanyID: "co-1", JobTitle: "Engineer"}, asOf)
	require.NoError(t, err)

	assert.Equal(t, 2, rep.Summary.TotalEmployees)
	require.Len(t, rep.JobTitleBreakdown, 1)
	assert.Equal(t, "Engineer", rep.JobTitleBreakdown[0].Key)
}

// =============================================================================
// STATUS AND FISCAL-YEAR FILTERS
// =============================================================================

func TestAggregate_StatusFilters(t *testing.T) {
	// GIVEN: The mixed active/terminated population
	// WHEN: The report runs with each status filter
	// THEN: ACTIVE and TERMINATED partition the population; ALL keeps it

	st, asOf := newSeededStore(t)
	p := &report.Projector{Store: st}
	ctx := context.Background()

	active, err := p.Aggregate(ctx, report.Filter{CompanyID: "co-1", Status: report.StatusActive}, asOf)
	require.NoError(t, err)
	assert.Equal(t, 2, active.Summary.TotalEmployees)
	assert.Equal(t, 0, active.Summary.TotalTerminatedEmployees)

	terminated, err := p.Aggregate(ctx, report.Filter{CompanyID: "co-1", Status: report.StatusTerminated}, asOf)
	require.NoError(t, err)
	assert.Equal(t, 1, terminated.Summary.TotalEmployees)

	all, err := p.Aggregate(ctx, report.Filter{CompanyID: "co-1", Status: report.StatusAll}, asOf)
	require.NoError(t, err)
	assert.Equal(t, 3, all.Summary.TotalEmployees)
}

func TestAggregate_FiscalYearEnd_CutoffAndAsOf(t *testing.T) {
	// GIVEN: A fiscal-year-end 3 years after the anchor
	// WHEN: The report runs with that cutoff
	// THEN: Employees hired after it are excluded and the remaining
	//       active employees are projected as of the cutoff, not now

	st, _ := newSeededStore(t)
	p := &report.Projector{Store: st}

	fye := yearsAfter(anchor, 3)
	rep, err := p.Aggregate(context.Background(),
		report.Filter{CompanyID: "co-1", FiscalYearEnd: &fye},
		yearsAfter(anchor, 20)) // "now" must be ignored
	require.NoError(t, err)

	// a2 (hired at year 4) is excluded; a1 has exactly 1 year at the
	// cutoff, t1 keeps its recorded end date beyond the cutoff.
	assert.Equal(t, 2, rep.Summary.TotalEmployees)
	assert.Equal(t, fye, rep.AsOf)

	for _, r := range rep.Employees {
		if r.EmployeeID == "a1" {
			assert.InDelta(t, 1.0, r.ServiceYears, 1e-9)
			requireDec(t, "1500", r.GrossEOS, "1 * 0.5 * 3000 as of the cutoff")
		}
	}
}

// =============================================================================
// FAILURE ISOLATION
// =============================================================================

func TestAggregate_BrokenEmployee_SkippedNotFatal(t *testing.T) {
	// GIVEN: One employee with no parseable hire date among valid ones
	// WHEN: The report is aggregated
	// THEN: The broken record lands in Skipped with a reason and the
	//       rest of the report still renders

	st, asOf := newSeededStore(t)
	seedEmployee(t, st, entitlement.Employee{
		ID:          "broken",
		FullName:    "Zero Hire Date",
		CompanyID:   "co-1",
		BasicSalary: d(1000),
	})
	p := &report.Projector{Store: st}

	rep, err := p.Aggregate(context.Background(), report.Filter{CompanyID: "co-1"}, asOf)
	require.NoError(t, err, "a broken employee never aborts the report")

	assert.Equal(t, 3, rep.Summary.TotalEmployees, "only successful calculations count")
	require.Len(t, rep.Skipped, 1)
	assert.Equal(t, "broken", rep.Skipped[0].EmployeeID)
	assert.NotEmpty(t, rep.Skipped[0].Reason)
}

// =============================================================================
// DEDUCTIONS IN THE PROJECTION
// =============================================================================

func TestAggregate_PendingDeductionsOnly(t *testing.T) {
	// GIVEN: One pending and one completed deduction for a1
	// WHEN: The report is aggregated
	// THEN: Only the pending amount reaches the totals

	st, asOf := newSeededStore(t)
	ctx := context.Background()

	require.NoError(t, st.CreateDeduction(ctx, &entitlement.Deduction{
		ID:         "d1",
		EmployeeID: "a1",
		Type:       entitlement.DeductionLoan,
		Amount:     d(400),
		Date:       asOf,
		Status:     entitlement.DeductionPending,
	}))
	require.NoError(t, st.CreateDeduction(ctx, &entitlement.Deduction{
		ID:         "d2",
		EmployeeID: "a1",
		Type:       entitlement.DeductionLoan,
		Amount:     d(9999),
		Date:       asOf,
		Status:     entitlement.DeductionCompleted,
	}))

	p := &report.Projector{Store: st}
	rep, err := p.Aggregate(ctx, report.Filter{CompanyID: "co-1"}, asOf)
	require.NoError(t, err)

	requireDec(t, "400", rep.Summary.TotalOtherDeductions)
	requireDec(t, "400", rep.Summary.TotalDeductions)
}
