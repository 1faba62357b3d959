/*
Package leave implements the balance-mutation service over the persisted
leave ledger and the balance cache.

PURPOSE:
  Wraps the store with the leave-specific business rules:

  - Balances: live-recomputed list view for active employees, creating
    the cache row lazily the first time an employee is seen.
  - Adjust: appends one ledger row (ADJUSTMENT for positive day counts,
    USAGE for negative) and reconciles the cache in the same atomic unit.
  - Recalculate: full recomputation from hire date + ledger, unclamped,
    written back to the cache.

SINGLE WRITER PER EMPLOYEE:
  Adjust, Recalculate and the lazy cache creation in Balances are
  read-modify-write against the cache row. A striped mutex keyed by
  employee id gives at-most-one-writer-at-a-time semantics per employee; adjustments to different employees proceed
  independently. The store's CommitLeaveMutation is atomic on top of
  that, so a failure leaves neither a dangling ledger row nor a stale
  balance.

CACHE VS TRUTH:
  The cache row is a read optimization. Every figure returned by this
  package is recomputed live from (hireDate, endDate, ledger); when the
  cached row disagrees with the live value the live value wins and a
  stale-cache warning is attached.
*/
package leave

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sanad/entitlement-engine/entitlement"
	"github.com/sanad/entitlement-engine/store"
)

// staleTolerance is how far the cached remaining-days value may drift
// from the live recomputation before the row is flagged stale. Day
// accrual is continuous in time, so exact equality is never expected.
var staleTolerance = decimal.NewFromFloat(0.05)

// Service exposes the leave balance operations.
type Service struct {
	store store.Store
	now   func() time.Time

	locks [64]sync.Mutex
}

// NewService creates a Service over the given store.
func NewService(st store.Store) *Service {
	return &Service{store: st, now: time.Now}
}

// NewServiceAt creates a Service with a fixed clock. Test hook.
func NewServiceAt(st store.Store, now func() time.Time) *Service {
	return &Service{store: st, now: now}
}

// lock returns the stripe mutex for an employee id.
func (s *Service) lock(employeeID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(employeeID))
	return &s.locks[h.Sum32()%uint32(len(s.locks))]
}

// =============================================================================
// BALANCE VIEWS
// =============================================================================

// BalanceView is the per-employee row of the balances list.
type BalanceView struct {
	EmployeeID   string
	EmployeeName string
	Branch       string
	JobTitle     string
	HireDate     time.Time

	ServiceYears       float64
	AnnualEntitledDays int
	AnnualUsedDays     decimal.Decimal

	// CalculatedRemainingDays is clamped at zero for this display path.
	CalculatedRemainingDays decimal.Decimal
	LeaveValue              decimal.Decimal
	LastCalculatedAt        time.Time

	// Warnings carries non-fatal integrity flags (e.g. stale cache row).
	Warnings []entitlement.DataIntegrityWarning
}

// Balances returns the live-recomputed leave position for every active
// employee of a company, lazily creating missing cache rows.
func (s *Service) Balances(ctx context.Context, companyID string) ([]BalanceView, error) {
	employees, err := s.store.ListEmployees(ctx, store.EmployeeFilter{
		CompanyID:  companyID,
		ActiveOnly: true,
	})
	if err != nil {
		return nil, err
	}

	asOf := s.now()
	views := make([]BalanceView, 0, len(employees))
	for i := range employees {
		v, err := s.balanceView(ctx, &employees[i], asOf)
		if err != nil {
			return nil, err
		}
		views = append(views, *v)
	}
	return views, nil
}

func (s *Service) balanceView(ctx context.Context, emp *entitlement.Employee, asOf time.Time) (*BalanceView, error) {
	years, err := entitlement.ServiceYears(emp.HireDate, emp.EndDate, asOf)
	if err != nil {
		return nil, err
	}

	txs, err := s.store.LeaveTransactions(ctx, emp.ID)
	if err != nil {
		return nil, err
	}
	acc := entitlement.Accrue(years, txs)
	remaining := acc.ClampedRemaining()
	value := remaining.Mul(entitlement.DailyWage(emp.TotalSalary))

	cached, err := s.store.LeaveBalance(ctx, emp.ID)
	if err != nil {
		return nil, err
	}

	if cached == nil {
		// First sight of this employee: materialize the cache row.
		cached, err = s.materializeBalance(ctx, emp, asOf)
		if err != nil {
			return nil, err
		}
	}

	var warnings []entitlement.DataIntegrityWarning
	calcAt := cached.LastCalculatedAt
	if cached.CalculatedRemainingDays.Sub(acc.RemainingDays).Abs().GreaterThan(staleTolerance) {
		warnings = append(warnings, entitlement.DataIntegrityWarning{
			EmployeeID: emp.ID,
			Code:       "stale_balance_cache",
			Detail:     "cached remaining days " + cached.CalculatedRemainingDays.String() + " diverges from live " + acc.RemainingDays.String(),
			ObservedAt: asOf,
		})
	}

	return &BalanceView{
		EmployeeID:              emp.ID,
		EmployeeName:            emp.FullName,
		Branch:                  emp.Branch,
		JobTitle:                emp.JobTitle,
		HireDate:                emp.HireDate,
		ServiceYears:            years,
		AnnualEntitledDays:      acc.AnnualEntitledRate,
		AnnualUsedDays:          acc.UsedDays,
		CalculatedRemainingDays: remaining,
		LeaveValue:              value,
		LastCalculatedAt:        calcAt,
		Warnings:                warnings,
	}, nil
}

// materializeBalance creates the cache row for an employee seen for the
// first time. It takes the employee's stripe lock and re-reads both the
// cache and the ledger inside it, so a concurrent Adjust that landed
// after the caller's read cannot be overwritten with an older snapshot.
func (s *Service) materializeBalance(ctx context.Context, emp *entitlement.Employee, asOf time.Time) (*entitlement.LeaveBalance, error) {
	mu := s.lock(emp.ID)
	mu.Lock()
	defer mu.Unlock()

	cached, err := s.store.LeaveBalance(ctx, emp.ID)
	if err != nil || cached != nil {
		return cached, err
	}

	years, err := entitlement.ServiceYears(emp.HireDate, emp.EndDate, asOf)
	if err != nil {
		return nil, err
	}
	txs, err := s.store.LeaveTransactions(ctx, emp.ID)
	if err != nil {
		return nil, err
	}
	acc := entitlement.Accrue(years, txs)
	value := acc.ClampedRemaining().Mul(entitlement.DailyWage(emp.TotalSalary))

	bal := s.snapshot(emp.ID, acc, value, asOf)
	err = s.store.CommitLeaveMutation(ctx, store.LeaveMutation{
		EmployeeID: emp.ID,
		Balance:    bal,
	})
	if err != nil {
		return nil, err
	}
	return &bal, nil
}

func (s *Service) snapshot(employeeID string, acc entitlement.AccrualBreakdown, value decimal.Decimal, asOf time.Time) entitlement.LeaveBalance {
	return entitlement.LeaveBalance{
		ID:                      uuid.NewString(),
		EmployeeID:              employeeID,
		AnnualEntitledDays:      decimal.NewFromInt(int64(acc.AnnualEntitledRate)),
		AnnualUsedDays:          acc.UsedDays,
		CalculatedRemainingDays: acc.RemainingDays,
		LeaveValue:              value,
		LastCalculatedAt:        asOf,
	}
}

// =============================================================================
// MUTATIONS
// =============================================================================

// AdjustResult reports the post-adjustment position.
type AdjustResult struct {
	TransactionID string
	RemainingDays decimal.Decimal // unclamped
	LeaveValue    decimal.Decimal
}

// Adjust appends one ledger row for the employee and reconciles the
// balance cache. Positive day counts are recorded as ADJUSTMENT, negative
// as USAGE (the reference convention for manual corrections vs leave
// taken). The ledger row and the cache write land atomically.
func (s *Service) Adjust(ctx context.Context, employeeID string, days decimal.Decimal, reason, performedBy string) (*AdjustResult, error) {
	mu := s.lock(employeeID)
	mu.Lock()
	defer mu.Unlock()

	emp, err := s.store.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	txType := entitlement.LeaveTxAdjustment
	if days.IsNegative() {
		txType = entitlement.LeaveTxUsage
	}

	now := s.now()
	row := entitlement.LeaveTransaction{
		ID:          uuid.NewString(),
		EmployeeID:  employeeID,
		Type:        txType,
		Days:        days,
		Reason:      reason,
		PerformedBy: performedBy,
		CreatedAt:   now,
	}

	// Reconcile the cache from the full ledger including the new row,
	// rather than incrementing the possibly-stale cached figure.
	txs, err := s.store.LeaveTransactions(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	txs = append(txs, row)

	years, err := entitlement.ServiceYears(emp.HireDate, emp.EndDate, now)
	if err != nil {
		return nil, err
	}
	acc := entitlement.Accrue(years, txs)
	value := acc.RemainingDays.Mul(entitlement.DailyWage(emp.TotalSalary))

	err = s.store.CommitLeaveMutation(ctx, store.LeaveMutation{
		EmployeeID:   employeeID,
		Transactions: []entitlement.LeaveTransaction{row},
		Balance:      s.snapshot(employeeID, acc, value, now),
	})
	if err != nil {
		return nil, err
	}

	return &AdjustResult{
		TransactionID: row.ID,
		RemainingDays: acc.RemainingDays,
		LeaveValue:    value,
	}, nil
}

// RecalculateResult reports the reconciled position.
type RecalculateResult struct {
	AnnualEntitledDays int
	RemainingDays      decimal.Decimal // unclamped
	UsedDays           decimal.Decimal
	LeaveValue         decimal.Decimal
}

// Recalculate recomputes the employee's full position from the hire date
// and the complete ledger, and writes the reconciled cache row. This is
// the explicit reconcile-on-write path for suspected-stale caches.
func (s *Service) Recalculate(ctx context.Context, employeeID string) (*RecalculateResult, error) {
	mu := s.lock(employeeID)
	mu.Lock()
	defer mu.Unlock()

	emp, err := s.store.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	txs, err := s.store.LeaveTransactions(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	years, err := entitlement.ServiceYears(emp.HireDate, emp.EndDate, now)
	if err != nil {
		return nil, err
	}
	acc := entitlement.Accrue(years, txs)
	value := acc.RemainingDays.Mul(entitlement.DailyWage(emp.TotalSalary))

	err = s.store.CommitLeaveMutation(ctx, store.LeaveMutation{
		EmployeeID: employeeID,
		Balance:    s.snapshot(employeeID, acc, value, now),
	})
	if err != nil {
		return nil, err
	}

	return &RecalculateResult{
		AnnualEntitledDays: acc.AnnualEntitledRate,
		RemainingDays:      acc.RemainingDays,
		UsedDays:           acc.UsedDays,
		LeaveValue:         value,
	}, nil
}
