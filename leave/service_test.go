/*
service_test.go - Leave balance service tests

PURPOSE:
  Validates the mutation rules over the leave ledger and the balance
  cache: adjustment vs usage row typing, append-only growth, lazy cache
  creation, stale-cache detection, and explicit recalculation.

All tests run on the in-memory store with a fixed clock, so every
figure is exact.
*/
package leave_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanad/entitlement-engine/entitlement"
	"github.com/sanad/entitlement-engine/leave"
	"github.com/sanad/entitlement-engine/store"
	"github.com/sanad/entitlement-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var hireDate = time.Date(2022, time.June, 1, 0, 0, 0, 0, time.UTC)

// oneYearLater is exactly one 365.25-day year after hireDate, so the
// accrued entitlement at the fixed clock is exactly 21 days.
var oneYearLater = hireDate.Add(8766 * time.Hour)

func d(n float64) decimal.Decimal { return decimal.NewFromFloat(n) }

func requireDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	require.True(t, got.Equal(decimal.RequireFromString(want)),
		"want %s, got %s (%v)", want, got.String(), msgAndArgs)
}

// newTestService seeds one active employee (basic 3000, no allowances,
// daily wage exactly 100) and returns a service whose clock is frozen at
// one year of service.
func newTestService(t *testing.T) (*leave.Service, *memory.Memory) {
	st := memory.New()
	emp := &entitlement.Employee{
		ID:             "e1",
		EmployeeNumber: "1001",
		FullName:       "Test Employee",
		CompanyID:      "co-1",
		HireDate:       hireDate,
		BasicSalary:    d(3000),
		Branch:         "Jeddah",
	}
	require.NoError(t, st.CreateEmployee(context.Background(), emp))

	svc := leave.NewServiceAt(st, func() time.Time { return oneYearLater })
	return svc, st
}

// =============================================================================
// ADJUSTMENTS
// =============================================================================

func TestAdjust_PositiveDays_RecordedAsAdjustment(t *testing.T) {
	// GIVEN: An employee with exactly 21 accrued days and an empty ledger
	// WHEN: HR grants +5 days
	// THEN: One ADJUSTMENT row is appended and the reconciled balance is
	//       26 days valued at 100/day

	svc, st := newTestService(t)
	ctx := context.Background()

	res, err := svc.Adjust(ctx, "e1", d(5), "carryover correction", "admin")
	require.NoError(t, err)

	requireDec(t, "26", res.RemainingDays)
	requireDec(t, "2600", res.LeaveValue)
	assert.NotEmpty(t, res.TransactionID)

	txs, err := st.LeaveTransactions(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, entitlement.LeaveTxAdjustment, txs[0].Type)
	assert.Equal(t, "carryover correction", txs[0].Reason)
	assert.Equal(t, "admin", txs[0].PerformedBy)
}

func TestAdjust_NegativeDays_RecordedAsUsage(t *testing.T) {
	// GIVEN: An employee with 21 accrued days
	// WHEN: 2 days of taken leave are recorded as -2
	// THEN: The row is typed USAGE and folds by absolute value: 21-2=19

	svc, st := newTestService(t)
	ctx := context.Background()

	res, err := svc.Adjust(ctx, "e1", d(-2), "annual leave", "admin")
	require.NoError(t, err)

	requireDec(t, "19", res.RemainingDays)

	txs, err := st.LeaveTransactions(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, entitlement.LeaveTxUsage, txs[0].Type)
	requireDec(t, "-2", txs[0].Days, "the row keeps the sign it was written with")
}

func TestAdjust_AppendOnly_LedgerGrows(t *testing.T) {
	// GIVEN: A +5 adjustment followed by a -2 usage
	// WHEN: The ledger is read back
	// THEN: Both rows are present in creation order; nothing was edited

	svc, st := newTestService(t)
	ctx := context.Background()

	first, err := svc.Adjust(ctx, "e1", d(5), "grant", "admin")
	require.NoError(t, err)
	second, err := svc.Adjust(ctx, "e1", d(-2), "taken", "admin")
	require.NoError(t, err)

	requireDec(t, "24", second.RemainingDays, "21 + 5 - 2")

	txs, err := st.LeaveTransactions(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, first.TransactionID, txs[0].ID)
	assert.Equal(t, second.TransactionID, txs[1].ID)
	assert.NotEqual(t, txs[0].ID, txs[1].ID)
}

func TestAdjust_UnknownEmployee_NotFound(t *testing.T) {
	// GIVEN: An employee id that does not exist
	// WHEN: An adjustment is attempted
	// THEN: The not-found error surfaces and nothing is written

	svc, st := newTestService(t)
	ctx := context.Background()

	_, err := svc.Adjust(ctx, "ghost", d(5), "grant", "admin")
	require.Error(t, err)
	assert.True(t, entitlement.IsNotFound(err))

	txs, err := st.LeaveTransactions(ctx, "ghost")
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestAdjust_ReconcilesCacheFromFullLedger(t *testing.T) {
	// GIVEN: A cache row that was corrupted out-of-band
	// WHEN: Any adjustment lands
	// THEN: The cache is rebuilt from the full ledger, not incremented
	//       from the corrupt figure

	svc, st := newTestService(t)
	ctx := context.Background()

	require.NoError(t, st.CommitLeaveMutation(ctx, store.LeaveMutation{
		EmployeeID: "e1",
		Balance: entitlement.LeaveBalance{
			ID:                      "bad",
			EmployeeID:              "e1",
			CalculatedRemainingDays: d(999),
			LastCalculatedAt:        oneYearLater,
		},
	}))

	_, err := svc.Adjust(ctx, "e1", d(1), "grant", "admin")
	require.NoError(t, err)

	cached, err := st.LeaveBalance(ctx, "e1")
	require.NoError(t, err)
	require.NotNil(t, cached)
	requireDec(t, "22", cached.CalculatedRemainingDays, "21 accrued + 1, the 999 is gone")
}

// =============================================================================
// BALANCE VIEWS
// =============================================================================

func TestBalances_LazilyCreatesCacheRow(t *testing.T) {
	// GIVEN: An employee that has never been through a balance listing
	// WHEN: Balances runs for the company
	// THEN: A cache row materializes and the view reports the live figures

	svc, st := newTestService(t)
	ctx := context.Background()

	before, err := st.LeaveBalance(ctx, "e1")
	require.NoError(t, err)
	require.Nil(t, before, "no cache row exists until first sight")

	views, err := svc.Balances(ctx, "co-1")
	require.NoError(t, err)
	require.Len(t, views, 1)

	v := views[0]
	assert.Equal(t, "e1", v.EmployeeID)
	assert.Equal(t, 21, v.AnnualEntitledDays)
	requireDec(t, "21", v.CalculatedRemainingDays)
	requireDec(t, "2100", v.LeaveValue)
	assert.Empty(t, v.Warnings)

	after, err := st.LeaveBalance(ctx, "e1")
	require.NoError(t, err)
	require.NotNil(t, after, "first listing materialized the cache row")
	requireDec(t, "21", after.CalculatedRemainingDays)
}

func TestBalances_DisplayClampsNegativeBalance(t *testing.T) {
	// GIVEN: An employee who used 30 days against 21 accrued
	// WHEN: The balances list is read
	// THEN: The view floors at zero while the cache keeps the true -9

	svc, st := newTestService(t)
	ctx := context.Background()

	_, err := svc.Adjust(ctx, "e1", d(-30), "extended leave", "admin")
	require.NoError(t, err)

	views, err := svc.Balances(ctx, "co-1")
	require.NoError(t, err)
	require.Len(t, views, 1)
	requireDec(t, "0", views[0].CalculatedRemainingDays, "display path clamps")
	requireDec(t, "30", views[0].AnnualUsedDays)

	cached, err := st.LeaveBalance(ctx, "e1")
	require.NoError(t, err)
	require.NotNil(t, cached)
	requireDec(t, "-9", cached.CalculatedRemainingDays, "the cache stays unclamped")
}

func TestBalances_StaleCacheRow_Flagged(t *testing.T) {
	// GIVEN: A cache row that drifted far from the live recomputation
	// WHEN: The balances list is read
	// THEN: The live value is reported and the row is flagged stale

	svc, st := newTestService(t)
	ctx := context.Background()

	require.NoError(t, st.CommitLeaveMutation(ctx, store.LeaveMutation{
		EmployeeID: "e1",
		Balance: entitlement.LeaveBalance{
			ID:                      "stale",
			EmployeeID:              "e1",
			CalculatedRemainingDays: d(3),
			LastCalculatedAt:        hireDate,
		},
	}))

	views, err := svc.Balances(ctx, "co-1")
	require.NoError(t, err)
	require.Len(t, views, 1)
	requireDec(t, "21", views[0].CalculatedRemainingDays, "live value wins")
	require.Len(t, views[0].Warnings, 1)
	assert.Equal(t, "stale_balance_cache", views[0].Warnings[0].Code)
	assert.Equal(t, "e1", views[0].Warnings[0].EmployeeID)
}

func TestBalances_ActiveEmployeesOnly(t *testing.T) {
	// GIVEN: One active and one terminated employee
	// WHEN: The balances list is read
	// THEN: Only the active employee appears

	svc, st := newTestService(t)
	ctx := context.Background()

	end := oneYearLater
	require.NoError(t, st.CreateEmployee(ctx, &entitlement.Employee{
		ID:          "e2",
		FullName:    "Former Employee",
		CompanyID:   "co-1",
		HireDate:    hireDate,
		EndDate:     &end,
		BasicSalary: d(3000),
	}))

	views, err := svc.Balances(ctx, "co-1")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "e1", views[0].EmployeeID)
}

// =============================================================================
// CONCURRENCY
// =============================================================================

func TestAdjust_ConcurrentSameEmployee_NoLostUpdates(t *testing.T) {
	// GIVEN: Many +1 adjustments for the same employee racing each other
	// WHEN: They all complete
	// THEN: The ledger holds exactly one row per adjustment and the cache
	//       equals the full-ledger reconcile

	svc, st := newTestService(t)
	ctx := context.Background()

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Adjust(ctx, "e1", d(1), "grant", "admin")
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	txs, err := st.LeaveTransactions(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, txs, n)

	cached, err := st.LeaveBalance(ctx, "e1")
	require.NoError(t, err)
	require.NotNil(t, cached)
	requireDec(t, "29", cached.CalculatedRemainingDays, "21 accrued + 8 granted")
	requireDec(t, "2900", cached.LeaveValue)
}

// lostRaceBalanceStore answers the first cache read with nil regardless
// of what the underlying store holds, mimicking a balance listing whose
// read completed just before a concurrent adjustment committed.
type lostRaceBalanceStore struct {
	store.Store
	adjusted <-chan struct{}
	once     sync.Once
}

func (s *lostRaceBalanceStore) LeaveBalance(ctx context.Context, employeeID string) (*entitlement.LeaveBalance, error) {
	raced := false
	s.once.Do(func() {
		<-s.adjusted
		raced = true
	})
	if raced {
		return nil, nil
	}
	return s.Store.LeaveBalance(ctx, employeeID)
}

func TestBalances_ConcurrentAdjust_CacheNotOverwritten(t *testing.T) {
	// GIVEN: A balances listing whose cache read lost a race against a
	//        concurrent +5 adjustment for the same employee
	// WHEN: The listing goes on to materialize the "missing" cache row
	// THEN: It re-reads under the per-employee lock, finds the adjusted
	//       row, and does not overwrite it with its older snapshot

	st := memory.New()
	ctx := context.Background()
	require.NoError(t, st.CreateEmployee(ctx, &entitlement.Employee{
		ID:          "e1",
		FullName:    "Test Employee",
		CompanyID:   "co-1",
		HireDate:    hireDate,
		BasicSalary: d(3000),
	}))

	adjusted := make(chan struct{})
	wrapped := &lostRaceBalanceStore{Store: st, adjusted: adjusted}
	svc := leave.NewServiceAt(wrapped, func() time.Time { return oneYearLater })

	listed := make(chan error, 1)
	go func() {
		_, err := svc.Balances(ctx, "co-1")
		listed <- err
	}()

	_, err := svc.Adjust(ctx, "e1", d(5), "grant", "admin")
	require.NoError(t, err)
	close(adjusted)
	require.NoError(t, <-listed)

	cached, err := st.LeaveBalance(ctx, "e1")
	require.NoError(t, err)
	require.NotNil(t, cached)
	requireDec(t, "26", cached.CalculatedRemainingDays, "the adjusted figure survives the listing")

	txs, err := st.LeaveTransactions(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, txs, 1)
}

// =============================================================================
// RECALCULATION
// =============================================================================

func TestRecalculate_ReconcilesFromLedger(t *testing.T) {
	// GIVEN: A corrupted cache row and a ledger with one usage
	// WHEN: An explicit recalculation runs
	// THEN: The result and the cache both reflect the ledger truth

	svc, st := newTestService(t)
	ctx := context.Background()

	_, err := svc.Adjust(ctx, "e1", d(-6), "annual leave", "admin")
	require.NoError(t, err)

	require.NoError(t, st.CommitLeaveMutation(ctx, store.LeaveMutation{
		EmployeeID: "e1",
		Balance: entitlement.LeaveBalance{
			ID:                      "bad",
			EmployeeID:              "e1",
			CalculatedRemainingDays: d(500),
			LastCalculatedAt:        hireDate,
		},
	}))

	res, err := svc.Recalculate(ctx, "e1")
	require.NoError(t, err)

	assert.Equal(t, 21, res.AnnualEntitledDays)
	requireDec(t, "15", res.RemainingDays, "21 accrued - 6 used")
	requireDec(t, "6", res.UsedDays)
	requireDec(t, "1500", res.LeaveValue)

	cached, err := st.LeaveBalance(ctx, "e1")
	require.NoError(t, err)
	require.NotNil(t, cached)
	requireDec(t, "15", cached.CalculatedRemainingDays)
}
