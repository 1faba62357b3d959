/*
accrual_test.go - Leave accrual and ledger folding tests

Covers the 21/30 tiering, the five-year boundary, which transaction
types fold into the live balance, and daily-wage valuation.
Shared builders live in calc_test.go.
*/
package entitlement_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sanad/entitlement-engine/entitlement"
)

// =============================================================================
// TIERING
// =============================================================================

func TestAccruedDays_Tiering(t *testing.T) {
	// GIVEN: Service durations on both sides of the five-year boundary
	// WHEN: Accrued days are computed
	// THEN: Below five years the rate is 21/year; the first five years
	//       contribute exactly 105 and later years 30 each

	requireDec(t, "42", entitlement.AccruedDays(2), "2 * 21")
	requireDec(t, "84", entitlement.AccruedDays(4), "4 * 21")
	requireDec(t, "105", entitlement.AccruedDays(5), "boundary: exactly 5 years accrues 105, not 150")
	requireDec(t, "135", entitlement.AccruedDays(6), "105 + 1 * 30")
	requireDec(t, "255", entitlement.AccruedDays(10), "105 + 5 * 30")
}

func TestAnnualEntitledRate_BoundaryAtFiveYears(t *testing.T) {
	// GIVEN: Tenures straddling exactly five years
	// WHEN: The current entitled rate is read
	// THEN: 21 strictly below five, 30 at and beyond

	assert.Equal(t, 21, entitlement.AnnualEntitledRate(0))
	assert.Equal(t, 21, entitlement.AnnualEntitledRate(4.999))
	assert.Equal(t, 30, entitlement.AnnualEntitledRate(5))
	assert.Equal(t, 30, entitlement.AnnualEntitledRate(12))
}

// =============================================================================
// LEDGER FOLDING
// =============================================================================

func TestAccrue_FoldsAdjustmentsSignedAndUsageAbsolute(t *testing.T) {
	// GIVEN: A ledger with positive and negative adjustments and a usage
	//        row recorded with a negative sign
	// WHEN: The ledger is folded at 2 years of service
	// THEN: Adjustments add signed, usage folds by absolute value:
	//       remaining = 42 + (10 - 4) - 3 = 45

	txs := []entitlement.LeaveTransaction{
		adjustmentTx("e1", 10, hire2020),
		adjustmentTx("e1", -4, hire2020),
		usageTx("e1", -3, hire2020),
	}

	b := entitlement.Accrue(2, txs)

	requireDec(t, "42", b.AccruedDays)
	requireDec(t, "6", b.AdjustmentDays)
	requireDec(t, "3", b.UsedDays, "negative usage folds as 3 used days")
	requireDec(t, "45", b.RemainingDays)
}

func TestAccrue_AccrualAndEncashmentRows_Ignored(t *testing.T) {
	// GIVEN: A ledger containing ACCRUAL and ENCASHMENT rows with large
	//        day counts
	// WHEN: The ledger is folded
	// THEN: Neither type moves the balance; accrual is derived purely
	//       from service duration

	txs := []entitlement.LeaveTransaction{
		{EmployeeID: "e1", Type: entitlement.LeaveTxAccrual, Days: d(100)},
		{EmployeeID: "e1", Type: entitlement.LeaveTxEncashment, Days: d(-50)},
	}

	b := entitlement.Accrue(3, txs)

	requireDec(t, "63", b.RemainingDays, "only the 3 * 21 derived accrual counts")
	requireDec(t, "0", b.AdjustmentDays)
	requireDec(t, "0", b.UsedDays)
}

func TestAccrue_OverconsumedBalance_StaysNegative(t *testing.T) {
	// GIVEN: More leave used than ever accrued
	// WHEN: The ledger is folded
	// THEN: RemainingDays is negative (the deduction side prices it);
	//       only the display clamp floors at zero

	b := entitlement.Accrue(1, []entitlement.LeaveTransaction{usageTx("e1", 30, hire2020)})

	requireDec(t, "-9", b.RemainingDays, "21 accrued - 30 used")
	requireDec(t, "0", b.ClampedRemaining())
}

// =============================================================================
// VALUATION
// =============================================================================

func TestDailyWage_TotalSalaryOverThirty(t *testing.T) {
	// GIVEN: A total salary of 3000
	// WHEN: The daily wage is derived
	// THEN: 3000 / 30 = 100, on TOTAL salary (gratuity uses basic)

	requireDec(t, "100", entitlement.DailyWage(d(3000)))
}

func TestLeaveValue_NegativeBalance_ValuesAtZero(t *testing.T) {
	// GIVEN: A negative remaining balance
	// WHEN: The balance is priced as compensation
	// THEN: Zero; the shortfall is priced by netting, not here

	b := entitlement.Accrue(1, []entitlement.LeaveTransaction{usageTx("e1", 30, hire2020)})

	requireDec(t, "0", b.LeaveValue(d(3000)))

	positive := entitlement.Accrue(1, nil)
	requireDec(t, "2100", positive.LeaveValue(d(3000)), "21 days * 100/day")
}
