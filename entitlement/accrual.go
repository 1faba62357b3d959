/*
accrual.go - Annual leave accrual and balance folding

PURPOSE:
  Computes entitled leave days from service duration and folds the leave
  transaction ledger into a running balance.

ACCRUAL TIERING (Saudi labor law, Article 109):
  serviceYears < 5:  accruedDays = serviceYears * 21
  serviceYears >= 5: accruedDays = 5*21 + (serviceYears - 5) * 30

  The annual entitled rate (21 or 30 days/year) describes the CURRENT
  rate at this tenure, reported separately from the cumulative total.

TRANSACTION FOLDING:
  adjustmentDays = sum of ADJUSTMENT rows (signed)
  usedDays       = sum of |USAGE rows|

  ACCRUAL and ENCASHMENT rows exist in the ledger taxonomy but are NOT
  folded into the live formula: accrual is derived purely from service
  duration. This is intentional, reproduced from the reference behavior.
  If ACCRUAL rows were ever written with nonzero days they would be
  silently ignored here - a known open question, do not "fix" it.

BALANCE:
  remaining = accrued + adjustments - used   (UNCLAMPED)

  A negative remaining balance is a valid, meaningful state: leave taken
  in excess of entitlement. Deduction logic prices that shortfall; display
  paths that want a floor call ClampedRemaining().

VALUATION (Article 111, last-wage rule):
  dailyWage = totalSalary / 30 - always the CURRENT total salary,
  regardless of when the leave accrued. Gratuity, by contrast, uses basic
  salary only (gratuity.go); the two must never be conflated.
*/
package entitlement

import "github.com/shopspring/decimal"

var (
	thirty        = decimal.NewFromInt(30)
	twentyOne     = decimal.NewFromInt(21)
	firstTierDays = decimal.NewFromInt(105) // 5 years * 21 days
)

// AccrualBreakdown is the Leave Accrual Engine output for one employee.
type AccrualBreakdown struct {
	ServiceYears   float64
	AccruedDays    decimal.Decimal
	AdjustmentDays decimal.Decimal
	UsedDays       decimal.Decimal

	// RemainingDays is unclamped; negative means leave taken beyond
	// entitlement and is priced as a deduction by the netting layer.
	RemainingDays decimal.Decimal

	// AnnualEntitledRate is the days-per-year rate at the current tenure
	// (21 below five years of service, 30 at or beyond), not a cumulative
	// figure.
	AnnualEntitledRate int
}

// AccruedDays applies the tiered accrual rule to a service duration.
func AccruedDays(serviceYears float64) decimal.Decimal {
	if serviceYears < 5 {
		return decimal.NewFromFloat(serviceYears).Mul(twentyOne)
	}
	return firstTierDays.Add(decimal.NewFromFloat(serviceYears - 5).Mul(thirty))
}

// AnnualEntitledRate returns the current days-per-year rate for a tenure.
// The boundary at exactly five years uses the 30-day branch.
func AnnualEntitledRate(serviceYears float64) int {
	if serviceYears < 5 {
		return 21
	}
	return 30
}

// Accrue folds the transaction ledger for one employee into an accrual
// breakdown. Pure function: same inputs, same output.
func Accrue(serviceYears float64, txs []LeaveTransaction) AccrualBreakdown {
	adjustments := decimal.Zero
	used := decimal.Zero

	for _, tx := range txs {
		switch tx.Type {
		case LeaveTxAdjustment:
			adjustments = adjustments.Add(tx.Days)
		case LeaveTxUsage:
			used = used.Add(tx.Days.Abs())
		}
		// ACCRUAL and ENCASHMENT rows intentionally not folded.
	}

	accrued := AccruedDays(serviceYears)

	return AccrualBreakdown{
		ServiceYears:       serviceYears,
		AccruedDays:        accrued,
		AdjustmentDays:     adjustments,
		UsedDays:           used,
		RemainingDays:      accrued.Add(adjustments).Sub(used),
		AnnualEntitledRate: AnnualEntitledRate(serviceYears),
	}
}

// ClampedRemaining floors the balance at zero for display paths. The
// unclamped RemainingDays stays authoritative for deduction logic.
func (b AccrualBreakdown) ClampedRemaining() decimal.Decimal {
	if b.RemainingDays.IsNegative() {
		return decimal.Zero
	}
	return b.RemainingDays
}

// DailyWage is the leave valuation rate: total salary / 30.
func DailyWage(totalSalary decimal.Decimal) decimal.Decimal {
	return totalSalary.Div(thirty)
}

// LeaveValue prices a non-negative balance at the current daily wage.
// For a negative balance it returns zero; the shortfall side is handled
// by netting.go as a leave deduction.
func (b AccrualBreakdown) LeaveValue(totalSalary decimal.Decimal) decimal.Decimal {
	if b.RemainingDays.IsNegative() {
		return decimal.Zero
	}
	return b.RemainingDays.Mul(DailyWage(totalSalary))
}
