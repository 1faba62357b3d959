/*
netting.go - Deduction splitting and final payable assembly

PURPOSE:
  Merges pending deductions, leave shortfall penalties, and leave
  compensation into the final payable amount.

SPLIT RULE:
  otherDeductions = sum of ALL pending Deduction.Amount, regardless of
  type. The type taxonomy (LOAN/PENALTY/ADVANCE/...) is record-keeping
  metadata only; netting treats every pending deduction identically.

  leaveDeductions = 0 when the remaining leave balance is >= 0,
  otherwise |remainingDays| * dailyWage. This penalty is derived, never
  stored as a Deduction row.

  leaveCompensation and leaveDeductions are mutually exclusive: a balance
  cannot simultaneously compensate and penalize.

FINAL:
  totalDeductions = leaveDeductions + otherDeductions
  finalPayable    = netEOS + leaveCompensation - totalDeductions

  finalPayable may be negative (the employee owes money); no clamping
  here, callers display the sign.

IDEMPOTENCE:
  Pure function of its inputs. Recomputing with identical state yields a
  byte-for-byte identical result.
*/
package entitlement

import "github.com/shopspring/decimal"

// Netting is the Deduction & Netting Aggregator output.
type Netting struct {
	LeaveCompensation decimal.Decimal
	LeaveDeductions   decimal.Decimal
	OtherDeductions   decimal.Decimal
	TotalDeductions   decimal.Decimal
	FinalPayable      decimal.Decimal
}

// PendingTotal sums the amounts of PENDING deductions. Completed and
// cancelled rows never participate.
func PendingTotal(deductions []Deduction) decimal.Decimal {
	total := decimal.Zero
	for _, d := range deductions {
		if d.Status == DeductionPending {
			total = total.Add(d.Amount)
		}
	}
	return total
}

// Net folds gratuity, the live leave position, and pending deductions
// into the final payable amount.
func Net(netEOS decimal.Decimal, acc AccrualBreakdown, totalSalary decimal.Decimal, deductions []Deduction) Netting {
	other := PendingTotal(deductions)

	compensation := decimal.Zero
	leaveDeduction := decimal.Zero
	if acc.RemainingDays.IsNegative() {
		leaveDeduction = acc.RemainingDays.Abs().Mul(DailyWage(totalSalary))
	} else {
		compensation = acc.LeaveValue(totalSalary)
	}

	total := leaveDeduction.Add(other)

	return Netting{
		LeaveCompensation: compensation,
		LeaveDeductions:   leaveDeduction,
		OtherDeductions:   other,
		TotalDeductions:   total,
		FinalPayable:      netEOS.Add(compensation).Sub(total),
	}
}
