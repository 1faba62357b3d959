/*
Package entitlement implements the Saudi-labor-law end-of-service benefit
and leave-balance calculation engine.

PURPOSE:
  This package contains the pure computation core: service duration,
  annual-leave accrual, end-of-service gratuity, and deduction netting.
  Everything here is a deterministic function of explicit inputs - an
  employee profile, a leave transaction ledger, a set of pending
  deductions, and an as-of date. No clocks, no database handles.

KEY CONCEPTS IN THIS FILE (types.go):
  - Employee: salary components, hire/end dates, grouping tags
  - LeaveTransaction: an immutable ledger entry for leave day changes
  - LeaveBalance: the persisted cache row (NOT the source of truth)
  - Deduction: a pending/completed/cancelled monetary deduction
  - Result: the transient per-employee entitlement record

DESIGN PRINCIPLES:
  1. Immutability: leave transactions are appended, never edited
  2. Precision: decimal.Decimal for all day counts and money; rounding
     to two places happens only when producing the reported record
  3. Explicit time: every calculation takes an as-of date; "now" is
     resolved by callers at the boundary
  4. Derived totals: Employee.TotalSalary is always recomputed from its
     four components, never accepted as independent input

SEE ALSO:
  - duration.go: fractional service-year calculation
  - accrual.go:  leave accrual tiering and transaction folding
  - gratuity.go: gross/net EOS and the termination ratio table
  - netting.go:  final payable assembly
*/
package entitlement

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TERMINATION TYPE
// =============================================================================

// TerminationType is the closed set of separation causes. The zero value
// (TerminationNone) means the employee has not separated, or the cause is
// unrecorded; the ratio table treats it as full entitlement.
type TerminationType string

const (
	TerminationNone        TerminationType = ""
	TerminationResignation TerminationType = "RESIGNATION"
	TerminationDismissal   TerminationType = "TERMINATION"
	TerminationContractEnd TerminationType = "CONTRACT_END"
)

// ParseTerminationType maps free-form input onto the closed enum.
// Unknown strings collapse to TerminationNone rather than erroring:
// the ratio table gives unknown causes the default full ratio anyway.
func ParseTerminationType(s string) TerminationType {
	switch TerminationType(s) {
	case TerminationResignation, TerminationDismissal, TerminationContractEnd:
		return TerminationType(s)
	default:
		return TerminationNone
	}
}

// =============================================================================
// EMPLOYEE
// =============================================================================

// Employee is the engine's view of an employee record. The grouping tags
// (Branch, Department, JobTitle, Classification) are free strings used only
// by the report projector.
type Employee struct {
	ID             string
	EmployeeNumber string
	FullName       string
	CompanyID      string

	HireDate time.Time
	EndDate  *time.Time

	TerminationType TerminationType

	BasicSalary        decimal.Decimal
	HousingAllowance   decimal.Decimal
	TransportAllowance decimal.Decimal
	OtherAllowances    decimal.Decimal

	// TotalSalary is derived. Never set it directly; call
	// RecomputeTotalSalary after changing any component.
	TotalSalary decimal.Decimal

	Branch         string
	Department     string
	JobTitle       string
	Classification string
}

// RecomputeTotalSalary restores the invariant
// TotalSalary == BasicSalary + HousingAllowance + TransportAllowance + OtherAllowances.
func (e *Employee) RecomputeTotalSalary() {
	e.TotalSalary = e.BasicSalary.
		Add(e.HousingAllowance).
		Add(e.TransportAllowance).
		Add(e.OtherAllowances)
}

// IsActive reports whether the employee has no end date.
func (e *Employee) IsActive() bool { return e.EndDate == nil }

// =============================================================================
// LEAVE TRANSACTION - Immutable ledger entry
// =============================================================================

type LeaveTransactionType string

const (
	LeaveTxAccrual    LeaveTransactionType = "ACCRUAL"
	LeaveTxUsage      LeaveTransactionType = "USAGE"
	LeaveTxAdjustment LeaveTransactionType = "ADJUSTMENT"
	LeaveTxEncashment LeaveTransactionType = "ENCASHMENT"
)

// LeaveTransaction is an append-only ledger row. Corrections are recorded
// as new transactions, never by editing existing rows.
//
// Sign conventions: ADJUSTMENT days are signed and added directly to the
// balance. USAGE days may be written with either sign by callers but are
// always folded by absolute value. ACCRUAL and ENCASHMENT rows exist in
// the taxonomy but do not participate in the live balance formula (see
// accrual.go).
type LeaveTransaction struct {
	ID          string
	EmployeeID  string
	Type        LeaveTransactionType
	Days        decimal.Decimal
	Reason      string
	PerformedBy string
	CreatedAt   time.Time
}

// =============================================================================
// LEAVE BALANCE - Persisted cache row (derived view)
// =============================================================================

// LeaveBalance is the cached snapshot of an employee's leave position,
// created lazily and upserted on balance-affecting writes.
//
// This row is NOT authoritative. It must always be recomputable from
// (HireDate, EndDate, leave transactions), and it can go stale - for
// example LeaveValue is wrong after a salary change even when the day
// count is current. Consumers that need the true balance use the live
// recomputation in accrual.go.
type LeaveBalance struct {
	ID                      string
	EmployeeID              string
	AnnualEntitledDays      decimal.Decimal
	AnnualUsedDays          decimal.Decimal
	CalculatedRemainingDays decimal.Decimal
	LeaveValue              decimal.Decimal
	LastCalculatedAt        time.Time
}

// =============================================================================
// DEDUCTION
// =============================================================================

type DeductionType string

const (
	DeductionLoan        DeductionType = "LOAN"
	DeductionPenalty     DeductionType = "PENALTY"
	DeductionAdvance     DeductionType = "ADVANCE"
	DeductionOther       DeductionType = "OTHER"
	DeductionVacationEOS DeductionType = "VACATION_EOS_BALANCE"
)

type DeductionStatus string

const (
	DeductionPending   DeductionStatus = "PENDING"
	DeductionCompleted DeductionStatus = "COMPLETED"
	DeductionCancelled DeductionStatus = "CANCELLED"
)

// Deduction is a user-managed monetary deduction. Only PENDING rows
// participate in entitlement netting; Type is descriptive metadata and
// does not change netting treatment.
type Deduction struct {
	ID          string
	EmployeeID  string
	Type        DeductionType
	Amount      decimal.Decimal
	Date        time.Time
	Status      DeductionStatus
	Description string
	Notes       string
}

// =============================================================================
// RESULT - Transient per-employee entitlement record
// =============================================================================

// Result is the output of a full entitlement calculation for one employee.
// It is never persisted: it depends on the as-of date and on live state,
// so it is recomputed on every request.
type Result struct {
	EmployeeID     string
	EmployeeNumber string
	FullName       string
	Branch         string
	Department     string
	Classification string
	JobTitle       string

	HireDate time.Time
	EndDate  *time.Time

	ServiceYears float64

	BasicSalary decimal.Decimal
	TotalSalary decimal.Decimal

	GrossEOS         decimal.Decimal
	EntitlementRatio decimal.Decimal
	NetEOS           decimal.Decimal

	LeaveBalanceDays  decimal.Decimal // unclamped; negative means leave taken beyond entitlement
	LeaveCompensation decimal.Decimal
	LeaveDeductions   decimal.Decimal
	OtherDeductions   decimal.Decimal
	TotalDeductions   decimal.Decimal
	FinalPayable      decimal.Decimal // may be negative: employee owes money

	TerminationType TerminationType
	IsActive        bool

	// Warnings carries non-fatal data-integrity flags (negative service
	// years, stale cache divergence). Computation proceeds regardless.
	Warnings []DataIntegrityWarning
}

// round2 is the boundary rounding rule: monetary and day values are
// reported at two decimal places, full precision is kept internally.
func round2(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// Rounded returns a copy of the result with every numeric field rounded
// to two decimal places. Call this only when producing the final record.
func (r Result) Rounded() Result {
	out := r
	out.BasicSalary = round2(r.BasicSalary)
	out.TotalSalary = round2(r.TotalSalary)
	out.GrossEOS = round2(r.GrossEOS)
	out.EntitlementRatio = round2(r.EntitlementRatio)
	out.NetEOS = round2(r.NetEOS)
	out.LeaveBalanceDays = round2(r.LeaveBalanceDays)
	out.LeaveCompensation = round2(r.LeaveCompensation)
	out.LeaveDeductions = round2(r.LeaveDeductions)
	out.OtherDeductions = round2(r.OtherDeductions)
	out.TotalDeductions = round2(r.TotalDeductions)
	out.FinalPayable = round2(r.FinalPayable)
	return out
}
