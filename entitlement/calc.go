/*
calc.go - Full per-employee entitlement assembly

PURPOSE:
  Chains the calculators into one employee's entitlement record:

    service years -> leave accrual -> gratuity -> netting -> Result

TWO MODES, DELIBERATELY DISTINCT:
  Strict (Calculate): requires an actual end date; used when settling a
  real separation. Missing end date is a validation error.

  Projected (Project): for liability reporting. Active employees get a
  hypothetical end at the as-of date and their recorded termination type
  (usually unset, hence full ratio) feeds the table. The two modes must
  not be unified: one answers "what do we owe this leaver", the other
  "what would we owe everyone as of this date".

  Both modes recompute the leave balance live from the ledger. The cached
  LeaveBalance row is never consulted here - correctness paths always
  prefer recomputation.
*/
package entitlement

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Inputs bundles everything the engine needs for one employee. The
// data-access collaborator supplies it; the engine never touches storage.
type Inputs struct {
	Employee     Employee
	Transactions []LeaveTransaction
	Deductions   []Deduction
}

// Calculate runs the strict single-employee calculation. The employee
// must have an end date; override, when non-nil, replaces the recorded
// termination type for the ratio table.
//
// The result retains full precision; call Result.Rounded() at the
// reporting boundary.
func Calculate(in Inputs, override *TerminationType, asOf time.Time) (*Result, error) {
	if in.Employee.EndDate == nil {
		return nil, ErrMissingEndDate
	}
	termType := in.Employee.TerminationType
	if override != nil {
		termType = *override
	}
	return compute(in, termType, asOf)
}

// Project runs the liability projection: employees without an end date
// are computed as if separated at asOf, under their recorded termination
// type. Used by the aggregated report.
func Project(in Inputs, asOf time.Time) (*Result, error) {
	return compute(in, in.Employee.TerminationType, asOf)
}

func compute(in Inputs, termType TerminationType, asOf time.Time) (*Result, error) {
	emp := in.Employee

	years, err := ServiceYears(emp.HireDate, emp.EndDate, asOf)
	if err != nil {
		return nil, err
	}

	var warnings []DataIntegrityWarning
	if years < 0 {
		// Kept as a flag, not an abort: the reference system lets inverted
		// dates flow through as negative figures and surfaces them.
		warnings = append(warnings, DataIntegrityWarning{
			EmployeeID: emp.ID,
			Code:       "negative_service_years",
			Detail:     fmt.Sprintf("end date precedes hire date: %.4f years", years),
			ObservedAt: asOf,
		})
	}

	acc := Accrue(years, in.Transactions)
	grat := ComputeGratuity(emp.BasicSalary, years, termType)
	net := Net(grat.NetEOS, acc, emp.TotalSalary, in.Deductions)

	return &Result{
		EmployeeID:     emp.ID,
		EmployeeNumber: emp.EmployeeNumber,
		FullName:       emp.FullName,
		Branch:         emp.Branch,
		Department:     emp.Department,
		Classification: emp.Classification,
		JobTitle:       emp.JobTitle,
		HireDate:       emp.HireDate,
		EndDate:        emp.EndDate,

		ServiceYears: years,

		BasicSalary: emp.BasicSalary,
		TotalSalary: emp.TotalSalary,

		GrossEOS:         grat.GrossEOS,
		EntitlementRatio: grat.EntitlementRatio,
		NetEOS:           grat.NetEOS,

		LeaveBalanceDays:  acc.RemainingDays,
		LeaveCompensation: net.LeaveCompensation,
		LeaveDeductions:   net.LeaveDeductions,
		OtherDeductions:   net.OtherDeductions,
		TotalDeductions:   net.TotalDeductions,
		FinalPayable:      net.FinalPayable,

		TerminationType: termType,
		IsActive:        emp.IsActive(),
		Warnings:        warnings,
	}, nil
}

// =============================================================================
// VACATION VALUATION
// =============================================================================

// VacationPay is the leave encashment quote for one employee.
type VacationPay struct {
	EmployeeName string
	TotalSalary  decimal.Decimal
	DailyWage    decimal.Decimal
	LeaveDays    decimal.Decimal
	TotalAmount  decimal.Decimal
	IsManual     bool
}

// ValueVacation prices leave days at the current daily wage. manualDays,
// when non-nil, overrides the live remaining balance (used when HR agrees
// a specific day count with the employee).
func ValueVacation(emp Employee, txs []LeaveTransaction, manualDays *decimal.Decimal, asOf time.Time) (*VacationPay, error) {
	wage := DailyWage(emp.TotalSalary)

	var days decimal.Decimal
	manual := false
	if manualDays != nil {
		days = *manualDays
		manual = true
	} else {
		years, err := ServiceYears(emp.HireDate, emp.EndDate, asOf)
		if err != nil {
			return nil, err
		}
		days = Accrue(years, txs).RemainingDays
	}

	return &VacationPay{
		EmployeeName: emp.FullName,
		TotalSalary:  emp.TotalSalary,
		DailyWage:    wage,
		LeaveDays:    days,
		TotalAmount:  wage.Mul(days),
		IsManual:     manual,
	}, nil
}
