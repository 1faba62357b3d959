/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for the HTTP boundary. They decouple the internal
  domain model from the external contract, and they are where the
  2-decimal rounding convention is applied: the engine computes at full
  precision, these records report money and day counts at two places.

NAMING CONVENTION:
  - *DTO: response types returned to clients
  - *Request: request body types from clients
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sanad/entitlement-engine/entitlement"
	"github.com/sanad/entitlement-engine/leave"
	"github.com/sanad/entitlement-engine/report"
)

const dateLayout = "2006-01-02"

// =============================================================================
// EMPLOYEES
// =============================================================================

type EmployeeDTO struct {
	ID                 string  `json:"id"`
	EmployeeNumber     string  `json:"employee_number,omitempty"`
	FullName           string  `json:"full_name"`
	CompanyID          string  `json:"company_id,omitempty"`
	HireDate           string  `json:"hire_date"`
	EndDate            *string `json:"end_date,omitempty"`
	TerminationType    string  `json:"termination_type,omitempty"`
	BasicSalary        string  `json:"basic_salary"`
	HousingAllowance   string  `json:"housing_allowance"`
	TransportAllowance string  `json:"transport_allowance"`
	OtherAllowances    string  `json:"other_allowances"`
	TotalSalary        string  `json:"total_salary"`
	Branch             string  `json:"branch,omitempty"`
	Department         string  `json:"department,omitempty"`
	JobTitle           string  `json:"job_title,omitempty"`
	Classification     string  `json:"classification,omitempty"`
	IsActive           bool    `json:"is_active"`
}

type EmployeeRequest struct {
	ID                 string  `json:"id"`
	EmployeeNumber     string  `json:"employee_number"`
	FullName           string  `json:"full_name"`
	CompanyID          string  `json:"company_id"`
	HireDate           string  `json:"hire_date"`
	EndDate            *string `json:"end_date"`
	TerminationType    string  `json:"termination_type"`
	BasicSalary        string  `json:"basic_salary"`
	HousingAllowance   string  `json:"housing_allowance"`
	TransportAllowance string  `json:"transport_allowance"`
	OtherAllowances    string  `json:"other_allowances"`
	Branch             string  `json:"branch"`
	Department         string  `json:"department"`
	JobTitle           string  `json:"job_title"`
	Classification     string  `json:"classification"`
}

func employeeDTO(e *entitlement.Employee) EmployeeDTO {
	dto := EmployeeDTO{
		ID:                 e.ID,
		EmployeeNumber:     e.EmployeeNumber,
		FullName:           e.FullName,
		CompanyID:          e.CompanyID,
		HireDate:           e.HireDate.Format(dateLayout),
		TerminationType:    string(e.TerminationType),
		BasicSalary:        e.BasicSalary.StringFixed(2),
		HousingAllowance:   e.HousingAllowance.StringFixed(2),
		TransportAllowance: e.TransportAllowance.StringFixed(2),
		OtherAllowances:    e.OtherAllowances.StringFixed(2),
		TotalSalary:        e.TotalSalary.StringFixed(2),
		Branch:             e.Branch,
		Department:         e.Department,
		JobTitle:           e.JobTitle,
		Classification:     e.Classification,
		IsActive:           e.IsActive(),
	}
	if e.EndDate != nil {
		s := e.EndDate.Format(dateLayout)
		dto.EndDate = &s
	}
	return dto
}

// =============================================================================
// CALCULATIONS
// =============================================================================

// EOSResultDTO mirrors the single-employee EOS calculation record.
type EOSResultDTO struct {
	EmployeeID        string  `json:"employee_id"`
	FullName          string  `json:"full_name"`
	ServiceYears      string  `json:"service_years"`
	GrossEOS          string  `json:"gross_eos"`
	EntitlementRatio  string  `json:"entitlement_ratio"`
	NetEOS            string  `json:"net_eos"`
	LeaveBalanceDays  string  `json:"leave_balance_days"`
	LeaveCompensation string  `json:"leave_compensation"`
	LeaveDeductions   string  `json:"leave_deductions"`
	OtherDeductions   string  `json:"other_deductions"`
	TotalDeductions   string  `json:"total_deductions"`
	FinalPayable      string  `json:"final_payable"`
	TerminationType   string  `json:"termination_type,omitempty"`
	IsActive          bool    `json:"is_active"`
	Warnings          []string `json:"warnings,omitempty"`
}

func eosResultDTO(r entitlement.Result) EOSResultDTO {
	rr := r.Rounded()
	return EOSResultDTO{
		EmployeeID:        rr.EmployeeID,
		FullName:          rr.FullName,
		ServiceYears:      decimal.NewFromFloat(rr.ServiceYears).Round(2).StringFixed(2),
		GrossEOS:          rr.GrossEOS.StringFixed(2),
		EntitlementRatio:  rr.EntitlementRatio.StringFixed(2),
		NetEOS:            rr.NetEOS.StringFixed(2),
		LeaveBalanceDays:  rr.LeaveBalanceDays.StringFixed(2),
		LeaveCompensation: rr.LeaveCompensation.StringFixed(2),
		LeaveDeductions:   rr.LeaveDeductions.StringFixed(2),
		OtherDeductions:   rr.OtherDeductions.StringFixed(2),
		TotalDeductions:   rr.TotalDeductions.StringFixed(2),
		FinalPayable:      rr.FinalPayable.StringFixed(2),
		TerminationType:   string(rr.TerminationType),
		IsActive:          rr.IsActive,
		Warnings:          warningCodes(rr.Warnings),
	}
}

// warningCodes flattens integrity warnings to their codes for the wire;
// the full detail stays server-side.
func warningCodes(ws []entitlement.DataIntegrityWarning) []string {
	if len(ws) == 0 {
		return nil
	}
	codes := make([]string, len(ws))
	for i, w := range ws {
		codes[i] = w.Code
	}
	return codes
}

// VacationPayDTO is the leave encashment quote.
type VacationPayDTO struct {
	EmployeeName string `json:"employee_name"`
	TotalSalary  string `json:"total_salary"`
	DailyWage    string `json:"daily_wage"`
	LeaveDays    string `json:"leave_days"`
	TotalAmount  string `json:"total_amount"`
	IsManual     bool   `json:"is_manual"`
}

func vacationPayDTO(v *entitlement.VacationPay) VacationPayDTO {
	return VacationPayDTO{
		EmployeeName: v.EmployeeName,
		TotalSalary:  v.TotalSalary.Round(2).StringFixed(2),
		DailyWage:    v.DailyWage.Round(2).StringFixed(2),
		LeaveDays:    v.LeaveDays.Round(2).StringFixed(2),
		TotalAmount:  v.TotalAmount.Round(2).StringFixed(2),
		IsManual:     v.IsManual,
	}
}

// =============================================================================
// AGGREGATED REPORT
// =============================================================================

type SummaryDTO struct {
	TotalEmployees           int    `json:"total_employees"`
	TotalActiveEmployees     int    `json:"total_active_employees"`
	TotalTerminatedEmployees int    `json:"total_terminated_employees"`
	TotalGrossEOS            string `json:"total_gross_eos"`
	TotalNetEOS              string `json:"total_net_eos"`
	TotalLeaveCompensation   string `json:"total_leave_compensation"`
	TotalLeaveDeductions     string `json:"total_leave_deductions"`
	TotalOtherDeductions     string `json:"total_other_deductions"`
	TotalDeductions          string `json:"total_deductions"`
	TotalFinalPayable        string `json:"total_final_payable"`
	AverageServiceYears      string `json:"average_service_years"`
}

type GroupTotalDTO struct {
	Key                    string `json:"key"`
	EmployeeCount          int    `json:"employee_count"`
	TotalEntitlements      string `json:"total_entitlements"`
	TotalLeaveCompensation string `json:"total_leave_compensation"`
}

type SkippedDTO struct {
	EmployeeID string `json:"employee_id"`
	FullName   string `json:"full_name"`
	Reason     string `json:"reason"`
}

type AggregatedReportDTO struct {
	Summary                 SummaryDTO      `json:"summary"`
	Employees               []EOSResultDTO  `json:"employees"`
	BranchBreakdown         []GroupTotalDTO `json:"branch_breakdown"`
	JobTitleBreakdown       []GroupTotalDTO `json:"job_title_breakdown"`
	DepartmentBreakdown     []GroupTotalDTO `json:"department_breakdown"`
	ClassificationBreakdown []GroupTotalDTO `json:"classification_breakdown"`
	Skipped                 []SkippedDTO    `json:"skipped,omitempty"`
	AsOf                    string          `json:"as_of"`
}

func aggregatedReportDTO(rep *report.Report) AggregatedReportDTO {
	dto := AggregatedReportDTO{
		Summary: SummaryDTO{
			TotalEmployees:           rep.Summary.TotalEmployees,
			TotalActiveEmployees:     rep.Summary.TotalActiveEmployees,
			TotalTerminatedEmployees: rep.Summary.TotalTerminatedEmployees,
			TotalGrossEOS:            rep.Summary.TotalGrossEOS.StringFixed(2),
			TotalNetEOS:              rep.Summary.TotalNetEOS.StringFixed(2),
			TotalLeaveCompensation:   rep.Summary.TotalLeaveCompensation.StringFixed(2),
			TotalLeaveDeductions:     rep.Summary.TotalLeaveDeductions.StringFixed(2),
			TotalOtherDeductions:     rep.Summary.TotalOtherDeductions.StringFixed(2),
			TotalDeductions:          rep.Summary.TotalDeductions.StringFixed(2),
			TotalFinalPayable:        rep.Summary.TotalFinalPayable.StringFixed(2),
			AverageServiceYears:      decimal.NewFromFloat(rep.Summary.AverageServiceYears).Round(2).StringFixed(2),
		},
		AsOf: rep.AsOf.Format(dateLayout),
	}
	for _, r := range rep.Employees {
		dto.Employees = append(dto.Employees, eosResultDTO(r))
	}
	dto.BranchBreakdown = groupTotalDTOs(rep.BranchBreakdown)
	dto.JobTitleBreakdown = groupTotalDTOs(rep.JobTitleBreakdown)
	dto.DepartmentBreakdown = groupTotalDTOs(rep.DepartmentBreakdown)
	dto.ClassificationBreakdown = groupTotalDTOs(rep.ClassificationBreakdown)
	for _, sk := range rep.Skipped {
		dto.Skipped = append(dto.Skipped, SkippedDTO(sk))
	}
	return dto
}

func groupTotalDTOs(rows []report.GroupTotal) []GroupTotalDTO {
	out := make([]GroupTotalDTO, len(rows))
	for i, row := range rows {
		out[i] = GroupTotalDTO{
			Key:                    row.Key,
			EmployeeCount:          row.EmployeeCount,
			TotalEntitlements:      row.TotalEntitlements.StringFixed(2),
			TotalLeaveCompensation: row.TotalLeaveCompensation.StringFixed(2),
		}
	}
	return out
}

// =============================================================================
// LEAVE
// =============================================================================

type LeaveBalanceDTO struct {
	EmployeeID              string   `json:"employee_id"`
	EmployeeName            string   `json:"employee_name"`
	Branch                  string   `json:"branch,omitempty"`
	JobTitle                string   `json:"job_title,omitempty"`
	HireDate                string   `json:"hire_date"`
	ServiceYears            string   `json:"service_years"`
	AnnualEntitledDays      int      `json:"annual_entitled_days"`
	AnnualUsedDays          string   `json:"annual_used_days"`
	CalculatedRemainingDays string   `json:"calculated_remaining_days"`
	LeaveValue              string   `json:"leave_value"`
	LastCalculatedAt        string   `json:"last_calculated_at"`
	Warnings                []string `json:"warnings,omitempty"`
}

func leaveBalanceDTO(v leave.BalanceView) LeaveBalanceDTO {
	return LeaveBalanceDTO{
		EmployeeID:              v.EmployeeID,
		EmployeeName:            v.EmployeeName,
		Branch:                  v.Branch,
		JobTitle:                v.JobTitle,
		HireDate:                v.HireDate.Format(dateLayout),
		ServiceYears:            decimal.NewFromFloat(v.ServiceYears).Round(2).StringFixed(2),
		AnnualEntitledDays:      v.AnnualEntitledDays,
		AnnualUsedDays:          v.AnnualUsedDays.Round(2).StringFixed(2),
		CalculatedRemainingDays: v.CalculatedRemainingDays.Round(2).StringFixed(2),
		LeaveValue:              v.LeaveValue.Round(2).StringFixed(2),
		LastCalculatedAt:        v.LastCalculatedAt.Format(time.RFC3339),
		Warnings:                warningCodes(v.Warnings),
	}
}

type AdjustLeaveRequest struct {
	EmployeeID string `json:"employee_id"`
	Days       string `json:"days"`
	Reason     string `json:"reason"`
}

type AdjustLeaveDTO struct {
	TransactionID string `json:"transaction_id"`
	RemainingDays string `json:"remaining_days"`
	LeaveValue    string `json:"leave_value"`
}

type RecalculateDTO struct {
	AnnualEntitledDays int    `json:"annual_entitled_days"`
	RemainingDays      string `json:"remaining_days"`
	UsedDays           string `json:"used_days"`
	LeaveValue         string `json:"leave_value"`
}

// =============================================================================
// DEDUCTIONS
// =============================================================================

type DeductionDTO struct {
	ID          string `json:"id"`
	EmployeeID  string `json:"employee_id"`
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

type DeductionRequest struct {
	EmployeeID  string `json:"employee_id"`
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Status      string `json:"status"`
	Description string `json:"description"`
	Notes       string `json:"notes"`
}

func deductionDTO(d entitlement.Deduction) DeductionDTO {
	return DeductionDTO{
		ID:          d.ID,
		EmployeeID:  d.EmployeeID,
		Type:        string(d.Type),
		Amount:      d.Amount.StringFixed(2),
		Date:        d.Date.Format(dateLayout),
		Status:      string(d.Status),
		Description: d.Description,
		Notes:       d.Notes,
	}
}
