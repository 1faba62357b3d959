/*
handlers.go - HTTP handlers

PURPOSE:
  Thin boundary over the engine. Each handler:
  1. Parses and validates input
  2. Resolves "now" (the only place the wall clock enters a calculation)
  3. Calls the engine / leave service / projector
  4. Serializes the rounded record

ERROR HANDLING:
  - 400: validation errors (invalid dates, missing end date, bad bodies)
  - 404: unknown employee / deduction
  - 409: concurrent balance mutation conflicts (retriable)
  - 500: everything else
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sanad/entitlement-engine/entitlement"
	"github.com/sanad/entitlement-engine/leave"
	"github.com/sanad/entitlement-engine/report"
	"github.com/sanad/entitlement-engine/store"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     store.Store
	Leave     *leave.Service
	Projector *report.Projector

	// now is the boundary clock; calculations below this layer take
	// explicit as-of dates.
	now func() time.Time
}

// NewHandler wires a handler over the given store.
func NewHandler(st store.Store) *Handler {
	return &Handler{
		Store:     st,
		Leave:     leave.NewService(st),
		Projector: &report.Projector{Store: st},
		now:       time.Now,
	}
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	f := store.EmployeeFilter{
		CompanyID:      r.URL.Query().Get("company_id"),
		Branch:         r.URL.Query().Get("branch"),
		Department:     r.URL.Query().Get("department"),
		Classification: r.URL.Query().Get("classification"),
	}
	employees, err := h.Store.ListEmployees(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i := range employees {
		dtos[i] = employeeDTO(&employees[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Store.GetEmployee(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, employeeDTO(emp))
}

func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	emp, ok := h.decodeEmployee(w, r, "")
	if !ok {
		return
	}
	if emp.ID == "" {
		emp.ID = uuid.NewString()
	}
	if err := h.Store.CreateEmployee(r.Context(), emp); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, employeeDTO(emp))
}

func (h *Handler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	emp, ok := h.decodeEmployee(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if err := h.Store.UpdateEmployee(r.Context(), emp); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, employeeDTO(emp))
}

// decodeEmployee parses an employee body and rebuilds the derived total.
func (h *Handler) decodeEmployee(w http.ResponseWriter, r *http.Request, id string) (*entitlement.Employee, bool) {
	var req EmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return nil, false
	}

	hireDate, err := parseDate(req.HireDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid hire_date", err)
		return nil, false
	}

	emp := &entitlement.Employee{
		ID:              id,
		EmployeeNumber:  req.EmployeeNumber,
		FullName:        req.FullName,
		CompanyID:       req.CompanyID,
		HireDate:        hireDate,
		TerminationType: entitlement.ParseTerminationType(req.TerminationType),
		Branch:          req.Branch,
		Department:      req.Department,
		JobTitle:        req.JobTitle,
		Classification:  req.Classification,
	}
	if id == "" {
		emp.ID = req.ID
	}
	if req.EndDate != nil && *req.EndDate != "" {
		end, err := parseDate(*req.EndDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid end_date", err)
			return nil, false
		}
		emp.EndDate = &end
	}

	for _, field := range []struct {
		name  string
		raw   string
		value *decimal.Decimal
	}{
		{"basic_salary", req.BasicSalary, &emp.BasicSalary},
		{"housing_allowance", req.HousingAllowance, &emp.HousingAllowance},
		{"transport_allowance", req.TransportAllowance, &emp.TransportAllowance},
		{"other_allowances", req.OtherAllowances, &emp.OtherAllowances},
	} {
		if field.raw == "" {
			continue
		}
		d, err := decimal.NewFromString(field.raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid "+field.name, err)
			return nil, false
		}
		*field.value = d
	}

	// TotalSalary is derived, never taken from the request.
	emp.RecomputeTotalSalary()
	return emp, true
}

// =============================================================================
// CALCULATION HANDLERS
// =============================================================================

// CalculateEOS runs the strict single-employee calculation.
// GET /api/calculations/eos/{id}?termination_type=RESIGNATION
func (h *Handler) CalculateEOS(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	emp, err := h.Store.GetEmployee(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	txs, err := h.Store.LeaveTransactions(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load leave ledger", err)
		return
	}
	deds, err := h.Store.Deductions(r.Context(), store.DeductionFilter{
		EmployeeID: id,
		Status:     entitlement.DeductionPending,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load deductions", err)
		return
	}

	var override *entitlement.TerminationType
	if raw := r.URL.Query().Get("termination_type"); raw != "" {
		t := entitlement.ParseTerminationType(raw)
		override = &t
	}

	result, err := entitlement.Calculate(entitlement.Inputs{
		Employee:     *emp,
		Transactions: txs,
		Deductions:   deds,
	}, override, h.now())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, eosResultDTO(*result))
}

// CalculateVacation prices leave days at the current daily wage.
// GET /api/calculations/vacation/{id}?days=12.5
func (h *Handler) CalculateVacation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	emp, err := h.Store.GetEmployee(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	txs, err := h.Store.LeaveTransactions(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load leave ledger", err)
		return
	}

	var manualDays *decimal.Decimal
	if raw := r.URL.Query().Get("days"); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid days", err)
			return
		}
		manualDays = &d
	}

	pay, err := entitlement.ValueVacation(*emp, txs, manualDays, h.now())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vacationPayDTO(pay))
}

// AggregatedEntitlements runs the projected report over the filter set.
// GET /api/calculations/aggregated?branch=...&status=ACTIVE&fiscal_year_end=2025-12-31
func (h *Handler) AggregatedEntitlements(w http.ResponseWriter, r *http.Request) {
	f, err := h.parseReportFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}

	rep, err := h.Projector.Aggregate(r.Context(), f, h.now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to aggregate entitlements", err)
		return
	}
	writeJSON(w, http.StatusOK, aggregatedReportDTO(rep))
}

// AggregatedEntitlementsPDF renders the same report as a PDF document.
func (h *Handler) AggregatedEntitlementsPDF(w http.ResponseWriter, r *http.Request) {
	f, err := h.parseReportFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}

	rep, err := h.Projector.Aggregate(r.Context(), f, h.now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to aggregate entitlements", err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="entitlements.pdf"`)
	if err := report.WritePDF(rep, w); err != nil {
		// Headers are already written; nothing sane left to report.
		return
	}
}

func (h *Handler) parseReportFilter(r *http.Request) (report.Filter, error) {
	q := r.URL.Query()
	f := report.Filter{
		CompanyID:      q.Get("company_id"),
		Branch:         q.Get("branch"),
		JobTitle:       q.Get("job_title"),
		Department:     q.Get("department"),
		Classification: q.Get("classification"),
		Status:         report.StatusAll,
	}
	switch q.Get("status") {
	case "", string(report.StatusAll):
	case string(report.StatusActive):
		f.Status = report.StatusActive
	case string(report.StatusTerminated):
		f.Status = report.StatusTerminated
	default:
		return f, errors.New("status must be ACTIVE, TERMINATED or ALL")
	}
	if raw := q.Get("fiscal_year_end"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			return f, err
		}
		f.FiscalYearEnd = &t
	}
	return f, nil
}

// =============================================================================
// LEAVE HANDLERS
// =============================================================================

// ListLeaveBalances returns the live leave position of active employees.
// GET /api/leave/balances?company_id=...
func (h *Handler) ListLeaveBalances(w http.ResponseWriter, r *http.Request) {
	views, err := h.Leave.Balances(r.Context(), r.URL.Query().Get("company_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]LeaveBalanceDTO, len(views))
	for i, v := range views {
		dtos[i] = leaveBalanceDTO(v)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// AdjustLeaveBalance appends an adjustment/usage row for one employee.
// POST /api/leave/adjust
func (h *Handler) AdjustLeaveBalance(w http.ResponseWriter, r *http.Request) {
	var req AdjustLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	days, err := decimal.NewFromString(req.Days)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid days", err)
		return
	}
	if days.IsZero() {
		writeError(w, http.StatusBadRequest, "days must be non-zero", nil)
		return
	}

	// Actor identity comes from the auth layer once one exists; the
	// ledger column is kept so history stays attributable.
	res, err := h.Leave.Adjust(r.Context(), req.EmployeeID, days, req.Reason, "admin")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AdjustLeaveDTO{
		TransactionID: res.TransactionID,
		RemainingDays: res.RemainingDays.Round(2).StringFixed(2),
		LeaveValue:    res.LeaveValue.Round(2).StringFixed(2),
	})
}

// RecalculateLeave reconciles the cached balance from the full ledger.
// POST /api/leave/recalculate/{id}
func (h *Handler) RecalculateLeave(w http.ResponseWriter, r *http.Request) {
	res, err := h.Leave.Recalculate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RecalculateDTO{
		AnnualEntitledDays: res.AnnualEntitledDays,
		RemainingDays:      res.RemainingDays.Round(2).StringFixed(2),
		UsedDays:           res.UsedDays.Round(2).StringFixed(2),
		LeaveValue:         res.LeaveValue.Round(2).StringFixed(2),
	})
}

// =============================================================================
// DEDUCTION HANDLERS
// =============================================================================

func (h *Handler) ListDeductions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	deds, err := h.Store.Deductions(r.Context(), store.DeductionFilter{
		EmployeeID: q.Get("employee_id"),
		Status:     entitlement.DeductionStatus(q.Get("status")),
		Type:       entitlement.DeductionType(q.Get("type")),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list deductions", err)
		return
	}
	dtos := make([]DeductionDTO, len(deds))
	for i, d := range deds {
		dtos[i] = deductionDTO(d)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateDeduction(w http.ResponseWriter, r *http.Request) {
	d, ok := h.decodeDeduction(w, r, "")
	if !ok {
		return
	}
	d.ID = uuid.NewString()
	if d.Status == "" {
		d.Status = entitlement.DeductionPending
	}
	if d.Date.IsZero() {
		d.Date = h.now()
	}
	if err := h.Store.CreateDeduction(r.Context(), d); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, deductionDTO(*d))
}

func (h *Handler) UpdateDeduction(w http.ResponseWriter, r *http.Request) {
	d, ok := h.decodeDeduction(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if err := h.Store.UpdateDeduction(r.Context(), d); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deductionDTO(*d))
}

func (h *Handler) DeleteDeduction(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteDeduction(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeDeduction(w http.ResponseWriter, r *http.Request, id string) (*entitlement.Deduction, bool) {
	var req DeductionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return nil, false
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return nil, false
	}

	d := &entitlement.Deduction{
		ID:          id,
		EmployeeID:  req.EmployeeID,
		Type:        entitlement.DeductionType(req.Type),
		Amount:      amount,
		Status:      entitlement.DeductionStatus(req.Status),
		Description: req.Description,
		Notes:       req.Notes,
	}
	if req.Date != "" {
		t, err := parseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date", err)
			return nil, false
		}
		d.Date = t
	}
	return d, true
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := errorResponse{Error: msg}
	if err != nil {
		resp.Detail = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine errors onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case entitlement.IsNotFound(err) || errors.Is(err, store.ErrDeductionNotFound):
		writeError(w, http.StatusNotFound, "Not found", err)
	case entitlement.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Validation failed", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, &entitlement.InvalidDateError{Field: "date", Value: s}
	}
	return t.UTC(), nil
}
