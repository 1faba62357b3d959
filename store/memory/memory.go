// Package memory provides an in-memory Store implementation for tests
// and development. It mirrors the SQLite store's semantics, including
// atomic leave mutations and sorted listings.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/sanad/entitlement-engine/entitlement"
	"github.com/sanad/entitlement-engine/store"
)

type Memory struct {
	mu         sync.RWMutex
	employees  map[string]entitlement.Employee
	ledger     map[string][]entitlement.LeaveTransaction // employeeID -> rows, append order
	balances   map[string]entitlement.LeaveBalance
	deductions map[string]entitlement.Deduction
}

func New() *Memory {
	return &Memory{
		employees:  make(map[string]entitlement.Employee),
		ledger:     make(map[string][]entitlement.LeaveTransaction),
		balances:   make(map[string]entitlement.LeaveBalance),
		deductions: make(map[string]entitlement.Deduction),
	}
}

var _ store.Store = (*Memory)(nil)

// =============================================================================
// EMPLOYEES
// =============================================================================

func (m *Memory) GetEmployee(_ context.Context, id string) (*entitlement.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.employees[id]
	if !ok {
		return nil, entitlement.ErrEmployeeNotFound
	}
	return &e, nil
}

func (m *Memory) ListEmployees(_ context.Context, f store.EmployeeFilter) ([]entitlement.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []entitlement.Employee
	for _, e := range m.employees {
		if matches(e, f) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func matches(e entitlement.Employee, f store.EmployeeFilter) bool {
	if f.CompanyID != "" && e.CompanyID != f.CompanyID {
		return false
	}
	if f.Branch != "" && e.Branch != f.Branch {
		return false
	}
	if f.JobTitle != "" && e.JobTitle != f.JobTitle {
		return false
	}
	if f.Department != "" && e.Department != f.Department {
		return false
	}
	if f.Classification != "" && e.Classification != f.Classification {
		return false
	}
	if f.ActiveOnly && e.EndDate != nil {
		return false
	}
	if f.TerminatedOnly && e.EndDate == nil {
		return false
	}
	if f.HiredOnOrBefore != nil && e.HireDate.After(*f.HiredOnOrBefore) {
		return false
	}
	return true
}

func (m *Memory) CreateEmployee(_ context.Context, e *entitlement.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e.RecomputeTotalSalary()
	m.employees[e.ID] = *e
	return nil
}

func (m *Memory) UpdateEmployee(_ context.Context, e *entitlement.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.employees[e.ID]; !ok {
		return entitlement.ErrEmployeeNotFound
	}
	e.RecomputeTotalSalary()
	m.employees[e.ID] = *e
	return nil
}

// =============================================================================
// LEAVE LEDGER + BALANCE CACHE
// =============================================================================

func (m *Memory) LeaveTransactions(_ context.Context, employeeID string) ([]entitlement.LeaveTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := m.ledger[employeeID]
	out := make([]entitlement.LeaveTransaction, len(rows))
	copy(out, rows)
	return out, nil
}

func (m *Memory) LeaveBalance(_ context.Context, employeeID string) (*entitlement.LeaveBalance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.balances[employeeID]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (m *Memory) CommitLeaveMutation(_ context.Context, mut store.LeaveMutation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.employees[mut.EmployeeID]; !ok {
		return entitlement.ErrEmployeeNotFound
	}
	m.ledger[mut.EmployeeID] = append(m.ledger[mut.EmployeeID], mut.Transactions...)
	m.balances[mut.EmployeeID] = mut.Balance
	return nil
}

// =============================================================================
// DEDUCTIONS
// =============================================================================

func (m *Memory) Deductions(_ context.Context, f store.DeductionFilter) ([]entitlement.Deduction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []entitlement.Deduction
	for _, d := range m.deductions {
		if f.EmployeeID != "" && d.EmployeeID != f.EmployeeID {
			continue
		}
		if f.Status != "" && d.Status != f.Status {
			continue
		}
		if f.Type != "" && d.Type != f.Type {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (m *Memory) CreateDeduction(_ context.Context, d *entitlement.Deduction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.employees[d.EmployeeID]; !ok {
		return entitlement.ErrEmployeeNotFound
	}
	m.deductions[d.ID] = *d
	return nil
}

func (m *Memory) UpdateDeduction(_ context.Context, d *entitlement.Deduction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.deductions[d.ID]; !ok {
		return store.ErrDeductionNotFound
	}
	m.deductions[d.ID] = *d
	return nil
}

func (m *Memory) DeleteDeduction(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.deductions[id]; !ok {
		return store.ErrDeductionNotFound
	}
	delete(m.deductions, id)
	return nil
}
