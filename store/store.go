/*
Package store defines the persistence interfaces between the entitlement
engine and its data-access collaborator.

PURPOSE:
  The engine itself never touches storage; it consumes plain records. The
  leave mutation service and the report projector, however, need a store
  that can supply employee profiles, the full ordered leave transaction
  ledger, pending deductions, and the cached balance row.

APPEND-ONLY LEDGER CONTRACT:
  Leave transactions are append-only. There is no update or delete for
  them anywhere in this interface; corrections are appended as new rows.
  The balance cache row, by contrast, is an upsertable snapshot.

ATOMIC MUTATION:
  CommitLeaveMutation is the single write path for balance-affecting
  operations: it appends the transaction rows AND writes the new cache
  row in one atomic unit. Either both land or neither does, so the store
  can never hold a dangling transaction next to a stale balance.

IMPLEMENTATIONS:
  - store/sqlite:  production SQLite store
  - store/memory:  in-memory store for tests and dev
*/
package store

import (
	"context"
	"errors"
	"time"

	"github.com/sanad/entitlement-engine/entitlement"
)

// ErrDeductionNotFound is returned when a deduction id does not exist.
var ErrDeductionNotFound = errors.New("deduction not found")

// EmployeeFilter narrows employee listing. Zero values mean "no filter".
type EmployeeFilter struct {
	CompanyID      string
	Branch         string
	JobTitle       string
	Department     string
	Classification string

	// ActiveOnly / TerminatedOnly are mutually exclusive; both false
	// means all employees.
	ActiveOnly     bool
	TerminatedOnly bool

	// HiredOnOrBefore keeps employees hired on or before the given date
	// (the fiscal-year-end filter). Nil disables it.
	HiredOnOrBefore *time.Time
}

// DeductionFilter narrows deduction listing.
type DeductionFilter struct {
	EmployeeID string
	Status     entitlement.DeductionStatus
	Type       entitlement.DeductionType
}

// LeaveMutation is one atomic balance-affecting write: the appended
// ledger rows plus the reconciled cache row.
type LeaveMutation struct {
	EmployeeID   string
	Transactions []entitlement.LeaveTransaction
	Balance      entitlement.LeaveBalance
}

// Reader is the read side consumed by the engine's callers.
type Reader interface {
	// GetEmployee returns entitlement.ErrEmployeeNotFound for unknown ids.
	GetEmployee(ctx context.Context, id string) (*entitlement.Employee, error)

	// ListEmployees returns employees matching the filter, ordered by
	// full name.
	ListEmployees(ctx context.Context, f EmployeeFilter) ([]entitlement.Employee, error)

	// LeaveTransactions returns the full ledger for an employee in
	// creation order.
	LeaveTransactions(ctx context.Context, employeeID string) ([]entitlement.LeaveTransaction, error)

	// Deductions returns deductions matching the filter, newest first.
	Deductions(ctx context.Context, f DeductionFilter) ([]entitlement.Deduction, error)

	// LeaveBalance returns the cached balance row, or nil when none has
	// been created yet.
	LeaveBalance(ctx context.Context, employeeID string) (*entitlement.LeaveBalance, error)
}

// Store is the full persistence surface.
type Store interface {
	Reader

	CreateEmployee(ctx context.Context, e *entitlement.Employee) error
	UpdateEmployee(ctx context.Context, e *entitlement.Employee) error

	CreateDeduction(ctx context.Context, d *entitlement.Deduction) error
	UpdateDeduction(ctx context.Context, d *entitlement.Deduction) error
	DeleteDeduction(ctx context.Context, id string) error

	// CommitLeaveMutation atomically appends ledger rows and upserts the
	// balance cache. All-or-nothing on any error.
	CommitLeaveMutation(ctx context.Context, m LeaveMutation) error
}
