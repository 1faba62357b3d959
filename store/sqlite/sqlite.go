/*
Package sqlite provides the SQLite-backed Store implementation.

PURPOSE:
  Persists employees, the append-only leave transaction ledger, the
  leave balance cache, and deductions. The same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

APPEND-ONLY ENFORCEMENT:
  There are no UPDATE or DELETE statements against leave_transactions.
  Corrections are appended as new rows. The leave_balances table is an
  upsertable cache, one row per employee.

ATOMIC MUTATION:
  CommitLeaveMutation wraps the ledger append and the balance upsert in
  one SQL transaction, so a failure can never leave a dangling ledger
  row next to a stale balance.

WAL MODE:
  The database is opened with WAL so readers don't block during balance
  mutations. A store-level mutex serializes writers; SQLite allows one
  writer at a time anyway.

NUMERIC STORAGE:
  Monetary and day amounts are stored as TEXT and parsed back into
  decimal.Decimal, avoiding REAL-column drift on values like 0.1.

USAGE:
  st, err := sqlite.New("./data/eosb.db")
  if err != nil { ... }
  defer st.Close()
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/sanad/entitlement-engine/entitlement"
	"github.com/sanad/entitlement-engine/store"
)

// Store implements store.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex // serializes writers
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One pooled connection: SQLite allows a single writer, and ":memory:"
	// databases are per-connection.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		employee_number TEXT,
		full_name TEXT NOT NULL,
		company_id TEXT NOT NULL DEFAULT '',
		hire_date TEXT NOT NULL,
		end_date TEXT,
		termination_type TEXT NOT NULL DEFAULT '',
		basic_salary TEXT NOT NULL,
		housing_allowance TEXT NOT NULL,
		transport_allowance TEXT NOT NULL,
		other_allowances TEXT NOT NULL,
		total_salary TEXT NOT NULL,
		branch TEXT,
		department TEXT,
		job_title TEXT,
		classification TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_company
		ON employees(company_id);
	CREATE INDEX IF NOT EXISTS idx_employees_name
		ON employees(full_name);

	-- Append-only leave ledger. No UPDATE, no DELETE.
	CREATE TABLE IF NOT EXISTS leave_transactions (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		tx_type TEXT NOT NULL,
		days TEXT NOT NULL,
		reason TEXT,
		performed_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leave_tx_employee
		ON leave_transactions(employee_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_leave_tx_type
		ON leave_transactions(tx_type);

	-- Balance cache, one row per employee, reconciled on every write.
	CREATE TABLE IF NOT EXISTS leave_balances (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL UNIQUE REFERENCES employees(id),
		annual_entitled_days TEXT NOT NULL,
		annual_used_days TEXT NOT NULL,
		calculated_remaining_days TEXT NOT NULL,
		leave_value TEXT NOT NULL,
		last_calculated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS deductions (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		ded_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		date TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'PENDING',
		description TEXT,
		notes TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_deductions_employee
		ON deductions(employee_id);
	CREATE INDEX IF NOT EXISTS idx_deductions_status
		ON deductions(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

var _ store.Store = (*Store)(nil)

// =============================================================================
// EMPLOYEES
// =============================================================================

const employeeColumns = `id, employee_number, full_name, company_id, hire_date, end_date,
	termination_type, basic_salary, housing_allowance, transport_allowance,
	other_allowances, total_salary, branch, department, job_title, classification`

func (s *Store) GetEmployee(ctx context.Context, id string) (*entitlement.Employee, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE id = ?`, id)

	e, err := scanEmployee(row)
	if err == sql.ErrNoRows {
		return nil, entitlement.ErrEmployeeNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Store) ListEmployees(ctx context.Context, f store.EmployeeFilter) ([]entitlement.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE 1=1`
	var args []any

	if f.CompanyID != "" {
		query += ` AND company_id = ?`
		args = append(args, f.CompanyID)
	}
	if f.Branch != "" {
		query += ` AND branch = ?`
		args = append(args, f.Branch)
	}
	if f.JobTitle != "" {
		query += ` AND job_title = ?`
		args = append(args, f.JobTitle)
	}
	if f.Department != "" {
		query += ` AND department = ?`
		args = append(args, f.Department)
	}
	if f.Classification != "" {
		query += ` AND classification = ?`
		args = append(args, f.Classification)
	}
	if f.ActiveOnly {
		query += ` AND end_date IS NULL`
	}
	if f.TerminatedOnly {
		query += ` AND end_date IS NOT NULL`
	}
	if f.HiredOnOrBefore != nil {
		query += ` AND hire_date <= ?`
		args = append(args, f.HiredOnOrBefore.UTC().Format(time.RFC3339))
	}
	query += ` ORDER BY full_name ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entitlement.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (s *Store) CreateEmployee(ctx context.Context, e *entitlement.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.RecomputeTotalSalary()
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees
		(id, employee_number, full_name, company_id, hire_date, end_date,
		 termination_type, basic_salary, housing_allowance, transport_allowance,
		 other_allowances, total_salary, branch, department, job_title,
		 classification, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.EmployeeNumber, e.FullName, e.CompanyID,
		e.HireDate.UTC().Format(time.RFC3339), nullTime(e.EndDate),
		string(e.TerminationType),
		e.BasicSalary.String(), e.HousingAllowance.String(),
		e.TransportAllowance.String(), e.OtherAllowances.String(),
		e.TotalSalary.String(),
		e.Branch, e.Department, e.JobTitle, e.Classification,
		now, now,
	)
	return err
}

func (s *Store) UpdateEmployee(ctx context.Context, e *entitlement.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.RecomputeTotalSalary()

	res, err := s.db.ExecContext(ctx, `
		UPDATE employees SET
			employee_number = ?, full_name = ?, company_id = ?, hire_date = ?,
			end_date = ?, termination_type = ?, basic_salary = ?,
			housing_allowance = ?, transport_allowance = ?, other_allowances = ?,
			total_salary = ?, branch = ?, department = ?, job_title = ?,
			classification = ?, updated_at = ?
		WHERE id = ?`,
		e.EmployeeNumber, e.FullName, e.CompanyID,
		e.HireDate.UTC().Format(time.RFC3339), nullTime(e.EndDate),
		string(e.TerminationType),
		e.BasicSalary.String(), e.HousingAllowance.String(),
		e.TransportAllowance.String(), e.OtherAllowances.String(),
		e.TotalSalary.String(),
		e.Branch, e.Department, e.JobTitle, e.Classification,
		time.Now().UTC().Format(time.RFC3339),
		e.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entitlement.ErrEmployeeNotFound
	}
	return nil
}

// =============================================================================
// LEAVE LEDGER + BALANCE CACHE
// =============================================================================

func (s *Store) LeaveTransactions(ctx context.Context, employeeID string) ([]entitlement.LeaveTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, tx_type, days, reason, performed_by, created_at
		FROM leave_transactions
		WHERE employee_id = ?
		ORDER BY created_at ASC, id ASC`, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entitlement.LeaveTransaction
	for rows.Next() {
		var tx entitlement.LeaveTransaction
		var txType, days, createdAt string
		var reason, performedBy sql.NullString
		if err := rows.Scan(&tx.ID, &tx.EmployeeID, &txType, &days, &reason, &performedBy, &createdAt); err != nil {
			return nil, err
		}
		tx.Type = entitlement.LeaveTransactionType(txType)
		if tx.Days, err = decimal.NewFromString(days); err != nil {
			return nil, fmt.Errorf("corrupt days value %q: %w", days, err)
		}
		tx.Reason = reason.String
		tx.PerformedBy = performedBy.String
		if tx.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (s *Store) LeaveBalance(ctx context.Context, employeeID string) (*entitlement.LeaveBalance, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, employee_id, annual_entitled_days, annual_used_days,
		       calculated_remaining_days, leave_value, last_calculated_at
		FROM leave_balances WHERE employee_id = ?`, employeeID)

	var b entitlement.LeaveBalance
	var entitled, used, remaining, value, calcAt string
	err := row.Scan(&b.ID, &b.EmployeeID, &entitled, &used, &remaining, &value, &calcAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if b.AnnualEntitledDays, err = decimal.NewFromString(entitled); err != nil {
		return nil, err
	}
	if b.AnnualUsedDays, err = decimal.NewFromString(used); err != nil {
		return nil, err
	}
	if b.CalculatedRemainingDays, err = decimal.NewFromString(remaining); err != nil {
		return nil, err
	}
	if b.LeaveValue, err = decimal.NewFromString(value); err != nil {
		return nil, err
	}
	if b.LastCalculatedAt, err = time.Parse(time.RFC3339, calcAt); err != nil {
		return nil, err
	}
	return &b, nil
}

// CommitLeaveMutation appends ledger rows and upserts the balance cache
// inside a single SQL transaction.
func (s *Store) CommitLeaveMutation(ctx context.Context, m store.LeaveMutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, lt := range m.Transactions {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO leave_transactions
			(id, employee_id, tx_type, days, reason, performed_by, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			lt.ID, lt.EmployeeID, string(lt.Type), lt.Days.String(),
			lt.Reason, lt.PerformedBy,
			lt.CreatedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return err
		}
	}

	b := m.Balance
	_, err = tx.ExecContext(ctx, `
		INSERT INTO leave_balances
		(id, employee_id, annual_entitled_days, annual_used_days,
		 calculated_remaining_days, leave_value, last_calculated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id) DO UPDATE SET
			annual_entitled_days = excluded.annual_entitled_days,
			annual_used_days = excluded.annual_used_days,
			calculated_remaining_days = excluded.calculated_remaining_days,
			leave_value = excluded.leave_value,
			last_calculated_at = excluded.last_calculated_at`,
		b.ID, b.EmployeeID,
		b.AnnualEntitledDays.String(), b.AnnualUsedDays.String(),
		b.CalculatedRemainingDays.String(), b.LeaveValue.String(),
		b.LastCalculatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// =============================================================================
// DEDUCTIONS
// =============================================================================

func (s *Store) Deductions(ctx context.Context, f store.DeductionFilter) ([]entitlement.Deduction, error) {
	query := `SELECT id, employee_id, ded_type, amount, date, status, description, notes
		FROM deductions WHERE 1=1`
	var args []any

	if f.EmployeeID != "" {
		query += ` AND employee_id = ?`
		args = append(args, f.EmployeeID)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	if f.Type != "" {
		query += ` AND ded_type = ?`
		args = append(args, string(f.Type))
	}
	query += ` ORDER BY date DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entitlement.Deduction
	for rows.Next() {
		var d entitlement.Deduction
		var dedType, amount, date, status string
		var description, notes sql.NullString
		if err := rows.Scan(&d.ID, &d.EmployeeID, &dedType, &amount, &date, &status, &description, &notes); err != nil {
			return nil, err
		}
		d.Type = entitlement.DeductionType(dedType)
		d.Status = entitlement.DeductionStatus(status)
		if d.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("corrupt amount %q: %w", amount, err)
		}
		if d.Date, err = time.Parse(time.RFC3339, date); err != nil {
			return nil, err
		}
		d.Description = description.String
		d.Notes = notes.String
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) CreateDeduction(ctx context.Context, d *entitlement.Deduction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deductions
		(id, employee_id, ded_type, amount, date, status, description, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.EmployeeID, string(d.Type), d.Amount.String(),
		d.Date.UTC().Format(time.RFC3339), string(d.Status),
		d.Description, d.Notes, now, now,
	)
	return err
}

func (s *Store) UpdateDeduction(ctx context.Context, d *entitlement.Deduction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE deductions SET
			ded_type = ?, amount = ?, date = ?, status = ?,
			description = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		string(d.Type), d.Amount.String(), d.Date.UTC().Format(time.RFC3339),
		string(d.Status), d.Description, d.Notes,
		time.Now().UTC().Format(time.RFC3339),
		d.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrDeductionNotFound
	}
	return nil
}

func (s *Store) DeleteDeduction(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM deductions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrDeductionNotFound
	}
	return nil
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(r rowScanner) (*entitlement.Employee, error) {
	var e entitlement.Employee
	var employeeNumber, branch, department, jobTitle, classification sql.NullString
	var hireDate string
	var endDate sql.NullString
	var termType string
	var basic, housing, transport, other, total string

	err := r.Scan(&e.ID, &employeeNumber, &e.FullName, &e.CompanyID,
		&hireDate, &endDate, &termType,
		&basic, &housing, &transport, &other, &total,
		&branch, &department, &jobTitle, &classification)
	if err != nil {
		return nil, err
	}

	e.EmployeeNumber = employeeNumber.String
	e.Branch = branch.String
	e.Department = department.String
	e.JobTitle = jobTitle.String
	e.Classification = classification.String
	e.TerminationType = entitlement.ParseTerminationType(termType)

	if e.HireDate, err = time.Parse(time.RFC3339, hireDate); err != nil {
		return nil, &entitlement.InvalidDateError{Field: "hireDate", Value: hireDate}
	}
	if endDate.Valid {
		t, err := time.Parse(time.RFC3339, endDate.String)
		if err != nil {
			return nil, &entitlement.InvalidDateError{Field: "endDate", Value: endDate.String}
		}
		e.EndDate = &t
	}

	if e.BasicSalary, err = decimal.NewFromString(basic); err != nil {
		return nil, err
	}
	if e.HousingAllowance, err = decimal.NewFromString(housing); err != nil {
		return nil, err
	}
	if e.TransportAllowance, err = decimal.NewFromString(transport); err != nil {
		return nil, err
	}
	if e.OtherAllowances, err = decimal.NewFromString(other); err != nil {
		return nil, err
	}
	if e.TotalSalary, err = decimal.NewFromString(total); err != nil {
		return nil, err
	}
	return &e, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
