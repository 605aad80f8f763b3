// Package store provides the SQLite org-chart database that the benchmark
// strategies query.
//
// The database runs embedded (ncruces/go-sqlite3, no cgo) in WAL mode.
//
// Schema:
//   - person: business_entity_id, first_name, last_name
//   - employee: business_entity_id, org_node (materialized path), org_level,
//     manager_id, job_title
//   - manager_employees: view over the recursive manager-to-employees walk
//     for every possible root, filtered by root_id
//
// The same logical query is reachable as query text (ManagerEmployeesQuery)
// and through the view (ManagerEmployeesViewQuery) so that strategies can
// compare the two access paths.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/querybench/querybench/internal/store/schema"
)

// Options configures the connection pool.
type Options struct {
	// MaxOpenConns caps the pool (0 = 4).
	MaxOpenConns int
	// MaxIdleConns is restored after every cache reset (0 = 2).
	MaxIdleConns int
}

// DB wraps the SQLite connection pool.
type DB struct {
	conn    *sql.DB
	path    string
	maxIdle int
}

// Open creates a new database connection at the specified path.
//
// Connection-scoped pragmas (busy timeout, foreign keys) travel in the DSN so
// that every pooled connection gets them, including the ones opened after
// ResetCaches drops the idle pool.
//
// The caller MUST call Close() when done.
func Open(path string, opts Options) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	pragmas := url.Values{}
	pragmas.Add("_pragma", "busy_timeout(5000)")
	pragmas.Add("_pragma", "foreign_keys(1)")
	connStr := fmt.Sprintf("file:%s?%s", path, pragmas.Encode())

	conn, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	maxOpen := opts.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 4
	}
	maxIdle := opts.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 2
	}
	conn.SetMaxOpenConns(maxOpen)
	conn.SetMaxIdleConns(maxIdle)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{
		conn:    conn,
		path:    path,
		maxIdle: maxIdle,
	}

	// journal_mode is persistent, so once per database file is enough
	if _, err := db.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	return db, nil
}

// RawDB returns the underlying sql.DB connection.
// This is useful for integrating with other libraries that expect *sql.DB.
func (db *DB) RawDB() *sql.DB {
	return db.conn
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Close closes the database connection.
// Performs a WAL checkpoint to ensure all changes are persisted.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	db.conn = nil
	return nil
}

// InitSchema creates the tables and the view if they don't exist.
// Idempotent.
func (db *DB) InitSchema() error {
	return db.InitSchemaContext(context.Background())
}

// InitSchemaContext creates the schema with context support.
func (db *DB) InitSchemaContext(ctx context.Context) error {
	ddl := `
	CREATE TABLE IF NOT EXISTS person (
		business_entity_id INTEGER PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS employee (
		business_entity_id INTEGER PRIMARY KEY,
		org_node TEXT NOT NULL UNIQUE,
		org_level INTEGER NOT NULL,
		manager_id INTEGER,
		job_title TEXT NOT NULL,
		FOREIGN KEY (business_entity_id) REFERENCES person(business_entity_id) ON DELETE CASCADE,
		FOREIGN KEY (manager_id) REFERENCES employee(business_entity_id)
	);

	CREATE INDEX IF NOT EXISTS idx_employee_manager ON employee(manager_id);
	CREATE INDEX IF NOT EXISTS idx_employee_level ON employee(org_level);
	` + managerEmployeesView

	if _, err := db.conn.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// ManagerEmployeesQuery walks the hierarchy below the manager bound to the
// single parameter and returns every employee with their manager's name,
// ordered by depth then org node. The walk stops at schema.MaxRecursion.
const ManagerEmployeesQuery = `
WITH RECURSIVE emp_cte(business_entity_id, org_node, first_name, last_name, manager_id, recursion_level) AS (
	SELECT e.business_entity_id, e.org_node, p.first_name, p.last_name, e.manager_id, 0
	FROM employee e
		INNER JOIN person p ON p.business_entity_id = e.business_entity_id
	WHERE e.business_entity_id = ?

	UNION ALL

	SELECT e.business_entity_id, e.org_node, p.first_name, p.last_name, e.manager_id, c.recursion_level + 1
	FROM employee e
		INNER JOIN emp_cte c ON e.manager_id = c.business_entity_id
		INNER JOIN person p ON p.business_entity_id = e.business_entity_id
	WHERE c.recursion_level < 25
)
SELECT c.recursion_level, c.org_node,
	mp.first_name AS manager_first_name, mp.last_name AS manager_last_name,
	c.business_entity_id, c.first_name, c.last_name
FROM emp_cte c
	INNER JOIN person mp ON mp.business_entity_id = c.manager_id
ORDER BY c.recursion_level, c.org_node
`

// ManagerEmployeesViewQuery is ManagerEmployeesQuery served by the view.
const ManagerEmployeesViewQuery = `
SELECT recursion_level, org_node, manager_first_name, manager_last_name,
	business_entity_id, first_name, last_name
FROM manager_employees
WHERE root_id = ?
ORDER BY recursion_level, org_node
`

// ManagerEmployeesView is the name of the view.
const ManagerEmployeesView = "manager_employees"

const managerEmployeesView = `
CREATE VIEW IF NOT EXISTS manager_employees AS
WITH RECURSIVE emp_cte(root_id, business_entity_id, org_node, first_name, last_name, manager_id, recursion_level) AS (
	SELECT e.business_entity_id, e.business_entity_id, e.org_node, p.first_name, p.last_name, e.manager_id, 0
	FROM employee e
		INNER JOIN person p ON p.business_entity_id = e.business_entity_id

	UNION ALL

	SELECT c.root_id, e.business_entity_id, e.org_node, p.first_name, p.last_name, e.manager_id, c.recursion_level + 1
	FROM employee e
		INNER JOIN emp_cte c ON e.manager_id = c.business_entity_id
		INNER JOIN person p ON p.business_entity_id = e.business_entity_id
	WHERE c.recursion_level < 25
)
SELECT c.root_id, c.recursion_level, c.org_node,
	mp.first_name AS manager_first_name, mp.last_name AS manager_last_name,
	c.business_entity_id, c.first_name, c.last_name
FROM emp_cte c
	INNER JOIN person mp ON mp.business_entity_id = c.manager_id;
`

// ManagerEmployees runs ManagerEmployeesQuery for rootID.
func (db *DB) ManagerEmployees(rootID int) ([]schema.ManagerEmployee, error) {
	return db.ManagerEmployeesContext(context.Background(), rootID)
}

// ManagerEmployeesContext runs ManagerEmployeesQuery with context support.
func (db *DB) ManagerEmployeesContext(ctx context.Context, rootID int) ([]schema.ManagerEmployee, error) {
	rows, err := db.conn.QueryContext(ctx, ManagerEmployeesQuery, rootID)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees of %d: %w", rootID, err)
	}
	defer rows.Close()

	return ScanManagerEmployees(rows)
}

// ScanManagerEmployees reads every row of a manager-to-employees result set
// in column order.
func ScanManagerEmployees(rows *sql.Rows) ([]schema.ManagerEmployee, error) {
	var out []schema.ManagerEmployee

	for rows.Next() {
		var m schema.ManagerEmployee
		err := rows.Scan(
			&m.RecursionLevel,
			&m.OrgNode,
			&m.ManagerFirstName,
			&m.ManagerLastName,
			&m.BusinessEntityID,
			&m.FirstName,
			&m.LastName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		out = append(out, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating employees: %w", err)
	}

	return out, nil
}

// GetPersonCount returns the number of rows in person.
func (db *DB) GetPersonCount() (int, error) {
	return db.GetPersonCountContext(context.Background())
}

// GetPersonCountContext returns the number of persons with context support.
func (db *DB) GetPersonCountContext(ctx context.Context) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM person").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get person count: %w", err)
	}
	return count, nil
}

// GetEmployeeCount returns the number of rows in employee.
func (db *DB) GetEmployeeCount() (int, error) {
	return db.GetEmployeeCountContext(context.Background())
}

// GetEmployeeCountContext returns the number of employees with context support.
func (db *DB) GetEmployeeCountContext(ctx context.Context) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM employee").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get employee count: %w", err)
	}
	return count, nil
}

// GetMaxOrgLevelContext returns the depth of the deepest employee.
func (db *DB) GetMaxOrgLevelContext(ctx context.Context) (int, error) {
	var level sql.NullInt64
	err := db.conn.QueryRowContext(ctx, "SELECT MAX(org_level) FROM employee").Scan(&level)
	if err != nil {
		return 0, fmt.Errorf("failed to get max org level: %w", err)
	}
	return int(level.Int64), nil
}

// ResetCaches drops the per-connection page and statement caches by closing
// every idle pooled connection, then asks SQLite to release heap memory it
// still holds. Connections checked out by the caller are not affected.
func (db *DB) ResetCaches(ctx context.Context) error {
	if db.conn == nil {
		return fmt.Errorf("database is closed")
	}

	db.conn.SetMaxIdleConns(0)
	db.conn.SetMaxIdleConns(db.maxIdle)

	if _, err := db.conn.ExecContext(ctx, "PRAGMA shrink_memory"); err != nil {
		return fmt.Errorf("failed to shrink memory: %w", err)
	}
	return nil
}

// Isolate implements benchmark.Isolator.
func (db *DB) Isolate(ctx context.Context) error {
	return db.ResetCaches(ctx)
}
