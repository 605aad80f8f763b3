// Package strategies provides the interchangeable data-access strategies
// that run the manager-to-employees query. Each one becomes a benchmark
// case; they differ only in how the query reaches the database and how the
// rows are materialized.
package strategies

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/querybench/querybench/internal/benchmark"
	"github.com/querybench/querybench/internal/store"
	"github.com/querybench/querybench/internal/store/schema"
)

// Case names, in registration order.
const (
	SQLDynamicByRow   = "SQL Dynamic By Row"
	SQLDynamicIntoRow = "SQL Dynamic Into Rows"
	SQLPrepared       = "SQL Prepared Statement"
	SQLViewByRow      = "SQL View By Row"
	SQLViewIntoRows   = "SQL View Into Rows"
	GORMRaw           = "GORM Raw SQL"
	GORMView          = "GORM View"
)

// DefaultRootID is the manager whose reports are fetched.
const DefaultRootID = 2

// Names returns every strategy name in registration order.
func Names() []string {
	return []string{
		SQLDynamicByRow,
		SQLDynamicIntoRow,
		SQLPrepared,
		SQLViewByRow,
		SQLViewIntoRows,
		GORMRaw,
		GORMView,
	}
}

// Deps are the handles the strategies share. All of them must point at the
// same database.
type Deps struct {
	DB     *sql.DB
	Gorm   *gorm.DB
	RootID int
}

// fetchFunc runs one strategy and reports how many rows it materialized.
type fetchFunc func(ctx context.Context) (int, error)

// Suite holds the strategies bound to their dependencies.
type Suite struct {
	deps  Deps
	stmt  *sql.Stmt
	fetch map[string]fetchFunc
}

// New prepares every strategy. Close releases the prepared statement.
func New(ctx context.Context, deps Deps) (*Suite, error) {
	if deps.DB == nil {
		return nil, errors.New("strategies: sql handle is required")
	}
	if deps.Gorm == nil {
		return nil, errors.New("strategies: gorm handle is required")
	}
	if deps.RootID == 0 {
		deps.RootID = DefaultRootID
	}

	stmt, err := deps.DB.PrepareContext(ctx, store.ManagerEmployeesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare manager employees query: %w", err)
	}

	s := &Suite{deps: deps, stmt: stmt}
	s.fetch = map[string]fetchFunc{
		SQLDynamicByRow:   s.queryByRow(store.ManagerEmployeesQuery),
		SQLDynamicIntoRow: s.queryIntoRows(store.ManagerEmployeesQuery),
		SQLPrepared:       s.preparedByRow,
		SQLViewByRow:      s.queryByRow(store.ManagerEmployeesViewQuery),
		SQLViewIntoRows:   s.queryIntoRows(store.ManagerEmployeesViewQuery),
		GORMRaw:           s.gormRaw,
		GORMView:          s.gormView,
	}
	return s, nil
}

// Close releases the prepared statement.
func (s *Suite) Close() error {
	if s.stmt == nil {
		return nil
	}
	err := s.stmt.Close()
	s.stmt = nil
	return err
}

// RootID returns the manager the strategies query for.
func (s *Suite) RootID() int {
	return s.deps.RootID
}

// Register adds every strategy to reg in Names order.
func (s *Suite) Register(reg *benchmark.Registry) error {
	for _, name := range Names() {
		if err := reg.Register(name, s.Operation(name)); err != nil {
			return err
		}
	}
	return nil
}

// Operation returns the benchmark operation of the named strategy, or nil
// when the name is unknown. The row count is discarded.
func (s *Suite) Operation(name string) benchmark.Operation {
	fetch, ok := s.fetch[name]
	if !ok {
		return nil
	}
	return func(ctx context.Context) error {
		_, err := fetch(ctx)
		return err
	}
}

// Count runs the named strategy once and returns the number of rows it
// read. Used to check that every strategy sees the same result.
func (s *Suite) Count(ctx context.Context, name string) (int, error) {
	fetch, ok := s.fetch[name]
	if !ok {
		return 0, fmt.Errorf("%w: unknown strategy %q", benchmark.ErrInvalidCase, name)
	}
	return fetch(ctx)
}

// queryByRow sends the query text on every call and scans each row into a
// struct.
func (s *Suite) queryByRow(query string) fetchFunc {
	return func(ctx context.Context) (int, error) {
		rows, err := s.deps.DB.QueryContext(ctx, query, s.deps.RootID)
		if err != nil {
			return 0, err
		}
		defer rows.Close()

		result, err := store.ScanManagerEmployees(rows)
		return len(result), err
	}
}

// queryIntoRows sends the query text and materializes the whole result as
// generic column maps before touching any value.
func (s *Suite) queryIntoRows(query string) fetchFunc {
	return func(ctx context.Context) (int, error) {
		rows, err := s.deps.DB.QueryContext(ctx, query, s.deps.RootID)
		if err != nil {
			return 0, err
		}
		defer rows.Close()

		table, err := scanIntoRows(rows)
		return len(table), err
	}
}

func (s *Suite) preparedByRow(ctx context.Context) (int, error) {
	rows, err := s.stmt.QueryContext(ctx, s.deps.RootID)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	result, err := store.ScanManagerEmployees(rows)
	return len(result), err
}

func (s *Suite) gormRaw(ctx context.Context) (int, error) {
	var result []schema.ManagerEmployee
	err := s.deps.Gorm.WithContext(ctx).
		Raw(store.ManagerEmployeesQuery, s.deps.RootID).
		Scan(&result).Error
	return len(result), err
}

func (s *Suite) gormView(ctx context.Context) (int, error) {
	var result []schema.ManagerEmployee
	err := s.deps.Gorm.WithContext(ctx).
		Table(store.ManagerEmployeesView).
		Where("root_id = ?", s.deps.RootID).
		Order("recursion_level, org_node").
		Find(&result).Error
	return len(result), err
}

// scanIntoRows reads every row into a column-name keyed map.
func scanIntoRows(rows *sql.Rows) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var table []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		table = append(table, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return table, nil
}
