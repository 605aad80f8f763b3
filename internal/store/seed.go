package store

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/querybench/querybench/internal/store/schema"
)

// SeedOptions shapes the generated org chart.
type SeedOptions struct {
	// Employees is the number of employees including the root.
	Employees int
	// Span is the maximum number of direct reports per manager.
	Span int
	// Seed makes the hierarchy reproducible.
	Seed int64
}

// DefaultSeedOptions mirrors the size of a mid-sized company directory.
func DefaultSeedOptions() SeedOptions {
	return SeedOptions{
		Employees: 290,
		Span:      6,
		Seed:      42,
	}
}

// Validate checks that the options describe a buildable hierarchy.
func (o SeedOptions) Validate() error {
	if o.Employees < 2 {
		return fmt.Errorf("employees must be at least 2 (got %d)", o.Employees)
	}
	if o.Span < 1 {
		return fmt.Errorf("span must be at least 1 (got %d)", o.Span)
	}
	if o.Span == 1 && o.Employees > schema.MaxRecursion {
		return fmt.Errorf("a span of 1 fits at most %d employees (got %d)", schema.MaxRecursion, o.Employees)
	}
	return nil
}

// SeedStats describes what Seed wrote.
type SeedStats struct {
	Persons   int
	Employees int
	MaxLevel  int
}

// Seed replaces the contents of person and employee with a generated
// hierarchy. Employee 1 is the root and employee 2 is always its first
// report. The same options always produce the same rows.
func (db *DB) Seed(ctx context.Context, opts SeedOptions) (*SeedStats, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid seed options: %w", err)
	}

	persons, employees := generateOrgChart(opts)

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// employee references person, so it goes first
	for _, table := range []string{"employee", "person"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return nil, fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	personStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO person (business_entity_id, first_name, last_name) VALUES (?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare person insert: %w", err)
	}
	defer personStmt.Close()

	for _, p := range persons {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("invalid person %d: %w", p.BusinessEntityID, err)
		}
		if _, err := personStmt.ExecContext(ctx, p.BusinessEntityID, p.FirstName, p.LastName); err != nil {
			return nil, fmt.Errorf("failed to insert person %d: %w", p.BusinessEntityID, err)
		}
	}

	employeeStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO employee (business_entity_id, org_node, org_level, manager_id, job_title) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare employee insert: %w", err)
	}
	defer employeeStmt.Close()

	stats := &SeedStats{Persons: len(persons), Employees: len(employees)}
	for _, e := range employees {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("invalid employee %d: %w", e.BusinessEntityID, err)
		}
		if _, err := employeeStmt.ExecContext(ctx, e.BusinessEntityID, e.OrgNode, e.OrgLevel, e.ManagerID, e.JobTitle); err != nil {
			return nil, fmt.Errorf("failed to insert employee %d: %w", e.BusinessEntityID, err)
		}
		stats.MaxLevel = max(stats.MaxLevel, e.OrgLevel)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	// Refresh planner statistics so every strategy sees the same plans
	if _, err := db.conn.ExecContext(ctx, "ANALYZE"); err != nil {
		return nil, fmt.Errorf("failed to analyze: %w", err)
	}

	return stats, nil
}

var (
	firstNames = []string{
		"Ken", "Terri", "Roberto", "Rob", "Gail", "Jossef", "Dylan", "Diane",
		"Gigi", "Michael", "Ovidiu", "Thierry", "Janice", "Sharon", "David", "Kevin",
	}
	lastNames = []string{
		"Sanchez", "Duffy", "Tamburello", "Walters", "Erickson", "Goldberg", "Miller",
		"Margheim", "Matthew", "Raheem", "Cracium", "D'Hers", "Galvin", "Salavaria",
	}
	jobTitles = []string{
		"Chief Executive Officer",
		"Vice President",
		"Director",
		"Manager",
		"Supervisor",
		"Specialist",
	}
)

// generateOrgChart builds a random tree in which every manager has at most
// opts.Span reports and no employee sits deeper than schema.MaxRecursion-1.
func generateOrgChart(opts SeedOptions) ([]schema.Person, []schema.Employee) {
	rng := rand.New(rand.NewSource(opts.Seed))

	persons := make([]schema.Person, 0, opts.Employees)
	employees := make([]schema.Employee, 0, opts.Employees)
	reports := make([]int, opts.Employees+1)

	// managers with room for another report, by index into employees
	open := make([]int, 0, opts.Employees)

	for id := 1; id <= opts.Employees; id++ {
		persons = append(persons, schema.Person{
			BusinessEntityID: id,
			FirstName:        firstNames[rng.Intn(len(firstNames))],
			LastName:         lastNames[rng.Intn(len(lastNames))],
		})

		if id == 1 {
			employees = append(employees, schema.Employee{
				BusinessEntityID: 1,
				OrgNode:          "/",
				OrgLevel:         0,
				JobTitle:         jobTitles[0],
			})
			open = append(open, 0)
			continue
		}

		slot := rng.Intn(len(open))
		manager := &employees[open[slot]]
		reports[manager.BusinessEntityID]++
		managerID := manager.BusinessEntityID

		e := schema.Employee{
			BusinessEntityID: id,
			OrgNode:          manager.ChildNode(reports[managerID]),
			OrgLevel:         manager.OrgLevel + 1,
			ManagerID:        &managerID,
			JobTitle:         jobTitles[min(manager.OrgLevel+1, len(jobTitles)-1)],
		}

		if reports[managerID] >= opts.Span {
			open[slot] = open[len(open)-1]
			open = open[:len(open)-1]
		}

		employees = append(employees, e)
		if e.OrgLevel < schema.MaxRecursion-1 {
			open = append(open, len(employees)-1)
		}
	}

	return persons, employees
}
