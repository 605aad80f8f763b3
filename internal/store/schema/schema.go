// Package schema provides the row types of the org-chart database.
package schema

import (
	"fmt"
	"strings"
)

// MaxRecursion bounds the depth of the manager hierarchy walk.
const MaxRecursion = 25

// Person is a row of the person table.
type Person struct {
	BusinessEntityID int    `json:"business_entity_id" gorm:"column:business_entity_id;primaryKey"`
	FirstName        string `json:"first_name" gorm:"column:first_name"`
	LastName         string `json:"last_name" gorm:"column:last_name"`
}

// TableName implements gorm's tabler interface.
func (Person) TableName() string { return "person" }

// Validate checks if the Person has valid field values.
func (p *Person) Validate() error {
	if p.BusinessEntityID <= 0 {
		return fmt.Errorf("business_entity_id must be positive (got %d)", p.BusinessEntityID)
	}
	if strings.TrimSpace(p.FirstName) == "" {
		return fmt.Errorf("first_name is required")
	}
	if strings.TrimSpace(p.LastName) == "" {
		return fmt.Errorf("last_name is required")
	}
	return nil
}

// Employee is a row of the employee table.
//
// OrgNode is the materialized path of the employee in the hierarchy, e.g.
// "/" for the root and "/1/3/" for the third report of the root's first
// report. ManagerID is nil only for the root.
type Employee struct {
	BusinessEntityID int    `json:"business_entity_id" gorm:"column:business_entity_id;primaryKey"`
	OrgNode          string `json:"org_node" gorm:"column:org_node"`
	OrgLevel         int    `json:"org_level" gorm:"column:org_level"`
	ManagerID        *int   `json:"manager_id,omitempty" gorm:"column:manager_id"`
	JobTitle         string `json:"job_title" gorm:"column:job_title"`
}

// TableName implements gorm's tabler interface.
func (Employee) TableName() string { return "employee" }

// Validate checks if the Employee has valid field values.
func (e *Employee) Validate() error {
	if e.BusinessEntityID <= 0 {
		return fmt.Errorf("business_entity_id must be positive (got %d)", e.BusinessEntityID)
	}
	if !strings.HasPrefix(e.OrgNode, "/") || !strings.HasSuffix(e.OrgNode, "/") {
		return fmt.Errorf("org_node must start and end with '/' (got %q)", e.OrgNode)
	}
	if e.OrgLevel < 0 || e.OrgLevel >= MaxRecursion {
		return fmt.Errorf("org_level must be between 0 and %d (got %d)", MaxRecursion-1, e.OrgLevel)
	}
	if depth := strings.Count(e.OrgNode, "/") - 1; depth != e.OrgLevel {
		return fmt.Errorf("org_level %d does not match org_node %q", e.OrgLevel, e.OrgNode)
	}
	if e.OrgLevel == 0 && e.ManagerID != nil {
		return fmt.Errorf("root employee cannot have a manager")
	}
	if e.OrgLevel > 0 && e.ManagerID == nil {
		return fmt.Errorf("manager_id is required below the root")
	}
	if e.ManagerID != nil && *e.ManagerID == e.BusinessEntityID {
		return fmt.Errorf("employee %d cannot manage themselves", e.BusinessEntityID)
	}
	if e.JobTitle == "" {
		return fmt.Errorf("job_title is required")
	}
	return nil
}

// ChildNode returns the org node of the n-th (1-based) direct report.
func (e *Employee) ChildNode(n int) string {
	return fmt.Sprintf("%s%d/", e.OrgNode, n)
}

// ManagerEmployee is one row of the manager-to-employees query: an employee
// somewhere below the requested manager, together with their own manager's
// name.
type ManagerEmployee struct {
	RecursionLevel   int    `json:"recursion_level" gorm:"column:recursion_level"`
	OrgNode          string `json:"org_node" gorm:"column:org_node"`
	ManagerFirstName string `json:"manager_first_name" gorm:"column:manager_first_name"`
	ManagerLastName  string `json:"manager_last_name" gorm:"column:manager_last_name"`
	BusinessEntityID int    `json:"business_entity_id" gorm:"column:business_entity_id"`
	FirstName        string `json:"first_name" gorm:"column:first_name"`
	LastName         string `json:"last_name" gorm:"column:last_name"`
}

// Validate checks if the ManagerEmployee has valid field values.
func (m *ManagerEmployee) Validate() error {
	if m.BusinessEntityID <= 0 {
		return fmt.Errorf("business_entity_id must be positive (got %d)", m.BusinessEntityID)
	}
	if m.RecursionLevel < 0 || m.RecursionLevel > MaxRecursion {
		return fmt.Errorf("recursion_level must be between 0 and %d (got %d)", MaxRecursion, m.RecursionLevel)
	}
	if m.OrgNode == "" {
		return fmt.Errorf("org_node is required")
	}
	if m.ManagerFirstName == "" || m.ManagerLastName == "" {
		return fmt.Errorf("manager name is required")
	}
	return nil
}
