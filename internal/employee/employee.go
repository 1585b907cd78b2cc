package employee

import (
	"time"

	"github.com/leavedesk/leave-management/internal"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Allowed status moves. Everything else is rejected.
var statusTransitions = map[Status][]Status{
	StatusPending:  {StatusActive, StatusInactive},
	StatusActive:   {StatusInactive},
	StatusInactive: {StatusActive},
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Employee struct {
	ID           string        `json:"id" gorm:"primaryKey"`
	Email        string        `json:"email" gorm:"column:email;uniqueIndex;not null"`
	Name         string        `json:"name" gorm:"column:name;not null"`
	PasswordHash string        `json:"-" gorm:"column:password_hash;not null"`
	Role         internal.Role `json:"role" gorm:"column:role;not null;default:employee"`
	Status       Status        `json:"status" gorm:"column:status;not null;default:pending"`
	DepartmentID *string       `json:"department_id,omitempty" gorm:"column:department_id"`

	// Per-type annual day budgets, seeded from policy defaults at
	// registration. Sick may carry the -1 unlimited sentinel.
	VacationAllowance int `json:"vacation_allowance" gorm:"column:vacation_allowance"`
	PersonalAllowance int `json:"personal_allowance" gorm:"column:personal_allowance"`
	SickAllowance     int `json:"sick_allowance" gorm:"column:sick_allowance"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (Employee) TableName() string {
	return "employees"
}

// OwnerID and OwnerDepartmentID satisfy visibility.Scoped.
func (e *Employee) OwnerID() string { return e.ID }

func (e *Employee) OwnerDepartmentID() string {
	if e.DepartmentID == nil {
		return ""
	}
	return *e.DepartmentID
}
