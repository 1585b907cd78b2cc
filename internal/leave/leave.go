package leave

import (
	"time"
)

type Type string

const (
	TypeVacation Type = "vacation"
	TypeSick     Type = "sick"
	TypePersonal Type = "personal"
)

func (t Type) Valid() bool {
	switch t {
	case TypeVacation, TypeSick, TypePersonal:
		return true
	}
	return false
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// LeaveRequest is the aggregate the lifecycle engine owns. Status moves only
// through the service operations; nothing else writes it.
type LeaveRequest struct {
	ID           string `json:"id" gorm:"primaryKey"`
	EmployeeID   string `json:"employee_id" gorm:"column:employee_id;not null;index:idx_requests_employee_dates"`
	DepartmentID string `json:"department_id,omitempty" gorm:"column:department_id"`

	Type        Type      `json:"type" gorm:"column:leave_type;not null"`
	StartDate   time.Time `json:"start_date" gorm:"column:start_date;type:date;not null;index:idx_requests_employee_dates"`
	EndDate     time.Time `json:"end_date" gorm:"column:end_date;type:date;not null;index:idx_requests_employee_dates"`
	WorkingDays int       `json:"working_days" gorm:"column:working_days;not null"`
	Status      Status    `json:"status" gorm:"column:status;not null;default:pending;index"`
	Notes       string    `json:"notes,omitempty" gorm:"column:notes"`

	RejectionReason *string `json:"rejection_reason,omitempty" gorm:"column:rejection_reason"`

	// Sick leave only: either an uploaded certificate reference or an
	// explicit commitment to hand one in later.
	CertificateURL      *string `json:"certificate_url,omitempty" gorm:"column:certificate_url"`
	CertificateDeferred bool    `json:"certificate_deferred,omitempty" gorm:"column:certificate_deferred"`

	ResolverID *string    `json:"resolver_id,omitempty" gorm:"column:resolver_id"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty" gorm:"column:resolved_at"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`

	// ConflictWarning is a courtesy flag on read paths: the pending request
	// would collide with an already-approved one if approved as-is. Never
	// persisted.
	ConflictWarning bool `json:"conflict_warning,omitempty" gorm:"-"`
}

func (LeaveRequest) TableName() string {
	return "leave_requests"
}

func (r *LeaveRequest) IsPending() bool {
	return r.Status == StatusPending
}

func (r *LeaveRequest) CanBeResolved() bool {
	return r.Status == StatusPending
}

func (r *LeaveRequest) CanBeReopened() bool {
	return r.Status == StatusApproved || r.Status == StatusRejected
}

// HasCertificateInfo reports whether a sick request carries enough
// certificate information to be submittable.
func (r *LeaveRequest) HasCertificateInfo() bool {
	return (r.CertificateURL != nil && *r.CertificateURL != "") || r.CertificateDeferred
}

// Year is the calendar year the request is accounted against.
func (r *LeaveRequest) Year() int {
	return r.StartDate.Year()
}

// OwnerID and OwnerDepartmentID satisfy visibility.Scoped.
func (r *LeaveRequest) OwnerID() string           { return r.EmployeeID }
func (r *LeaveRequest) OwnerDepartmentID() string { return r.DepartmentID }
