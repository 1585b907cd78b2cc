package employee

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/leavedesk/leave-management/internal"
	"github.com/leavedesk/leave-management/internal/audit"
	"github.com/leavedesk/leave-management/internal/calendar"
	"github.com/leavedesk/leave-management/internal/department"
	"github.com/leavedesk/leave-management/internal/settings"
	"github.com/leavedesk/leave-management/internal/visibility"
)

// Repository defines the data access methods for employees.
type Repository interface {
	Create(ctx context.Context, emp *Employee) error
	GetByID(ctx context.Context, id string) (*Employee, error)
	GetByEmail(ctx context.Context, email string) (*Employee, error)
	Update(ctx context.Context, emp *Employee) error
	List(ctx context.Context, limit, offset int) ([]*Employee, error)
}

// Store adds the transactional surface on top of Repository. AppendAudit
// inside Atomic joins the same transaction, so an employee mutation without
// its audit entry is never observable.
type Store interface {
	Repository
	audit.Recorder
	Atomic(ctx context.Context, fn func(tx Store) error) error
}

type Service struct {
	store       Store
	departments department.Repository
	policies    settings.Provider
	clock       calendar.Clock
	bcryptCost  int
	logger      *slog.Logger
}

func NewService(
	store Store,
	departments department.Repository,
	policies settings.Provider,
	clock calendar.Clock,
	bcryptCost int,
	logger *slog.Logger,
) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		store:       store,
		departments: departments,
		policies:    policies,
		clock:       clock,
		bcryptCost:  bcryptCost,
		logger:      logger,
	}
}

// Register creates a pending employee. Allowances start at the current
// policy defaults; an admin can override them later.
func (s *Service) Register(ctx context.Context, dto RegisterEmployeeDTO) (*Employee, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(dto.Email))
	if existing, err := s.store.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, internal.ErrEmailTaken
	}

	if dto.DepartmentID != nil {
		if _, err := s.departments.GetByID(ctx, *dto.DepartmentID); err != nil {
			return nil, internal.ErrDepartmentNotFound
		}
	}

	policy, err := s.policies.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), s.bcryptCost)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	now := s.clock.Now()
	emp := &Employee{
		ID:                uuid.NewString(),
		Email:             email,
		Name:              dto.Name,
		PasswordHash:      string(hash),
		Role:              internal.RoleEmployee,
		Status:            StatusPending,
		DepartmentID:      dto.DepartmentID,
		VacationAllowance: policy.VacationAllowance,
		PersonalAllowance: policy.PersonalAllowance,
		SickAllowance:     policy.SickAllowance,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	err = s.store.Atomic(ctx, func(tx Store) error {
		if err := tx.Create(ctx, emp); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, s.entry(audit.ActionEmployeeRegistered, nil, emp,
			map[string]interface{}{"email": emp.Email, "name": emp.Name}))
	})
	if err != nil {
		s.logger.Error("failed to create employee", "email", email, "error", err)
		return nil, internal.NewTransientStorageError(err)
	}

	s.logger.Info("employee registered", "employee_id", emp.ID, "email", emp.Email)
	return emp, nil
}

// Approve activates a pending registration, admin only.
func (s *Service) Approve(ctx context.Context, principal internal.Principal, employeeID string) (*Employee, error) {
	return s.transition(ctx, principal, employeeID, StatusActive, audit.ActionEmployeeApproved)
}

// Reject deactivates a pending registration, admin only.
func (s *Service) Reject(ctx context.Context, principal internal.Principal, employeeID string) (*Employee, error) {
	return s.transition(ctx, principal, employeeID, StatusInactive, audit.ActionEmployeeRejected)
}

// SetStatus applies any allowed status transition, admin only.
func (s *Service) SetStatus(ctx context.Context, principal internal.Principal, employeeID string, next Status) (*Employee, error) {
	return s.transition(ctx, principal, employeeID, next, audit.ActionEmployeeStatusChanged)
}

func (s *Service) transition(ctx context.Context, principal internal.Principal, employeeID string, next Status, action audit.Action) (*Employee, error) {
	if !principal.IsAdmin() {
		return nil, internal.ErrForbidden
	}

	emp, err := s.get(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if !emp.Status.CanTransitionTo(next) {
		return nil, internal.ErrInvalidStatusChange
	}

	previous := emp.Status
	emp.Status = next
	emp.UpdatedAt = s.clock.Now()
	err = s.store.Atomic(ctx, func(tx Store) error {
		if err := tx.Update(ctx, emp); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, s.entry(action, &principal.UserID, emp,
			map[string]interface{}{"from": previous, "to": next}))
	})
	if err != nil {
		return nil, internal.NewTransientStorageError(err)
	}

	s.logger.Info("employee status changed",
		"employee_id", emp.ID,
		"from", previous,
		"to", next,
		"actor_id", principal.UserID)
	return emp, nil
}

// SetAllowances overrides per-type allowances, admin only, always audited
// with the before/after values.
func (s *Service) SetAllowances(ctx context.Context, principal internal.Principal, employeeID string, dto UpdateAllowancesDTO) (*Employee, error) {
	if !principal.IsAdmin() {
		return nil, internal.ErrForbidden
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	emp, err := s.get(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	before := map[string]int{
		"vacation": emp.VacationAllowance,
		"personal": emp.PersonalAllowance,
		"sick":     emp.SickAllowance,
	}
	if dto.Vacation != nil {
		emp.VacationAllowance = *dto.Vacation
	}
	if dto.Personal != nil {
		emp.PersonalAllowance = *dto.Personal
	}
	if dto.Sick != nil {
		emp.SickAllowance = *dto.Sick
	}
	emp.UpdatedAt = s.clock.Now()
	after := map[string]int{
		"vacation": emp.VacationAllowance,
		"personal": emp.PersonalAllowance,
		"sick":     emp.SickAllowance,
	}
	err = s.store.Atomic(ctx, func(tx Store) error {
		if err := tx.Update(ctx, emp); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, s.entry(audit.ActionEmployeeAllowanceChanged, &principal.UserID, emp,
			map[string]interface{}{"before": before, "after": after}))
	})
	if err != nil {
		return nil, internal.NewTransientStorageError(err)
	}

	s.logger.Info("employee allowances changed", "employee_id", emp.ID, "actor_id", principal.UserID)
	return emp, nil
}

// AssignDepartment moves an employee between departments (or clears the
// assignment), admin only. The referenced department must resolve.
func (s *Service) AssignDepartment(ctx context.Context, principal internal.Principal, employeeID string, departmentID *string) (*Employee, error) {
	if !principal.IsAdmin() {
		return nil, internal.ErrForbidden
	}

	if departmentID != nil {
		if _, err := s.departments.GetByID(ctx, *departmentID); err != nil {
			return nil, internal.ErrDepartmentNotFound
		}
	}

	emp, err := s.get(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	previous := emp.DepartmentID
	emp.DepartmentID = departmentID
	emp.UpdatedAt = s.clock.Now()
	err = s.store.Atomic(ctx, func(tx Store) error {
		if err := tx.Update(ctx, emp); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, s.entry(audit.ActionEmployeeDeptChanged, &principal.UserID, emp,
			map[string]interface{}{"from": previous, "to": departmentID}))
	})
	if err != nil {
		return nil, internal.NewTransientStorageError(err)
	}

	s.logger.Info("employee department changed", "employee_id", emp.ID, "actor_id", principal.UserID)
	return emp, nil
}

// Get returns one employee if the viewer may see them.
func (s *Service) Get(ctx context.Context, principal internal.Principal, employeeID string) (*Employee, error) {
	emp, err := s.get(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	policy, err := s.policies.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if !visibility.CanSee(principal, policy.VisibilityMode, emp) {
		return nil, internal.ErrEmployeeNotFound
	}
	return emp, nil
}

// List returns the employees the viewer may see under the current
// visibility mode.
func (s *Service) List(ctx context.Context, principal internal.Principal, limit, offset int) ([]*Employee, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	employees, err := s.store.List(ctx, limit, offset)
	if err != nil {
		return nil, internal.NewTransientStorageError(err)
	}

	policy, err := s.policies.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return visibility.Filter(principal, policy.VisibilityMode, employees), nil
}

func (s *Service) get(ctx context.Context, employeeID string) (*Employee, error) {
	emp, err := s.store.GetByID(ctx, employeeID)
	if err != nil {
		if appErr, ok := internal.IsAppError(err); ok {
			return nil, appErr
		}
		return nil, internal.ErrEmployeeNotFound
	}
	return emp, nil
}

func (s *Service) entry(action audit.Action, actorID *string, emp *Employee, detail interface{}) *audit.Entry {
	e := audit.NewEntry(action, actorID, &emp.ID, "employee", detail)
	e.CreatedAt = s.clock.Now()
	return e
}
