package balance

import (
	"context"
	"log/slog"

	"github.com/leavedesk/leave-management/internal"
	"github.com/leavedesk/leave-management/internal/calendar"
	"github.com/leavedesk/leave-management/internal/employee"
	"github.com/leavedesk/leave-management/internal/leave"
	"github.com/leavedesk/leave-management/internal/settings"
)

// RequestSource is the slice of the leave store the ledger needs.
type RequestSource interface {
	ListByEmployee(ctx context.Context, employeeID string) ([]*leave.LeaveRequest, error)
}

// AllowanceSource resolves per-employee allowance overrides.
type AllowanceSource interface {
	GetByID(ctx context.Context, id string) (*employee.Employee, error)
}

type Service struct {
	requests   RequestSource
	allowances AllowanceSource
	policies   settings.Provider
	clock      calendar.Clock
	logger     *slog.Logger
}

func NewService(requests RequestSource, allowances AllowanceSource, policies settings.Provider, clock calendar.Clock, logger *slog.Logger) *Service {
	return &Service{
		requests:   requests,
		allowances: allowances,
		policies:   policies,
		clock:      clock,
		logger:     logger,
	}
}

// ForEmployee returns the three ledger lines for an employee-year. Viewable
// by the employee themselves or an admin. Allowances come from the employee
// record; policy defaults only fill in when the record cannot be loaded.
func (s *Service) ForEmployee(ctx context.Context, principal internal.Principal, employeeID string, year int) ([]Balance, error) {
	if employeeID != principal.UserID && !principal.IsAdmin() {
		return nil, internal.ErrForbidden
	}
	if year == 0 {
		year = s.clock.Now().Year()
	}

	requests, err := s.requests.ListByEmployee(ctx, employeeID)
	if err != nil {
		s.logger.Error("failed to load requests for balance", "employee_id", employeeID, "error", err)
		return nil, internal.NewTransientStorageError(err)
	}

	policy, err := s.policies.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	vacation := policy.VacationAllowance
	personal := policy.PersonalAllowance
	sick := policy.SickAllowance
	if emp, err := s.allowances.GetByID(ctx, employeeID); err == nil {
		vacation = emp.VacationAllowance
		personal = emp.PersonalAllowance
		sick = emp.SickAllowance
	}

	today := s.clock.Now()
	return []Balance{
		Compute(requests, leave.TypeVacation, year, vacation, today),
		Compute(requests, leave.TypePersonal, year, personal, today),
		Compute(requests, leave.TypeSick, year, sick, today),
	}, nil
}
