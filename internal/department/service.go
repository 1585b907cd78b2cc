package department

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/leavedesk/leave-management/internal"
	"github.com/leavedesk/leave-management/internal/calendar"
)

type Service struct {
	repo   Repository
	clock  calendar.Clock
	logger *slog.Logger
}

func NewService(repo Repository, clock calendar.Clock, logger *slog.Logger) *Service {
	return &Service{repo: repo, clock: clock, logger: logger}
}

type CreateDepartmentDTO struct {
	Name      string  `json:"name"`
	Location  *string `json:"location,omitempty"`
	ManagerID *string `json:"manager_id,omitempty"`
}

func (s *Service) Create(ctx context.Context, principal internal.Principal, dto CreateDepartmentDTO) (*Department, error) {
	if !principal.IsAdmin() {
		return nil, internal.ErrForbidden
	}
	if dto.Name == "" {
		return nil, internal.NewValidationError("department name is required", internal.ErrCodeValidationFailed)
	}

	now := s.clock.Now()
	dept := &Department{
		ID:        uuid.NewString(),
		Name:      dto.Name,
		Location:  dto.Location,
		ManagerID: dto.ManagerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, dept); err != nil {
		s.logger.Error("failed to create department", "name", dto.Name, "error", err)
		return nil, internal.NewTransientStorageError(err)
	}

	s.logger.Info("department created", "department_id", dept.ID, "name", dept.Name)
	return dept, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Department, error) {
	dept, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if appErr, ok := internal.IsAppError(err); ok {
			return nil, appErr
		}
		return nil, internal.ErrDepartmentNotFound
	}
	return dept, nil
}

func (s *Service) List(ctx context.Context) ([]*Department, error) {
	depts, err := s.repo.List(ctx)
	if err != nil {
		return nil, internal.NewTransientStorageError(err)
	}
	return depts, nil
}
