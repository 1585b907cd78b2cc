package audit

import (
	"context"
	"log/slog"

	"github.com/leavedesk/leave-management/internal"
)

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Query lists entries newest first. Admin only.
func (s *Service) Query(ctx context.Context, principal internal.Principal, filter QueryFilter) ([]*Entry, error) {
	if !principal.IsAdmin() {
		return nil, internal.ErrForbidden
	}

	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	entries, err := s.repo.Query(ctx, filter)
	if err != nil {
		s.logger.Error("audit query failed", "error", err)
		return nil, internal.NewTransientStorageError(err)
	}
	return entries, nil
}
