package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/leavedesk/leave-management/internal"
	"github.com/leavedesk/leave-management/internal/audit"
	"github.com/leavedesk/leave-management/internal/leave"
)

// LeaveStore implements leave.Store using GORM. Audit entries written inside
// Atomic share the transaction with the request mutation.
type LeaveStore struct {
	db       *gorm.DB
	advisory bool
}

func NewLeaveStore(db *gorm.DB) leave.Store {
	// Advisory locks exist only on Postgres; sqlite serializes writers
	// itself, so the lock statement is skipped there.
	return &LeaveStore{db: db, advisory: db.Dialector.Name() == "postgres"}
}

func (s *LeaveStore) Create(ctx context.Context, req *leave.LeaveRequest) error {
	return s.db.WithContext(ctx).Create(req).Error
}

func (s *LeaveStore) GetByID(ctx context.Context, id string) (*leave.LeaveRequest, error) {
	var req leave.LeaveRequest
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrRequestNotFound
		}
		return nil, err
	}
	return &req, nil
}

func (s *LeaveStore) Update(ctx context.Context, req *leave.LeaveRequest) error {
	return s.db.WithContext(ctx).Save(req).Error
}

func (s *LeaveStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&leave.LeaveRequest{}, "id = ?", id).Error
}

func (s *LeaveStore) ListByEmployee(ctx context.Context, employeeID string) ([]*leave.LeaveRequest, error) {
	var requests []*leave.LeaveRequest
	err := s.db.WithContext(ctx).
		Where("employee_id = ?", employeeID).
		Order("start_date DESC").
		Find(&requests).Error
	return requests, err
}

func (s *LeaveStore) ListByEmployeeAndStatus(ctx context.Context, employeeID string, status leave.Status) ([]*leave.LeaveRequest, error) {
	var requests []*leave.LeaveRequest
	err := s.db.WithContext(ctx).
		Where("employee_id = ? AND status = ?", employeeID, status).
		Order("start_date ASC").
		Find(&requests).Error
	return requests, err
}

func (s *LeaveStore) ListAll(ctx context.Context, limit, offset int) ([]*leave.LeaveRequest, error) {
	var requests []*leave.LeaveRequest
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&requests).Error
	return requests, err
}

func (s *LeaveStore) AppendAudit(ctx context.Context, entry *audit.Entry) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

// Atomic runs fn in a transaction holding an advisory lock scoped to the
// employee. Concurrent approvals for the same employee serialize here, which
// is what keeps the overlap check and the status write consistent.
func (s *LeaveStore) Atomic(ctx context.Context, employeeID string, fn func(tx leave.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.advisory {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", employeeID).Error; err != nil {
				return err
			}
		}
		return fn(&LeaveStore{db: tx, advisory: s.advisory})
	})
}
