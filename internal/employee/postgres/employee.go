package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/leavedesk/leave-management/internal"
	"github.com/leavedesk/leave-management/internal/audit"
	"github.com/leavedesk/leave-management/internal/employee"
)

// EmployeeStore implements employee.Store using GORM. Audit entries written
// inside Atomic share the transaction with the employee mutation.
type EmployeeStore struct {
	db *gorm.DB
}

func NewEmployeeStore(db *gorm.DB) employee.Store {
	return &EmployeeStore{db: db}
}

func (s *EmployeeStore) Create(ctx context.Context, emp *employee.Employee) error {
	return s.db.WithContext(ctx).Create(emp).Error
}

func (s *EmployeeStore) GetByID(ctx context.Context, id string) (*employee.Employee, error) {
	var emp employee.Employee
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&emp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrEmployeeNotFound
		}
		return nil, err
	}
	return &emp, nil
}

func (s *EmployeeStore) GetByEmail(ctx context.Context, email string) (*employee.Employee, error) {
	var emp employee.Employee
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&emp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrEmployeeNotFound
		}
		return nil, err
	}
	return &emp, nil
}

func (s *EmployeeStore) Update(ctx context.Context, emp *employee.Employee) error {
	return s.db.WithContext(ctx).Save(emp).Error
}

func (s *EmployeeStore) List(ctx context.Context, limit, offset int) ([]*employee.Employee, error) {
	var employees []*employee.Employee
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&employees).Error
	return employees, err
}

func (s *EmployeeStore) AppendAudit(ctx context.Context, entry *audit.Entry) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *EmployeeStore) Atomic(ctx context.Context, fn func(tx employee.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&EmployeeStore{db: tx})
	})
}
