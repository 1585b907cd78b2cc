package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/leavedesk/leave-management/internal"
	"github.com/leavedesk/leave-management/internal/department"
)

// DepartmentRepository implements department.Repository using GORM.
type DepartmentRepository struct {
	db *gorm.DB
}

func NewDepartmentRepository(db *gorm.DB) department.Repository {
	return &DepartmentRepository{db: db}
}

func (r *DepartmentRepository) Create(ctx context.Context, dept *department.Department) error {
	return r.db.WithContext(ctx).Create(dept).Error
}

func (r *DepartmentRepository) GetByID(ctx context.Context, id string) (*department.Department, error) {
	var dept department.Department
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&dept).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrDepartmentNotFound
		}
		return nil, err
	}
	return &dept, nil
}

func (r *DepartmentRepository) List(ctx context.Context) ([]*department.Department, error) {
	var depts []*department.Department
	err := r.db.WithContext(ctx).Order("name ASC").Find(&depts).Error
	return depts, err
}
