package department

import (
	"context"
	"time"
)

type Department struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"column:name;uniqueIndex;not null"`
	Location  *string   `json:"location,omitempty" gorm:"column:location"`
	ManagerID *string   `json:"manager_id,omitempty" gorm:"column:manager_id"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (Department) TableName() string {
	return "departments"
}

type Repository interface {
	Create(ctx context.Context, dept *Department) error
	GetByID(ctx context.Context, id string) (*Department, error)
	List(ctx context.Context) ([]*Department, error)
}
