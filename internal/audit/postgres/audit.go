package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/leavedesk/leave-management/internal/audit"
)

// AuditRepository implements audit.Repository using GORM.
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) audit.Repository {
	return &AuditRepository{db: db}
}

// Query returns entries newest first, ties broken by insertion order.
func (r *AuditRepository) Query(ctx context.Context, filter audit.QueryFilter) ([]*audit.Entry, error) {
	q := r.db.WithContext(ctx).Model(&audit.Entry{})

	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if filter.ActorID != "" {
		q = q.Where("actor_id = ?", filter.ActorID)
	}
	if filter.TargetID != "" {
		q = q.Where("target_id = ?", filter.TargetID)
	}

	var entries []*audit.Entry
	err := q.Order("created_at DESC, id DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&entries).Error
	return entries, err
}
