package postgres

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/leavedesk/leave-management/internal/audit"
	"github.com/leavedesk/leave-management/internal/settings"
)

// SettingsStore implements settings.Store using GORM. Audit entries written
// inside Atomic share the transaction with the setting upsert.
type SettingsStore struct {
	db *gorm.DB
}

func NewSettingsStore(db *gorm.DB) settings.Store {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) GetAll(ctx context.Context) ([]*settings.Setting, error) {
	var stored []*settings.Setting
	err := s.db.WithContext(ctx).Find(&stored).Error
	return stored, err
}

func (s *SettingsStore) Upsert(ctx context.Context, setting *settings.Setting) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_by", "updated_at"}),
		}).
		Create(setting).Error
}

func (s *SettingsStore) AppendAudit(ctx context.Context, entry *audit.Entry) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *SettingsStore) Atomic(ctx context.Context, fn func(tx settings.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&SettingsStore{db: tx})
	})
}
