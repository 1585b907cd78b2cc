package settings

import (
	"context"
	"log/slog"

	"github.com/leavedesk/leave-management/internal"
	"github.com/leavedesk/leave-management/internal/audit"
	"github.com/leavedesk/leave-management/internal/calendar"
)

// Provider hands out fresh policy snapshots. Lifecycle and visibility
// consumers take it as an explicit dependency instead of reading globals,
// and call it per operation so setting changes apply immediately.
type Provider interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

type Repository interface {
	GetAll(ctx context.Context) ([]*Setting, error)
	Upsert(ctx context.Context, setting *Setting) error
}

// Store adds the transactional surface on top of Repository. AppendAudit
// inside Atomic joins the same transaction, so a policy change without its
// audit entry is never observable.
type Store interface {
	Repository
	audit.Recorder
	Atomic(ctx context.Context, fn func(tx Store) error) error
}

type Service struct {
	store  Store
	clock  calendar.Clock
	logger *slog.Logger
}

func NewService(store Store, clock calendar.Clock, logger *slog.Logger) *Service {
	return &Service{store: store, clock: clock, logger: logger}
}

// Snapshot loads every stored setting, falling back to defaults for keys
// never written.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	stored, err := s.store.GetAll(ctx)
	if err != nil {
		s.logger.Error("failed to load settings", "error", err)
		return Snapshot{}, internal.NewTransientStorageError(err)
	}

	values := make(map[string]string, len(stored))
	for _, setting := range stored {
		values[setting.Key] = setting.Value
	}
	return snapshotFrom(values), nil
}

// List returns the effective value of every known key, admin only.
func (s *Service) List(ctx context.Context, principal internal.Principal) ([]*Setting, error) {
	if !principal.IsAdmin() {
		return nil, internal.ErrForbidden
	}

	stored, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, internal.NewTransientStorageError(err)
	}

	byKey := make(map[string]*Setting, len(stored))
	for _, setting := range stored {
		byKey[setting.Key] = setting
	}

	out := make([]*Setting, 0, len(rules))
	for _, key := range []string{
		KeyVisibilityMode, KeyApprovalMode, KeyAdvanceNoticeDays, KeyMaxConsecutiveDays,
		KeyVacationAllowance, KeyPersonalAllowance, KeySickAllowance,
	} {
		if setting, ok := byKey[key]; ok {
			out = append(out, setting)
			continue
		}
		out = append(out, &Setting{Key: key, Value: defaults[key]})
	}
	return out, nil
}

// Set validates raw against the key's rule, persists it, and audits the
// old/new pair. Unknown keys and invalid values are rejected before any
// write happens.
func (s *Service) Set(ctx context.Context, principal internal.Principal, key, raw string) (*Setting, error) {
	if !principal.IsAdmin() {
		return nil, internal.ErrForbidden
	}
	if err := ValidateValue(key, raw); err != nil {
		s.logger.Warn("setting rejected", "key", key, "value", raw, "error", err)
		return nil, err
	}

	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	oldValue := snapshot.rawValue(key)

	setting := &Setting{
		Key:       key,
		Value:     raw,
		UpdatedBy: &principal.UserID,
		UpdatedAt: s.clock.Now(),
	}
	entry := audit.NewEntry(audit.ActionSettingUpdated, &principal.UserID, &key, "setting", map[string]string{
		"key":       key,
		"old_value": oldValue,
		"new_value": raw,
	})
	entry.CreatedAt = s.clock.Now()

	err = s.store.Atomic(ctx, func(tx Store) error {
		if err := tx.Upsert(ctx, setting); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, entry)
	})
	if err != nil {
		s.logger.Error("failed to persist setting", "key", key, "error", err)
		if appErr, ok := internal.IsAppError(err); ok {
			return nil, appErr
		}
		return nil, internal.NewTransientStorageError(err)
	}

	s.logger.Info("setting updated", "key", key, "old_value", oldValue, "new_value", raw, "updated_by", principal.UserID)
	return setting, nil
}
