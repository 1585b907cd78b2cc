package leave

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/leavedesk/leave-management/internal"
	"github.com/leavedesk/leave-management/internal/audit"
	"github.com/leavedesk/leave-management/internal/calendar"
	"github.com/leavedesk/leave-management/internal/core/events"
	"github.com/leavedesk/leave-management/internal/employee"
	"github.com/leavedesk/leave-management/internal/settings"
	"github.com/leavedesk/leave-management/internal/visibility"
)

// Repository defines the data access methods for leave requests.
type Repository interface {
	Create(ctx context.Context, req *LeaveRequest) error
	GetByID(ctx context.Context, id string) (*LeaveRequest, error)
	Update(ctx context.Context, req *LeaveRequest) error
	Delete(ctx context.Context, id string) error
	ListByEmployee(ctx context.Context, employeeID string) ([]*LeaveRequest, error)
	ListByEmployeeAndStatus(ctx context.Context, employeeID string, status Status) ([]*LeaveRequest, error)
	ListAll(ctx context.Context, limit, offset int) ([]*LeaveRequest, error)
}

// Store adds the transactional surface on top of Repository. Atomic runs fn
// against a transaction-bound Store holding an exclusive lock for the given
// employee, so an overlap check and the status write it guards commit as one
// unit. AppendAudit inside Atomic joins the same transaction: a state change
// without its audit entry is never observable.
type Store interface {
	Repository
	audit.Recorder
	Atomic(ctx context.Context, employeeID string, fn func(tx Store) error) error
}

// EventPublisher is the notification sink. Emission is best-effort; a
// failure never rolls back the transition that triggered it.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// DepartmentSource resolves the employee record a request is scoped to when
// the creator is not the owner.
type DepartmentSource interface {
	GetByID(ctx context.Context, id string) (*employee.Employee, error)
}

const (
	EventRequestCreated  = "leave_request.created"
	EventRequestApproved = "leave_request.approved"
	EventRequestRejected = "leave_request.rejected"
)

// Service owns the leave request lifecycle. Request status is mutated here
// and nowhere else.
type Service struct {
	store     Store
	directory DepartmentSource
	policies  settings.Provider
	eventBus  EventPublisher
	clock     calendar.Clock
	logger    *slog.Logger
}

func NewService(store Store, directory DepartmentSource, policies settings.Provider, eventBus EventPublisher, clock calendar.Clock, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		directory: directory,
		policies:  policies,
		eventBus:  eventBus,
		clock:     clock,
		logger:    logger,
	}
}

// Create validates and persists a new request. Overlapping pending requests
// are allowed here; conflicts are enforced at approval time. Under auto
// approval mode a conflict-free request is approved in the same transaction.
func (s *Service) Create(ctx context.Context, principal internal.Principal, dto CreateLeaveDTO) (*LeaveRequest, error) {
	start, end, err := dto.Validate()
	if err != nil {
		s.logger.Warn("create request validation failed", "user_id", principal.UserID, "error", err)
		return nil, err
	}

	employeeID := principal.UserID
	departmentID := principal.DepartmentID
	if dto.EmployeeID != "" && dto.EmployeeID != principal.UserID {
		if !principal.IsAdmin() {
			return nil, internal.ErrForbidden
		}
		// The request is scoped to the owner's department, not the
		// admin's, so department-only visibility works for coworkers.
		owner, err := s.directory.GetByID(ctx, dto.EmployeeID)
		if err != nil {
			return nil, storageError(err)
		}
		employeeID = owner.ID
		departmentID = ""
		if owner.DepartmentID != nil {
			departmentID = *owner.DepartmentID
		}
	}

	policy, err := s.policies.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	today := calendar.DateOf(s.clock.Now())
	if dto.Type == TypeVacation {
		if start.Before(today) {
			return nil, internal.ErrPastDateNotAllowed
		}
		if policy.AdvanceNoticeDays > 0 && start.Before(today.AddDate(0, 0, policy.AdvanceNoticeDays)) {
			return nil, internal.NewValidationError(
				fmt.Sprintf("vacation requests need %d days advance notice", policy.AdvanceNoticeDays),
				internal.ErrCodeValidationFailed)
		}
	}

	workingDays, err := calendar.WorkingDays(start, end)
	if err != nil {
		return nil, err
	}
	if policy.MaxConsecutiveDays > 0 && workingDays > policy.MaxConsecutiveDays {
		return nil, internal.NewValidationError(
			fmt.Sprintf("requests are limited to %d consecutive working days", policy.MaxConsecutiveDays),
			internal.ErrCodeValidationFailed)
	}

	now := s.clock.Now()
	req := &LeaveRequest{
		ID:                  uuid.NewString(),
		EmployeeID:          employeeID,
		DepartmentID:        departmentID,
		Type:                dto.Type,
		StartDate:           start,
		EndDate:             end,
		WorkingDays:         workingDays,
		Status:              StatusPending,
		Notes:               dto.Notes,
		CertificateURL:      dto.CertificateURL,
		CertificateDeferred: dto.CertificateDeferred,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if req.Type == TypeSick && !req.HasCertificateInfo() {
		return nil, internal.ErrMedicalCertificateRequired
	}

	autoApproved := false
	err = s.store.Atomic(ctx, employeeID, func(tx Store) error {
		if policy.ApprovalMode == settings.ApprovalAuto {
			conflict, err := NewDetector(tx).HasApprovedOverlap(ctx, employeeID, start, end, "")
			if err != nil {
				return err
			}
			if !conflict {
				req.Status = StatusApproved
				resolvedAt := now
				req.ResolvedAt = &resolvedAt
				autoApproved = true
			}
		}

		if err := tx.Create(ctx, req); err != nil {
			return err
		}
		if err := tx.AppendAudit(ctx, s.entry(audit.ActionLeaveRequestCreated, principal, req,
			map[string]interface{}{"request": req})); err != nil {
			return err
		}
		if autoApproved {
			return tx.AppendAudit(ctx, s.entry(audit.ActionLeaveRequestApproved, principal, req,
				map[string]interface{}{"request": req, "auto": true}))
		}
		return nil
	})
	if err != nil {
		s.logger.Error("failed to create leave request", "employee_id", employeeID, "error", err)
		return nil, storageError(err)
	}

	s.logger.Info("leave request created",
		"request_id", req.ID,
		"employee_id", employeeID,
		"type", req.Type,
		"working_days", req.WorkingDays,
		"status", req.Status)

	s.notify(ctx, EventRequestCreated, req, principal)
	if autoApproved {
		s.notify(ctx, EventRequestApproved, req, principal)
	}
	return req, nil
}

// Edit mutates a pending request. Always audited with a before/after
// snapshot, even when nothing changed.
func (s *Service) Edit(ctx context.Context, principal internal.Principal, requestID string, dto UpdateLeaveDTO) (*LeaveRequest, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	var updated *LeaveRequest
	err := s.withRequest(ctx, requestID, func(tx Store, req *LeaveRequest) error {
		if req.EmployeeID != principal.UserID && !principal.IsAdmin() {
			return internal.ErrNotEditable
		}
		if !req.IsPending() {
			return internal.ErrNotEditable
		}

		before := *req

		if dto.Type != nil {
			req.Type = *dto.Type
		}
		if dto.StartDate != nil {
			start, _ := parseDate(*dto.StartDate)
			req.StartDate = start
		}
		if dto.EndDate != nil {
			end, _ := parseDate(*dto.EndDate)
			req.EndDate = end
		}
		if dto.Notes != nil {
			req.Notes = *dto.Notes
		}
		if dto.CertificateURL != nil {
			req.CertificateURL = dto.CertificateURL
		}
		if dto.CertificateDeferred != nil {
			req.CertificateDeferred = *dto.CertificateDeferred
		}

		workingDays, err := calendar.WorkingDays(req.StartDate, req.EndDate)
		if err != nil {
			return err
		}
		req.WorkingDays = workingDays

		if req.Type == TypeSick && !req.HasCertificateInfo() {
			return internal.ErrMedicalCertificateRequired
		}

		req.UpdatedAt = s.clock.Now()
		if err := tx.Update(ctx, req); err != nil {
			return err
		}
		updated = req

		return tx.AppendAudit(ctx, s.entry(audit.ActionLeaveRequestEdited, principal, req,
			map[string]interface{}{"before": before, "after": req}))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("leave request edited", "request_id", requestID, "editor_id", principal.UserID)
	return updated, nil
}

// Cancel transitions a pending request to cancelled. Owners cancel their
// own; admins may cancel any.
func (s *Service) Cancel(ctx context.Context, principal internal.Principal, requestID string) (*LeaveRequest, error) {
	var cancelled *LeaveRequest
	err := s.withRequest(ctx, requestID, func(tx Store, req *LeaveRequest) error {
		if req.EmployeeID != principal.UserID && !principal.IsAdmin() {
			return internal.ErrNotCancellable
		}
		if !req.IsPending() {
			return internal.ErrNotCancellable
		}

		req.Status = StatusCancelled
		req.UpdatedAt = s.clock.Now()
		if err := tx.Update(ctx, req); err != nil {
			return err
		}
		cancelled = req

		return tx.AppendAudit(ctx, s.entry(audit.ActionLeaveRequestCancelled, principal, req,
			map[string]interface{}{"request": req}))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("leave request cancelled", "request_id", requestID, "actor_id", principal.UserID)
	return cancelled, nil
}

// Delete hard-deletes a pending request, owner only. The full pre-deletion
// record goes into the audit payload; that entry is the record's history
// from now on.
func (s *Service) Delete(ctx context.Context, principal internal.Principal, requestID string) error {
	err := s.withRequest(ctx, requestID, func(tx Store, req *LeaveRequest) error {
		if req.EmployeeID != principal.UserID {
			return internal.ErrNotDeletable
		}
		if !req.IsPending() {
			return internal.ErrNotDeletable
		}

		snapshot := *req
		if err := tx.AppendAudit(ctx, s.entry(audit.ActionLeaveRequestDeleted, principal, req,
			map[string]interface{}{"request": snapshot})); err != nil {
			return err
		}
		return tx.Delete(ctx, req.ID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("leave request deleted", "request_id", requestID, "owner_id", principal.UserID)
	return nil
}

// Approve resolves a pending request. The overlap check and the status
// write run inside one per-employee atomic section so two concurrent
// approvals of overlapping requests cannot both succeed.
func (s *Service) Approve(ctx context.Context, principal internal.Principal, requestID string) (*LeaveRequest, error) {
	if !principal.IsAdmin() {
		return nil, internal.ErrForbidden
	}

	var approved *LeaveRequest
	err := s.withRequest(ctx, requestID, func(tx Store, req *LeaveRequest) error {
		if !req.CanBeResolved() {
			return internal.ErrNotPending
		}

		conflict, err := NewDetector(tx).HasApprovedOverlap(ctx, req.EmployeeID, req.StartDate, req.EndDate, req.ID)
		if err != nil {
			return err
		}
		if conflict {
			return internal.ErrOverlapConflict
		}

		now := s.clock.Now()
		req.Status = StatusApproved
		req.ResolverID = &principal.UserID
		req.ResolvedAt = &now
		req.RejectionReason = nil
		req.UpdatedAt = now
		if err := tx.Update(ctx, req); err != nil {
			return err
		}
		approved = req

		return tx.AppendAudit(ctx, s.entry(audit.ActionLeaveRequestApproved, principal, req,
			map[string]interface{}{"request": req}))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("leave request approved", "request_id", requestID, "resolver_id", principal.UserID)
	s.notify(ctx, EventRequestApproved, approved, principal)
	return approved, nil
}

// Reject resolves a pending request with an optional reason.
func (s *Service) Reject(ctx context.Context, principal internal.Principal, requestID string, reason string) (*LeaveRequest, error) {
	if !principal.IsAdmin() {
		return nil, internal.ErrForbidden
	}

	var rejected *LeaveRequest
	err := s.withRequest(ctx, requestID, func(tx Store, req *LeaveRequest) error {
		if !req.CanBeResolved() {
			return internal.ErrNotPending
		}

		now := s.clock.Now()
		req.Status = StatusRejected
		req.ResolverID = &principal.UserID
		req.ResolvedAt = &now
		if reason != "" {
			req.RejectionReason = &reason
		}
		req.UpdatedAt = now
		if err := tx.Update(ctx, req); err != nil {
			return err
		}
		rejected = req

		return tx.AppendAudit(ctx, s.entry(audit.ActionLeaveRequestRejected, principal, req,
			map[string]interface{}{"request": req, "reason": reason}))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("leave request rejected",
		"request_id", requestID,
		"resolver_id", principal.UserID,
		"reason", reason)
	s.notify(ctx, EventRequestRejected, rejected, principal)
	return rejected, nil
}

// Reopen is the administrative override moving a resolved request back to
// pending. It is a fresh, audited transition; history stays untouched.
func (s *Service) Reopen(ctx context.Context, principal internal.Principal, requestID string) (*LeaveRequest, error) {
	if !principal.IsAdmin() {
		return nil, internal.ErrForbidden
	}

	var reopened *LeaveRequest
	err := s.withRequest(ctx, requestID, func(tx Store, req *LeaveRequest) error {
		if !req.CanBeReopened() {
			return internal.ErrNotReopenable
		}

		previous := req.Status
		req.Status = StatusPending
		req.ResolverID = nil
		req.ResolvedAt = nil
		req.RejectionReason = nil
		req.UpdatedAt = s.clock.Now()
		if err := tx.Update(ctx, req); err != nil {
			return err
		}
		reopened = req

		return tx.AppendAudit(ctx, s.entry(audit.ActionLeaveRequestReopened, principal, req,
			map[string]interface{}{"request": req, "previous_status": previous}))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("leave request reopened", "request_id", requestID, "admin_id", principal.UserID)
	return reopened, nil
}

// Get returns one request if the visibility policy lets the viewer see it.
func (s *Service) Get(ctx context.Context, principal internal.Principal, requestID string) (*LeaveRequest, error) {
	req, err := s.store.GetByID(ctx, requestID)
	if err != nil {
		return nil, storageError(err)
	}

	policy, err := s.policies.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if !visibility.CanSee(principal, policy.VisibilityMode, req) {
		// Hidden requests read as absent rather than forbidden.
		return nil, internal.ErrRequestNotFound
	}

	s.flagConflicts(ctx, req)
	return req, nil
}

// List returns the requests the viewer may see under the current visibility
// mode, with courtesy conflict warnings on pending entries.
func (s *Service) List(ctx context.Context, principal internal.Principal, limit, offset int) ([]*LeaveRequest, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	requests, err := s.store.ListAll(ctx, limit, offset)
	if err != nil {
		return nil, storageError(err)
	}

	policy, err := s.policies.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	visible := visibility.Filter(principal, policy.VisibilityMode, requests)
	for _, req := range visible {
		s.flagConflicts(ctx, req)
	}
	return visible, nil
}

// ListByEmployee returns one employee's requests, own-or-admin only.
func (s *Service) ListByEmployee(ctx context.Context, principal internal.Principal, employeeID string) ([]*LeaveRequest, error) {
	if employeeID != principal.UserID && !principal.IsAdmin() {
		return nil, internal.ErrForbidden
	}

	requests, err := s.store.ListByEmployee(ctx, employeeID)
	if err != nil {
		return nil, storageError(err)
	}
	for _, req := range requests {
		s.flagConflicts(ctx, req)
	}
	return requests, nil
}

// withRequest runs fn under the request's per-employee lock, re-fetching the
// row inside the transaction so state checks see committed truth.
func (s *Service) withRequest(ctx context.Context, requestID string, fn func(tx Store, req *LeaveRequest) error) error {
	req, err := s.store.GetByID(ctx, requestID)
	if err != nil {
		return storageError(err)
	}

	err = s.store.Atomic(ctx, req.EmployeeID, func(tx Store) error {
		fresh, err := tx.GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		return fn(tx, fresh)
	})
	if err != nil {
		if _, ok := internal.IsAppError(err); !ok {
			s.logger.Error("leave request transaction failed", "request_id", requestID, "error", err)
		}
		return storageError(err)
	}
	return nil
}

// flagConflicts marks pending requests that would collide with an approved
// one. Best effort; a read-path warning never fails the listing.
func (s *Service) flagConflicts(ctx context.Context, req *LeaveRequest) {
	if !req.IsPending() {
		return
	}
	conflict, err := NewDetector(s.store).HasApprovedOverlap(ctx, req.EmployeeID, req.StartDate, req.EndDate, req.ID)
	if err != nil {
		s.logger.Warn("conflict warning check failed", "request_id", req.ID, "error", err)
		return
	}
	req.ConflictWarning = conflict
}

func (s *Service) entry(action audit.Action, principal internal.Principal, req *LeaveRequest, detail interface{}) *audit.Entry {
	e := audit.NewEntry(action, &principal.UserID, &req.ID, "leave_request", detail)
	e.CreatedAt = s.clock.Now()
	return e
}

func (s *Service) notify(ctx context.Context, eventType string, req *LeaveRequest, principal internal.Principal) {
	event := events.BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: s.clock.Now(),
		Data: map[string]interface{}{
			"request_id":   req.ID,
			"employee_id":  req.EmployeeID,
			"leave_type":   req.Type,
			"start_date":   req.StartDate.Format(dateLayout),
			"end_date":     req.EndDate.Format(dateLayout),
			"working_days": req.WorkingDays,
			"status":       req.Status,
			"actor_id":     principal.UserID,
		},
	}
	if err := s.eventBus.Publish(ctx, event); err != nil {
		s.logger.Warn("notification publish failed", "event_type", eventType, "request_id", req.ID, "error", err)
	}
}

// storageError passes typed failures through untouched and classifies
// everything else as a retryable storage fault.
func storageError(err error) error {
	if appErr, ok := internal.IsAppError(err); ok {
		return appErr
	}
	return internal.NewTransientStorageError(err)
}
