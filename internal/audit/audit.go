// Package audit is the append-only history of every state-changing action.
// Entries are never updated or deleted; for hard-deleted leave requests the
// entry payload is the only surviving copy of the record.
package audit

import (
	"context"
	"encoding/json"
	"time"
)

type Action string

const (
	ActionLeaveRequestCreated   Action = "leave_request_created"
	ActionLeaveRequestEdited    Action = "leave_request_edited"
	ActionLeaveRequestCancelled Action = "leave_request_cancelled"
	ActionLeaveRequestDeleted   Action = "leave_request_deleted"
	ActionLeaveRequestApproved  Action = "leave_request_approved"
	ActionLeaveRequestRejected  Action = "leave_request_rejected"
	ActionLeaveRequestReopened  Action = "leave_request_reopened"

	ActionEmployeeRegistered       Action = "employee_registered"
	ActionEmployeeApproved         Action = "employee_approved"
	ActionEmployeeRejected         Action = "employee_rejected"
	ActionEmployeeStatusChanged    Action = "employee_status_changed"
	ActionEmployeeAllowanceChanged Action = "employee_allowance_changed"
	ActionEmployeeDeptChanged      Action = "employee_department_changed"

	ActionSettingUpdated Action = "setting_updated"
)

type Entry struct {
	ID           int64           `json:"id" gorm:"primaryKey"`
	Action       Action          `json:"action" gorm:"column:action;not null;index"`
	ActorID      *string         `json:"actor_id,omitempty" gorm:"column:actor_id;index"`
	TargetID     *string         `json:"target_id,omitempty" gorm:"column:target_id;index"`
	ResourceType string          `json:"resource_type,omitempty" gorm:"column:resource_type"`
	Detail       json.RawMessage `json:"detail" gorm:"column:detail;type:jsonb"`
	ClientIP     string          `json:"client_ip,omitempty" gorm:"column:client_ip"`
	CreatedAt    time.Time       `json:"created_at" gorm:"column:created_at;index"`
}

func (Entry) TableName() string {
	return "audit_logs"
}

// NewEntry marshals detail into the entry payload. Marshal failures are
// folded into the payload instead of being returned: an audit write must not
// fail because a detail value was awkward to encode.
func NewEntry(action Action, actorID, targetID *string, resourceType string, detail interface{}) *Entry {
	raw, err := json.Marshal(detail)
	if err != nil {
		raw, _ = json.Marshal(map[string]string{"marshal_error": err.Error()})
	}
	return &Entry{
		Action:       action,
		ActorID:      actorID,
		TargetID:     targetID,
		ResourceType: resourceType,
		Detail:       raw,
	}
}

// Recorder is the write half of the trail. Lifecycle stores implement it
// transactionally so an entry commits together with the mutation it records.
type Recorder interface {
	AppendAudit(ctx context.Context, entry *Entry) error
}

type QueryFilter struct {
	Action   Action
	ActorID  string
	TargetID string
	Limit    int
	Offset   int
}

// Repository is the read side of the trail. Writes go through the feature
// stores' Recorder implementations so they commit with the mutation they
// record.
type Repository interface {
	Query(ctx context.Context, filter QueryFilter) ([]*Entry, error)
}
