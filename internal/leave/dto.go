package leave

import (
	"time"

	"github.com/leavedesk/leave-management/internal"
	"github.com/leavedesk/leave-management/internal/calendar"
)

const dateLayout = "2006-01-02"

// CreateLeaveDTO is the create payload. Dates arrive as YYYY-MM-DD strings
// and are parsed exactly once, here.
type CreateLeaveDTO struct {
	// EmployeeID is honored only for admin callers creating a request on an
	// employee's behalf; everyone else gets their own id.
	EmployeeID          string  `json:"employee_id,omitempty"`
	Type                Type    `json:"type" validate:"required,oneof=vacation personal sick"`
	StartDate           string  `json:"start_date" validate:"required"`
	EndDate             string  `json:"end_date" validate:"required"`
	Notes               string  `json:"notes,omitempty" validate:"max=1000"`
	CertificateURL      *string `json:"certificate_url,omitempty"`
	CertificateDeferred bool    `json:"certificate_deferred,omitempty"`
}

func (dto CreateLeaveDTO) Validate() (start, end time.Time, err error) {
	if err = internal.ValidateStruct(dto); err != nil {
		return start, end, err
	}
	start, err = parseDate(dto.StartDate)
	if err != nil {
		return start, end, err
	}
	end, err = parseDate(dto.EndDate)
	if err != nil {
		return start, end, err
	}
	if start.After(end) {
		return start, end, internal.ErrInvalidRange
	}
	return start, end, nil
}

// UpdateLeaveDTO carries the editable fields of a pending request. Nil
// pointers mean "leave unchanged".
type UpdateLeaveDTO struct {
	Type                *Type   `json:"type,omitempty"`
	StartDate           *string `json:"start_date,omitempty"`
	EndDate             *string `json:"end_date,omitempty"`
	Notes               *string `json:"notes,omitempty"`
	CertificateURL      *string `json:"certificate_url,omitempty"`
	CertificateDeferred *bool   `json:"certificate_deferred,omitempty"`
}

func (dto UpdateLeaveDTO) Validate() error {
	if dto.Type != nil && !dto.Type.Valid() {
		return internal.NewValidationError("unknown leave type", internal.ErrCodeValidationFailed)
	}
	if dto.StartDate != nil {
		if _, err := parseDate(*dto.StartDate); err != nil {
			return err
		}
	}
	if dto.EndDate != nil {
		if _, err := parseDate(*dto.EndDate); err != nil {
			return err
		}
	}
	if dto.Notes != nil && len(*dto.Notes) > 1000 {
		return internal.NewValidationError("notes must not exceed 1000 characters", internal.ErrCodeValidationFailed)
	}
	return nil
}

type RejectLeaveDTO struct {
	Reason string `json:"reason,omitempty"`
}

func parseDate(raw string) (time.Time, error) {
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, internal.NewValidationError(
			"invalid date, expected YYYY-MM-DD", internal.ErrCodeValidationFailed).WithCause(err)
	}
	return calendar.DateOf(t), nil
}
