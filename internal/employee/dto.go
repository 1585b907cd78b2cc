package employee

import (
	"github.com/leavedesk/leave-management/internal"
)

type RegisterEmployeeDTO struct {
	Email        string  `json:"email" validate:"required,email"`
	Name         string  `json:"name" validate:"required,max=200"`
	Password     string  `json:"password" validate:"required,min=8"`
	DepartmentID *string `json:"department_id,omitempty"`
}

func (dto RegisterEmployeeDTO) Validate() error {
	return internal.ValidateStruct(dto)
}

// UpdateAllowancesDTO carries per-type allowance overrides; nil means keep.
type UpdateAllowancesDTO struct {
	Vacation *int `json:"vacation,omitempty"`
	Personal *int `json:"personal,omitempty"`
	Sick     *int `json:"sick,omitempty"`
}

func (dto UpdateAllowancesDTO) Validate() error {
	check := func(name string, v *int, min int) error {
		if v != nil && (*v < min || *v > 365) {
			return internal.NewValidationError(name+" allowance out of range", internal.ErrCodeValidationFailed)
		}
		return nil
	}
	if err := check("vacation", dto.Vacation, 1); err != nil {
		return err
	}
	if err := check("personal", dto.Personal, 1); err != nil {
		return err
	}
	// -1 keeps sick leave unlimited
	return check("sick", dto.Sick, -1)
}

type SetStatusDTO struct {
	Status Status `json:"status"`
}

type AssignDepartmentDTO struct {
	DepartmentID *string `json:"department_id"`
}
