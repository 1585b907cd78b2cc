package internal

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct runs the shared validator over a payload's validate tags,
// folding failures into the application error taxonomy.
func ValidateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		return NewValidationError(err.Error(), ErrCodeValidationFailed).WithCause(err)
	}
	return nil
}
