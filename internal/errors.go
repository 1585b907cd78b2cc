package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
	ErrorTypeTransient    ErrorType = "TRANSIENT_ERROR"
)

type ErrorCode string

const (
	ErrCodeInvalidRange          ErrorCode = "INVALID_RANGE"
	ErrCodePastDateNotAllowed    ErrorCode = "PAST_DATE_NOT_ALLOWED"
	ErrCodeCertificateRequired   ErrorCode = "MEDICAL_CERTIFICATE_REQUIRED"
	ErrCodeNotEditable           ErrorCode = "NOT_EDITABLE"
	ErrCodeNotCancellable        ErrorCode = "NOT_CANCELLABLE"
	ErrCodeNotDeletable          ErrorCode = "NOT_DELETABLE"
	ErrCodeForbidden             ErrorCode = "FORBIDDEN"
	ErrCodeNotPending            ErrorCode = "NOT_PENDING"
	ErrCodeOverlapConflict       ErrorCode = "OVERLAP_CONFLICT"
	ErrCodeNotReopenable         ErrorCode = "NOT_REOPENABLE"
	ErrCodeInvalidSettingValue   ErrorCode = "INVALID_SETTING_VALUE"
	ErrCodeUnknownSettingKey     ErrorCode = "UNKNOWN_SETTING_KEY"
	ErrCodeRequestNotFound       ErrorCode = "REQUEST_NOT_FOUND"
	ErrCodeEmployeeNotFound      ErrorCode = "EMPLOYEE_NOT_FOUND"
	ErrCodeDepartmentNotFound    ErrorCode = "DEPARTMENT_NOT_FOUND"
	ErrCodeEmailTaken            ErrorCode = "EMAIL_TAKEN"
	ErrCodeInvalidStatusChange   ErrorCode = "INVALID_STATUS_CHANGE"
	ErrCodeValidationFailed      ErrorCode = "VALIDATION_FAILED"
	ErrCodeTransientStorageError ErrorCode = "TRANSIENT_STORAGE_ERROR"
)

// AppError is the one error shape that crosses service boundaries. Every
// failure a service returns maps to a stable Type/Code pair so the HTTP
// layer never has to guess a status.
type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

func NewTransientStorageError(cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeTransient,
		Code:       ErrCodeTransientStorageError,
		Message:    "storage temporarily unavailable",
		StatusCode: http.StatusServiceUnavailable,
		Cause:      cause,
	}
}

var (
	ErrInvalidRange = NewValidationError("start date must be on or before end date", ErrCodeInvalidRange)

	ErrPastDateNotAllowed = NewValidationError("vacation requests cannot start in the past", ErrCodePastDateNotAllowed)

	ErrMedicalCertificateRequired = NewValidationError(
		"sick leave requires a medical certificate or a commitment to submit one", ErrCodeCertificateRequired)

	ErrNotEditable    = NewConflictError("only pending requests can be edited by their owner", ErrCodeNotEditable)
	ErrNotCancellable = NewConflictError("only pending requests can be cancelled", ErrCodeNotCancellable)
	ErrNotDeletable   = NewConflictError("only pending requests can be deleted by their owner", ErrCodeNotDeletable)

	ErrForbidden     = NewForbiddenError("admin access required", ErrCodeForbidden)
	ErrNotPending    = NewConflictError("request is not pending", ErrCodeNotPending)
	ErrNotReopenable = NewConflictError("only approved or rejected requests can be reopened", ErrCodeNotReopenable)

	ErrOverlapConflict = NewConflictError(
		"an approved request already covers part of this date range", ErrCodeOverlapConflict)

	ErrInvalidSettingValue = NewValidationError("setting value fails validation for its key", ErrCodeInvalidSettingValue)
	ErrUnknownSettingKey   = NewValidationError("unknown setting key", ErrCodeUnknownSettingKey)

	ErrRequestNotFound    = NewNotFoundError("leave request not found", ErrCodeRequestNotFound)
	ErrEmployeeNotFound   = NewNotFoundError("employee not found", ErrCodeEmployeeNotFound)
	ErrDepartmentNotFound = NewNotFoundError("department not found", ErrCodeDepartmentNotFound)

	ErrEmailTaken          = NewConflictError("an employee with this email already exists", ErrCodeEmailTaken)
	ErrInvalidStatusChange = NewConflictError("employee status transition not allowed", ErrCodeInvalidStatusChange)
)

func IsAppError(err error) (*AppError, bool) {
	if appErr, ok := err.(*AppError); ok {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
