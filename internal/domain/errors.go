package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced to operators and stored in job snapshots.
const (
	CodeInvalidSheetName       = "INVALID_SHEETNAME"
	CodeValidationSchemaAbsent = "VALIDATION_SCHEMA_ABSENT"
	CodeFileURLNotFound        = "FILE_URL_NOT_FOUND"
	CodeInternalServerError    = "INTERNAL_SERVER_ERROR"
	CodeValidationError        = "VALIDATION_ERROR"
	CodeCreateNotSupported     = "CREATE_NOT_SUPPORTED"
	CodeResourcePollTimeout    = "RESOURCE_POLL_TIMEOUT"
	CodeResourceInvalid        = "RESOURCE_INVALID"
	CodeDownstreamError        = "DOWNSTREAM_ERROR"
	CodeBoundaryNotFound       = "BOUNDARY_NOT_FOUND"
)

// AppError is a classified failure with an HTTP status and a stable code.
type AppError struct {
	Status      int
	Code        string
	Message     string
	Description string
	Err         error
}

func (e *AppError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Description)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError builds an AppError.
func NewAppError(status int, code, message, description string) *AppError {
	return &AppError{Status: status, Code: code, Message: message, Description: description}
}

// WrapAppError classifies err under code.
func WrapAppError(err error, status int, code, message string) *AppError {
	desc := ""
	if err != nil {
		desc = err.Error()
	}
	return &AppError{Status: status, Code: code, Message: message, Description: desc, Err: err}
}

// ErrInvalidSheetName is returned when a workbook lacks the configured sheet.
func ErrInvalidSheetName(sheetName string) *AppError {
	return NewAppError(http.StatusBadRequest, CodeInvalidSheetName, "Invalid sheet name", fmt.Sprintf("sheet %q not found in workbook", sheetName))
}

// ErrSchemaAbsent is returned when the metadata service has no schema for a type.
func ErrSchemaAbsent(resourceType ResourceType, campaignType string) *AppError {
	desc := fmt.Sprintf("validation schema for %s not found", resourceType)
	if campaignType != "" {
		desc = fmt.Sprintf("validation schema for %s (campaign type %s) not found", resourceType, campaignType)
	}
	return NewAppError(http.StatusInternalServerError, CodeValidationSchemaAbsent, "Validation schema absent", desc)
}

// ErrorSnapshot is the structured error stored on a failed job.
type ErrorSnapshot struct {
	Status      int    `json:"status"`
	Code        string `json:"code"`
	Description string `json:"description"`
	Message     string `json:"message"`
}

// SnapshotError converts any error into a snapshot, classifying unknown
// errors as internal server errors.
func SnapshotError(err error) ErrorSnapshot {
	if err == nil {
		return ErrorSnapshot{}
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return ErrorSnapshot{
			Status:      appErr.Status,
			Code:        appErr.Code,
			Description: appErr.Description,
			Message:     appErr.Message,
		}
	}
	return ErrorSnapshot{
		Status:      http.StatusInternalServerError,
		Code:        CodeInternalServerError,
		Description: err.Error(),
		Message:     "Internal server error",
	}
}
