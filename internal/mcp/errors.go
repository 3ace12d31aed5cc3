package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/techtrace/internal/backup"
	"github.com/rpggio/techtrace/internal/domain/activity"
	"github.com/rpggio/techtrace/internal/domain/job"
	"github.com/rpggio/techtrace/internal/domain/settings"
	"github.com/rpggio/techtrace/internal/repository"
)

var (
	// errInvalidParams wraps argument decoding failures.
	errInvalidParams = errors.New("invalid params")
	errUnknownMethod = errors.New("unknown method")
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) CodeValue() string {
	return e.Code
}

func (e *APIError) MessageValue() string {
	return e.Message
}

func (e *APIError) DetailsValue() any {
	return e.Details
}

func (e *APIError) RecoveryHintValue() string {
	return e.RecoveryHint
}

// MapError maps domain errors to MCP error codes. Unknown errors map to nil.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	switch {
	case errors.Is(err, errUnknownMethod):
		return &APIError{Code: "METHOD_NOT_FOUND", Message: err.Error(), RecoveryHint: "Call tools/list for the available tools"}
	case errors.Is(err, job.ErrJobNotFound):
		return &APIError{Code: "JOB_NOT_FOUND", Message: "job not found", RecoveryHint: "Call list_jobs to find the id"}
	case errors.Is(err, job.ErrInvalidInput), errors.Is(err, job.ErrInvalidVHCStatus),
		errors.Is(err, settings.ErrInvalidInput), errors.Is(err, activity.ErrInvalidInput),
		errors.Is(err, repository.ErrInvalidInput), errors.Is(err, errInvalidParams):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error(), RecoveryHint: "Fix the arguments and retry"}
	case errors.Is(err, repository.ErrConflict):
		return &APIError{Code: "CONFLICT", Message: err.Error(), RecoveryHint: "Use a different id"}
	case errors.Is(err, backup.ErrValidation):
		return &APIError{Code: "INVALID_BACKUP", Message: err.Error(), RecoveryHint: "Supply a document produced by export_backup"}
	case errors.Is(err, backup.ErrPreviewMismatch):
		return &APIError{Code: "PREVIEW_MISMATCH", Message: err.Error(), RecoveryHint: "Call preview_import again and confirm the new counts"}
	case errors.Is(err, backup.ErrArchiveNotConfigured):
		return &APIError{Code: "ARCHIVE_NOT_CONFIGURED", Message: "no backup archive is configured", RecoveryHint: "Pass the document as content instead"}
	case errors.Is(err, settings.ErrPINMismatch):
		return &APIError{Code: "PIN_MISMATCH", Message: "pin does not match"}
	case errors.Is(err, settings.ErrPINNotSet):
		return &APIError{Code: "PIN_NOT_SET", Message: "no pin has been set", RecoveryHint: "Call set_pin first"}
	default:
		return nil
	}
}
