package backup

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation indicates a document that fails structural checks.
	ErrValidation = errors.New("invalid backup document")
	// ErrPreviewMismatch indicates the store changed between preview and apply.
	ErrPreviewMismatch = errors.New("import no longer matches preview")
	// ErrArchiveNotConfigured indicates no backup transport is available.
	ErrArchiveNotConfigured = errors.New("backup archive not configured")
)

// MalformedRecordError describes an incoming job that was rejected during
// a merge. It never aborts the merge.
type MalformedRecordError struct {
	Index  int    `json:"index"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
}

func (e *MalformedRecordError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("incoming job %d (%s): %s", e.Index, e.ID, e.Reason)
	}
	return fmt.Sprintf("incoming job %d: %s", e.Index, e.Reason)
}
