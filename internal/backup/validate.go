package backup

import (
	"encoding/json"
	"fmt"
)

// ValidationResult reports whether a value has the backup envelope shape.
// Field names the first check that failed.
type ValidationResult struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
	Field string `json:"field,omitempty"`
}

// Err converts a failed result into an error wrapping ErrValidation.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrValidation, r.Error)
}

func invalid(field, reason string) ValidationResult {
	return ValidationResult{Valid: false, Field: field, Error: reason}
}

// Validate checks the envelope of an already parsed value. Only the
// container shapes are checked; individual job records are checked when
// they are decoded and merged.
//
// Typed values (a Document, a struct) are normalized through JSON first so
// they are judged by the same rules as data read from a file.
func Validate(value any) ValidationResult {
	obj, ok := asObject(value)
	if !ok {
		return invalid("", "backup must be a JSON object")
	}

	jobs, present := obj["jobs"]
	if !present {
		return invalid("jobs", "missing jobs")
	}
	if _, ok := jobs.([]any); !ok {
		return invalid("jobs", "jobs must be an array")
	}

	settings, present := obj["settings"]
	if !present {
		return invalid("settings", "missing settings")
	}
	if _, ok := settings.(map[string]any); !ok {
		return invalid("settings", "settings must be an object")
	}

	metadata, present := obj["metadata"]
	if !present {
		return invalid("metadata", "missing metadata")
	}
	if _, ok := metadata.(map[string]any); !ok {
		return invalid("metadata", "metadata must be an object")
	}

	return ValidationResult{Valid: true}
}

// ValidateJSON parses data and validates the result. Unparseable input is
// returned as an error rather than a result.
func ValidateJSON(data []byte) (ValidationResult, error) {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return ValidationResult{}, fmt.Errorf("parse backup: %w", err)
	}
	return Validate(value), nil
}

func asObject(value any) (map[string]any, bool) {
	switch v := value.(type) {
	case nil:
		return nil, false
	case map[string]any:
		return v, true
	case []any, string, float64, bool, json.Number:
		return nil, false
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return nil, false
	}
	var normalized any
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return nil, false
	}
	obj, ok := normalized.(map[string]any)
	return obj, ok
}
