package backup

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rpggio/techtrace/internal/domain/job"
)

// Decoded is a validated document plus the job records that could not be
// read into the typed model.
type Decoded struct {
	Document Document
	Skipped  []MalformedRecordError
	// Origins holds, for each entry of Document.Jobs, its index in the raw
	// jobs array.
	Origins []int
	// Warnings lists non-fatal problems, such as unreadable metadata.
	Warnings []string
}

// OriginIndex maps an index into Document.Jobs back to the raw jobs array.
func (d *Decoded) OriginIndex(i int) int {
	if i >= 0 && i < len(d.Origins) {
		return d.Origins[i]
	}
	return i
}

type envelope struct {
	Version        Version           `json:"version"`
	BackupVersion  *int              `json:"backupVersion"`
	Timestamp      string            `json:"timestamp"`
	CreatedAt      *string           `json:"createdAt"`
	TechnicianName string            `json:"technicianName"`
	Jobs           []json.RawMessage `json:"jobs"`
	Settings       json.RawMessage   `json:"settings"`
	Metadata       json.RawMessage   `json:"metadata"`
}

type rawJob struct {
	ID                  *string  `json:"id"`
	WIPNumber           any      `json:"wipNumber"`
	VehicleRegistration string   `json:"vehicleRegistration"`
	AWValue             *float64 `json:"awValue"`
	Notes               string   `json:"notes"`
	JobDescription      string   `json:"jobDescription"`
	DateCreated         *string  `json:"dateCreated"`
	DateModified        *string  `json:"dateModified"`
	VHCStatus           string   `json:"vhcStatus"`
}

// Decode validates data and reads it into a Document. Envelope problems
// fail the whole decode; bad job records are reported in Skipped.
func Decode(data []byte) (*Decoded, error) {
	result, err := ValidateJSON(data)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, result.Err()
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	var snapshot SettingsSnapshot
	if err := json.Unmarshal(env.Settings, &snapshot); err != nil {
		return nil, fmt.Errorf("%w: settings: %v", ErrValidation, err)
	}
	snapshot.IsAuthenticated = false

	// Metadata is denormalized and only required to be present.
	var warnings []string
	var metadata Metadata
	if err := json.Unmarshal(env.Metadata, &metadata); err != nil {
		warnings = append(warnings, fmt.Sprintf("metadata: %v", err))
	}

	backupVersion := LegacyBackupVersion
	if env.BackupVersion != nil {
		backupVersion = *env.BackupVersion
	}

	out := &Decoded{
		Document: Document{
			Version:        env.Version,
			BackupVersion:  &backupVersion,
			Timestamp:      env.Timestamp,
			CreatedAt:      env.CreatedAt,
			TechnicianName: env.TechnicianName,
			Jobs:           make([]job.Job, 0, len(env.Jobs)),
			Settings:       snapshot,
			Metadata:       metadata,
		},
		Origins:  make([]int, 0, len(env.Jobs)),
		Warnings: warnings,
	}
	if out.Document.TechnicianName == "" {
		out.Document.TechnicianName = snapshot.TechnicianName
	}

	for i, raw := range env.Jobs {
		j, reason := decodeJob(raw)
		if reason != "" {
			out.Skipped = append(out.Skipped, MalformedRecordError{Index: i, ID: j.ID, Reason: reason})
			continue
		}
		out.Document.Jobs = append(out.Document.Jobs, j)
		out.Origins = append(out.Origins, i)
	}
	return out, nil
}

func decodeJob(data json.RawMessage) (job.Job, string) {
	var raw rawJob
	if err := json.Unmarshal(data, &raw); err != nil {
		return job.Job{}, "record is not a job object"
	}

	var j job.Job
	if raw.ID == nil || strings.TrimSpace(*raw.ID) == "" {
		return j, "missing id"
	}
	j.ID = *raw.ID

	if raw.DateCreated == nil {
		return j, "missing dateCreated"
	}
	created, err := parseTime(*raw.DateCreated)
	if err != nil {
		return j, "invalid dateCreated"
	}
	j.DateCreated = created

	if raw.DateModified != nil && *raw.DateModified != "" {
		modified, err := parseTime(*raw.DateModified)
		if err != nil {
			return j, "invalid dateModified"
		}
		j.DateModified = &modified
	}

	if raw.AWValue != nil {
		if *raw.AWValue < 0 || math.IsNaN(*raw.AWValue) || math.IsInf(*raw.AWValue, 0) {
			return j, "invalid awValue"
		}
		j.AWValue = *raw.AWValue
	}

	switch w := raw.WIPNumber.(type) {
	case string:
		j.WIPNumber = w
	case float64:
		j.WIPNumber = strconv.FormatFloat(w, 'f', -1, 64)
	}

	status, ok := job.ParseVHCStatus(raw.VHCStatus)
	if !ok {
		status = job.VHCNotSet
	}

	j.VehicleRegistration = raw.VehicleRegistration
	j.Notes = raw.Notes
	j.JobDescription = raw.JobDescription
	j.VHCStatus = status
	j.Recompute()
	return j, ""
}

func parseTime(v string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", v)
}
