package job

import (
	"fmt"
	"math"
	"strings"
)

// ValidateCreateInput validates fields required to create a job.
func ValidateCreateInput(req CreateRequest) error {
	if strings.TrimSpace(req.WIPNumber) == "" {
		return fmt.Errorf("%w: wip number is required", ErrInvalidInput)
	}
	if err := ValidateAWValue(req.AWValue); err != nil {
		return err
	}
	if _, ok := ParseVHCStatus(req.VHCStatus); !ok {
		return ErrInvalidVHCStatus
	}
	return nil
}

// ValidateUpdateInput validates the fields present on an update request.
func ValidateUpdateInput(req UpdateRequest) error {
	if strings.TrimSpace(req.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	if req.WIPNumber != nil && strings.TrimSpace(*req.WIPNumber) == "" {
		return fmt.Errorf("%w: wip number is required", ErrInvalidInput)
	}
	if req.AWValue != nil {
		if err := ValidateAWValue(*req.AWValue); err != nil {
			return err
		}
	}
	if req.VHCStatus != nil {
		if _, ok := ParseVHCStatus(*req.VHCStatus); !ok {
			return ErrInvalidVHCStatus
		}
	}
	return nil
}

// ValidateAWValue rejects negative and non-finite AW values.
func ValidateAWValue(aws float64) error {
	if math.IsNaN(aws) || math.IsInf(aws, 0) || aws < 0 {
		return fmt.Errorf("%w: aw value must be a non-negative number", ErrInvalidInput)
	}
	return nil
}
