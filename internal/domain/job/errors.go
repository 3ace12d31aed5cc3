package job

import "errors"

var (
	// ErrJobNotFound indicates the job doesn't exist.
	ErrJobNotFound = errors.New("job not found")
	// ErrInvalidInput indicates invalid input for job operations.
	ErrInvalidInput = errors.New("invalid job input")
	// ErrInvalidVHCStatus indicates an unknown vehicle health check tag.
	ErrInvalidVHCStatus = errors.New("invalid vhc status")
)
