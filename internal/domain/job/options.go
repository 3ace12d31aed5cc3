package job

import "time"

// ListOptions provides filtering options for listing jobs.
type ListOptions struct {
	From      *time.Time
	To        *time.Time
	WIPNumber string
	Limit     int
	Offset    int
}
