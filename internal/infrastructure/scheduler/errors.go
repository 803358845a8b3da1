package scheduler

import "errors"

var (
	// ErrJobInProgress is returned when a run is requested while the previous one is still going
	ErrJobInProgress = errors.New("job already in progress")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")
)
