package converter

import "errors"

var (
	// ErrConfigValidation indicates invalid RunOptions or CLI configuration.
	// Returned wrapped by Controller.Start and config.LoadAndValidate.
	ErrConfigValidation = errors.New("configuration validation failed")

	// ErrRunActive is returned by Controller.Start while another run is in progress.
	ErrRunActive = errors.New("a run is already in progress")

	// ErrWalkFailed indicates the scan root could not be enumerated. A run
	// that hits it finishes with OutcomeFailed before emitting any record.
	ErrWalkFailed = errors.New("directory walk failed")

	// ErrRunPanicked is carried by FinishInfo.Err when the background run
	// panicked and was recovered.
	ErrRunPanicked = errors.New("run aborted by panic")
)
