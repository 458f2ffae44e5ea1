package pipeline

import "fmt"

// StageError annotates a failure with the originating stage name so the
// operator can resume from a known point.
type StageError struct {
	Stage    string
	Resource string
	Err      error
}

func (e *StageError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("stage %s (resource %s): %v", e.Stage, e.Resource, e.Err)
	}
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
