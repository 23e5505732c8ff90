// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
)

// ErrRunNotFound is a sentinel error
type ErrRunNotFound struct {
	RunID string
}

func (e *ErrRunNotFound) Error() string {
	return fmt.Sprintf("run with ID %s not found", e.RunID)
}

// Helper constructor
func NewRunNotFound(runID string) error {
	return &ErrRunNotFound{RunID: runID}
}

// ErrNoSelectedTemplate aborts EXECUTE when neither the in-memory state nor
// the SELECTED_TEMPLATE handoff carries a selection.
var ErrNoSelectedTemplate = errors.New("selected_template missing (state and store both empty)")

// ErrSelectionBlocked rejects selecting a compliance-FAILed candidate
// without an explicit override.
var ErrSelectionBlocked = errors.New("candidate failed compliance; selection requires override")
