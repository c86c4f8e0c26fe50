package engine

import (
	"errors"
	"fmt"
)

// ErrUnusableArtifact reports an engine call that succeeded without
// producing markup with an <svg> root.
var ErrUnusableArtifact = errors.New("engine returned no usable svg")

// EngineError is a failed attempt. The pipeline does not interpret it
// beyond checking for ErrUnusableArtifact.
type EngineError struct {
	Session string
	Op      string
	Err     error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("engine %s failed (session %s): %v", e.Op, e.Session, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// Detail returns the cause text shown to users.
func (e *EngineError) Detail() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// Detail extracts the user-facing cause from any attempt error.
func Detail(err error) string {
	if err == nil {
		return ""
	}
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Detail()
	}
	return err.Error()
}
