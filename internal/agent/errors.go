package agent

import (
	"errors"
	"fmt"
)

// ErrAgentNotFound is matched by every lookup miss.
var ErrAgentNotFound = errors.New("agent not found")

// NotFoundError reports a lookup for a name that is not registered.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Agent '%s' not found", e.Name)
}

// Is makes errors.Is(err, ErrAgentNotFound) true for any NotFoundError.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrAgentNotFound
}
