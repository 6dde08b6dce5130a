package draft

import (
	"fmt"
	"strings"
)

// Status tracks a draft through the resolution lifecycle.
type Status string

const (
	// StatusPending marks a draft awaiting or retrying pipeline work.
	StatusPending Status = "PENDING"
	// StatusReady marks a draft that passed validation and awaits finalize.
	StatusReady Status = "READY"
	// StatusCancelled marks a draft abandoned from outside the pipeline.
	StatusCancelled Status = "CANCELLED"
	// StatusDone marks a draft whose entry reached the permanent catalog.
	StatusDone Status = "DONE"
)

var statusSet = map[Status]struct{}{
	StatusPending:   {},
	StatusReady:     {},
	StatusCancelled: {},
	StatusDone:      {},
}

// Valid reports whether the status is a known lifecycle state.
func (s Status) Valid() bool {
	_, ok := statusSet[s]
	return ok
}

// Terminal reports whether the draft can no longer move through the pipeline.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusDone
}

// String returns the stored representation.
func (s Status) String() string {
	return string(s)
}

// ParseStatus converts a stored string back into a Status.
func ParseStatus(value string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(value)))
	if !status.Valid() {
		return "", fmt.Errorf("unknown draft status %q", value)
	}
	return status, nil
}
