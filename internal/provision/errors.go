package provision

import (
	"errors"
	"fmt"
)

// ErrDependencyUnready is wrapped into the failure when a backing
// service never became reachable within its window. By then no mutation
// has occurred, so the run is safe to repeat as-is.
var ErrDependencyUnready = errors.New("dependency never became ready")

// VerificationError reports a post-apply readback that does not match the
// desired configuration. This flags a drift bug somewhere between the
// apply and the store; auto-correcting would only mask it.
type VerificationError struct {
	Key  string
	Want string
	Got  string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verification mismatch: %s = %q, want %q", e.Key, e.Got, e.Want)
}
