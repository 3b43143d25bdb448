package site

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrProbeAmbiguous is returned when a site's existence could not be
	// determined. It is never folded into "absent"; creating against an
	// unreachable backend is how duplicate sites happen.
	ErrProbeAmbiguous = errors.New("site existence could not be determined")

	// ErrCreationConflict is returned when creation hits a site that
	// already exists (stale probe or concurrent run). Surfaced as-is,
	// not converted into a reconcile.
	ErrCreationConflict = errors.New("site already exists")

	// ErrCreationFailed is returned when the creation command itself
	// fails. Partial state left behind by the backend is reported, not
	// rolled back.
	ErrCreationFailed = errors.New("site creation failed")
)

// ReconcileError reports a partial configuration apply. Applied lists the
// keys that landed; Failed maps each unapplied key to its reason, so a
// retry can be scoped to exactly the remainder.
type ReconcileError struct {
	Applied []string
	Failed  map[string]string
}

func (e *ReconcileError) Error() string {
	return fmt.Sprintf("reconcile incomplete: %d applied, failed keys: %s",
		len(e.Applied), strings.Join(e.FailedKeys(), ", "))
}

// FailedKeys returns the unapplied keys in sorted order.
func (e *ReconcileError) FailedKeys() []string {
	keys := make([]string, 0, len(e.Failed))
	for k := range e.Failed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
