package site

import (
	"context"
	"fmt"
	"strings"
)

// State is the result of an existence probe.
type State int

const (
	StateAbsent State = iota
	StateExists
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateExists:
		return "exists"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Prober inspects the target environment to decide whether a named site
// already exists.
type Prober struct {
	Transport Transport
}

// Probe issues a read-only status query for the site. Only an exit status
// the backend explicitly attributes to a missing site maps to
// StateAbsent; every other non-zero outcome (backend down, database
// unreachable, unknown output) is ErrProbeAmbiguous. The tie-break
// defaults to ambiguous, never to absent.
func (p *Prober) Probe(ctx context.Context, siteName string) (State, error) {
	out, err := p.Transport.Run(ctx, "--site", siteName, "list-apps")
	if err != nil {
		return StateAbsent, fmt.Errorf("probe %s: %w: %v", siteName, ErrProbeAmbiguous, err)
	}
	if out.ExitCode == 0 {
		return StateExists, nil
	}
	if strings.Contains(strings.ToLower(out.Combined()), "does not exist") {
		return StateAbsent, nil
	}
	return StateAbsent, fmt.Errorf("probe %s: %w: exit %d: %s",
		siteName, ErrProbeAmbiguous, out.ExitCode, firstLine(out.Combined()))
}

// firstLine trims command output to its first non-empty line for error
// messages.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
