// Package ready implements the readiness gate: bounded polling of a
// dependent service until it accepts commands or a deadline passes.
package ready

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matgreaves/sitectl/internal/spec"
)

const (
	// DefaultInterval is the poll interval used when a target does not
	// configure one.
	DefaultInterval = 2 * time.Second

	// DefaultTimeout is the default maximum wait for readiness.
	DefaultTimeout = 60 * time.Second
)

// ErrTimedOut is wrapped into the error returned by Poll when the target
// never became ready within its window. Callers branch on it with
// errors.Is; a timeout is a result, not a panic.
var ErrTimedOut = errors.New("readiness poll timed out")

// Checker performs a single readiness probe against an endpoint. Probes
// must be read-only and safe to repeat.
type Checker interface {
	Check(ctx context.Context, ep spec.Endpoint) error
}

// Target describes one dependent service to wait for.
type Target struct {
	Endpoint spec.Endpoint
	Timeout  time.Duration // maximum total wait (default DefaultTimeout)
	Interval time.Duration // pause between probes (default DefaultInterval)
}

// SQLCredentials carries the login the SQL checker probes with. Only the
// database target needs it.
type SQLCredentials struct {
	User     string
	Password spec.Secret
}

// ForEndpoint returns a Checker appropriate for the endpoint's scheme.
// Unknown schemes fall back to a plain TCP dial.
func ForEndpoint(ep spec.Endpoint, sqlCreds SQLCredentials) Checker {
	switch ep.Scheme {
	case spec.HTTP, spec.HTTPS, spec.WS:
		return &HTTP{Path: "/"}
	case spec.GRPC:
		return &GRPC{}
	case spec.Redis:
		return &Redis{}
	case spec.Postgres:
		return &SQL{User: sqlCreds.User, Password: sqlCreds.Password}
	default:
		return &TCP{}
	}
}

// Poll repeatedly calls checker.Check at the target's interval until the
// check succeeds or the target's timeout elapses. The total wait never
// exceeds timeout plus one interval.
//
// If onFailure is non-nil it is called after each failed probe, giving
// the caller an opportunity to log or emit events.
func Poll(ctx context.Context, target Target, checker Checker, onFailure func(err error)) error {
	timeout := target.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	interval := target.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var lastErr error

	for {
		if err := checker.Check(ctx, target.Endpoint); err == nil {
			return nil
		} else {
			lastErr = err
			if onFailure != nil {
				onFailure(err)
			}
		}

		select {
		case <-ctx.Done():
			if lastErr != nil {
				return fmt.Errorf("%s: %w after %s (last error: %v)", target.Endpoint, ErrTimedOut, timeout, lastErr)
			}
			return fmt.Errorf("%s: %w after %s", target.Endpoint, ErrTimedOut, timeout)
		case <-time.After(interval):
		}
	}
}
