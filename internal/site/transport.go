// Package site implements the site-level operations of the provisioning
// workflow: probing for existence, creating a new site, and reconciling
// an existing site's configuration. All operations are issued as opaque
// admin commands against the stack's backend container; the backend's
// own tooling is the source of truth for what each command does.
package site

import (
	"context"

	"github.com/matgreaves/sitectl/internal/dockerx"
)

// Output is the captured result of one admin command. A non-zero exit
// code is data, not an error; each operation interprets exit status and
// output for its own command.
type Output struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Combined returns stdout and stderr joined, for message matching.
// Backend CLIs are not consistent about which stream carries errors.
func (o Output) Combined() string {
	return o.Stdout + o.Stderr
}

// Transport issues one admin command against the backend and returns its
// captured output. Implementations return an error only for transport
// failures (backend unreachable), never for command failures.
type Transport interface {
	Run(ctx context.Context, args ...string) (Output, error)
}

// DockerTransport runs admin commands inside the stack's backend
// container via docker exec.
type DockerTransport struct {
	// Container is the backend container name.
	Container string

	// Bin is the admin CLI inside the container (default "bench").
	Bin string
}

func (t *DockerTransport) Run(ctx context.Context, args ...string) (Output, error) {
	bin := t.Bin
	if bin == "" {
		bin = "bench"
	}
	res, err := dockerx.Exec(ctx, t.Container, append([]string{bin}, args...))
	if err != nil {
		return Output{}, err
	}
	return Output{
		ExitCode: res.ExitCode,
		Stdout:   string(res.Stdout),
		Stderr:   string(res.Stderr),
	}, nil
}
