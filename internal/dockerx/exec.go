package dockerx

import (
	"bytes"
	"context"
	"fmt"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"
)

// ExecResult holds the outcome of a command run inside a container.
// A non-zero exit code is not an error at this layer; callers decide
// what each exit status means for their command.
type ExecResult struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Exec runs a command inside a running container via docker exec and
// captures its output. The returned error covers transport failures only
// (daemon unreachable, container missing); command failures surface
// through ExecResult.ExitCode.
func Exec(ctx context.Context, containerName string, cmd []string) (ExecResult, error) {
	cli, err := Client()
	if err != nil {
		return ExecResult{}, fmt.Errorf("exec: docker client: %w", err)
	}

	exec, err := cli.ContainerExecCreate(ctx, containerName, container.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return ExecResult{}, fmt.Errorf("exec create: %w", err)
	}

	resp, err := cli.ContainerExecAttach(ctx, exec.ID, container.ExecAttachOptions{})
	if err != nil {
		return ExecResult{}, fmt.Errorf("exec attach: %w", err)
	}

	var stdout, stderr bytes.Buffer
	_, err = stdcopy.StdCopy(&stdout, &stderr, resp.Reader)
	resp.Close()
	if err != nil {
		return ExecResult{}, fmt.Errorf("exec read output: %w", err)
	}

	inspect, err := cli.ContainerExecInspect(ctx, exec.ID)
	if err != nil {
		return ExecResult{}, fmt.Errorf("exec inspect: %w", err)
	}

	return ExecResult{
		ExitCode: inspect.ExitCode,
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
	}, nil
}
