package dockerx

import (
	"context"
	"fmt"
	"strconv"

	"github.com/docker/go-connections/nat"
)

// ContainerName returns the conventional compose container name for a
// service: <project>-<service>-1. Stacks that scale a service beyond one
// replica must name the target container explicitly in configuration.
func ContainerName(project, service string) string {
	return fmt.Sprintf("%s-%s-1", project, service)
}

// ResolveContainer verifies that the named container exists and is
// running. Returned errors distinguish "not found / not running" from
// daemon-level failures only through wrapping; callers treat both as
// the stack not being usable.
func ResolveContainer(ctx context.Context, containerName string) error {
	cli, err := Client()
	if err != nil {
		return fmt.Errorf("docker client: %w", err)
	}
	inspect, err := cli.ContainerInspect(ctx, containerName)
	if err != nil {
		return fmt.Errorf("inspect %s: %w", containerName, err)
	}
	if inspect.State == nil || !inspect.State.Running {
		return fmt.Errorf("container %s is not running", containerName)
	}
	return nil
}

// PublishedAddr returns the host address a container port is published
// on, for stacks that only expose services through host port bindings.
// The container port is matched as TCP.
func PublishedAddr(ctx context.Context, containerName string, containerPort int) (host string, port int, err error) {
	cli, err := Client()
	if err != nil {
		return "", 0, fmt.Errorf("docker client: %w", err)
	}
	inspect, err := cli.ContainerInspect(ctx, containerName)
	if err != nil {
		return "", 0, fmt.Errorf("inspect %s: %w", containerName, err)
	}
	if inspect.NetworkSettings == nil {
		return "", 0, fmt.Errorf("container %s has no network settings", containerName)
	}

	natPort, err := nat.NewPort("tcp", strconv.Itoa(containerPort))
	if err != nil {
		return "", 0, err
	}
	bindings := inspect.NetworkSettings.Ports[natPort]
	if len(bindings) == 0 {
		return "", 0, fmt.Errorf("container %s: port %d/tcp is not published", containerName, containerPort)
	}

	b := bindings[0]
	hostPort, err := strconv.Atoi(b.HostPort)
	if err != nil {
		return "", 0, fmt.Errorf("container %s: bad host port %q", containerName, b.HostPort)
	}
	host = b.HostIP
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return host, hostPort, nil
}
