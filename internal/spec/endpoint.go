package spec

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// Scheme identifies the protocol an endpoint speaks. It drives readiness
// checker selection, so every network-addressed endpoint must carry one.
type Scheme string

const (
	TCP      Scheme = "tcp"
	HTTP     Scheme = "http"
	HTTPS    Scheme = "https"
	GRPC     Scheme = "grpc"
	Redis    Scheme = "redis"
	Postgres Scheme = "postgres"
	WS       Scheme = "ws"
)

// Endpoint is a concrete network address for a backing service,
// in scheme://host:port form. Immutable for the duration of one run.
type Endpoint struct {
	Scheme Scheme `json:"scheme"`
	Host   string `json:"host"`
	Port   int    `json:"port"`
}

// ParseEndpoint parses a scheme://host:port value. A bare host:port (no
// scheme) is rejected; silently defaulting the scheme is how half-configured
// stacks end up pointing readiness probes at the wrong protocol.
func ParseEndpoint(s string) (Endpoint, error) {
	u, err := url.Parse(s)
	if err != nil {
		return Endpoint{}, fmt.Errorf("endpoint %q: %w", s, err)
	}
	if u.Scheme == "" || u.Host == "" {
		// "host:port" parses as scheme=host, opaque=port. Catch both shapes.
		return Endpoint{}, fmt.Errorf("endpoint %q: missing scheme (want scheme://host:port)", s)
	}
	if u.Opaque != "" {
		return Endpoint{}, fmt.Errorf("endpoint %q: missing scheme (want scheme://host:port)", s)
	}

	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		return Endpoint{}, fmt.Errorf("endpoint %q: missing port: %w", s, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return Endpoint{}, fmt.Errorf("endpoint %q: invalid port %q", s, portStr)
	}

	return Endpoint{Scheme: Scheme(u.Scheme), Host: host, Port: port}, nil
}

// String renders the endpoint back in scheme://host:port form.
func (e Endpoint) String() string {
	return fmt.Sprintf("%s://%s", e.Scheme, e.HostPort())
}

// HostPort returns the host:port pair without the scheme, for dialing.
func (e Endpoint) HostPort() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}
