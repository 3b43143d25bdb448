package ready

import (
	"context"
	"net"
	"time"

	"github.com/matgreaves/sitectl/internal/spec"
)

// TCP checks readiness by dialing a TCP connection.
type TCP struct{}

func (TCP) Check(ctx context.Context, ep spec.Endpoint) error {
	d := net.Dialer{Timeout: 200 * time.Millisecond}
	conn, err := d.DialContext(ctx, "tcp", ep.HostPort())
	if err != nil {
		return err
	}
	conn.Close()
	return nil
}
