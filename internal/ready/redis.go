package ready

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/matgreaves/sitectl/internal/spec"
)

// Redis checks readiness with a PING command. A fresh client per probe is
// deliberate; a pooled connection established before the server finished
// loading would mask a not-yet-ready instance.
type Redis struct{}

func (Redis) Check(ctx context.Context, ep spec.Endpoint) error {
	client := redis.NewClient(&redis.Options{Addr: ep.HostPort()})
	defer client.Close()
	return client.Ping(ctx).Err()
}
