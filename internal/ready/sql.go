package ready

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/matgreaves/sitectl/internal/spec"
)

// SQL checks readiness of the stack database with a driver-level ping.
// A TCP dial is not enough here: the database entrypoint's init→restart
// cycle can leave the port reachable while the server is still refusing
// sessions.
type SQL struct {
	User     string
	Password spec.Secret
}

func (s *SQL) Check(ctx context.Context, ep spec.Endpoint) error {
	dsn := fmt.Sprintf("postgres://%s:%s@%s/postgres?sslmode=disable&connect_timeout=1",
		s.User, s.Password.Reveal(), ep.HostPort())
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.PingContext(ctx)
}
