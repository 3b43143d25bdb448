package site

import (
	"context"
	"fmt"
	"strings"

	"github.com/matgreaves/sitectl/internal/spec"
)

// Provisioner creates a new site from scratch, wiring it to the stack's
// dependent services at creation time.
type Provisioner struct {
	Transport Transport
}

// Create provisions the site. The caller must have observed StateAbsent
// immediately beforehand; this is a check-then-act sequence, and a
// concurrent creation surfaces here as ErrCreationConflict with the
// backend arbitrating which run won.
//
// Credentials are consumed once for the administrative bootstrap and the
// desired configuration is written as part of creation, so the common
// first-install path needs no posterior reconcile. A failure after the
// site record exists leaves partial state behind; that state is reported
// in the error, never cleaned up automatically.
func (p *Provisioner) Create(ctx context.Context, s spec.Site, creds spec.Credentials) error {
	args := []string{"new-site", s.Name, "--db-type", "postgres"}
	if host := s.Config[spec.KeyDatabaseHost]; host != "" {
		args = append(args, "--db-host", host)
	}
	if port := s.Config[spec.KeyDatabasePort]; port != "" {
		args = append(args, "--db-port", port)
	}
	args = append(args,
		"--db-root-password", creds.DBRootPassword.Reveal(),
		"--admin-password", creds.AdminPassword.Reveal(),
	)

	out, err := p.Transport.Run(ctx, args...)
	if err != nil {
		return fmt.Errorf("create %s: %w: %v", s.Name, ErrCreationFailed, err)
	}
	if out.ExitCode != 0 {
		if strings.Contains(strings.ToLower(out.Combined()), "already exists") {
			return fmt.Errorf("create %s: %w", s.Name, ErrCreationConflict)
		}
		return fmt.Errorf("create %s: %w: exit %d: %s",
			s.Name, ErrCreationFailed, out.ExitCode, firstLine(out.Combined()))
	}

	// Write the endpoint configuration while still inside the creation
	// step. The site record now exists, so any failure past this point
	// is partial state by definition.
	for _, key := range spec.SortedKeys(s.Config) {
		if key == spec.KeyDatabaseHost || key == spec.KeyDatabasePort {
			continue // already supplied to new-site
		}
		out, err := p.Transport.Run(ctx, "--site", s.Name, "set-config", key, s.Config[key])
		if err != nil {
			return fmt.Errorf("create %s: site created but config %s not applied: %w: %v",
				s.Name, key, ErrCreationFailed, err)
		}
		if out.ExitCode != 0 {
			return fmt.Errorf("create %s: site created but config %s not applied: %w: exit %d: %s",
				s.Name, key, ErrCreationFailed, out.ExitCode, firstLine(out.Combined()))
		}
	}

	return nil
}
