// Package config loads the desired-state inputs for a provisioning run
// from a YAML file plus environment overrides, and validates everything
// up front. Components downstream receive plain values; nothing below
// this package reads ambient process state.
package config

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/viper"

	"github.com/matgreaves/sitectl/internal/spec"
)

// Stack locates the running container stack the site lives on.
type Stack struct {
	// Project is the compose project name; container names derive from
	// it unless BackendContainer is set explicitly.
	Project        string
	BackendService string
	// BackendContainer overrides name derivation for stacks that don't
	// follow the <project>-<service>-1 convention.
	BackendContainer string
	// AdminBin is the admin CLI inside the backend container.
	AdminBin string
}

// Target is one dependent service the workflow must wait for.
type Target struct {
	Service  string
	Endpoint spec.Endpoint
}

// Readiness configures the dependency gates.
type Readiness struct {
	Timeout  time.Duration
	Interval time.Duration
	Targets  []Target
}

// Config is the fully validated input for one run.
type Config struct {
	Site        spec.Site
	Credentials spec.Credentials
	Stack       Stack
	Readiness   Readiness
}

// raw mirrors the file layout for viper unmarshalling.
type raw struct {
	Site struct {
		Name   string            `mapstructure:"name"`
		Config map[string]string `mapstructure:"config"`
	} `mapstructure:"site"`
	Credentials struct {
		DBRootPassword string `mapstructure:"db_root_password"`
		AdminPassword  string `mapstructure:"admin_password"`
	} `mapstructure:"credentials"`
	Stack struct {
		Project          string `mapstructure:"project"`
		BackendService   string `mapstructure:"backend_service"`
		BackendContainer string `mapstructure:"backend_container"`
		AdminBin         string `mapstructure:"admin_bin"`
	} `mapstructure:"stack"`
	Readiness struct {
		Timeout  time.Duration     `mapstructure:"timeout"`
		Interval time.Duration     `mapstructure:"interval"`
		Targets  map[string]string `mapstructure:"targets"`
	} `mapstructure:"readiness"`
}

// Load reads the configuration file at path (or ./sitectl.yaml when path
// is empty), applies environment overrides, and validates the result.
// Validation failures (a site config value without a scheme, an
// unparsable readiness target) are returned here, before any network
// call is made.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("sitectl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetDefault("stack.project", "stack")
	v.SetDefault("stack.backend_service", "backend")
	v.SetDefault("stack.admin_bin", "bench")
	v.SetDefault("readiness.timeout", "60s")
	v.SetDefault("readiness.interval", "2s")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var r raw
	if err := v.Unmarshal(&r); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Secrets prefer the environment so they can stay out of the file.
	if pw := os.Getenv("SITECTL_DB_ROOT_PASSWORD"); pw != "" {
		r.Credentials.DBRootPassword = pw
	}
	if pw := os.Getenv("SITECTL_ADMIN_PASSWORD"); pw != "" {
		r.Credentials.AdminPassword = pw
	}

	cfg := &Config{
		Site: spec.Site{Name: r.Site.Name, Config: r.Site.Config},
		Credentials: spec.Credentials{
			DBRootPassword: spec.Secret(r.Credentials.DBRootPassword),
			AdminPassword:  spec.Secret(r.Credentials.AdminPassword),
		},
		Stack: Stack{
			Project:          r.Stack.Project,
			BackendService:   r.Stack.BackendService,
			BackendContainer: r.Stack.BackendContainer,
			AdminBin:         r.Stack.AdminBin,
		},
		Readiness: Readiness{
			Timeout:  r.Readiness.Timeout,
			Interval: r.Readiness.Interval,
		},
	}

	if err := cfg.Site.Validate(); err != nil {
		return nil, err
	}

	// Unset credentials are generated rather than rejected: a fresh
	// install has no passwords yet, and the generated values are
	// printed exactly once by the caller.
	if cfg.Credentials.DBRootPassword.IsZero() {
		cfg.Credentials.DBRootPassword = spec.GenerateSecret()
	}
	if cfg.Credentials.AdminPassword.IsZero() {
		cfg.Credentials.AdminPassword = spec.GenerateSecret()
	}

	// Sort targets by service name for deterministic gate ordering.
	services := make([]string, 0, len(r.Readiness.Targets))
	for name := range r.Readiness.Targets {
		services = append(services, name)
	}
	sort.Strings(services)
	for _, name := range services {
		ep, err := spec.ParseEndpoint(r.Readiness.Targets[name])
		if err != nil {
			return nil, fmt.Errorf("readiness target %s: %w", name, err)
		}
		cfg.Readiness.Targets = append(cfg.Readiness.Targets, Target{Service: name, Endpoint: ep})
	}

	return cfg, nil
}
