package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/matgreaves/sitectl/internal/config"
	"github.com/matgreaves/sitectl/internal/dockerx"
	"github.com/matgreaves/sitectl/internal/provision"
	"github.com/matgreaves/sitectl/internal/ready"
	"github.com/matgreaves/sitectl/internal/site"
)

func runProvision(args []string) error {
	fs := flag.NewFlagSet("provision", flag.ContinueOnError)
	var (
		configPath string
		siteName   string
		fromHost   bool
		verbose    bool
	)
	fs.StringVar(&configPath, "config", "", "config file (default ./sitectl.yaml)")
	fs.StringVar(&siteName, "site", "", "override the configured site name")
	fs.BoolVar(&fromHost, "from-host", false, "probe readiness via host-published ports instead of stack-internal addresses")
	fs.BoolVar(&verbose, "verbose", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if siteName != "" {
		cfg.Site.Name = siteName
	}

	logger, err := newLogger(verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend := backendContainer(cfg)
	if err := dockerx.ResolveContainer(ctx, backend); err != nil {
		return fmt.Errorf("backend container: %w", err)
	}

	gates, err := buildGates(ctx, cfg, fromHost)
	if err != nil {
		return err
	}

	transport := &site.DockerTransport{Container: backend, Bin: cfg.Stack.AdminBin}
	log := provision.NewEventLog()

	orch := &provision.Orchestrator{
		Site:        cfg.Site,
		Credentials: cfg.Credentials,
		Gates:       gates,
		Prober:      &site.Prober{Transport: transport},
		Reconciler:  &site.Reconciler{Transport: transport},
		Provisioner: &site.Provisioner{Transport: transport},
		Log:         log,
		Logger:      logger,
	}

	// Stream the timeline while the workflow runs.
	eventCtx, cancelEvents := context.WithCancel(ctx)
	defer cancelEvents()
	go printEvents(eventCtx, log)

	res := orch.Run(ctx)
	cancelEvents()

	if res.Status == provision.StatusFailed {
		return fmt.Errorf("failed during %s: %w", res.Phase, res.Err)
	}
	fmt.Printf("site %s is provisioned and verified\n", cfg.Site.Name)
	return nil
}

// backendContainer returns the configured backend container name,
// deriving it from the compose project when not set explicitly.
func backendContainer(cfg *config.Config) string {
	if cfg.Stack.BackendContainer != "" {
		return cfg.Stack.BackendContainer
	}
	return dockerx.ContainerName(cfg.Stack.Project, cfg.Stack.BackendService)
}

// buildGates turns readiness targets into orchestrator gates. With
// fromHost set, each target is rewritten to the host address its
// container port is published on; the stack-internal hostnames in the
// config usually don't resolve from outside the compose network.
func buildGates(ctx context.Context, cfg *config.Config, fromHost bool) ([]provision.Gate, error) {
	sqlCreds := ready.SQLCredentials{User: "postgres", Password: cfg.Credentials.DBRootPassword}

	gates := make([]provision.Gate, 0, len(cfg.Readiness.Targets))
	for _, tgt := range cfg.Readiness.Targets {
		ep := tgt.Endpoint
		if fromHost {
			container := dockerx.ContainerName(cfg.Stack.Project, tgt.Service)
			host, port, err := dockerx.PublishedAddr(ctx, container, ep.Port)
			if err != nil {
				return nil, fmt.Errorf("target %s: %w", tgt.Service, err)
			}
			ep.Host, ep.Port = host, port
		}
		gates = append(gates, provision.Gate{
			Service: tgt.Service,
			Target: ready.Target{
				Endpoint: ep,
				Timeout:  cfg.Readiness.Timeout,
				Interval: cfg.Readiness.Interval,
			},
			Checker: ready.ForEndpoint(ep, sqlCreds),
		})
	}
	return gates, nil
}

// printEvents renders the workflow timeline as it happens.
func printEvents(ctx context.Context, log *provision.EventLog) {
	for e := range log.Subscribe(ctx) {
		switch e.Type {
		case provision.EventPhase:
			fmt.Printf("==> %s\n", e.Phase)
		case provision.EventGateReady:
			fmt.Printf("    %s is ready\n", e.Service)
		case provision.EventProbed:
			fmt.Printf("    site %s: %s\n", e.Site, e.State)
		case provision.EventSiteCreated:
			fmt.Printf("    created site %s\n", e.Site)
		case provision.EventConfigApplied:
			fmt.Printf("    set %s\n", e.Key)
		case provision.EventVerified:
			fmt.Printf("    configuration verified\n")
		}
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
