package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/matgreaves/sitectl/internal/config"
	"github.com/matgreaves/sitectl/internal/dockerx"
	"github.com/matgreaves/sitectl/internal/site"
)

// runReconcile applies desired configuration to a site that must already
// exist. It is the targeted follow-up after a partial reconcile: only
// keys that still differ are re-applied.
func runReconcile(args []string) error {
	fs := flag.NewFlagSet("reconcile", flag.ContinueOnError)
	var (
		configPath string
		siteName   string
		dryRun     bool
	)
	fs.StringVar(&configPath, "config", "", "config file (default ./sitectl.yaml)")
	fs.StringVar(&siteName, "site", "", "override the configured site name")
	fs.BoolVar(&dryRun, "dry-run", false, "print the plan without applying it")
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend := backendContainer(cfg)
	if err := dockerx.ResolveContainer(ctx, backend); err != nil {
		return fmt.Errorf("backend container: %w", err)
	}
	transport := &site.DockerTransport{Container: backend, Bin: cfg.Stack.AdminBin}

	state, err := (&site.Prober{Transport: transport}).Probe(ctx, cfg.Site.Name)
	if err != nil {
		return err
	}
	if state != site.StateExists {
		return fmt.Errorf("site %s does not exist; run 'sitectl provision'", cfg.Site.Name)
	}

	rec := &site.Reconciler{Transport: transport}
	current, err := rec.Current(ctx, cfg.Site.Name)
	if err != nil {
		return err
	}

	plan := site.Diff(current, cfg.Site.Config)
	if len(plan) == 0 {
		fmt.Printf("site %s already matches desired configuration\n", cfg.Site.Name)
		return nil
	}
	for _, kv := range plan {
		fmt.Printf("%s -> %s\n", kv.Key, kv.Value)
	}
	if dryRun {
		return nil
	}

	if err := rec.Apply(ctx, cfg.Site.Name, plan); err != nil {
		return err
	}
	fmt.Printf("applied %d key(s)\n", len(plan))
	return nil
}
