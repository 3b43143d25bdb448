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

func runProbe(args []string) error {
	fs := flag.NewFlagSet("probe", flag.ContinueOnError)
	var (
		configPath string
		siteName   string
	)
	fs.StringVar(&configPath, "config", "", "config file (default ./sitectl.yaml)")
	fs.StringVar(&siteName, "site", "", "override the configured site name")
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

	prober := &site.Prober{Transport: &site.DockerTransport{Container: backend, Bin: cfg.Stack.AdminBin}}
	state, err := prober.Probe(ctx, cfg.Site.Name)
	if err != nil {
		return err
	}
	fmt.Printf("site %s: %s\n", cfg.Site.Name, state)
	return nil
}
