// Package provision sequences the provisioning workflow for one site:
// wait for every dependent service, probe for existence, branch to
// create-from-scratch or reconcile-configuration, then verify by
// readback. One invocation, one linear pass; the orchestrator never
// retries business operations on its own, and concurrent runs for the
// same site must be serialised by the caller.
package provision

import (
	"context"
	"fmt"
	"sync"

	"github.com/matgreaves/run"
	"go.uber.org/zap"

	"github.com/matgreaves/sitectl/internal/ready"
	"github.com/matgreaves/sitectl/internal/site"
	"github.com/matgreaves/sitectl/internal/spec"
)

// Gate is one dependent service the workflow waits for before touching
// anything. Checker may be nil, in which case one is selected from the
// endpoint's scheme.
type Gate struct {
	Service string
	Target  ready.Target
	Checker ready.Checker
}

// Prober decides whether the site already exists.
type Prober interface {
	Probe(ctx context.Context, siteName string) (site.State, error)
}

// Reconciler reads and rewrites an existing site's configuration.
type Reconciler interface {
	Current(ctx context.Context, siteName string) (map[string]string, error)
	Apply(ctx context.Context, siteName string, plan site.Plan) error
}

// Provisioner creates a site that does not exist yet.
type Provisioner interface {
	Create(ctx context.Context, s spec.Site, creds spec.Credentials) error
}

// Orchestrator runs the workflow. All collaborators are supplied
// explicitly; nothing here reads ambient process state.
type Orchestrator struct {
	Site        spec.Site
	Credentials spec.Credentials
	Gates       []Gate

	Prober      Prober
	Reconciler  Reconciler
	Provisioner Provisioner

	// Log receives the workflow timeline. Created on first use if nil.
	Log *EventLog

	// Logger is for operator-facing diagnostics. Defaults to a no-op.
	Logger *zap.Logger
}

// Run executes the workflow once and returns its terminal status. The
// returned Result is the only output: every error is a value inside it,
// with the failing phase attached for targeted re-invocation.
func (o *Orchestrator) Run(ctx context.Context) Result {
	if o.Log == nil {
		o.Log = NewEventLog()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}

	var (
		phase  = PhaseStart
		probed site.State
	)
	enter := func(p Phase) {
		phase = p
		o.Log.Publish(Event{Type: EventPhase, Site: o.Site.Name, Phase: p})
		o.Logger.Info("entering phase",
			zap.String("site", o.Site.Name),
			zap.String("phase", string(p)))
	}

	steps := run.Sequence{
		run.Func(func(context.Context) error {
			enter(PhaseStart)
			return o.Site.Validate()
		}),
		run.Func(func(ctx context.Context) error {
			enter(PhaseAwaitingDependencies)
			return o.awaitDependencies(ctx)
		}),
		run.Func(func(ctx context.Context) error {
			enter(PhaseProbing)
			st, err := o.Prober.Probe(ctx, o.Site.Name)
			if err != nil {
				return err
			}
			probed = st
			o.Log.Publish(Event{Type: EventProbed, Site: o.Site.Name, State: st.String()})
			return nil
		}),
		run.Func(func(ctx context.Context) error {
			if probed == site.StateAbsent {
				enter(PhaseProvisioning)
				return o.provision(ctx)
			}
			enter(PhaseReconciling)
			return o.reconcile(ctx)
		}),
		run.Func(func(ctx context.Context) error {
			enter(PhaseVerifying)
			return o.verify(ctx)
		}),
	}

	if err := steps.Run(ctx); err != nil {
		o.Log.Publish(Event{Type: EventFailed, Site: o.Site.Name, Phase: phase, Error: err.Error()})
		o.Logger.Error("workflow failed",
			zap.String("site", o.Site.Name),
			zap.String("phase", string(phase)),
			zap.Error(err))
		return Result{Status: StatusFailed, Phase: phase, Err: err}
	}

	o.Log.Publish(Event{Type: EventDone, Site: o.Site.Name, Phase: PhaseDone})
	o.Logger.Info("workflow done", zap.String("site", o.Site.Name))
	return Result{Status: StatusDone, Phase: PhaseDone}
}

// awaitDependencies polls every gate concurrently. All must succeed; the
// first failure cancels the remaining gates and becomes the root cause.
// Nothing has been mutated at this point, so there is no cleanup.
func (o *Orchestrator) awaitDependencies(ctx context.Context) error {
	if len(o.Gates) == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type gateErr struct {
		service string
		err     error
	}

	var wg sync.WaitGroup
	errs := make(chan gateErr, len(o.Gates))

	for _, g := range o.Gates {
		checker := g.Checker
		if checker == nil {
			checker = ready.ForEndpoint(g.Target.Endpoint, ready.SQLCredentials{})
		}

		wg.Add(1)
		go func(g Gate, checker ready.Checker) {
			defer wg.Done()
			err := ready.Poll(ctx, g.Target, checker, func(err error) {
				o.Log.Publish(Event{Type: EventGateProbe, Site: o.Site.Name, Service: g.Service, Error: err.Error()})
			})
			if err != nil {
				errs <- gateErr{service: g.Service, err: err}
				return
			}
			o.Log.Publish(Event{Type: EventGateReady, Site: o.Site.Name, Service: g.Service})
			o.Logger.Debug("dependency ready",
				zap.String("site", o.Site.Name),
				zap.String("service", g.Service))
		}(g, checker)
	}

	// Close errs channel when all goroutines finish.
	go func() {
		wg.Wait()
		close(errs)
	}()

	var cause error
	for e := range errs {
		if cause == nil {
			cause = fmt.Errorf("service %q: %w: %w", e.service, ErrDependencyUnready, e.err)
			cancel() // stop polling the other gates
		}
		// Subsequent errors are from gates cancelled above; only the
		// first (root cause) is reported.
	}
	return cause
}

func (o *Orchestrator) provision(ctx context.Context) error {
	if err := o.Provisioner.Create(ctx, o.Site, o.Credentials); err != nil {
		return err
	}
	o.Log.Publish(Event{Type: EventSiteCreated, Site: o.Site.Name})
	return nil
}

// reconcile computes the plan against the probed configuration and
// applies only the differing keys.
func (o *Orchestrator) reconcile(ctx context.Context) error {
	current, err := o.Reconciler.Current(ctx, o.Site.Name)
	if err != nil {
		return err
	}

	plan := site.Diff(current, o.Site.Config)
	if len(plan) == 0 {
		o.Logger.Info("configuration already in desired state", zap.String("site", o.Site.Name))
		return nil
	}

	if err := o.Reconciler.Apply(ctx, o.Site.Name, plan); err != nil {
		return err
	}
	for _, kv := range plan {
		o.Log.Publish(Event{Type: EventConfigApplied, Site: o.Site.Name, Key: kv.Key})
	}
	return nil
}

// verify reads the configuration back and compares every desired key.
// The readback is a live command through the backend and its database,
// so a passing comparison doubles as the final readiness check. A
// mismatch is drift, reported rather than auto-corrected.
func (o *Orchestrator) verify(ctx context.Context) error {
	got, err := o.Reconciler.Current(ctx, o.Site.Name)
	if err != nil {
		return err
	}
	for _, key := range spec.SortedKeys(o.Site.Config) {
		if got[key] != o.Site.Config[key] {
			return &VerificationError{Key: key, Want: o.Site.Config[key], Got: got[key]}
		}
	}
	o.Log.Publish(Event{Type: EventVerified, Site: o.Site.Name})
	return nil
}
