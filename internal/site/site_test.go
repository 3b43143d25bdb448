package site

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/matgreaves/sitectl/internal/spec"
)

// fakeTransport records every command and answers via a scripted respond
// function.
type fakeTransport struct {
	calls   [][]string
	respond func(args []string) (Output, error)
}

func (f *fakeTransport) Run(_ context.Context, args ...string) (Output, error) {
	f.calls = append(f.calls, args)
	if f.respond == nil {
		return Output{}, nil
	}
	return f.respond(args)
}

func (f *fakeTransport) callsMatching(sub string) [][]string {
	var out [][]string
	for _, call := range f.calls {
		if strings.Contains(strings.Join(call, " "), sub) {
			out = append(out, call)
		}
	}
	return out
}

func TestProbe(t *testing.T) {
	tests := []struct {
		name      string
		out       Output
		transport error
		want      State
		wantErr   error
	}{
		{
			name: "exit zero means exists",
			out:  Output{ExitCode: 0, Stdout: "frappe\ncrm\n"},
			want: StateExists,
		},
		{
			name: "explicit missing-site message means absent",
			out:  Output{ExitCode: 1, Stderr: "Site crm.example.com does not exist\n"},
			want: StateAbsent,
		},
		{
			name:    "other non-zero status is ambiguous, not absent",
			out:     Output{ExitCode: 1, Stderr: "could not connect to database\n"},
			wantErr: ErrProbeAmbiguous,
		},
		{
			name:      "transport failure is ambiguous",
			transport: errors.New("backend container not running"),
			wantErr:   ErrProbeAmbiguous,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft := &fakeTransport{respond: func([]string) (Output, error) {
				return tt.out, tt.transport
			}}
			p := &Prober{Transport: ft}

			got, err := p.Probe(context.Background(), "crm.example.com")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Probe() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Probe(): %v", err)
			}
			if got != tt.want {
				t.Errorf("Probe() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProbeIsReadOnly(t *testing.T) {
	ft := &fakeTransport{}
	(&Prober{Transport: ft}).Probe(context.Background(), "crm.example.com")

	if len(ft.calls) != 1 {
		t.Fatalf("probe issued %d commands, want 1", len(ft.calls))
	}
	if got := strings.Join(ft.calls[0], " "); strings.Contains(got, "set-config") || strings.Contains(got, "new-site") {
		t.Errorf("probe issued a mutating command: %q", got)
	}
}

func TestDiff(t *testing.T) {
	current := map[string]string{
		"cache_endpoint": "redis://cache:6379",
		"queue_endpoint": "redis://queue:6379",
	}
	desired := map[string]string{
		"cache_endpoint": "redis://cache:6379",     // unchanged
		"queue_endpoint": "redis://queue-new:6379", // changed
		"database_host":  "db",                     // missing from current
	}

	plan := Diff(current, desired)
	want := Plan{
		{Key: "database_host", Value: "db"},
		{Key: "queue_endpoint", Value: "redis://queue-new:6379"},
	}
	if !reflect.DeepEqual(plan, want) {
		t.Errorf("Diff() = %+v, want %+v", plan, want)
	}

	// Identical maps produce an empty plan, which is the idempotence guarantee.
	if p := Diff(desired, desired); len(p) != 0 {
		t.Errorf("Diff(x, x) = %+v, want empty", p)
	}
}

func TestCurrentParsesMixedTypes(t *testing.T) {
	ft := &fakeTransport{respond: func([]string) (Output, error) {
		return Output{Stdout: `{"cache_endpoint":"redis://cache:6379","database_port":5432,"maintenance_mode":false,"limits":{"space":10}}`}, nil
	}}
	r := &Reconciler{Transport: ft}

	got, err := r.Current(context.Background(), "crm.example.com")
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{
		"cache_endpoint":   "redis://cache:6379",
		"database_port":    "5432",
		"maintenance_mode": "false",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Current() = %+v, want %+v", got, want)
	}
}

func TestApply(t *testing.T) {
	ft := &fakeTransport{}
	r := &Reconciler{Transport: ft}
	plan := Plan{
		{Key: "cache_endpoint", Value: "redis://cache:6379"},
		{Key: "queue_endpoint", Value: "redis://queue:6379"},
	}

	if err := r.Apply(context.Background(), "crm.example.com", plan); err != nil {
		t.Fatalf("Apply(): %v", err)
	}
	if got := len(ft.callsMatching("set-config")); got != 2 {
		t.Errorf("issued %d set-config commands, want 2", got)
	}

	// Empty plan issues nothing.
	ft2 := &fakeTransport{}
	if err := (&Reconciler{Transport: ft2}).Apply(context.Background(), "crm.example.com", nil); err != nil {
		t.Fatalf("Apply(empty): %v", err)
	}
	if len(ft2.calls) != 0 {
		t.Errorf("empty plan issued %d commands, want 0", len(ft2.calls))
	}
}

func TestApplyPartialFailure(t *testing.T) {
	ft := &fakeTransport{respond: func(args []string) (Output, error) {
		// Fail exactly the queue_endpoint key.
		for _, a := range args {
			if a == "queue_endpoint" {
				return Output{ExitCode: 1, Stderr: "write failed\n"}, nil
			}
		}
		return Output{}, nil
	}}
	r := &Reconciler{Transport: ft}
	plan := Plan{
		{Key: "cache_endpoint", Value: "redis://cache:6379"},
		{Key: "queue_endpoint", Value: "redis://queue:6379"},
		{Key: "realtime_endpoint", Value: "ws://realtime:9000"},
	}

	err := r.Apply(context.Background(), "crm.example.com", plan)
	var re *ReconcileError
	if !errors.As(err, &re) {
		t.Fatalf("Apply() error = %v, want *ReconcileError", err)
	}
	if !reflect.DeepEqual(re.FailedKeys(), []string{"queue_endpoint"}) {
		t.Errorf("FailedKeys() = %v, want [queue_endpoint]", re.FailedKeys())
	}
	if !reflect.DeepEqual(re.Applied, []string{"cache_endpoint", "realtime_endpoint"}) {
		t.Errorf("Applied = %v", re.Applied)
	}
}

func TestCreate(t *testing.T) {
	ft := &fakeTransport{}
	p := &Provisioner{Transport: ft}
	s := spec.Site{
		Name: "crm.example.com",
		Config: map[string]string{
			spec.KeyCacheEndpoint: "redis://cache:6379",
			spec.KeyDatabaseHost:  "db",
			spec.KeyDatabasePort:  "5432",
		},
	}
	creds := spec.Credentials{DBRootPassword: "root-pw", AdminPassword: "admin-pw"}

	if err := p.Create(context.Background(), s, creds); err != nil {
		t.Fatalf("Create(): %v", err)
	}

	newSite := ft.callsMatching("new-site")
	if len(newSite) != 1 {
		t.Fatalf("issued %d new-site commands, want 1", len(newSite))
	}
	cmd := strings.Join(newSite[0], " ")
	for _, want := range []string{"crm.example.com", "--db-host db", "--db-port 5432", "--db-root-password root-pw", "--admin-password admin-pw"} {
		if !strings.Contains(cmd, want) {
			t.Errorf("new-site command missing %q: %s", want, cmd)
		}
	}

	// Endpoint keys are written at creation time; the database pair was
	// already supplied to new-site.
	setConfig := ft.callsMatching("set-config")
	if len(setConfig) != 1 {
		t.Fatalf("issued %d set-config commands, want 1: %v", len(setConfig), setConfig)
	}
	if got := strings.Join(setConfig[0], " "); !strings.Contains(got, spec.KeyCacheEndpoint) {
		t.Errorf("set-config command = %q, want cache_endpoint", got)
	}
}

func TestCreateConflict(t *testing.T) {
	ft := &fakeTransport{respond: func([]string) (Output, error) {
		return Output{ExitCode: 1, Stderr: "Site crm.example.com already exists\n"}, nil
	}}
	p := &Provisioner{Transport: ft}

	err := p.Create(context.Background(), spec.Site{Name: "crm.example.com"}, spec.Credentials{})
	if !errors.Is(err, ErrCreationConflict) {
		t.Fatalf("Create() error = %v, want ErrCreationConflict", err)
	}
}

func TestCreateFailed(t *testing.T) {
	ft := &fakeTransport{respond: func([]string) (Output, error) {
		return Output{ExitCode: 1, Stderr: "access denied for root\n"}, nil
	}}
	p := &Provisioner{Transport: ft}

	err := p.Create(context.Background(), spec.Site{Name: "crm.example.com"}, spec.Credentials{})
	if !errors.Is(err, ErrCreationFailed) {
		t.Fatalf("Create() error = %v, want ErrCreationFailed", err)
	}
	if errors.Is(err, ErrCreationConflict) {
		t.Fatal("generic failure must not look like a conflict")
	}
}

func TestCreatePartialFailureIsReported(t *testing.T) {
	ft := &fakeTransport{respond: func(args []string) (Output, error) {
		if args[0] == "new-site" {
			return Output{}, nil
		}
		return Output{ExitCode: 1, Stderr: "config write failed\n"}, nil
	}}
	p := &Provisioner{Transport: ft}
	s := spec.Site{
		Name:   "crm.example.com",
		Config: map[string]string{spec.KeyCacheEndpoint: "redis://cache:6379"},
	}

	err := p.Create(context.Background(), s, spec.Credentials{})
	if !errors.Is(err, ErrCreationFailed) {
		t.Fatalf("Create() error = %v, want ErrCreationFailed", err)
	}
	if !strings.Contains(err.Error(), "site created but config") {
		t.Errorf("partial state not reported: %v", err)
	}
}
