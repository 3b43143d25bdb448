package site

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// KV is one (configuration key, desired value) pair of a plan.
type KV struct {
	Key   string
	Value string
}

// Plan is the ordered set of configuration keys that differ from the
// probed state. Derived and ephemeral; it exists only within one run.
type Plan []KV

// Keys returns the plan's keys in application order.
func (p Plan) Keys() []string {
	keys := make([]string, 0, len(p))
	for _, kv := range p {
		keys = append(keys, kv.Key)
	}
	return keys
}

// Diff computes the plan that brings current into line with desired.
// Keys already at their desired value are skipped; that is what makes a
// second identical reconcile a true no-op. Order is sorted by key for
// deterministic command sequences.
func Diff(current, desired map[string]string) Plan {
	var plan Plan
	for _, key := range sortedKeys(desired) {
		if current[key] != desired[key] {
			plan = append(plan, KV{Key: key, Value: desired[key]})
		}
	}
	return plan
}

// Reconciler applies desired configuration to an existing site, one
// idempotent set-config command per key.
type Reconciler struct {
	Transport Transport
}

// Current reads the site's persisted configuration map. Used both to
// compute the plan and for the post-apply readback.
func (r *Reconciler) Current(ctx context.Context, siteName string) (map[string]string, error) {
	out, err := r.Transport.Run(ctx, "--site", siteName, "show-config", "--format", "json")
	if err != nil {
		return nil, fmt.Errorf("read config for %s: %w", siteName, err)
	}
	if out.ExitCode != 0 {
		return nil, fmt.Errorf("read config for %s: exit %d: %s", siteName, out.ExitCode, firstLine(out.Combined()))
	}

	// Values arrive as mixed JSON types (ports are numbers); normalise
	// everything to strings for comparison against desired config.
	dec := json.NewDecoder(strings.NewReader(out.Stdout))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("read config for %s: bad JSON: %w", siteName, err)
	}

	cfg := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			cfg[k] = val
		case json.Number:
			cfg[k] = val.String()
		case bool:
			cfg[k] = fmt.Sprintf("%t", val)
		default:
			// Nested values are not site endpoints; skip them.
		}
	}
	return cfg, nil
}

// Apply issues one set-config command per plan entry. Each key-set is
// independently idempotent on the target, so a partial failure is
// resumable by retrying only the keys named in the returned
// ReconcileError. A nil return means every key landed.
func (r *Reconciler) Apply(ctx context.Context, siteName string, plan Plan) error {
	if len(plan) == 0 {
		return nil
	}

	var applied []string
	failed := make(map[string]string)

	for _, kv := range plan {
		out, err := r.Transport.Run(ctx, "--site", siteName, "set-config", kv.Key, kv.Value)
		switch {
		case err != nil:
			failed[kv.Key] = err.Error()
		case out.ExitCode != 0:
			failed[kv.Key] = fmt.Sprintf("exit %d: %s", out.ExitCode, firstLine(out.Combined()))
		default:
			applied = append(applied, kv.Key)
		}
	}

	if len(failed) > 0 {
		return &ReconcileError{Applied: applied, Failed: failed}
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
