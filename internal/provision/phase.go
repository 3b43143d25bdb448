package provision

// Phase is a state of the provisioning workflow. The workflow moves
// strictly forward; Done and Failed are terminal.
type Phase string

const (
	PhaseStart                Phase = "start"
	PhaseAwaitingDependencies Phase = "awaiting_dependencies"
	PhaseProbing              Phase = "probing"
	PhaseProvisioning         Phase = "provisioning"
	PhaseReconciling          Phase = "reconciling"
	PhaseVerifying            Phase = "verifying"
	PhaseDone                 Phase = "done"
	PhaseFailed               Phase = "failed"
)

// Status is the terminal outcome of one workflow run.
type Status string

const (
	StatusDone   Status = "done"
	StatusFailed Status = "failed"
)

// Result is what one workflow run produces. On failure, Phase names the
// phase that was executing when the run stopped and Err carries the
// reason; both are diagnostics for the caller, which owns any retry
// decision.
type Result struct {
	Status Status
	Phase  Phase
	Err    error
}
