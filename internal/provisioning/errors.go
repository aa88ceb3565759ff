package provisioning

import "fmt"

// PreconditionError means the run was refused before anything changed.
type PreconditionError struct {
	Reason string
	// Remedy tells the operator what to do about it.
	Remedy string
}

func (e *PreconditionError) Error() string {
	if e.Remedy == "" {
		return e.Reason
	}
	return e.Reason + "; " + e.Remedy
}

// ActionError is a failed external action such as a download, a package
// install or a managed update. The run stops; rerunning is the recovery.
type ActionError struct {
	Step string
	Err  error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}
