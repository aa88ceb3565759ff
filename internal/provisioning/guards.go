package provisioning

import "fmt"

// CheckGuards refuses to run without root or while the installation's
// service or socket is active. Nothing is changed on failure.
func CheckGuards(ctx *Context) error {
	if ctx.IsRoot != nil && !ctx.IsRoot() {
		return guardFailed(ctx, &PreconditionError{
			Reason: "this must be run as root",
			Remedy: "re-run with sudo",
		})
	}
	if ctx.Instance == nil || ctx.Units == nil {
		return nil
	}

	for _, unit := range []string{ctx.Instance.SocketUnit(), ctx.Instance.ServiceUnit()} {
		if ctx.Units.IsActive(ctx, unit) {
			return guardFailed(ctx, &PreconditionError{
				Reason: fmt.Sprintf("%s is currently running", unit),
				Remedy: fmt.Sprintf("stop it first with: systemctl stop %s %s",
					ctx.Instance.SocketUnit(), ctx.Instance.ServiceUnit()),
			})
		}
	}
	return nil
}

func guardFailed(ctx *Context, err *PreconditionError) error {
	ctx.Observer.Event(Event{
		Type:    EventGuardFailed,
		Message: err.Reason,
		Fields:  map[string]string{"remedy": err.Remedy},
	})
	return err
}
