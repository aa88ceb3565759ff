package provisioning

import (
	"fmt"
	"time"
)

// RunPhases executes all provisioning phases sequentially.
func RunPhases(ctx *Context, phases []Phase) error {
	start := time.Now()
	ctx.Observer.Printf("Starting %s with %d phases...", ctx.Operation(), len(phases))

	for i, phase := range phases {
		phaseStart := time.Now()
		obs := ctx.Observer.WithFields(map[string]string{"step": fmt.Sprintf("%d/%d", i+1, len(phases))})
		LogPhaseStart(obs, phase.Name())

		err := phase.Provision(ctx)
		ctx.Metrics.ObservePhase(ctx.Operation(), phase.Name(), time.Since(phaseStart), err)
		if err != nil {
			LogPhaseFailed(obs, phase.Name(), err)
			return fmt.Errorf("%s phase failed: %w", phase.Name(), err)
		}

		LogPhaseComplete(obs, phase.Name(), time.Since(phaseStart))
	}

	ctx.Observer.Printf("%s completed in %v", ctx.Operation(), time.Since(start).Round(time.Millisecond))
	return nil
}

// Execute checks the guards, runs phases and records the outcome. When a
// metrics textfile is configured it is written whether or not the run
// succeeded.
func Execute(ctx *Context, phases []Phase) error {
	err := CheckGuards(ctx)
	if err == nil {
		err = RunPhases(ctx, phases)
	}

	service := ""
	if ctx.Instance != nil {
		service = ctx.Instance.Service
	}
	ctx.Metrics.ObserveRun(ctx.Operation(), service, time.Now(), err)
	if path := ctx.Settings.MetricsTextfile; path != "" {
		if werr := ctx.Metrics.WriteTextfile(path); werr != nil {
			LogWarning(ctx.Observer, "", werr.Error())
		}
	}
	return err
}
