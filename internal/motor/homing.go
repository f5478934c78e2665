package motor

import (
	"context"
	"time"

	"github.com/corescan/sane/internal/sanecore"
)

// HomeSensor reports whether the carriage currently sits at the home
// position (parallel-port families read this from RegStatus2; sheetfed
// USB/SCSI devices that have no home sensor implement AtHome as an
// always-true no-op since Homing is a no-op for them).
type HomeSensor interface {
	AtHome() (bool, error)
}

// Stepper drives the motor one step at a time (spec.md §4.D Homing /
// Fast-move).
type Stepper interface {
	StepBackward(n int) error
	StepForward(n int) error
}

const (
	// HomingTimeout is the per-attempt timeout (spec.md §4.D: "timeout
	// 25 s").
	HomingTimeout = 25 * time.Second
	// UnstickSteps is the forward nudge issued once a homing attempt
	// times out before retrying (spec.md §4.D: "attempt one forward
	// 40-step unstick, repeat").
	UnstickSteps = 40
	// homingRetryBudget caps the unstick-and-retry cycle: the source lets
	// this loop run until the sensor trips, but a bounded retry budget is
	// required to satisfy spec.md §8 property 8 ("HOMING terminates in
	// bounded time or surfaces JAMMED").
	homingRetryBudget = 2
)

// Home drives the carriage backward until sensor reports AtHome, retrying
// through UnstickSteps on timeout up to homingRetryBudget attempts, and
// returns ErrJammed if the sensor never trips (spec.md §4.D Homing, §8
// property 8).
func Home(ctx context.Context, sensor HomeSensor, stepper Stepper) error {
	for attempt := 0; attempt < homingRetryBudget; attempt++ {
		ok, err := homeOnce(ctx, sensor, stepper, HomingTimeout)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if err := stepper.StepForward(UnstickSteps); err != nil {
			return err
		}
	}
	return sanecore.New(sanecore.KindJammed, nil)
}

func homeOnce(ctx context.Context, sensor HomeSensor, stepper Stepper, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		select {
		case <-ctx.Done():
			return false, sanecore.New(sanecore.KindCancelled, ctx.Err())
		default:
		}

		at, err := sensor.AtHome()
		if err != nil {
			return false, sanecore.New(sanecore.KindIOError, err)
		}
		if at {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		if err := stepper.StepBackward(1); err != nil {
			return false, sanecore.New(sanecore.KindIOError, err)
		}
	}
}
