// Package transport implements spec.md §4.A: the two Transport variants
// (USB/SCSI bulk and parallel-port register I/O) behind a single
// interface, so internal/command and internal/session never need to know
// which physical wire they're driving.
package transport

import (
	"context"
	"errors"

	"github.com/corescan/sane/internal/command"
	"github.com/corescan/sane/internal/sanecore"
)

// Transport is satisfied by both the USB/SCSI bulk variant and the
// parallel-port register variant. send_command is blocking (spec.md
// §4.A): it either completes or returns an error; a CHECK_CONDITION
// status is surfaced as ErrCheckCondition, and the caller must issue
// REQUEST_SENSE before the next command (spec.md §5 ordering).
type Transport interface {
	// SendCommand issues cdb with an optional data phase, described by
	// dir, and returns the payload (for DirIn) plus any immediate
	// transport-level error. It does not decode sense; callers get
	// ErrCheckCondition and must call RequestSense themselves.
	SendCommand(ctx context.Context, cdb []byte, dir command.Direction, out []byte) (payload []byte, err error)

	// RegisterWrite/RegisterRead/BurstRead are the parallel-port
	// primitives (spec.md §4.A); USB/SCSI transports return
	// ErrUnsupported for these.
	RegisterWrite(reg command.Reg, val byte) error
	RegisterRead(reg command.Reg) (byte, error)
	BurstRead(buf []byte) (int, error)

	Close() error
}

// ErrCheckCondition signals that the last SendCommand returned
// CHECK_CONDITION; the session must call RequestSense next (spec.md §5).
var ErrCheckCondition = sanecore.New(sanecore.KindIOError, errors.New("check condition"))

// retryBudget is the TEST_UNIT_READY retry count specified in spec.md
// §4.B ("Retry budget 3 with transport re-open on failure").
const retryBudget = 3
