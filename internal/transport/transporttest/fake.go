// Package transporttest provides an in-memory transport.Transport double
// for exercising internal/session and internal/transport without real
// hardware. The teacher's own dependency on github.com/creack/pty for
// simulating a device endpoint doesn't fit a register-addressed command
// protocol (it models a line-disciplined tty, not discrete command/
// response frames), so this is a plain Go fake instead (see DESIGN.md).
package transporttest

import (
	"context"
	"sync"

	"github.com/corescan/sane/internal/command"
	"github.com/corescan/sane/internal/sanecore"
)

// Responder answers one SendCommand call.
type Responder func(cdb []byte, dir command.Direction, out []byte) ([]byte, error)

// Fake is a scriptable transport.Transport: each call to SendCommand pops
// the next queued Responder (or falls back to Default if the queue is
// empty), and register operations read/write an in-memory register file.
type Fake struct {
	mu        sync.Mutex
	queue     []Responder
	Default   Responder
	Registers map[command.Reg]byte
	Burst     []byte // bytes returned by the next BurstRead calls, consumed in order
	Closed    bool
}

func New() *Fake {
	return &Fake{Registers: map[command.Reg]byte{}}
}

// Enqueue appends r to the response queue.
func (f *Fake) Enqueue(r Responder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, r)
}

// EnqueueResult is a convenience wrapper around Enqueue for static results.
func (f *Fake) EnqueueResult(payload []byte, err error) {
	f.Enqueue(func([]byte, command.Direction, []byte) ([]byte, error) { return payload, err })
}

func (f *Fake) SendCommand(ctx context.Context, cdb []byte, dir command.Direction, out []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, sanecore.New(sanecore.KindCancelled, err)
	}
	f.mu.Lock()
	var r Responder
	if len(f.queue) > 0 {
		r = f.queue[0]
		f.queue = f.queue[1:]
	} else {
		r = f.Default
	}
	f.mu.Unlock()
	if r == nil {
		return nil, nil
	}
	return r(cdb, dir, out)
}

func (f *Fake) RegisterWrite(reg command.Reg, val byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Registers[reg] = val
	return nil
}

func (f *Fake) RegisterRead(reg command.Reg) (byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Registers[reg], nil
}

func (f *Fake) BurstRead(buf []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := copy(buf, f.Burst)
	f.Burst = f.Burst[n:]
	return n, nil
}

func (f *Fake) Close() error {
	f.Closed = true
	return nil
}
