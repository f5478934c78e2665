// Package device holds the immutable Device record of spec.md §3 and the
// process-wide registry that enforces "one Session per Device" (spec.md
// §3, §5, §9 — replacing the source's PtDrvDevices[_MAX_PTDEVS] global
// array with a mutex-guarded map, as directed by spec.md §9).
package device

import (
	"fmt"
	"sync"

	"github.com/corescan/sane/internal/sanecore"
)

// TransportKind names which physical family a Device belongs to.
type TransportKind int

const (
	TransportParallelPort TransportKind = iota
	TransportUSB
	TransportSCSI
)

// Mode is a scan mode supported by a Device (spec.md §3).
type Mode string

const (
	ModeLineart  Mode = "LINEART"
	ModeHalftone Mode = "HALFTONE"
	ModeGray     Mode = "GRAY"
	ModeColor    Mode = "COLOR"
)

// Source is a document source option (spec.md §3).
type Source string

const (
	SourceFlatbed Source = "FLATBED"
	SourceADF     Source = "ADF"
	SourceTPA     Source = "TPA"
	SourceNeg     Source = "NEG"
)

// ColorScheme names the CCD's line layout, consumed by internal/motor and
// internal/assemble (spec.md §4.D/§4.E).
type ColorScheme int

const (
	SchemeFlat ColorScheme = iota
	SchemeSeqRGB
	SchemeGoofyRGB
	SchemeSeq2R2G2B
)

// Device is the immutable capability record of spec.md §3. A *Device is
// safe for concurrent reads from any number of Sessions — the one-open
// invariant lives in Registry, not here.
type Device struct {
	Vendor  string
	Model   string
	ModelID uint32

	OpticalDPIX, OpticalDPIY int
	BitDepths                []int
	Modes                    []Mode
	Transports               []TransportKind
	Sources                  []Source

	ColorScheme ColorScheme
	SpeedSteps  int // P96 family: 1..34; finer for P98 — see internal/timing

	// DevicePath is how the transport is reached: a /dev/parportN, a
	// /dev/usb/scannerN node, or a SCSI generic device, depending on
	// which TransportKind is selected at open time.
	DevicePath string
}

// SupportsMode reports whether a Device supports the given mode.
func (d *Device) SupportsMode(m Mode) bool {
	for _, dm := range d.Modes {
		if dm == m {
			return true
		}
	}
	return false
}

func (d *Device) SupportsSource(s Source) bool {
	for _, ds := range d.Sources {
		if ds == s {
			return true
		}
	}
	return false
}

func (d *Device) SupportsDepth(bits int) bool {
	for _, b := range d.BitDepths {
		if b == bits {
			return true
		}
	}
	return false
}

// Registry tracks which Devices currently have an open Session, and is the
// single process-wide source of truth for device discovery results
// (internal/discover feeds it; pkg/sane.GetDevices reads it).
type Registry struct {
	mu      sync.Mutex
	devices map[string]*Device // keyed by Vendor+Model+DevicePath
	opened  map[string]bool
}

func NewRegistry() *Registry {
	return &Registry{devices: map[string]*Device{}, opened: map[string]bool{}}
}

func key(d *Device) string { return fmt.Sprintf("%s|%s|%s", d.Vendor, d.Model, d.DevicePath) }

// Add registers a discovered Device, replacing any prior entry at the same
// key (re-discovery of an already-known device is idempotent).
func (r *Registry) Add(d *Device) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices[key(d)] = d
}

// Remove drops a Device that is no longer present (USB unplug).
func (r *Registry) Remove(d *Device) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(d)
	delete(r.devices, k)
	delete(r.opened, k)
}

// List returns all currently known Devices (spec.md §6.1 get_devices).
func (r *Registry) List() []*Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d)
	}
	return out
}

// Open marks d as having an open Session, failing fast with DEVICE_BUSY if
// it is already open (spec.md §3 "One Device may be opened at most once
// concurrently").
func (r *Registry) Open(d *Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(d)
	if r.opened[k] {
		return sanecore.ErrDeviceBusy
	}
	r.opened[k] = true
	return nil
}

// Close releases d's open-Session claim.
func (r *Registry) Close(d *Device) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.opened, key(d))
}

// Find returns the Device matching name (the string surfaced to
// get_devices/open), or nil.
func (r *Registry) Find(name string) *Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.devices {
		if d.DevicePath == name || d.Model == name {
			return d
		}
	}
	return nil
}
