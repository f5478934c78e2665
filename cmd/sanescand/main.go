// sanescand is a thin CLI collaborator (spec.md §6.4: "not part of the
// core"): it opens one device, applies the flags below as option values,
// runs a single scan to completion and writes the raw image data to
// stdout. It exists to exercise pkg/sane end to end, not as a full SANE
// frontend.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/corescan/sane/internal/config"
	"github.com/corescan/sane/internal/device"
	"github.com/corescan/sane/internal/discover"
	"github.com/corescan/sane/internal/parport"
	"github.com/corescan/sane/internal/sanelog"
	"github.com/corescan/sane/internal/transport"
	"github.com/corescan/sane/pkg/sane"
)

// Exit codes, spec.md §6.4: "Exit codes 0 success, 1 I/O, 2 invalid arg,
// 3 cancelled."
const (
	exitOK        = 0
	exitIOError   = 1
	exitInvalArg  = 2
	exitCancelled = 3
)

const backendName = "SANESCAND"

func main() {
	os.Exit(run())
}

func run() int {
	deviceName := pflag.String("device", "", "Device name or path to open.")
	mode := pflag.String("mode", "GRAY", "Scan mode: LINEART, HALFTONE, GRAY or COLOR.")
	resolution := pflag.Float64("resolution", 300, "Resolution in DPI, applied to both axes.")
	source := pflag.String("source", "FLATBED", "Document source: FLATBED, ADF, TPA or NEG.")
	tlX := pflag.Float64("tl-x", 0, "Top-left X of the scan area, in millimetres.")
	tlY := pflag.Float64("tl-y", 0, "Top-left Y of the scan area, in millimetres.")
	brX := pflag.Float64("br-x", 215.9, "Bottom-right X of the scan area, in millimetres.")
	brY := pflag.Float64("br-y", 279.4, "Bottom-right Y of the scan area, in millimetres.")
	brightness := pflag.Int("brightness", 0, "Brightness, -127..127.")
	contrast := pflag.Int("contrast", 0, "Contrast, -127..127.")
	threshold := pflag.Int("threshold", 128, "LINEART threshold, 0..255.")
	configPath := pflag.String("config", "/etc/sanescand.conf", "Persisted state file (spec.md §6.5).")
	devicesPath := pflag.String("devices", "", "Optional devices.yaml overrides table for USB discovery.")
	announce := pflag.String("announce", "", "If set, advertise this backend on the LAN as name:port (mDNS/DNS-SD).")
	help := pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "sanescand - run a single scan against a SANE-shaped backend device.\n\n")
		fmt.Fprintf(os.Stderr, "Usage: sanescand --device NAME [options] > out.raw\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		return exitOK
	}
	if *deviceName == "" {
		fmt.Fprintln(os.Stderr, "sanescand: --device is required")
		return exitInvalArg
	}

	log := sanelog.New(backendName)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Warn("config load failed, continuing with defaults", "err", err)
		cfg = &config.Config{}
	}
	known := knownModels(*devicesPath, log)
	if err := sane.Init(backendName, known); err != nil {
		fmt.Fprintln(os.Stderr, "sanescand: init:", err)
		return exitIOError
	}
	defer sane.Exit()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *announce != "" {
		name, port, err := parseAnnounce(*announce)
		if err != nil {
			fmt.Fprintln(os.Stderr, "sanescand: announce:", err)
			return exitInvalArg
		}
		go func() {
			if err := discover.Announce(ctx, name, port, log); err != nil {
				log.Warn("lan announce stopped", "err", err)
			}
		}()
	}

	h, err := sane.Open(ctx, *deviceName, transportForDevice)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sanescand: open:", err)
		return classify(err)
	}
	defer h.Close()

	h.SetCalibPolicy(cfg.NoPrecal, cfg.NoRealCal)

	setOptions(h, *mode, *source, *resolution, *tlX, *tlY, *brX, *brY, *brightness, *contrast, *threshold)

	if err := h.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "sanescand: start:", err)
		return classify(err)
	}

	buf := make([]byte, 64*1024)
	for {
		n, err := h.Read(buf)
		if n > 0 {
			os.Stdout.Write(buf[:n])
		}
		if err != nil {
			if err == io.EOF {
				return exitOK
			}
			fmt.Fprintln(os.Stderr, "sanescand: read:", err)
			return classify(err)
		}
	}
}

func setOptions(h *sane.Handle, mode, source string, resolution, tlX, tlY, brX, brY float64, brightness, contrast, threshold int) {
	set := func(name string, val interface{}) {
		if _, err := h.ControlOption(name, sane.ActionSet, val); err != nil {
			fmt.Fprintf(os.Stderr, "sanescand: set %s: %v\n", name, err)
		}
	}
	set("mode", mode)
	set("source", source)
	set("resolution-x", resolution)
	set("resolution-y", resolution)
	set("tl-x", tlX)
	set("tl-y", tlY)
	set("br-x", brX)
	set("br-y", brY)
	set("brightness", brightness)
	set("contrast", contrast)
	set("threshold", threshold)
}

func classify(err error) int {
	switch err {
	case sane.ErrCancelled:
		return exitCancelled
	case sane.ErrInvalid:
		return exitInvalArg
	default:
		return exitIOError
	}
}

// transportForDevice opens the physical Transport for d, dispatching on
// its TransportKind (spec.md §4.A: USB/SCSI bulk vs parallel-port register
// I/O are both real wire variants of the same CommandSet).
func transportForDevice(d *device.Device) (transport.Transport, error) {
	for _, k := range d.Transports {
		switch k {
		case device.TransportUSB, device.TransportSCSI:
			return transport.OpenUSBSCSI(d.DevicePath, false)
		case device.TransportParallelPort:
			lines, _, err := parport.Open(d.DevicePath, "", nil)
			if err != nil {
				return nil, err
			}
			return transport.NewParallelPort(lines, parport.Delay1), nil
		}
	}
	return nil, fmt.Errorf("sanescand: device %s has no supported transport", d.Model)
}

// knownModels builds the candidate Device table sane.Init hands to
// discover.ScanUSB/WatchUSB for matching attached USB hardware, from an
// optional devices.yaml overrides file. With no path given, it returns an
// empty table and callers must name an already-configured device path
// directly via --device.
func knownModels(devicesPath string, log *sanelog.Logger) []*device.Device {
	if devicesPath == "" {
		return nil
	}
	overrides, err := device.LoadOverrides(devicesPath)
	if err != nil {
		log.Warn("devices.yaml load failed, USB discovery will match nothing", "err", err)
		return nil
	}
	known := make([]*device.Device, 0, len(overrides))
	for model, o := range overrides {
		d := &device.Device{Model: model, Vendor: "Panasonic"}
		o.Apply(d)
		known = append(known, d)
	}
	return known
}

// parseAnnounce splits a "name:port" --announce argument.
func parseAnnounce(s string) (string, int, error) {
	i := strings.LastIndexByte(s, ':')
	if i < 0 {
		return "", 0, fmt.Errorf("expected name:port, got %q", s)
	}
	port, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return "", 0, fmt.Errorf("invalid port in %q: %w", s, err)
	}
	return s[:i], port, nil
}
