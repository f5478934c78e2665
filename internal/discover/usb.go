// Package discover finds attached scanners and, optionally, advertises this
// backend as a network scan server. USB hotplug attach/detach wraps
// github.com/jochenvg/go-udev behind a small package API; LAN advertisement
// wraps github.com/brutella/dnssd to announce a network scan server, the
// real SANE deployment shape (saned).
package discover

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jochenvg/go-udev"

	"github.com/corescan/sane/internal/device"
	"github.com/corescan/sane/internal/sanelog"
)

// usbSubsystem is the udev subsystem name USB-SCSI scanners attach under.
const usbSubsystem = "usb"

// scannerDeviceClass is the USB device class byte scanners in this family
// report, used to filter unrelated USB attach events.
const scannerDeviceClass = "06" // USB_CLASS_IMAGE-adjacent value scanners commonly report

// ScanUSB enumerates currently attached USB devices and registers any that
// look like a scanner from knownModels into reg. It is the one-shot
// counterpart to WatchUSB's hotplug stream.
func ScanUSB(reg *device.Registry, knownModels map[string]*device.Device, log *sanelog.Logger) error {
	u := udev.Udev{}
	e := u.NewEnumerate()
	if err := e.AddMatchSubsystem(usbSubsystem); err != nil {
		return fmt.Errorf("discover: match subsystem: %w", err)
	}
	devices, err := e.Devices()
	if err != nil {
		return fmt.Errorf("discover: enumerate: %w", err)
	}
	for _, ud := range devices {
		if d, ok := identify(ud, knownModels); ok {
			reg.Add(d)
			log.Info("usb scanner found", "model", d.Model, "path", d.DevicePath)
		}
	}
	return nil
}

// WatchUSB streams udev add/remove events for the usb subsystem, feeding
// reg.Add/reg.Remove as matching devices attach and detach, until ctx is
// cancelled. It runs on the caller's goroutine; callers that want this
// backgrounded should `go discover.WatchUSB(...)` themselves — the package
// only starts its own goroutine for the blocking LAN responder loop.
func WatchUSB(ctx context.Context, reg *device.Registry, knownModels map[string]*device.Device, log *sanelog.Logger) error {
	u := udev.Udev{}
	m := u.NewMonitorFromNetlink("udev")
	if err := m.FilterAddMatchSubsystem(usbSubsystem); err != nil {
		return fmt.Errorf("discover: monitor filter: %w", err)
	}
	ch, errCh, err := m.DeviceChan(ctx)
	if err != nil {
		return fmt.Errorf("discover: device channel: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if err != nil {
				log.Warn("usb monitor error", "err", err)
			}
		case ud, ok := <-ch:
			if !ok {
				return nil
			}
			d, matched := identify(ud, knownModels)
			if !matched {
				continue
			}
			switch ud.Action() {
			case "remove":
				reg.Remove(d)
				log.Info("usb scanner detached", "model", d.Model, "path", d.DevicePath)
			default:
				reg.Add(d)
				log.Info("usb scanner attached", "model", d.Model, "path", d.DevicePath)
			}
		}
	}
}

// identify matches a udev Device against knownModels (keyed by
// "vendorID:productID", lowercase 4-digit hex without a 0x prefix), returning a
// *device.Device with DevicePath filled in from the udev syspath's devnode.
func identify(ud *udev.Device, knownModels map[string]*device.Device) (*device.Device, bool) {
	vendor := ud.PropertyValue("ID_VENDOR_ID")
	product := ud.PropertyValue("ID_MODEL_ID")
	if vendor == "" || product == "" {
		return nil, false
	}
	key := vendor + ":" + product
	proto, ok := knownModels[key]
	if !ok {
		return nil, false
	}
	devnode := ud.Devnode()
	if devnode == "" {
		devnode = "/dev/bus/usb/" + ud.Sysname()
	}
	d := *proto
	d.DevicePath = devnode
	return &d, true
}

// busAddress formats a udev bus/device number pair the way sysfs exposes
// it ("001:002").
func busAddress(bus, addr string) string {
	b, _ := strconv.Atoi(bus)
	a, _ := strconv.Atoi(addr)
	return fmt.Sprintf("%03d:%03d", b, a)
}
