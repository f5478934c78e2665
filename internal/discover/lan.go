package discover

import (
	"context"

	"github.com/brutella/dnssd"

	"github.com/corescan/sane/internal/sanelog"
)

// serviceType is the DNS-SD service type this backend advertises itself
// under when run as a network scan server, the saned deployment shape.
const serviceType = "_sane-scan._tcp"

// Announce advertises name:port on the LAN via mDNS/DNS-SD. It starts a
// responder goroutine that runs until ctx is cancelled.
func Announce(ctx context.Context, name string, port int, log *sanelog.Logger) error {
	cfg := dnssd.Config{
		Name: name,
		Type: serviceType,
		Port: port,
	}

	sv, err := dnssd.NewService(cfg)
	if err != nil {
		return err
	}

	rp, err := dnssd.NewResponder()
	if err != nil {
		return err
	}

	if _, err := rp.Add(sv); err != nil {
		return err
	}

	log.Info("announcing scan server", "name", name, "port", port, "type", serviceType)

	go func() {
		if err := rp.Respond(ctx); err != nil && ctx.Err() == nil {
			log.Warn("dns-sd responder stopped", "err", err)
		}
	}()
	return nil
}
