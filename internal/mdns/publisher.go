// Package mdns advertises the gateway endpoint over multicast DNS so it
// can be discovered on the local network without configuration.
package mdns

import (
	"fmt"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/adriangligor/octoplex/internal/logger"
)

const (
	// serviceType is the advertised DNS-SD service type.
	serviceType = "_octoplex._tcp"

	// mdnsDomain is the standard mDNS domain (RFC 6762).
	mdnsDomain = "local."

	// shutdownTimeout is the maximum time to wait for mDNS server shutdown.
	shutdownTimeout = 2 * time.Second

	// startupSettleTime lets zeroconf's internal receive goroutines fully
	// initialize before a shutdown could race them.
	startupSettleTime = 50 * time.Millisecond
)

// Publisher manages the mDNS registration of the gateway.
// If disabled, all calls are no-ops.
type Publisher struct {
	mu      sync.Mutex
	server  *zeroconf.Server
	enabled bool
}

// NewPublisher creates a new mDNS Publisher.
func NewPublisher(enabled bool) *Publisher {
	return &Publisher{enabled: enabled}
}

// Register advertises the gateway under the given instance name and port.
func (p *Publisher) Register(instance string, port int) error {
	if !p.enabled {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.server != nil {
		return nil
	}

	server, err := zeroconf.Register(
		instance,
		serviceType,
		mdnsDomain,
		port,
		[]string{"txtvers=1"},
		nil, // interfaces (nil = all)
	)
	if err != nil {
		return fmt.Errorf("failed to register mDNS service %s: %w", instance, err)
	}

	p.server = server
	time.Sleep(startupSettleTime)

	logger.Info("mDNS service registered", map[string]any{
		"instance": instance,
		"service":  serviceType,
		"port":     port,
	})

	return nil
}

// Stop withdraws the mDNS registration.
func (p *Publisher) Stop() {
	if !p.enabled {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.server == nil {
		return
	}

	shutdownWithTimeout(p.server)
	p.server = nil

	logger.Info("mDNS service unregistered", nil)
}

// shutdownWithTimeout shuts a zeroconf server down without letting a hung
// goodbye packet block process shutdown.
func shutdownWithTimeout(server *zeroconf.Server) {
	done := make(chan struct{})
	go func() {
		server.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		logger.Warn("mDNS shutdown timed out", nil)
	}
}
