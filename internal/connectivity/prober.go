package connectivity

import (
	"context"
	"log"
	"sync"
	"time"
)

// Pinger is the reachability check the prober drives; the remote store
// satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

const probeTimeout = 5 * time.Second

// Prober polls the remote system and feeds the result to the monitor.
// It is the host-environment connectivity signal in a server process.
type Prober struct {
	monitor  *Monitor
	pinger   Pinger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewProber creates a prober that checks reachability every interval.
func NewProber(monitor *Monitor, pinger Pinger, interval time.Duration) *Prober {
	return &Prober{
		monitor:  monitor,
		pinger:   pinger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// ProbeOnce runs a single reachability check and returns the result.
// Used at startup to seed the monitor's initial state.
func ProbeOnce(pinger Pinger) bool {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	return pinger.Ping(ctx) == nil
}

// Start begins background probing.
func (p *Prober) Start() {
	log.Printf("[Connectivity] Prober started - interval: %v", p.interval)
	go p.run()
}

func (p *Prober) run() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
			err := p.pinger.Ping(ctx)
			cancel()
			p.monitor.SetOnline(err == nil)
		case <-p.stopCh:
			log.Printf("[Connectivity] Prober stopped")
			return
		}
	}
}

// Stop halts background probing.
func (p *Prober) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})
}
