package syncer

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"agrovet-pos/internal/connectivity"
)

// Scheduler re-invokes the sync pass on a timer while connectivity is
// present. Coming online starts the timer and triggers one immediate pass;
// going offline stops the timer. A pass already in flight when a trigger
// fires is left alone - the trigger is dropped, not queued.
type Scheduler struct {
	engine   *Engine
	monitor  *connectivity.Monitor
	interval time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewScheduler creates a scheduler driving engine at the engine's interval.
func NewScheduler(engine *Engine, monitor *connectivity.Monitor) *Scheduler {
	return &Scheduler{
		engine:   engine,
		monitor:  monitor,
		interval: engine.cfg.Interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins scheduling. If the monitor reports online, a pass is
// triggered immediately.
func (s *Scheduler) Start() {
	log.Printf("[SyncScheduler] Started - interval: %v", s.interval)
	s.wg.Add(1)
	go s.run()
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	events, cancel := s.monitor.Subscribe()
	defer cancel()

	var ticker *time.Ticker
	var tickC <-chan time.Time

	startTicker := func() {
		if ticker == nil {
			ticker = time.NewTicker(s.interval)
			tickC = ticker.C
		}
	}
	stopTicker := func() {
		if ticker != nil {
			ticker.Stop()
			ticker = nil
			tickC = nil
		}
	}
	defer stopTicker()

	if s.monitor.Current() {
		startTicker()
		s.trigger()
	}

	for {
		select {
		case online := <-events:
			if online {
				startTicker()
				s.trigger()
			} else {
				stopTicker()
			}
		case <-tickC:
			s.trigger()
		case <-s.stopCh:
			return
		}
	}
}

// trigger runs one pass, swallowing the expected coordination outcomes.
func (s *Scheduler) trigger() {
	_, err := s.engine.RunPass(context.Background())
	if err != nil && !errors.Is(err, ErrSyncInProgress) && !errors.Is(err, ErrOffline) {
		log.Printf("[SyncScheduler] Pass failed: %v", err)
	}
}

// Stop halts scheduling and waits for the loop to exit. An in-flight pass
// is not interrupted; its state is durable either way.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()
}
