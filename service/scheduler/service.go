// Package scheduler implements the stride scheduling loop: select the
// minimum-stride process, dispatch it for one time slice, advance its stride
// by its pass and re-enroll it while it stays runnable.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/strideos/stride/kernel/process"
	"github.com/strideos/stride/kernel/readyset"
	"github.com/strideos/stride/service/event"
	"github.com/strideos/stride/service/executor"
	"github.com/strideos/stride/service/proctable"
	"github.com/strideos/stride/tracing"
)

// Phase is the scheduler loop state.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseSelecting  Phase = "selecting"
	PhaseRunning    Phase = "running"
	PhasePreempting Phase = "preempting"
)

// Config represents scheduler configuration.
type Config struct {
	// TickInterval is how often the tick source ends the current slice.
	TickInterval time.Duration `json:"tickInterval" yaml:"tickInterval"`
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() Config {
	return Config{TickInterval: 10 * time.Millisecond}
}

// Service drives the scheduling rounds. Single core: at most one process is
// dispatched at a time, and the round mutex plays the role of disabled
// interrupts around the Selecting/Preempting bookkeeping.
type Service struct {
	config   Config
	table    *proctable.Service
	ready    *readyset.Set
	executor executor.Service
	events   *event.Service

	mu      sync.Mutex
	phase   Phase
	current *process.Process
	blocked map[process.PID]int

	shutdownCh chan struct{}
}

// New creates a scheduler service.
func New(table *proctable.Service, ready *readyset.Set, exec executor.Service, config Config, options ...Option) *Service {
	if config.TickInterval <= 0 {
		config.TickInterval = DefaultConfig().TickInterval
	}
	s := &Service{
		config:     config,
		table:      table,
		ready:      ready,
		executor:   exec,
		phase:      PhaseIdle,
		blocked:    make(map[process.PID]int),
		shutdownCh: make(chan struct{}),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Phase returns the current loop state.
func (s *Service) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Current returns the dispatched process, nil outside the Running phase.
func (s *Service) Current() *process.Process {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Start runs scheduling rounds until the context ends or Shutdown. The
// ticker is the tick source: every tick ends one time slice.
func (s *Service) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.shutdownCh:
			return nil
		case <-ticker.C:
			if _, err := s.Step(ctx); err != nil {
				// a failed slice must not stall the machine
				log.Printf("scheduler: %v", err)
			}
		}
	}
}

// Shutdown stops Start.
func (s *Service) Shutdown() {
	close(s.shutdownCh)
}

// Step executes one full scheduling round: Selecting, Running for one slice,
// Preempting. It reports whether a process was dispatched; false means the
// ready set was empty and the loop idled, which is a normal state.
func (s *Service) Step(ctx context.Context) (dispatched bool, err error) {
	ctx, span := tracing.StartSpan(ctx, "scheduler.round", "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()

	// Selecting: bookkeeping runs with the round lock held, nothing may
	// re-enter the scheduler while membership changes.
	s.mu.Lock()
	s.phase = PhaseSelecting
	s.tickBlockedLocked(ctx)

	proc := s.ready.SelectMin()
	if proc == nil {
		s.phase = PhaseIdle
		s.mu.Unlock()
		span.WithAttributes(map[string]string{"result": "idle"})
		s.publish(ctx, event.KindIdle, nil)
		return false, nil
	}
	s.ready.Remove(proc.PID)
	proc.SetStatus(process.StatusRunning)
	s.current = proc
	s.phase = PhaseRunning
	s.mu.Unlock()

	span.WithAttributes(map[string]string{
		"pid":     fmt.Sprintf("%d", proc.PID),
		"program": proc.Name,
	})

	// Running: hand the slice to the process.
	proc.Dispatched()
	s.publish(ctx, event.KindDispatched, proc)
	outcome, execErr := s.executor.Execute(ctx, proc)

	// Preempting: charge the consumed slice and re-enroll while runnable.
	s.mu.Lock()
	s.phase = PhasePreempting
	proc.Advance()
	switch outcome.Action {
	case executor.ActionExited:
		s.publish(ctx, event.KindExited, proc)
	case executor.ActionBlocked:
		proc.SetStatus(process.StatusBlocked)
		s.blocked[proc.PID] = outcome.BlockRounds
		s.publish(ctx, event.KindBlocked, proc)
	case executor.ActionYielded:
		proc.SetStatus(process.StatusReady)
		s.ready.Insert(proc)
		s.publish(ctx, event.KindYielded, proc)
	default:
		proc.SetStatus(process.StatusReady)
		s.ready.Insert(proc)
		s.publish(ctx, event.KindPreempted, proc)
	}
	s.current = nil
	s.phase = PhaseSelecting
	s.mu.Unlock()

	if execErr != nil {
		return true, fmt.Errorf("pid %d: %w", proc.PID, execErr)
	}
	return true, nil
}

// tickBlockedLocked counts one round against every blocked process and
// re-enrolls those whose wait elapsed. Caller holds s.mu.
func (s *Service) tickBlockedLocked(ctx context.Context) {
	for pid, remaining := range s.blocked {
		remaining--
		if remaining > 0 {
			s.blocked[pid] = remaining
			continue
		}
		delete(s.blocked, pid)
		proc, err := s.table.Lookup(ctx, pid)
		if err != nil {
			continue
		}
		proc.SetStatus(process.StatusReady)
		s.ready.Insert(proc)
		s.publish(ctx, event.KindUnblocked, proc)
	}
}

// publish emits a scheduler event when somebody listens; an unattended bus
// never back-pressures the loop.
func (s *Service) publish(ctx context.Context, kind string, proc *process.Process) {
	if s.events == nil || !event.ListensTo[*process.Process](s.events) {
		return
	}
	eventCtx := &event.Context{Kind: kind}
	if proc != nil {
		eventCtx.PID = proc.PID
		eventCtx.Program = proc.Name
	}
	publisher := event.PublisherOf[*process.Process](s.events)
	if err := publisher.Publish(ctx, event.NewEvent(eventCtx, proc)); err != nil {
		log.Printf("scheduler: failed to publish %s event: %v", kind, err)
	}
}
