// Package proctable implements the process table: pid allocation, the bound
// on live process slots and lookup by pid. It is the process-creation
// primitive the scheduler and syscall layers build on.
package proctable

import (
	"context"
	"fmt"
	"sync"

	"github.com/strideos/stride/kernel/process"
	"github.com/strideos/stride/model/program"
	"github.com/strideos/stride/model/types"
)

// Config represents process table configuration.
type Config struct {
	// MaxProcesses caps live (not yet reaped) process slots.
	MaxProcesses int `json:"maxProcesses" yaml:"maxProcesses"`
}

// DefaultConfig returns the default process table configuration.
func DefaultConfig() Config {
	return Config{MaxProcesses: 64}
}

// Service is an in-memory process table. It keeps process control blocks
// mapped by pid and hands out monotonic pids and creation-order tickets.
type Service struct {
	config  Config
	mu      sync.RWMutex
	records map[process.PID]*process.Process
	nextPID process.PID
	nextSeq uint64
}

// New creates a process table.
func New(config Config) *Service {
	if config.MaxProcesses <= 0 {
		config.MaxProcesses = DefaultConfig().MaxProcesses
	}
	return &Service{
		config:  config,
		records: make(map[process.PID]*process.Process),
		nextPID: 1,
	}
}

// Alloc creates a process control block from an image and registers it. It
// fails with ErrResourceExhausted when no slot is free; pid numbers are never
// reused within a table's lifetime.
func (s *Service) Alloc(_ context.Context, parent process.PID, img *program.Program, priority int64) (*process.Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.records) >= s.config.MaxProcesses {
		return nil, fmt.Errorf("%w: process table full (%d slots)", types.ErrResourceExhausted, s.config.MaxProcesses)
	}
	proc, err := process.New(s.nextPID, parent, s.nextSeq, img, priority)
	if err != nil {
		return nil, err
	}
	s.records[proc.PID] = proc
	s.nextPID++
	s.nextSeq++
	return proc, nil
}

// Lookup returns a process by pid or ErrNoSuchProcess.
func (s *Service) Lookup(_ context.Context, pid process.PID) (*process.Process, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	proc, ok := s.records[pid]
	if !ok {
		return nil, fmt.Errorf("%w: pid %d", types.ErrNoSuchProcess, pid)
	}
	return proc, nil
}

// Delete frees a slot, typically after a zombie has been reaped.
func (s *Service) Delete(_ context.Context, pid process.PID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[pid]; !ok {
		return fmt.Errorf("%w: pid %d", types.ErrNoSuchProcess, pid)
	}
	delete(s.records, pid)
	return nil
}

// List returns all live processes, optionally filtered by status.
func (s *Service) List(_ context.Context, statuses ...process.Status) ([]*process.Process, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*process.Process, 0, len(s.records))
	for _, proc := range s.records {
		if len(statuses) > 0 {
			match := false
			current := proc.GetStatus()
			for _, status := range statuses {
				if current == status {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, proc)
	}
	return out, nil
}

// Len returns the number of occupied slots.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
