// Package readyset tracks the processes currently eligible to run and answers
// which of them holds the minimum stride.
package readyset

import (
	"sync"

	"github.com/strideos/stride/kernel/process"
	"github.com/strideos/stride/kernel/stride"
)

// Set is the collection of runnable process handles. It references process
// state, it does not own it. Membership changes on spawn, exit, block,
// unblock and around each dispatch.
type Set struct {
	mu      sync.RWMutex
	members map[process.PID]*process.Process
}

// New creates an empty ready set.
func New() *Set {
	return &Set{members: make(map[process.PID]*process.Process)}
}

// Insert enrolls a process. Re-inserting the same pid is a no-op.
func (s *Set) Insert(proc *process.Process) {
	if proc == nil {
		return
	}
	s.mu.Lock()
	s.members[proc.PID] = proc
	s.mu.Unlock()
}

// Remove withdraws a pid; reports whether it was enrolled.
func (s *Set) Remove(pid process.PID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[pid]; !ok {
		return false
	}
	delete(s.members, pid)
	return true
}

// Contains reports membership.
func (s *Set) Contains(pid process.PID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.members[pid]
	return ok
}

// Len returns the number of enrolled processes.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.members)
}

// SelectMin returns the process with the minimum stride under the wrap-aware
// comparison, or nil when the set is empty (the scheduler then idles; an
// empty set is a normal state, not an error). Stride ties break on creation
// order, oldest first, so selection is reproducible regardless of map
// iteration order.
func (s *Set) SelectMin() *process.Process {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *process.Process
	var bestStride stride.Value
	for _, candidate := range s.members {
		_, _, candidateStride := candidate.Record()
		if best == nil {
			best, bestStride = candidate, candidateStride
			continue
		}
		switch stride.Compare(candidateStride, bestStride) {
		case stride.Less:
			best, bestStride = candidate, candidateStride
		case stride.Equal:
			if candidate.Seq < best.Seq {
				best, bestStride = candidate, candidateStride
			}
		}
	}
	return best
}

// PIDs returns the enrolled pids in no particular order.
func (s *Set) PIDs() []process.PID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ret := make([]process.PID, 0, len(s.members))
	for pid := range s.members {
		ret = append(ret, pid)
	}
	return ret
}
