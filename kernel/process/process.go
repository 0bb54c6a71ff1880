// Package process defines the process control block and the per-process
// scheduling record (priority, pass, stride).
package process

import (
	"fmt"
	"sync"
	"time"

	"github.com/strideos/stride/internal/clock"
	"github.com/strideos/stride/kernel/stride"
	"github.com/strideos/stride/model/program"
	"github.com/strideos/stride/model/types"
)

// PID identifies a process.
type PID int64

// Process is a process control block. The scheduling record (Priority, Pass,
// Stride) is layered onto it: Priority mutates only via SetPriority, Stride
// only via Advance.
type Process struct {
	PID       PID              `json:"pid"`
	ParentPID PID              `json:"parentPid,omitempty"`
	Name      string           `json:"name"`
	Program   *program.Program `json:"program,omitempty"`
	IP        int              `json:"ip"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`

	// Seq is the creation-order ticket used to break stride ties; it makes
	// selection reproducible and starvation-free among equal strides.
	Seq uint64 `json:"seq"`

	Status   Status       `json:"status"`
	Priority int64        `json:"priority"`
	Pass     stride.Value `json:"pass"`
	Stride   stride.Value `json:"stride"`

	Children []PID  `json:"children,omitempty"`
	ExitCode *int64 `json:"exitCode,omitempty"`

	// BlockedFor counts the remaining rounds of a block op.
	BlockedFor int `json:"blockedFor,omitempty"`

	acct Accounting
	mu   sync.RWMutex
}

// Accounting mirrors what the task-info syscall reports: per-syscall call
// counts and wall time since the process was first dispatched.
type Accounting struct {
	SyscallCounts    map[uint64]uint64 `json:"syscallCounts,omitempty"`
	FirstScheduledAt *time.Time        `json:"firstScheduledAt,omitempty"`
	Slices           uint64            `json:"slices"`
}

// Info is the snapshot returned to the task-info syscall.
type Info struct {
	Status        Status            `json:"status"`
	SyscallCounts map[uint64]uint64 `json:"syscallCounts"`
	TimeMs        int64             `json:"timeMs"`
	Slices        uint64            `json:"slices"`
}

// New creates a process control block with a fresh scheduling record: stride
// zero and pass derived from the priority. The priority must already honour
// the minimum bound; callers resolve defaults before getting here.
func New(pid, parent PID, seq uint64, img *program.Program, priority int64) (*Process, error) {
	pass, err := stride.PassFor(priority)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidPriority, err)
	}
	now := clock.Now()
	name := ""
	if img != nil {
		name = img.Name
	}
	return &Process{
		PID:       pid,
		ParentPID: parent,
		Name:      name,
		Program:   img,
		Seq:       seq,
		CreatedAt: now,
		UpdatedAt: now,
		Status:    StatusReady,
		Priority:  priority,
		Pass:      pass,
		acct:      Accounting{SyscallCounts: make(map[uint64]uint64)},
	}, nil
}

// SetPriority updates the priority and recomputes the pass increment. It
// returns the previous priority; values below the minimum leave the record
// untouched and report ErrInvalidPriority.
func (p *Process) SetPriority(priority int64) (int64, error) {
	pass, err := stride.PassFor(priority)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", types.ErrInvalidPriority, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	old := p.Priority
	p.Priority = priority
	p.Pass = pass
	p.UpdatedAt = clock.Now()
	return old, nil
}

// Advance adds the pass increment to the stride. Modular addition, allowed to
// wrap; only the scheduler loop calls this, once per consumed slice.
func (p *Process) Advance() {
	p.mu.Lock()
	p.Stride += p.Pass
	p.UpdatedAt = clock.Now()
	p.mu.Unlock()
}

// GetStatus returns the lifecycle status.
func (p *Process) GetStatus() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Status
}

// SetStatus transitions the lifecycle status.
func (p *Process) SetStatus(status Status) {
	p.mu.Lock()
	p.Status = status
	p.UpdatedAt = clock.Now()
	p.mu.Unlock()
}

// Record returns the scheduling record as a consistent triple.
func (p *Process) Record() (priority int64, pass, strideValue stride.Value) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Priority, p.Pass, p.Stride
}

// Exit marks the process a zombie and records its exit code.
func (p *Process) Exit(code int64) {
	p.mu.Lock()
	p.Status = StatusZombie
	p.ExitCode = &code
	p.UpdatedAt = clock.Now()
	p.mu.Unlock()
}

// AddChild records a spawned child pid.
func (p *Process) AddChild(pid PID) {
	p.mu.Lock()
	p.Children = append(p.Children, pid)
	p.mu.Unlock()
}

// RemoveChild forgets a reaped child; reports whether it was present.
func (p *Process) RemoveChild(pid PID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, child := range p.Children {
		if child == pid {
			p.Children = append(p.Children[:i], p.Children[i+1:]...)
			return true
		}
	}
	return false
}

// ChildPIDs returns a copy of the direct child pids.
func (p *Process) ChildPIDs() []PID {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]PID(nil), p.Children...)
}

// HasChild reports whether pid is a direct child.
func (p *Process) HasChild(pid PID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, child := range p.Children {
		if child == pid {
			return true
		}
	}
	return false
}

// Syscalled bumps the per-syscall counter.
func (p *Process) Syscalled(id uint64) {
	p.mu.Lock()
	if p.acct.SyscallCounts == nil {
		p.acct.SyscallCounts = make(map[uint64]uint64)
	}
	p.acct.SyscallCounts[id]++
	p.mu.Unlock()
}

// Dispatched records one consumed time slice.
func (p *Process) Dispatched() {
	p.mu.Lock()
	if p.acct.FirstScheduledAt == nil {
		now := clock.Now()
		p.acct.FirstScheduledAt = &now
	}
	p.acct.Slices++
	p.mu.Unlock()
}

// Slices returns the number of time slices this process has consumed.
func (p *Process) Slices() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.acct.Slices
}

// Snapshot builds the task-info view.
func (p *Process) Snapshot() *Info {
	p.mu.RLock()
	defer p.mu.RUnlock()
	counts := make(map[uint64]uint64, len(p.acct.SyscallCounts))
	for k, v := range p.acct.SyscallCounts {
		counts[k] = v
	}
	info := &Info{
		Status:        p.Status,
		SyscallCounts: counts,
		Slices:        p.acct.Slices,
	}
	if p.acct.FirstScheduledAt != nil {
		info.TimeMs = clock.Now().Sub(*p.acct.FirstScheduledAt).Milliseconds()
	}
	return info
}
