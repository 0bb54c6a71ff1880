// Package syscall implements the control syscalls surfaced to processes:
// spawn and set-priority, plus the conventional process-management calls
// (yield, exit, getpid, waitpid, get_time, task_info). All operations execute
// synchronously to completion; none triggers a reschedule by itself - the
// next selection naturally picks up any new process or priority.
package syscall

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/strideos/stride/internal/clock"
	"github.com/strideos/stride/kernel/process"
	"github.com/strideos/stride/kernel/readyset"
	"github.com/strideos/stride/model/types"
	"github.com/strideos/stride/policy"
	"github.com/strideos/stride/service/event"
	"github.com/strideos/stride/service/loader"
	"github.com/strideos/stride/service/proctable"
	"github.com/strideos/stride/tracing"
)

// Syscall numbers of the user-facing dispatch table.
const (
	SysExit        uint64 = 93
	SysYield       uint64 = 124
	SysSetPriority uint64 = 140
	SysGetTime     uint64 = 169
	SysGetPID      uint64 = 172
	SysWaitPID     uint64 = 260
	SysSpawn       uint64 = 400
	SysTaskInfo    uint64 = 410
)

// ErrStillRunning reports a waited-for child that has not exited yet.
var ErrStillRunning = errors.New("child still running")

// ErrNoSuchProgram reports a spawn target image that is not registered.
var ErrNoSuchProgram = errors.New("no such program")

// TimeVal is the get_time result.
type TimeVal struct {
	Sec  int64 `json:"sec"`
	Usec int64 `json:"usec"`
}

// Service is the syscall layer over the process table and ready set.
type Service struct {
	table           *proctable.Service
	ready           *readyset.Set
	images          *loader.Service
	defaultPriority int64
	events          *event.Service
}

// New creates the syscall service. defaultPriority applies to images that do
// not declare one; it must honour the minimum priority bound, which engine
// config validation enforces before getting here.
func New(table *proctable.Service, ready *readyset.Set, images *loader.Service, defaultPriority int64, options ...Option) *Service {
	ret := &Service{
		table:           table,
		ready:           ready,
		images:          images,
		defaultPriority: defaultPriority,
	}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}

// Spawn creates a child from a registered program image and enrolls it in the
// ready set. The caller may be nil for the initial processes an embedder
// seeds before the scheduler starts.
func (s *Service) Spawn(ctx context.Context, caller *process.Process, programName string) (child *process.Process, err error) {
	ctx, span := tracing.StartSpan(ctx, "syscall.spawn "+programName, "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()

	var parent process.PID
	if caller != nil {
		caller.Syscalled(SysSpawn)
		parent = caller.PID
	}
	img := s.images.Lookup(programName)
	if img == nil {
		return nil, fmt.Errorf("%w: %q", ErrNoSuchProgram, programName)
	}
	priority := img.Priority
	if priority == 0 {
		priority = s.defaultPriority
	}
	child, err = s.table.Alloc(ctx, parent, img.Clone(), priority)
	if err != nil {
		return nil, err
	}
	span.WithAttributes(map[string]string{"pid": fmt.Sprintf("%d", child.PID)})
	if caller != nil {
		caller.AddChild(child.PID)
	}
	s.ready.Insert(child)
	s.publish(ctx, event.KindSpawned, child)
	return child, nil
}

// SetPriority updates target's priority and returns the previous value.
// Values below the minimum are rejected with ErrInvalidPriority, never
// clamped. Retargeting another process is subject to the context policy;
// an unknown pid and a denied one both report ErrNoSuchProcess.
func (s *Service) SetPriority(ctx context.Context, caller *process.Process, target process.PID, priority int64) (old int64, err error) {
	_, span := tracing.StartSpan(ctx, "syscall.set_priority", "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()

	if caller != nil {
		caller.Syscalled(SysSetPriority)
	}
	victim := caller
	if caller == nil || target != caller.PID {
		victim, err = s.table.Lookup(ctx, target)
		if err != nil {
			return 0, err
		}
		if !policy.FromContext(ctx).MayControl(caller, victim) {
			return 0, fmt.Errorf("%w: pid %d not owned by caller", types.ErrNoSuchProcess, target)
		}
	}
	old, err = victim.SetPriority(priority)
	if err != nil {
		return 0, err
	}
	s.publish(ctx, event.KindPriorityChanged, victim)
	return old, nil
}

// publish emits a syscall event when somebody listens; an unattended bus
// never back-pressures a syscall.
func (s *Service) publish(ctx context.Context, kind string, proc *process.Process) {
	if s.events == nil || !event.ListensTo[*process.Process](s.events) {
		return
	}
	eventCtx := &event.Context{PID: proc.PID, Program: proc.Name, Kind: kind}
	publisher := event.PublisherOf[*process.Process](s.events)
	if err := publisher.Publish(ctx, event.NewEvent(eventCtx, proc)); err != nil {
		log.Printf("syscall: failed to publish %s event: %v", kind, err)
	}
}

// Yield records a voluntary slice hand-off; the scheduler loop does the
// actual bookkeeping when the slice ends.
func (s *Service) Yield(caller *process.Process) {
	if caller != nil {
		caller.Syscalled(SysYield)
	}
}

// Exit turns the caller into a zombie holding its exit code until the parent
// reaps it.
func (s *Service) Exit(caller *process.Process, code int64) {
	if caller == nil {
		return
	}
	caller.Syscalled(SysExit)
	caller.Exit(code)
	s.ready.Remove(caller.PID)
}

// GetPID returns the caller's pid.
func (s *Service) GetPID(caller *process.Process) process.PID {
	if caller == nil {
		return 0
	}
	caller.Syscalled(SysGetPID)
	return caller.PID
}

// WaitPID reaps a zombie child and frees its process-table slot. pid -1 waits
// for any child. It reports ErrNoSuchProcess when no matching child exists
// and ErrStillRunning when the child has not exited yet.
func (s *Service) WaitPID(ctx context.Context, caller *process.Process, pid int64) (process.PID, int64, error) {
	if caller == nil {
		return 0, 0, types.ErrNoSuchProcess
	}
	caller.Syscalled(SysWaitPID)

	var candidates []process.PID
	if pid == -1 {
		candidates = caller.ChildPIDs()
	} else {
		candidates = []process.PID{process.PID(pid)}
	}

	matched := false
	for _, childPID := range candidates {
		if !caller.HasChild(childPID) {
			continue
		}
		matched = true
		child, err := s.table.Lookup(ctx, childPID)
		if err != nil {
			continue
		}
		if child.GetStatus() != process.StatusZombie {
			continue
		}
		code := int64(0)
		if child.ExitCode != nil {
			code = *child.ExitCode
		}
		caller.RemoveChild(childPID)
		_ = s.table.Delete(ctx, childPID)
		return childPID, code, nil
	}
	if !matched {
		return 0, 0, fmt.Errorf("%w: no child %d", types.ErrNoSuchProcess, pid)
	}
	return 0, 0, ErrStillRunning
}

// GetTime returns wall time split into seconds and microseconds.
func (s *Service) GetTime() TimeVal {
	us := clock.Now().UnixMicro()
	return TimeVal{Sec: us / 1_000_000, Usec: us % 1_000_000}
}

// TaskInfo returns the caller's accounting snapshot. The call itself is
// counted first, matching what the caller observes in the result.
func (s *Service) TaskInfo(caller *process.Process) *process.Info {
	if caller == nil {
		return nil
	}
	caller.Syscalled(SysTaskInfo)
	return caller.Snapshot()
}
