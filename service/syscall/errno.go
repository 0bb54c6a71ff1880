package syscall

import (
	"context"
	"errors"

	"github.com/viant/toolbox"

	"github.com/strideos/stride/kernel/process"
	"github.com/strideos/stride/model/types"
)

// Negative result codes of the user-facing surface.
const (
	codeFailure    int64 = -1  // generic failure (unknown program, bad call)
	codeRunning    int64 = -2  // waited-for child has not exited
	codeNoProcess  int64 = -3  // ESRCH
	codeTryAgain   int64 = -11 // EAGAIN: process table exhausted
	codeInvalidArg int64 = -22 // EINVAL: priority below minimum
	codeBadSyscall int64 = -38 // ENOSYS
)

// Errno maps a kernel error onto the negative code user processes see.
func Errno(err error) int64 {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, types.ErrInvalidPriority):
		return codeInvalidArg
	case errors.Is(err, types.ErrNoSuchProcess):
		return codeNoProcess
	case errors.Is(err, types.ErrResourceExhausted):
		return codeTryAgain
	case errors.Is(err, ErrStillRunning):
		return codeRunning
	default:
		return codeFailure
	}
}

// Invoke is the raw dispatch-table entry: syscall number plus loosely typed
// args in registers. Results follow the classic convention, non-negative on
// success and a negative code on failure.
func (s *Service) Invoke(ctx context.Context, caller *process.Process, num uint64, args ...interface{}) int64 {
	switch num {
	case SysSpawn:
		if len(args) < 1 {
			return codeFailure
		}
		child, err := s.Spawn(ctx, caller, toolbox.AsString(args[0]))
		if err != nil {
			return Errno(err)
		}
		return int64(child.PID)

	case SysSetPriority:
		if len(args) < 1 {
			return codeFailure
		}
		target := process.PID(0)
		if caller != nil {
			target = caller.PID
		}
		if len(args) > 1 {
			target = process.PID(toolbox.AsInt(args[1]))
		}
		old, err := s.SetPriority(ctx, caller, target, int64(toolbox.AsInt(args[0])))
		if err != nil {
			return Errno(err)
		}
		return old

	case SysYield:
		s.Yield(caller)
		return 0

	case SysExit:
		code := int64(0)
		if len(args) > 0 {
			code = int64(toolbox.AsInt(args[0]))
		}
		s.Exit(caller, code)
		return 0

	case SysGetPID:
		return int64(s.GetPID(caller))

	case SysWaitPID:
		pid := int64(-1)
		if len(args) > 0 {
			pid = int64(toolbox.AsInt(args[0]))
		}
		reaped, _, err := s.WaitPID(ctx, caller, pid)
		if err != nil {
			if errors.Is(err, ErrStillRunning) {
				return codeRunning
			}
			return codeFailure
		}
		return int64(reaped)

	case SysGetTime:
		tv := s.GetTime()
		return tv.Sec*1_000_000 + tv.Usec

	case SysTaskInfo:
		if s.TaskInfo(caller) == nil {
			return codeFailure
		}
		return 0

	default:
		return codeBadSyscall
	}
}
