// Package executor runs one time slice of a process: it interprets the step
// at the process's instruction pointer, decodes the step's loosely-typed args
// into the op's input struct and invokes the matching kernel operation. The
// outcome tells the scheduler loop how the slice ended.
package executor

import (
	"context"
	"fmt"
	"reflect"

	"github.com/viant/structology/conv"
	"github.com/viant/toolbox"
	"github.com/viant/x"

	"github.com/strideos/stride/kernel/process"
	"github.com/strideos/stride/model/program"
)

// Action says how a slice ended.
type Action string

const (
	// ActionComputed - the slice was consumed, the process stays runnable.
	ActionComputed Action = "computed"
	// ActionYielded - the process gave its slice up voluntarily.
	ActionYielded Action = "yielded"
	// ActionExited - the process terminated.
	ActionExited Action = "exited"
	// ActionBlocked - the process left the ready set for a while.
	ActionBlocked Action = "blocked"
)

// Outcome describes one executed slice.
type Outcome struct {
	Action      Action
	ExitCode    int64
	BlockRounds int
	SpawnedPID  process.PID
}

// Syscalls is the kernel surface a running program may invoke. Implemented by
// the syscall service.
type Syscalls interface {
	Spawn(ctx context.Context, caller *process.Process, programName string) (*process.Process, error)
	SetPriority(ctx context.Context, caller *process.Process, target process.PID, priority int64) (int64, error)
	Yield(caller *process.Process)
	Exit(caller *process.Process, code int64)
	WaitPID(ctx context.Context, caller *process.Process, pid int64) (process.PID, int64, error)
	TaskInfo(caller *process.Process) *process.Info
}

// Typed step inputs. Registered in the op registry; step args decode into
// them by name.
type (
	SpawnInput   struct{ Program string }
	SetPrioInput struct{ Priority int64 }
	ExitInput    struct{ Code int64 }
	BlockInput   struct{ Rounds int }
	WaitInput    struct{ PID int64 }
)

// Listener observes every executed slice; useful for debugging and tests.
type Listener func(proc *process.Process, step *program.Step, outcome *Outcome, err error)

// StdoutListener prints one line per executed slice.
func StdoutListener(proc *process.Process, step *program.Step, outcome *Outcome, err error) {
	op := program.OpCompute
	if step != nil {
		op = step.Op
	}
	fmt.Printf("pid %d %s -> %s err=%v\n", proc.PID, op, outcome.Action, err)
}

// Service executes a single time slice for a process.
type Service interface {
	Execute(ctx context.Context, proc *process.Process) (*Outcome, error)
}

type service struct {
	syscalls  Syscalls
	opTypes   *x.Registry
	converter *conv.Converter
	listener  Listener
}

// Option customises the executor.
type Option func(*service)

// WithListener sets the slice listener; nil disables it.
func WithListener(l Listener) Option {
	return func(s *service) { s.listener = l }
}

// NewService creates an executor bound to a kernel syscall surface.
func NewService(syscalls Syscalls, opts ...Option) Service {
	options := conv.DefaultOptions()
	options.ClonePointerData = true
	options.IgnoreUnmapped = true

	registry := x.NewRegistry()
	registry.Register(x.NewType(reflect.TypeOf(SpawnInput{}), x.WithName(program.OpSpawn)))
	registry.Register(x.NewType(reflect.TypeOf(SetPrioInput{}), x.WithName(program.OpSetPrio)))
	registry.Register(x.NewType(reflect.TypeOf(ExitInput{}), x.WithName(program.OpExit)))
	registry.Register(x.NewType(reflect.TypeOf(BlockInput{}), x.WithName(program.OpBlock)))
	registry.Register(x.NewType(reflect.TypeOf(WaitInput{}), x.WithName(program.OpWaitPID)))

	s := &service{
		syscalls:  syscalls,
		opTypes:   registry,
		converter: conv.NewConverter(options),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// input decodes step args into the registered input struct for the op.
func (s *service) input(op string, args map[string]interface{}) (interface{}, error) {
	opType := s.opTypes.Lookup(op)
	if opType == nil {
		return nil, fmt.Errorf("op %v has no input type", op)
	}
	instance := reflect.New(opType.Type).Interface()
	if len(args) > 0 {
		if err := s.converter.Convert(args, instance); err != nil {
			return nil, fmt.Errorf("failed to decode %v args: %w", op, err)
		}
	}
	return instance, nil
}

// Execute interprets the step under the instruction pointer. A process past
// its last step keeps computing, so exhausted programs behave as CPU hogs.
func (s *service) Execute(ctx context.Context, proc *process.Process) (outcome *Outcome, err error) {
	step := proc.Program.Step(proc.IP)
	outcome = &Outcome{Action: ActionComputed}
	defer func() {
		if s.listener != nil {
			s.listener(proc, step, outcome, err)
		}
	}()
	if step == nil {
		return outcome, nil
	}

	switch step.Op {
	case program.OpCompute:
		// cycles > 1 pins the instruction pointer for that many slices
		if raw, ok := step.Args["cycles"]; ok {
			if cycles := toolbox.AsInt(raw); cycles > 1 {
				step.Args["cycles"] = cycles - 1
				return outcome, nil
			}
		}
		proc.IP++

	case program.OpYield:
		s.syscalls.Yield(proc)
		proc.IP++
		outcome.Action = ActionYielded

	case program.OpSpawn:
		in, inputErr := s.input(step.Op, step.Args)
		if inputErr != nil {
			err = inputErr
			return outcome, err
		}
		proc.IP++
		child, spawnErr := s.syscalls.Spawn(ctx, proc, in.(*SpawnInput).Program)
		if spawnErr != nil {
			err = spawnErr
			return outcome, err
		}
		outcome.SpawnedPID = child.PID

	case program.OpSetPrio:
		in, inputErr := s.input(step.Op, step.Args)
		if inputErr != nil {
			err = inputErr
			return outcome, err
		}
		proc.IP++
		if _, prioErr := s.syscalls.SetPriority(ctx, proc, proc.PID, in.(*SetPrioInput).Priority); prioErr != nil {
			err = prioErr
		}

	case program.OpExit:
		in, inputErr := s.input(step.Op, step.Args)
		if inputErr != nil {
			err = inputErr
			return outcome, err
		}
		s.syscalls.Exit(proc, in.(*ExitInput).Code)
		outcome.Action = ActionExited
		outcome.ExitCode = in.(*ExitInput).Code

	case program.OpBlock:
		in, inputErr := s.input(step.Op, step.Args)
		if inputErr != nil {
			err = inputErr
			return outcome, err
		}
		proc.IP++
		rounds := in.(*BlockInput).Rounds
		if rounds < 1 {
			rounds = 1
		}
		outcome.Action = ActionBlocked
		outcome.BlockRounds = rounds

	case program.OpWaitPID:
		in, inputErr := s.input(step.Op, step.Args)
		if inputErr != nil {
			err = inputErr
			return outcome, err
		}
		proc.IP++
		if _, _, waitErr := s.syscalls.WaitPID(ctx, proc, in.(*WaitInput).PID); waitErr != nil {
			err = waitErr
		}

	case program.OpTaskInfo:
		proc.IP++
		s.syscalls.TaskInfo(proc)

	default:
		proc.IP++
		err = fmt.Errorf("unknown op %v", step.Op)
	}
	return outcome, err
}
