package stride

import (
	"context"
	"fmt"

	"github.com/strideos/stride/kernel/process"
	"github.com/strideos/stride/kernel/readyset"
	"github.com/strideos/stride/model/program"
	"github.com/strideos/stride/policy"
	"github.com/strideos/stride/service/loader"
	"github.com/strideos/stride/service/proctable"
	"github.com/strideos/stride/service/scheduler"
	"github.com/strideos/stride/service/syscall"
)

// Runtime represents a running scheduling machine.
type Runtime struct {
	config    *Config
	table     *proctable.Service
	ready     *readyset.Set
	images    *loader.Service
	syscalls  *syscall.Service
	scheduler *scheduler.Service
}

// ---------------------------------------------------------------------------
// Program image helpers
// ---------------------------------------------------------------------------

// LoadProgram fetches a program image from a location, registers it and
// caches it.
func (r *Runtime) LoadProgram(ctx context.Context, location string) (*program.Program, error) {
	return r.images.Load(ctx, location)
}

// DecodeYAMLProgram decodes a program image from YAML.
func (r *Runtime) DecodeYAMLProgram(data []byte) (*program.Program, error) {
	return r.images.DecodeYAML(data)
}

// UpsertProgram parses the supplied YAML bytes and registers the resulting
// image, replacing any previous one of the same name. When data is nil the
// call falls back to RefreshProgram, causing a lazy reload on next use.
func (r *Runtime) UpsertProgram(location string, data []byte) error {
	if r == nil || r.images == nil {
		return fmt.Errorf("runtime not fully initialised, image loader missing")
	}
	if data == nil {
		r.images.Refresh(location)
		return nil
	}
	img, err := r.images.DecodeYAML(data)
	if err != nil {
		return fmt.Errorf("failed to decode program YAML: %w", err)
	}
	return r.images.Register(img)
}

// RefreshProgram discards any cached copy of the image at the given location;
// the next LoadProgram call reloads it.
func (r *Runtime) RefreshProgram(location string) {
	r.images.Refresh(location)
}

// ---------------------------------------------------------------------------
// Process control
// ---------------------------------------------------------------------------

// Spawn creates a root process from a registered program image and enrolls it
// for scheduling. Use the spawn op inside a program to create children.
func (r *Runtime) Spawn(ctx context.Context, programName string) (*process.Process, error) {
	return r.syscalls.Spawn(r.policyContext(ctx), nil, programName)
}

// SetPriority adjusts a process's priority and returns the previous value.
// The runtime acts as supervisor, so the configured policy scope does not
// apply here.
func (r *Runtime) SetPriority(ctx context.Context, pid process.PID, priority int64) (int64, error) {
	target, err := r.table.Lookup(ctx, pid)
	if err != nil {
		return 0, err
	}
	return r.syscalls.SetPriority(ctx, target, pid, priority)
}

// Syscall dispatches a raw syscall on behalf of the given process. Results
// follow the classic convention, non-negative on success and a negative code
// on failure.
func (r *Runtime) Syscall(ctx context.Context, caller process.PID, num uint64, args ...interface{}) (int64, error) {
	proc, err := r.table.Lookup(ctx, caller)
	if err != nil {
		return 0, err
	}
	return r.syscalls.Invoke(r.policyContext(ctx), proc, num, args...), nil
}

// Process returns a live process by pid.
func (r *Runtime) Process(ctx context.Context, pid process.PID) (*process.Process, error) {
	return r.table.Lookup(ctx, pid)
}

// Processes lists processes, optionally filtered by status.
func (r *Runtime) Processes(ctx context.Context, statuses ...process.Status) ([]*process.Process, error) {
	return r.table.List(ctx, statuses...)
}

// ---------------------------------------------------------------------------
// Scheduling
// ---------------------------------------------------------------------------

// Step runs one scheduling round; it reports whether a process was
// dispatched. Useful for tests and deterministic embedding, Start drives the
// same rounds off a ticker.
func (r *Runtime) Step(ctx context.Context) (bool, error) {
	return r.scheduler.Step(r.policyContext(ctx))
}

// RunUntilIdle keeps stepping until the ready set drains or maxRounds slices
// were consumed. It returns the number of dispatched slices.
func (r *Runtime) RunUntilIdle(ctx context.Context, maxRounds int) (int, error) {
	ctx = r.policyContext(ctx)
	rounds := 0
	for rounds < maxRounds {
		dispatched, err := r.scheduler.Step(ctx)
		if err != nil {
			return rounds, err
		}
		if !dispatched {
			return rounds, nil
		}
		rounds++
	}
	return rounds, nil
}

// Start starts the scheduler loop in the background.
func (r *Runtime) Start(ctx context.Context) error {
	go func() {
		_ = r.scheduler.Start(r.policyContext(ctx))
	}()
	return nil
}

// Shutdown stops the scheduler loop.
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.scheduler.Shutdown()
	return nil
}

// Phase returns the scheduler loop state.
func (r *Runtime) Phase() scheduler.Phase {
	return r.scheduler.Phase()
}

func (r *Runtime) policyContext(ctx context.Context) context.Context {
	if r.config == nil || r.config.Policy == nil {
		return ctx
	}
	return policy.WithPolicy(ctx, policy.FromConfig(r.config.Policy))
}
