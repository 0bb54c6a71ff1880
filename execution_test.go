package stride

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strideos/stride/kernel/process"
	"github.com/strideos/stride/model/program"
	"github.com/strideos/stride/policy"
	"github.com/strideos/stride/service/scheduler"
	"github.com/strideos/stride/service/syscall"
)

// TestRuntime_ProportionalShare drives the whole engine through the runtime
// façade and checks that consumed slices track priorities.
func TestRuntime_ProportionalShare(t *testing.T) {
	ctx := context.Background()
	svc, err := New(WithPrograms(
		&program.Program{Name: "slow", Priority: 5},
		&program.Program{Name: "fast", Priority: 15},
	))
	require.NoError(t, err)
	rt := svc.Runtime()

	slow, err := rt.Spawn(ctx, "slow")
	require.NoError(t, err)
	fast, err := rt.Spawn(ctx, "fast")
	require.NoError(t, err)

	const rounds = 4000
	dispatched, err := rt.RunUntilIdle(ctx, rounds)
	require.NoError(t, err)
	// pure CPU hogs never drain the ready set
	require.Equal(t, rounds, dispatched)

	ratio := float64(fast.Slices()) / float64(slow.Slices())
	assert.InDelta(t, 3.0, ratio, 0.05)
}

// TestRuntime_SpawnWaitExit runs a parent program that spawns a child,
// yields until the child exits and reaps it.
func TestRuntime_SpawnWaitExit(t *testing.T) {
	ctx := context.Background()
	svc, err := New(WithPrograms(
		&program.Program{Name: "parent", Priority: 4, Steps: []*program.Step{
			{Op: program.OpSpawn, Args: map[string]interface{}{"program": "child"}},
			{Op: program.OpYield},
			{Op: program.OpWaitPID, Args: map[string]interface{}{"pid": -1}},
			{Op: program.OpExit, Args: map[string]interface{}{"code": 0}},
		}},
		&program.Program{Name: "child", Priority: 4, Steps: []*program.Step{
			{Op: program.OpExit, Args: map[string]interface{}{"code": 9}},
		}},
	))
	require.NoError(t, err)
	rt := svc.Runtime()

	parent, err := rt.Spawn(ctx, "parent")
	require.NoError(t, err)

	_, err = rt.RunUntilIdle(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, scheduler.PhaseIdle, rt.Phase())

	// the child was reaped, only the parent zombie remains
	zombies, err := rt.Processes(ctx, process.StatusZombie)
	require.NoError(t, err)
	require.Len(t, zombies, 1)
	assert.Equal(t, parent.PID, zombies[0].PID)
	assert.Empty(t, parent.ChildPIDs())
}

// TestRuntime_Syscall exercises the raw dispatch-table entry.
func TestRuntime_Syscall(t *testing.T) {
	ctx := context.Background()
	svc, err := New(WithPrograms(
		&program.Program{Name: "init"},
		&program.Program{Name: "worker", Priority: 4},
	))
	require.NoError(t, err)
	rt := svc.Runtime()

	proc, err := rt.Spawn(ctx, "init")
	require.NoError(t, err)

	pid, err := rt.Syscall(ctx, proc.PID, syscall.SysGetPID)
	require.NoError(t, err)
	assert.Equal(t, int64(proc.PID), pid)

	childPID, err := rt.Syscall(ctx, proc.PID, syscall.SysSpawn, "worker")
	require.NoError(t, err)
	assert.True(t, childPID > 0)
	assert.True(t, proc.HasChild(process.PID(childPID)))

	old, err := rt.Syscall(ctx, proc.PID, syscall.SysSetPriority, 8)
	require.NoError(t, err)
	assert.Equal(t, int64(16), old)

	code, err := rt.Syscall(ctx, proc.PID, syscall.SysSetPriority, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(-22), code)
}

// TestRuntime_PolicyScope verifies the configured policy gates cross-pid
// set-priority issued through the syscall surface.
func TestRuntime_PolicyScope(t *testing.T) {
	ctx := context.Background()
	config := DefaultConfig()
	config.Policy = &policy.Config{Scope: policy.ScopeSelf}
	svc, err := New(WithConfig(config), WithPrograms(&program.Program{Name: "init"}))
	require.NoError(t, err)
	rt := svc.Runtime()

	parent, err := rt.Spawn(ctx, "init")
	require.NoError(t, err)
	childPID, err := rt.Syscall(ctx, parent.PID, syscall.SysSpawn, "init")
	require.NoError(t, err)

	// self scope blocks even a direct child
	code, err := rt.Syscall(ctx, parent.PID, syscall.SysSetPriority, 8, childPID)
	require.NoError(t, err)
	assert.Equal(t, int64(-3), code)

	// the runtime acts as supervisor and is not subject to the scope
	old, err := rt.SetPriority(ctx, process.PID(childPID), 8)
	require.NoError(t, err)
	assert.Equal(t, int64(16), old)
}

// TestRuntime_UpsertProgram registers an image from YAML bytes and spawns it.
func TestRuntime_UpsertProgram(t *testing.T) {
	ctx := context.Background()
	svc, err := New()
	require.NoError(t, err)
	rt := svc.Runtime()

	data := []byte(`
name: batch
priority: 3
steps:
  - op: compute
    args:
      cycles: 2
  - op: exit
    args:
      code: 0
`)
	require.NoError(t, rt.UpsertProgram("mem://localhost/batch.yaml", data))

	proc, err := rt.Spawn(ctx, "batch")
	require.NoError(t, err)
	priority, _, _ := proc.Record()
	assert.Equal(t, int64(3), priority)

	dispatched, err := rt.RunUntilIdle(ctx, 10)
	require.NoError(t, err)
	// two compute slices plus the exit slice
	assert.Equal(t, 3, dispatched)
	assert.Equal(t, process.StatusZombie, proc.GetStatus())
}

func TestConfigValidate(t *testing.T) {
	config := DefaultConfig()
	require.NoError(t, config.Validate())

	config.DefaultPriority = 1
	assert.Error(t, config.Validate())
}

func TestDecodeConfigYAML(t *testing.T) {
	config, err := DecodeConfigYAML([]byte(`
defaultPriority: 4
procTable:
  maxProcesses: 8
`))
	require.NoError(t, err)
	assert.Equal(t, int64(4), config.DefaultPriority)
	assert.Equal(t, 8, config.ProcTable.MaxProcesses)
}
