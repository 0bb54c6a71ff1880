package process

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/strideos/stride/internal/clock"
	"github.com/strideos/stride/kernel/stride"
	"github.com/strideos/stride/model/program"
	"github.com/strideos/stride/model/types"
)

func TestNew(t *testing.T) {
	img := &program.Program{Name: "init"}
	proc, err := New(1, 0, 7, img, 16)
	assert.NoError(t, err)
	assert.Equal(t, PID(1), proc.PID)
	assert.Equal(t, "init", proc.Name)
	assert.Equal(t, uint64(7), proc.Seq)
	assert.Equal(t, StatusReady, proc.Status)

	priority, pass, strideValue := proc.Record()
	assert.Equal(t, int64(16), priority)
	assert.Equal(t, stride.BigStride/16, pass)
	assert.Equal(t, stride.Value(0), strideValue)
}

func TestNewRejectsPriorityBelowMinimum(t *testing.T) {
	_, err := New(1, 0, 0, nil, 1)
	assert.ErrorIs(t, err, types.ErrInvalidPriority)
}

func TestSetPriority(t *testing.T) {
	proc, err := New(1, 0, 0, nil, 16)
	assert.NoError(t, err)

	old, err := proc.SetPriority(4)
	assert.NoError(t, err)
	assert.Equal(t, int64(16), old)

	priority, pass, _ := proc.Record()
	assert.Equal(t, int64(4), priority)
	assert.Equal(t, stride.BigStride/4, pass)
}

func TestSetPriorityRejected(t *testing.T) {
	proc, err := New(1, 0, 0, nil, 16)
	assert.NoError(t, err)

	for _, bad := range []int64{1, 0, -5} {
		_, err = proc.SetPriority(bad)
		assert.ErrorIs(t, err, types.ErrInvalidPriority, "priority %d", bad)

		// record must be untouched
		priority, pass, _ := proc.Record()
		assert.Equal(t, int64(16), priority)
		assert.Equal(t, stride.BigStride/16, pass)
	}
}

func TestAdvanceWraps(t *testing.T) {
	proc, err := New(1, 0, 0, nil, 2)
	assert.NoError(t, err)

	proc.Advance()
	_, pass, strideValue := proc.Record()
	assert.Equal(t, pass, strideValue)

	// three half-range steps must wrap past zero
	proc.Advance()
	proc.Advance()
	_, _, strideValue = proc.Record()
	assert.Equal(t, 3*pass, strideValue)
	assert.True(t, strideValue < stride.BigStride/2)
}

func TestExitAndChildren(t *testing.T) {
	parent, _ := New(1, 0, 0, nil, 16)
	parent.AddChild(2)
	parent.AddChild(3)
	assert.True(t, parent.HasChild(2))
	assert.False(t, parent.HasChild(4))
	assert.True(t, parent.RemoveChild(2))
	assert.False(t, parent.RemoveChild(2))

	child, _ := New(2, 1, 1, nil, 16)
	child.Exit(42)
	assert.Equal(t, StatusZombie, child.GetStatus())
	assert.False(t, child.GetStatus().Runnable())
	if assert.NotNil(t, child.ExitCode) {
		assert.Equal(t, int64(42), *child.ExitCode)
	}
}

func TestSnapshot(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := base
	clock.NowFunc = func() time.Time { return now }
	defer func() { clock.NowFunc = time.Now }()

	proc, _ := New(1, 0, 0, nil, 16)
	proc.Syscalled(124)
	proc.Syscalled(124)
	proc.Syscalled(140)
	proc.Dispatched()

	now = base.Add(250 * time.Millisecond)
	proc.Dispatched()

	info := proc.Snapshot()
	assert.Equal(t, uint64(2), info.SyscallCounts[124])
	assert.Equal(t, uint64(1), info.SyscallCounts[140])
	assert.Equal(t, uint64(2), info.Slices)
	assert.Equal(t, int64(250), info.TimeMs)
}
