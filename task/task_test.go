package task_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/adaptive-signal/clock"
	"github.com/tsinghua-fib-lab/adaptive-signal/demand"
	"github.com/tsinghua-fib-lab/adaptive-signal/entity"
	"github.com/tsinghua-fib-lab/adaptive-signal/entity/junction/trafficlight"
	"github.com/tsinghua-fib-lab/adaptive-signal/task"
	"github.com/tsinghua-fib-lab/adaptive-signal/utils/config"
)

type recordingPublisher struct {
	snapshots []task.Snapshot
}

func (p *recordingPublisher) Publish(v any) {
	p.snapshots = append(p.snapshots, v.(task.Snapshot))
}

func TestTickAdvancesClock(t *testing.T) {
	ctx := task.NewContext(config.Default(), nil, nil)
	ctx.Tick(0.1)
	assert.InDelta(t, 0.1, ctx.Clock().T, 1e-9)
	// 超过MaxDT截断
	ctx.Tick(10)
	assert.InDelta(t, 0.6, ctx.Clock().T, 1e-9)

	s := ctx.Snapshot()
	assert.Equal(t, int32(2), s.Step)
	assert.InDelta(t, 0.6, s.Time, 1e-9)
	assert.Equal(t, "Main & 1st", s.Name)
}

func TestPauseAndSpeedAreBuffered(t *testing.T) {
	ctx := task.NewContext(config.Default(), nil, nil)
	ctx.Pause()
	assert.False(t, ctx.Clock().Paused())
	ctx.Tick(0.1)
	assert.True(t, ctx.Snapshot().Paused)
	assert.Zero(t, ctx.Clock().T)
	ctx.Tick(0.1)
	assert.Zero(t, ctx.Clock().T)

	ctx.Resume()
	require.NoError(t, ctx.SetSpeed(2))
	ctx.Tick(0.1)
	assert.InDelta(t, 0.2, ctx.Clock().T, 1e-9)
	assert.Equal(t, 2.0, ctx.Snapshot().Speed)

	err := ctx.SetSpeed(0)
	assert.True(t, errors.Is(err, clock.ErrInvalidSpeed))
}

func TestNonFiniteSpeedIsRejected(t *testing.T) {
	ctx := task.NewContext(config.Default(), nil, nil)
	for _, f := range []float64{math.NaN(), math.Inf(1)} {
		assert.ErrorIs(t, ctx.SetSpeed(f), clock.ErrInvalidSpeed)
	}
	for i := 0; i < 10; i++ {
		ctx.Tick(0.1)
	}
	assert.InDelta(t, 1.0, ctx.Clock().T, 1e-9)
	assert.Equal(t, 1.0, ctx.Snapshot().Speed)
}

func TestPreemptionThroughContext(t *testing.T) {
	ctx := task.NewContext(config.Default(), nil, nil)
	require.NoError(t, ctx.RequestPreemption(entity.West))
	ctx.Tick(0.1)
	st := ctx.Snapshot().Junction.Controller
	assert.Equal(t, trafficlight.PreemptionRequested, st.Preemption.State)
	assert.Equal(t, trafficlight.StepYellow, st.Step)

	// 黄灯4s+全红2.5s
	for range 70 {
		ctx.Tick(0.1)
	}
	st = ctx.Snapshot().Junction.Controller
	assert.Equal(t, trafficlight.PreemptionActive, st.Preemption.State)
	assert.Equal(t, trafficlight.VehicleGreen, st.Heads.Get(entity.West).Vehicle)
	assert.Nil(t, st.Remaining)

	ctx.ClearPreemption()
	ctx.Tick(0.1)
	assert.Equal(t, trafficlight.PreemptionIdle, ctx.Snapshot().Junction.Controller.Preemption.State)
}

func TestPublishers(t *testing.T) {
	ctx := task.NewContext(config.Default(), nil, nil)
	p := &recordingPublisher{}
	ctx.AddPublisher(p)
	for range 5 {
		ctx.Tick(0.1)
	}
	require.Len(t, p.snapshots, 5)
	assert.Equal(t, int32(5), p.snapshots[4].Step)
}

func TestRunWithDemand(t *testing.T) {
	c := config.Default()
	c.Demand.Seed = 11
	ctx := task.NewContext(c, demand.NewMock(c.Demand), nil)
	for range 6000 {
		ctx.Tick(0.1)
	}
	s := ctx.Snapshot()
	assert.False(t, s.Junction.Controller.Fault)
	assert.Zero(t, s.Junction.Conflicts)
	assert.GreaterOrEqual(t, s.Junction.Controller.Cycle, 3)
	require.NotNil(t, s.Junction.Plan)
	for i, p := range s.Junction.Phases {
		if p.IsLeft {
			assert.GreaterOrEqual(t, p.Green, c.Timing.MinProtectedLeftGreen, "phase %d", i)
			assert.LessOrEqual(t, p.Green, c.Timing.MaxProtectedLeftGreen, "phase %d", i)
		} else {
			assert.GreaterOrEqual(t, p.Green, c.Timing.MinWalk+c.Timing.PedestrianClearance(), "phase %d", i)
			assert.LessOrEqual(t, p.Green, c.Timing.MaxGreen, "phase %d", i)
		}
	}
}

func TestRunStopsAtTotal(t *testing.T) {
	c := config.Default()
	c.Control.Interval = 0.001
	c.Control.Total = 5
	ctx := task.NewContext(c, nil, nil)

	timeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ctx.Run(timeout)
	assert.NoError(t, timeout.Err())
	assert.Equal(t, int32(5), ctx.Clock().InternalStep)
	assert.Equal(t, c.Control, ctx.RuntimeConfig().C)
}

func TestRunStopsOnCancel(t *testing.T) {
	c := config.Default()
	c.Control.Interval = 0.001
	ctx := task.NewContext(c, nil, nil)

	cancelled, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ctx.Run(cancelled)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
