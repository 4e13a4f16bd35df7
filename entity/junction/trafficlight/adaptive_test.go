package trafficlight_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/adaptive-signal/entity"
	"github.com/tsinghua-fib-lab/adaptive-signal/entity/junction/trafficlight"
	"github.com/tsinghua-fib-lab/adaptive-signal/entity/lane"
	"github.com/tsinghua-fib-lab/adaptive-signal/utils/config"
)

type fakeIntersection struct {
	lanes map[entity.Direction]map[entity.Movement]*lane.Lane
}

func newFakeIntersection() *fakeIntersection {
	f := config.Default().Flow
	in := &fakeIntersection{lanes: map[entity.Direction]map[entity.Movement]*lane.Lane{}}
	for _, d := range entity.Directions {
		in.lanes[d] = map[entity.Movement]*lane.Lane{
			entity.Through:  lane.New(d, entity.Through, f.ThroughLane),
			entity.LeftTurn: lane.New(d, entity.LeftTurn, f.LeftTurnLane),
		}
	}
	return in
}

func (f *fakeIntersection) Lane(d entity.Direction, m entity.Movement) entity.ILane {
	return f.lanes[d][m]
}

func (f *fakeIntersection) set(d entity.Direction, m entity.Movement, queue int) {
	f.lanes[d][m].SetQueue(queue)
}

func TestWebsterCycle(t *testing.T) {
	timing := config.Default().Timing
	assert.InDelta(t, 26, trafficlight.TotalLostTime(timing, 4), 1e-9)
	// (1.5*26+5)/(1-0.5)
	assert.InDelta(t, 88, trafficlight.WebsterCycle(timing, 4, 0.5), 1e-9)
	assert.Equal(t, timing.MinCycle, trafficlight.WebsterCycle(timing, 4, 0.04))
	assert.Equal(t, timing.MinCycle, trafficlight.WebsterCycle(timing, 4, 0))
	// y上限0.90：(1.5*26+5)/0.1 = 440 -> maxCycle
	assert.Equal(t, timing.MaxCycle, trafficlight.WebsterCycle(timing, 4, 3))
	assert.InDelta(t, 44/0.95, trafficlight.WebsterCycle(timing, 4, 0.05), 1e-9)
}

func TestZeroDemandPlan(t *testing.T) {
	timing := config.Default().Timing
	ring := trafficlight.NewStandardRing(timing)
	e := trafficlight.NewEngine(timing, ring.Len())
	in := newFakeIntersection()

	plan := e.Replan(in, ring, 1)
	assert.Equal(t, 1, plan.Cycle)
	assert.Equal(t, timing.MinCycle, plan.CycleLength)
	// 权重均为minGreen，可用绿灯45-26=19平均分配
	for _, g := range plan.Greens {
		assert.InDelta(t, 19.0/4, g, 1e-9)
	}
	for _, d := range plan.Demands {
		assert.Zero(t, d.TotalQueue)
		assert.Zero(t, d.DegreeOfSaturation)
		assert.False(t, d.ProtectedLeft)
	}
	minPed := timing.MinWalk + timing.PedestrianClearance()
	assert.InDelta(t, timing.MinProtectedLeftGreen, ring.Phase(0).Green, 1e-9)
	assert.InDelta(t, minPed, ring.Phase(1).Green, 1e-9)
	assert.InDelta(t, timing.MinProtectedLeftGreen, ring.Phase(2).Green, 1e-9)
	assert.InDelta(t, minPed, ring.Phase(3).Green, 1e-9)

	latest, ok := e.LatestPlan()
	assert.True(t, ok)
	assert.Equal(t, plan, latest)
}

func TestHeavierApproachGetsMoreGreen(t *testing.T) {
	timing := config.Default().Timing
	ring := trafficlight.NewStandardRing(timing)
	e := trafficlight.NewEngine(timing, ring.Len())
	in := newFakeIntersection()
	in.set(entity.North, entity.Through, 10)
	in.set(entity.South, entity.Through, 10)
	in.set(entity.East, entity.Through, 1)
	in.set(entity.West, entity.Through, 1)

	plan := e.Replan(in, ring, 1)
	assert.Equal(t, 20, plan.Demands[1].TotalQueue)
	// 10辆 / 0.5veh/s + 2s启动损失
	assert.InDelta(t, 22, plan.Demands[1].IdealGreen, 1e-9)
	assert.Greater(t, plan.Demands[1].DegreeOfSaturation, plan.Demands[3].DegreeOfSaturation)
	assert.Greater(t, plan.CycleLength, timing.MinCycle)
	assert.Greater(t, plan.Greens[1], plan.Greens[3])
	assert.Greater(t, ring.Phase(1).Green, ring.Phase(3).Green)
	assert.LessOrEqual(t, ring.Phase(1).Green, timing.MaxGreen)
}

func TestLeftTurnThreshold(t *testing.T) {
	timing := config.Default().Timing
	ring := trafficlight.NewStandardRing(timing)
	e := trafficlight.NewEngine(timing, ring.Len())
	in := newFakeIntersection()
	in.set(entity.North, entity.LeftTurn, 2)
	in.set(entity.South, entity.LeftTurn, 1)
	in.set(entity.East, entity.LeftTurn, 1)

	plan := e.Replan(in, ring, 1)
	assert.Equal(t, 3, plan.Demands[0].LeftQueue)
	assert.True(t, plan.Demands[0].ProtectedLeft)
	assert.True(t, ring.Phase(0).ProtectedLeft)

	assert.Equal(t, 1, plan.Demands[2].LeftQueue)
	assert.False(t, plan.Demands[2].ProtectedLeft)
	assert.False(t, ring.Phase(2).ProtectedLeft)
	// 许可左转权重仅为0.5*minProtectedLeftGreen，小于零排队相位的minGreen
	assert.Less(t, plan.Greens[2], plan.Greens[3])

	// 直行相位不会启用保护左转
	assert.False(t, plan.Demands[1].ProtectedLeft)
}

func TestDegreeOfSaturationSmoothing(t *testing.T) {
	timing := config.Default().Timing
	ring := trafficlight.NewStandardRing(timing)
	e := trafficlight.NewEngine(timing, ring.Len())
	in := newFakeIntersection()
	in.set(entity.North, entity.Through, 5)

	// 参考车道为第一个方位（N）的直行车道
	raw := 5 / (ring.Phase(1).Green * 1800.0 / 3600)
	first := e.ComputePlan(in, ring)
	assert.InDelta(t, raw, first.Demands[1].DegreeOfSaturation, 1e-9)

	in.set(entity.North, entity.Through, 0)
	second := e.ComputePlan(in, ring)
	assert.InDelta(t, 0.4*raw, second.Demands[1].DegreeOfSaturation, 1e-9)
	assert.InDelta(t, 0.4*raw, e.SmoothedDS()[1], 1e-9)

	// ComputePlan不修改相位环
	assert.InDelta(t, timing.MinWalk+timing.PedestrianClearance(), ring.Phase(1).Green, 1e-9)
}
