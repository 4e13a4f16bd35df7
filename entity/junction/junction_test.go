package junction_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/adaptive-signal/entity"
	"github.com/tsinghua-fib-lab/adaptive-signal/entity/junction"
	"github.com/tsinghua-fib-lab/adaptive-signal/entity/junction/trafficlight"
	"github.com/tsinghua-fib-lab/adaptive-signal/utils/config"
)

func TestIntersection(t *testing.T) {
	in := junction.NewIntersection(config.Default().Flow)
	assert.Len(t, in.Approaches(), 4)
	in.Approach(entity.North).Through.SetQueue(4)
	in.Approach(entity.North).LeftTurn.SetQueue(2)
	in.Approach(entity.West).Through.SetQueue(1)

	assert.Equal(t, 4, in.Lane(entity.North, entity.Through).Queue())
	assert.Equal(t, 1600.0, in.Lane(entity.East, entity.LeftTurn).SaturationFlow())
	assert.Equal(t, 6, in.Approach(entity.North).TotalQueue())
	assert.Equal(t, 7, in.TotalQueue())

	lanes := in.Lanes()
	assert.Len(t, lanes, 8)
	assert.Equal(t, entity.North, lanes[0].Direction)
	assert.Equal(t, entity.Through, lanes[0].Movement)
	assert.Equal(t, 4, lanes[0].Queue)
	assert.Equal(t, entity.LeftTurn, lanes[1].Movement)
}

func TestManagerBuffersCommands(t *testing.T) {
	j := junction.New(config.Default())
	m := junction.NewManager(j)

	require.NoError(t, m.RequestPreemption(entity.East))
	// buffer在Prepare之前不生效
	assert.Equal(t, trafficlight.PreemptionIdle, j.Controller().Preemption().State)
	m.Prepare()
	assert.Equal(t, trafficlight.PreemptionRequested, j.Controller().Preemption().State)
	assert.Equal(t, trafficlight.StepYellow, j.Controller().Step())

	m.ClearPreemption()
	m.Prepare()
	assert.Equal(t, trafficlight.PreemptionIdle, j.Controller().Preemption().State)

	err := m.RequestPreemption(entity.Direction(7))
	assert.True(t, errors.Is(err, entity.ErrUnknownDirection))
}

func TestManagerSetPhaseGreen(t *testing.T) {
	c := config.Default()
	j := junction.New(c)
	m := junction.NewManager(j)

	err := m.SetPhaseGreen(9, 10)
	assert.True(t, errors.Is(err, junction.ErrUnknownPhase))

	require.NoError(t, m.SetPhaseGreen(2, 1000))
	require.NoError(t, m.SetPhaseGreen(3, 1))
	m.Prepare()
	// 外部写入同样经过约束
	assert.Equal(t, c.Timing.MaxGreen, j.Ring().Phase(1).Green)
	assert.Equal(t, c.Timing.MinProtectedLeftGreen, j.Ring().Phase(2).Green)

	for _, g := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		assert.ErrorIs(t, m.SetPhaseGreen(4, g), junction.ErrInvalidGreen)
	}
	m.Prepare()
	assert.InDelta(t, trafficlight.NewEnforcer(c.Timing).MinPedestrianGreen(), j.Ring().Phase(3).Green, 1e-9)
}

func TestJunctionReplansEachCycle(t *testing.T) {
	j := junction.New(config.Default())
	m := junction.NewManager(j)
	in := j.Intersection()
	in.Approach(entity.North).Through.SetQueue(12)
	in.Approach(entity.South).Through.SetQueue(9)

	_, ok := j.Engine().LatestPlan()
	assert.False(t, ok)

	for now := 0.0; now < 100; now += 0.1 {
		m.Prepare()
		m.Update(now)
	}
	require.Equal(t, 1, j.Controller().Cycles())
	plan, ok := j.Engine().LatestPlan()
	require.True(t, ok)
	assert.Equal(t, 1, plan.Cycle)
	assert.Greater(t, j.Ring().Phase(1).Green, j.Ring().Phase(3).Green)
	assert.False(t, j.Controller().FaultMode())

	s := j.Snapshot()
	require.NotNil(t, s.Plan)
	assert.Equal(t, 21, s.TotalQueue)
	assert.Len(t, s.Phases, 4)
	assert.InDelta(t, j.Ring().CycleTime(), s.CycleTime, 1e-9)
	assert.Zero(t, s.Conflicts)

	data, err := json.Marshal(s)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "controller")
	assert.Contains(t, decoded, "plan")
	controller := decoded["controller"].(map[string]any)
	assert.Contains(t, controller, "heads")
}

func TestSnapshotIsDetached(t *testing.T) {
	j := junction.New(config.Default())
	s := j.Snapshot()
	s.Phases[0].Green = 999
	assert.NotEqual(t, 999.0, j.Ring().Phase(0).Green)
	assert.Nil(t, s.Plan)
}

func TestSnapshotLaneDegreeOfSaturation(t *testing.T) {
	j := junction.New(config.Default())
	j.Intersection().Approach(entity.North).Through.SetQueue(10)
	j.Intersection().Approach(entity.West).LeftTurn.SetQueue(4)

	s := j.Snapshot()
	ds := map[entity.Direction]map[entity.Movement]float64{}
	for _, l := range s.Lanes {
		if ds[l.Direction] == nil {
			ds[l.Direction] = map[entity.Movement]float64{}
		}
		ds[l.Direction][l.Movement] = l.DegreeOfSaturation
	}
	// 直行饱和流率1800veh/h，左转1600veh/h
	assert.InDelta(t, 10/(j.Ring().Phase(1).Green*0.5), ds[entity.North][entity.Through], 1e-9)
	assert.InDelta(t, 4/(j.Ring().Phase(2).Green*1600/3600), ds[entity.West][entity.LeftTurn], 1e-9)
	assert.Zero(t, ds[entity.South][entity.Through])
	assert.Zero(t, ds[entity.North][entity.LeftTurn])
}
