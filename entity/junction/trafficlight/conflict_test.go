package trafficlight_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/adaptive-signal/entity"
	"github.com/tsinghua-fib-lab/adaptive-signal/entity/junction/trafficlight"
)

type fakeOutput struct {
	heads  trafficlight.Heads
	faults int
}

func (f *fakeOutput) Heads() trafficlight.Heads {
	return f.heads
}

func (f *fakeOutput) EnterFaultMode() {
	f.faults++
}

func TestFindConflict(t *testing.T) {
	var h trafficlight.Heads
	_, ok := trafficlight.FindConflict(h)
	assert.False(t, ok)

	// 对向方位同时绿灯不冲突
	h[entity.North].Vehicle = trafficlight.VehicleGreen
	h[entity.South].Vehicle = trafficlight.VehicleYellow
	_, ok = trafficlight.FindConflict(h)
	assert.False(t, ok)

	// 许可左转闪黄不计入
	h[entity.East].LeftTurn = trafficlight.LeftFlashingYellow
	_, ok = trafficlight.FindConflict(h)
	assert.False(t, ok)

	h[entity.West].LeftTurn = trafficlight.LeftGreenArrow
	pair, ok := trafficlight.FindConflict(h)
	assert.True(t, ok)
	assert.Equal(t, [2]entity.Direction{entity.North, entity.West}, pair)
}

func TestMonitorTriggersFault(t *testing.T) {
	m := trafficlight.NewConflictMonitor()
	out := &fakeOutput{}
	assert.False(t, m.Check(out))
	assert.Zero(t, out.faults)

	out.heads[entity.South].Vehicle = trafficlight.VehicleGreen
	out.heads[entity.East].Vehicle = trafficlight.VehicleYellow
	assert.True(t, m.Check(out))
	assert.Equal(t, 1, out.faults)
	assert.Equal(t, 1, m.Conflicts())
}
