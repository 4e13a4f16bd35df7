package trafficlight

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/adaptive-signal/entity"
	"github.com/tsinghua-fib-lab/adaptive-signal/utils/config"
)

func TestFaultLatch(t *testing.T) {
	c := NewSignalController(NewStandardRing(config.Default().Timing), nil)
	m := NewConflictMonitor()

	c.heads[entity.North].Vehicle = VehicleGreen
	c.heads[entity.East].Vehicle = VehicleGreen
	assert.True(t, m.Check(c))
	assert.True(t, c.FaultMode())
	for _, d := range entity.Directions {
		assert.Equal(t, Head{Vehicle: VehicleAllRed, LeftTurn: LeftAllRed, Pedestrian: DontWalk}, c.Heads().Get(d))
	}

	// 之后没有冲突输入，故障仍然锁存
	for now := 0.0; now < 200; now += 0.5 {
		c.Tick(now)
		assert.False(t, m.Check(c))
		assert.True(t, c.FaultMode())
		assert.Equal(t, VehicleAllRed, c.Heads().Get(entity.North).Vehicle)
	}
	assert.Equal(t, 1, m.Conflicts())

	// 故障期间抢占也不会点亮绿灯
	c.RequestPreemption(entity.West)
	for now := 200.0; now < 300; now += 0.5 {
		c.Tick(now)
	}
	assert.Equal(t, VehicleAllRed, c.Heads().Get(entity.West).Vehicle)
}
