package demand

import (
	"math"

	"github.com/tsinghua-fib-lab/adaptive-signal/entity"
	"github.com/tsinghua-fib-lab/adaptive-signal/entity/junction"
	"github.com/tsinghua-fib-lab/adaptive-signal/entity/junction/trafficlight"
	"github.com/tsinghua-fib-lab/adaptive-signal/entity/lane"
	"github.com/tsinghua-fib-lab/adaptive-signal/utils/config"
	"github.com/tsinghua-fib-lab/adaptive-signal/utils/randengine"
)

const (
	surgeChancePerSecond = 0.2 // 每秒出现一次激增的概率
	surgeMultiplier      = 3.0 // 激增时的到达率倍数
	permissiveLeftFactor = 0.3 // 许可左转（闪黄）相对饱和流率的驶离比例
)

// Mock 模拟交通需求源
// 功能：替代真实检测器，按时变泊松过程生成到达，并按灯头状态以饱和流率驶离
// 说明：实现junction.IDemandSource
type Mock struct {
	c         config.Demand
	generator *randengine.Engine
	elapsed   float64
}

// NewMock 创建模拟需求源
// 参数：c-需求配置
func NewMock(c config.Demand) *Mock {
	return &Mock{
		c:         c,
		generator: randengine.New(c.Seed),
	}
}

// Elapsed 已模拟的时长
func (m *Mock) Elapsed() float64 {
	return m.elapsed
}

// TimeMultiplier 高峰时变倍率
// 功能：1 + (peak-1) * max(0, sin(pi * 周期内位置))，每个高峰周期内先升后降
func (m *Mock) TimeMultiplier(t float64) float64 {
	if m.c.PeakPeriod <= 0 {
		return 1
	}
	pos := math.Mod(t, m.c.PeakPeriod) / m.c.PeakPeriod
	return 1 + (m.c.PeakMultiplier-1)*math.Max(0, math.Sin(pos*math.Pi))
}

// Update 实现junction.IDemandSource
// 功能：为每条车道生成到达与驶离，排队钳制到[0, MaxQueue]
// 参数：dt-本步仿真时长，in-路口，heads-灯头状态
// 算法说明：
// 1. 计算时变倍率，按概率在某一进口道注入激增
// 2. 直行到达率 = 基础到达率*倍率*(1-左转比例)，左转到达率 = 基础到达率*倍率*左转比例
// 3. 直行在GREEN/YELLOW时驶离；左转在绿箭头/黄箭头时按饱和流率驶离，闪黄时按许可比例驶离
func (m *Mock) Update(dt float64, in *junction.Intersection, heads trafficlight.Heads) {
	if dt <= 0 {
		return
	}
	m.elapsed += dt
	rate := m.c.BaseArrivalRate * m.TimeMultiplier(m.elapsed)

	surge := entity.Direction(-1)
	if m.c.EnableSurge && m.generator.PTrue(math.Min(1, surgeChancePerSecond*dt)) {
		surge = entity.Directions[m.generator.Intn(entity.NumDirections)]
		log.Debugf("traffic surge on %s approach", surge)
	}

	for _, a := range in.Approaches() {
		r := rate
		if a.Direction == surge {
			r *= surgeMultiplier
		}
		head := heads.Get(a.Direction)
		m.step(a.Through, r*(1-m.c.LeftTurnFraction), dt, throughDischarge(head))
		m.step(a.LeftTurn, r*m.c.LeftTurnFraction, dt, leftDischarge(head))
	}
}

// step 单条车道的一步：到达、驶离与钳制
// 参数：discharge-相对饱和流率的驶离比例（0表示红灯）
func (m *Mock) step(l *lane.Lane, arrivalRate, dt, discharge float64) {
	arrivals := m.generator.Poisson(arrivalRate * dt)
	departures := 0
	if discharge > 0 && l.Queue() > 0 {
		departures = m.generator.Poisson(l.SaturationFlowPerSecond() * discharge * dt)
	}
	queue := l.Queue() + arrivals - departures
	if m.c.MaxQueue > 0 && queue > m.c.MaxQueue {
		queue = m.c.MaxQueue
	}
	l.Update(max(0, queue), arrivalRate)
}

func throughDischarge(h trafficlight.Head) float64 {
	switch h.Vehicle {
	case trafficlight.VehicleGreen, trafficlight.VehicleYellow:
		return 1
	}
	return 0
}

func leftDischarge(h trafficlight.Head) float64 {
	switch h.LeftTurn {
	case trafficlight.LeftGreenArrow, trafficlight.LeftYellowArrow:
		return 1
	case trafficlight.LeftFlashingYellow:
		return permissiveLeftFactor
	}
	return 0
}
