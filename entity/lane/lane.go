package lane

import (
	"math"

	"github.com/tsinghua-fib-lab/adaptive-signal/entity"
)

// Lane 车道实体
// 功能：表示某个进口道的直行或左转车道，记录排队车辆数与饱和流率
// 说明：排队数据只由外部需求源写入，信号控制核心只读
type Lane struct {
	direction      entity.Direction
	movement       entity.Movement
	saturationFlow float64 // 饱和流率(veh/h)

	queue       int     // 当前排队车辆数
	arrivalRate float64 // 估计到达率(veh/s)
}

// New 创建车道
// 功能：根据方位、转向与饱和流率初始化车道，饱和流率非正时取1避免除零
func New(d entity.Direction, m entity.Movement, saturationFlow float64) *Lane {
	if saturationFlow <= 0 {
		saturationFlow = 1
	}
	return &Lane{
		direction:      d,
		movement:       m,
		saturationFlow: saturationFlow,
	}
}

func (l *Lane) Direction() entity.Direction {
	return l.direction
}

func (l *Lane) Movement() entity.Movement {
	return l.movement
}

func (l *Lane) Queue() int {
	return l.queue
}

func (l *Lane) ArrivalRate() float64 {
	return l.arrivalRate
}

func (l *Lane) SaturationFlow() float64 {
	return l.saturationFlow
}

// SaturationFlowPerSecond 饱和流率换算为veh/s
func (l *Lane) SaturationFlowPerSecond() float64 {
	return l.saturationFlow / 3600
}

// Update 更新排队状态
// 功能：写入需求源观测到的排队数与到达率，负值截断为0
func (l *Lane) Update(queue int, arrivalRate float64) {
	l.queue = max(0, queue)
	l.arrivalRate = math.Max(0, arrivalRate)
}

// SetQueue 只更新排队数
func (l *Lane) SetQueue(queue int) {
	l.queue = max(0, queue)
}

// GreenTimeToClear 清空当前排队所需的绿灯时间
// 功能：queue / (saturationFlow/3600) + startupLostTime，无排队时为0
func (l *Lane) GreenTimeToClear(startupLostTime float64) float64 {
	if l.queue <= 0 {
		return 0
	}
	return float64(l.queue)/l.SaturationFlowPerSecond() + startupLostTime
}

// Capacity 给定绿灯时间内可放行的车辆数，绿灯非正时为0
func (l *Lane) Capacity(green float64) float64 {
	if !(green > 0) {
		return 0
	}
	return green * l.SaturationFlowPerSecond()
}

// DegreeOfSaturation 给定绿灯时间下的饱和度
// 功能：排队数 / 通行能力，接近1表示车道已达通行能力；通行能力为0时返回0
func (l *Lane) DegreeOfSaturation(green float64) float64 {
	capacity := l.Capacity(green)
	if capacity <= 0 {
		return 0
	}
	return float64(l.queue) / capacity
}
