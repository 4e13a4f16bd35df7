package junction

import (
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/adaptive-signal/entity"
	"github.com/tsinghua-fib-lab/adaptive-signal/entity/lane"
	"github.com/tsinghua-fib-lab/adaptive-signal/utils/config"
)

// Approach 进口道，包含一条直行车道与一条左转车道
type Approach struct {
	Direction entity.Direction
	Through   *lane.Lane
	LeftTurn  *lane.Lane
}

// Lane 按转向获取车道
func (a *Approach) Lane(m entity.Movement) *lane.Lane {
	if m == entity.LeftTurn {
		return a.LeftTurn
	}
	return a.Through
}

// TotalQueue 进口道排队总数
func (a *Approach) TotalQueue() int {
	return a.Through.Queue() + a.LeftTurn.Queue()
}

// Intersection 四路口
// 功能：持有四个进口道的车道数据，排队由需求源写入，信号控制核心只读
type Intersection struct {
	approaches [entity.NumDirections]*Approach
}

// NewIntersection 创建四路口
// 参数：flow-直行/左转车道饱和流率
func NewIntersection(flow config.Flow) *Intersection {
	in := &Intersection{}
	for _, d := range entity.Directions {
		in.approaches[d] = &Approach{
			Direction: d,
			Through:   lane.New(d, entity.Through, flow.ThroughLane),
			LeftTurn:  lane.New(d, entity.LeftTurn, flow.LeftTurnLane),
		}
	}
	return in
}

// Approach 获取进口道
func (in *Intersection) Approach(d entity.Direction) *Approach {
	return in.approaches[d]
}

// Approaches 全部进口道（按N,S,E,W顺序）
func (in *Intersection) Approaches() []*Approach {
	return in.approaches[:]
}

// Lane 实现entity.IIntersection
func (in *Intersection) Lane(d entity.Direction, m entity.Movement) entity.ILane {
	return in.approaches[d].Lane(m)
}

// TotalQueue 路口排队总数
func (in *Intersection) TotalQueue() int {
	return lo.SumBy(in.Approaches(), func(a *Approach) int { return a.TotalQueue() })
}

// LaneState 车道状态快照
type LaneState struct {
	Direction      entity.Direction `json:"direction"`
	Movement       entity.Movement  `json:"movement"`
	Queue          int              `json:"queue"`
	ArrivalRate    float64          `json:"arrival_rate"`
	SaturationFlow float64          `json:"saturation_flow"`

	DegreeOfSaturation float64 `json:"degree_of_saturation"` // 按服务相位当前绿灯计算，由Junction.Snapshot填写
}

// Lanes 全部车道的状态快照
func (in *Intersection) Lanes() []LaneState {
	states := make([]LaneState, 0, 2*entity.NumDirections)
	for _, a := range in.approaches {
		for _, l := range []*lane.Lane{a.Through, a.LeftTurn} {
			states = append(states, LaneState{
				Direction:      l.Direction(),
				Movement:       l.Movement(),
				Queue:          l.Queue(),
				ArrivalRate:    l.ArrivalRate(),
				SaturationFlow: l.SaturationFlow(),
			})
		}
	}
	return states
}
