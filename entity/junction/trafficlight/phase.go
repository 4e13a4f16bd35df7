package trafficlight

import (
	"math"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/adaptive-signal/entity"
	"github.com/tsinghua-fib-lab/adaptive-signal/utils/config"
)

// Phase 相位
// 功能：为一对对向进口道分配路权，IsLeft为true时只服务左转车道，否则服务直行（叠加许可左转）
type Phase struct {
	ID            int32               `json:"id"`
	Directions    [2]entity.Direction `json:"directions"`
	IsLeft        bool                `json:"is_left"`
	Green         float64             `json:"green"`
	Yellow        float64             `json:"yellow"`
	AllRed        float64             `json:"all_red"`
	ProtectedLeft bool                `json:"protected_left"`
}

// Serves 相位是否服务该方位
func (p *Phase) Serves(d entity.Direction) bool {
	return p.Directions[0] == d || p.Directions[1] == d
}

// Movement 相位服务的车道类型
func (p *Phase) Movement() entity.Movement {
	if p.IsLeft {
		return entity.LeftTurn
	}
	return entity.Through
}

// TotalTime 相位总时长：绿灯+黄灯+全红
func (p *Phase) TotalTime() float64 {
	return p.Green + p.Yellow + p.AllRed
}

// PhaseRing 相位环
// 功能：一个周期内按固定顺序循环的相位序列，成员与顺序在构造后不再改变
type PhaseRing struct {
	phases []*Phase
}

// NewStandardRing 构建标准四相位环
// 功能：创建 N/S保护左转(1) -> N/S直行(2) -> E/W保护左转(3) -> E/W直行(4)，并执行约束
// 参数：t-配时约束
// 返回：相位环
func NewStandardRing(t config.Timing) *PhaseRing {
	newPhase := func(id int32, a entity.Direction, isLeft bool) *Phase {
		green := t.MinGreen
		if isLeft {
			green = t.MinProtectedLeftGreen
		}
		return &Phase{
			ID:         id,
			Directions: [2]entity.Direction{a, a.Opposite()},
			IsLeft:     isLeft,
			Green:      green,
			Yellow:     t.YellowClearance,
			AllRed:     t.AllRedClearance,
		}
	}
	r := &PhaseRing{phases: []*Phase{
		newPhase(1, entity.North, true),
		newPhase(2, entity.North, false),
		newPhase(3, entity.East, true),
		newPhase(4, entity.East, false),
	}}
	NewEnforcer(t).EnforceRing(r)
	return r
}

// Len 相位数量
func (r *PhaseRing) Len() int {
	return len(r.phases)
}

// Phase 按索引获取相位
func (r *PhaseRing) Phase(i int) *Phase {
	return r.phases[i]
}

// Phases 全部相位（按环顺序）
func (r *PhaseRing) Phases() []*Phase {
	return r.phases
}

// Next 下一个相位索引
func (r *PhaseRing) Next(i int) int {
	return (i + 1) % len(r.phases)
}

// CycleTime 当前配时下的周期总时长
func (r *PhaseRing) CycleTime() float64 {
	return lo.SumBy(r.phases, func(p *Phase) float64 { return p.TotalTime() })
}

// Enforcer 配时约束执行器
// 功能：所有绿灯时间在交给状态机使用前都必须经过这里的钳制
type Enforcer struct {
	timing       config.Timing
	pedClearance float64
}

// NewEnforcer 创建约束执行器
func NewEnforcer(t config.Timing) *Enforcer {
	return &Enforcer{timing: t, pedClearance: t.PedestrianClearance()}
}

// MinPedestrianGreen 直行相位为满足行人通行所需的最短绿灯
func (e *Enforcer) MinPedestrianGreen() float64 {
	return e.timing.MinWalk + e.pedClearance
}

// EnforcePhase 对单个相位执行配时约束（幂等）
// 功能：钳制绿灯时间，固定黄灯与全红时长，直行相位保证行人最短绿灯
// 参数：p-相位（原地修改）
// 算法说明：
// 1. 左转相位绿灯钳制到[minProtectedLeftGreen, maxProtectedLeftGreen]，直行相位钳制到[minGreen, maxGreen]，NaN按下限处理
// 2. 黄灯/全红固定为配置的清空时间
// 3. 直行相位：绿灯不足minWalk+pedestrianClearance时抬高
func (e *Enforcer) EnforcePhase(p *Phase) {
	c := e.timing
	minG, maxG := c.MinGreen, c.MaxGreen
	if p.IsLeft {
		minG, maxG = c.MinProtectedLeftGreen, c.MaxProtectedLeftGreen
	}
	original := p.Green
	if math.IsNaN(p.Green) {
		p.Green = minG
	}
	p.Green = lo.Clamp(p.Green, minG, maxG)
	if p.Green != original {
		log.Debugf("phase %d green clamped: %.1f -> %.1f (limits %.1f-%.1f)", p.ID, original, p.Green, minG, maxG)
	}

	p.Yellow = c.YellowClearance
	p.AllRed = c.AllRedClearance

	if !p.IsLeft {
		if minPed := e.MinPedestrianGreen(); p.Green < minPed {
			log.Debugf("phase %d green extended for pedestrian timing: %.1f -> %.1f", p.ID, p.Green, minPed)
			p.Green = minPed
		}
	}
}

// EnforceRing 对相位环中所有相位执行约束
func (e *Enforcer) EnforceRing(r *PhaseRing) {
	for _, p := range r.phases {
		e.EnforcePhase(p)
	}
}
