package trafficlight

import (
	"fmt"
	"math"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/adaptive-signal/entity"
	"github.com/tsinghua-fib-lab/adaptive-signal/utils/config"
)

const (
	dsSmoothingAlpha        = 0.6  // 饱和度指数平滑系数（越大越灵敏）
	maxFlowRatio            = 0.90 // Webster公式中流量比上限
	lowDemandFlowRatio      = 0.05 // 低于该流量比直接使用最短周期
	permissiveLeftWeightMul = 0.5  // 许可左转相位的权重系数（乘以最小保护左转绿灯）
)

// PhaseDemand 单个相位的需求指标
type PhaseDemand struct {
	PhaseID            int32   `json:"phase_id"`
	TotalQueue         int     `json:"total_queue"`          // 相位服务车道的排队总数
	LeftQueue          int     `json:"left_queue"`           // 其中左转车道排队数
	IdealGreen         float64 `json:"ideal_green"`          // 清空排队所需绿灯
	DegreeOfSaturation float64 `json:"degree_of_saturation"` // 平滑后的饱和度
	ProtectedLeft      bool    `json:"protected_left"`       // 是否启用保护左转
}

// Plan 自适应算法为下一个周期给出的配时方案
type Plan struct {
	Cycle       int           `json:"cycle"`        // 生成方案时的周期计数
	CycleLength float64       `json:"cycle_length"` // 周期长度
	Demands     []PhaseDemand `json:"demands"`      // 与相位环同序
	Greens      []float64     `json:"greens"`       // 与相位环同序，约束执行前的绿灯分配
}

// Engine 自适应配时引擎
// 功能：每个周期根据实时排队重新计算周期长度与绿信比
// 说明：上一周期的平滑饱和度是系统中唯一的跨周期记忆，按相位环索引存储
type Engine struct {
	timing   config.Timing
	enforcer *Enforcer

	prevDS  []float64
	hasPrev []bool

	latest  Plan
	planned bool
}

// NewEngine 创建自适应配时引擎
// 参数：t-配时约束，ringLen-相位环长度
func NewEngine(t config.Timing, ringLen int) *Engine {
	return &Engine{
		timing:   t,
		enforcer: NewEnforcer(t),
		prevDS:   make([]float64, ringLen),
		hasPrev:  make([]bool, ringLen),
	}
}

// WebsterCycle 根据平均饱和度计算周期长度
// 功能：C = (1.5*L + 5) / (1 - y)，L为总损失时间，y = min(0.90, meanDS)
// 参数：t-配时约束，numPhases-相位数量，meanDS-平均平滑饱和度
// 返回：钳制到[minCycle, maxCycle]的周期长度；y<0.05时直接返回最短周期
func WebsterCycle(t config.Timing, numPhases int, meanDS float64) float64 {
	lost := TotalLostTime(t, numPhases)
	y := math.Min(maxFlowRatio, meanDS)
	if y < lowDemandFlowRatio {
		return t.MinCycle
	}
	cycle := (1.5*lost + 5) / (1 - y)
	return lo.Clamp(cycle, t.MinCycle, t.MaxCycle)
}

// TotalLostTime 一个周期内的总损失时间（每个相位的黄灯+全红）
func TotalLostTime(t config.Timing, numPhases int) float64 {
	return float64(numPhases) * (t.YellowClearance + t.AllRedClearance)
}

// ComputePlan 计算下一个周期的配时方案
// 功能：核心自适应算法，同时更新平滑饱和度记忆
// 参数：in-路口车道数据，ring-相位环
// 返回：配时方案
// 算法说明：
// 1. 计算每个相位的需求（排队、理想绿灯、平滑饱和度、左转模式）
// 2. 根据平均饱和度用Webster公式确定周期长度
// 3. 按权重比例分配可用绿灯时间
func (e *Engine) ComputePlan(in entity.IIntersection, ring *PhaseRing) Plan {
	demands := lo.Map(ring.Phases(), func(p *Phase, i int) PhaseDemand {
		return e.phaseDemand(in, p, i)
	})
	meanDS := 0.
	if len(demands) > 0 {
		meanDS = lo.SumBy(demands, func(d PhaseDemand) float64 { return d.DegreeOfSaturation }) / float64(len(demands))
	}
	cycle := WebsterCycle(e.timing, ring.Len(), meanDS)
	plan := Plan{
		CycleLength: cycle,
		Demands:     demands,
		Greens:      e.allocateGreens(demands, cycle, ring),
	}
	log.Debugf("cycle length: mean DS=%.2f, lost=%.1fs -> cycle=%.0fs", meanDS, TotalLostTime(e.timing, ring.Len()), cycle)
	return plan
}

// phaseDemand 计算单个相位的需求，并更新该相位的平滑饱和度
func (e *Engine) phaseDemand(in entity.IIntersection, p *Phase, index int) PhaseDemand {
	movement := p.Movement()
	d := PhaseDemand{PhaseID: p.ID}
	for _, dir := range p.Directions {
		l := in.Lane(dir, movement)
		d.TotalQueue += l.Queue()
		if movement == entity.LeftTurn {
			d.LeftQueue += l.Queue()
		}
		d.IdealGreen = math.Max(d.IdealGreen, l.GreenTimeToClear(e.timing.StartupLostTime))
	}

	// 参考车道：第一个方位的对应车道，相位排队总数按其通行能力折算
	raw := 0.
	if capacity := in.Lane(p.Directions[0], movement).Capacity(p.Green); capacity > 0 {
		raw = float64(d.TotalQueue) / capacity
	}
	prev := raw
	if e.hasPrev[index] {
		prev = e.prevDS[index]
	}
	d.DegreeOfSaturation = dsSmoothingAlpha*raw + (1-dsSmoothingAlpha)*prev
	e.prevDS[index] = d.DegreeOfSaturation
	e.hasPrev[index] = true

	d.ProtectedLeft = p.IsLeft && d.LeftQueue >= e.timing.LeftQueueThreshold
	return d
}

// allocateGreens 按需求权重分配可用绿灯
// 算法说明：
// 1. 可用绿灯 = 周期 - 总损失时间（不小于0）
// 2. 无排队：权重为minGreen；许可左转：0.5*minProtectedLeftGreen；否则max(minGreen, idealGreen)
// 3. 绿灯 = 权重占比 * 可用绿灯，权重和为0时按1处理
func (e *Engine) allocateGreens(demands []PhaseDemand, cycle float64, ring *PhaseRing) []float64 {
	available := math.Max(0, cycle-TotalLostTime(e.timing, ring.Len()))
	weights := lo.Map(demands, func(d PhaseDemand, i int) float64 {
		switch {
		case d.TotalQueue == 0:
			return e.timing.MinGreen
		case ring.Phase(i).IsLeft && !d.ProtectedLeft:
			return permissiveLeftWeightMul * e.timing.MinProtectedLeftGreen
		default:
			return math.Max(e.timing.MinGreen, d.IdealGreen)
		}
	})
	total := lo.Sum(weights)
	if total <= 0 {
		total = 1
	}
	return lo.Map(weights, func(w float64, _ int) float64 {
		return w / total * available
	})
}

// ApplyPlan 将配时方案写入相位环
// 功能：设置绿灯时间与左转模式，随后执行约束（加权结果可能越界，必须由约束钳制）
func (e *Engine) ApplyPlan(plan Plan, ring *PhaseRing) {
	for i, p := range ring.Phases() {
		if i < len(plan.Greens) {
			p.Green = plan.Greens[i]
		}
		if i < len(plan.Demands) {
			p.ProtectedLeft = plan.Demands[i].ProtectedLeft
		}
		e.enforcer.EnforcePhase(p)
	}
}

// Replan 计算并应用配时方案，保存为最新方案
// 参数：in-路口车道数据，ring-相位环，cycle-当前周期计数
func (e *Engine) Replan(in entity.IIntersection, ring *PhaseRing, cycle int) Plan {
	plan := e.ComputePlan(in, ring)
	plan.Cycle = cycle
	e.ApplyPlan(plan, ring)
	e.latest = plan
	e.planned = true
	log.Infof("cycle %d plan: length=%.0fs, greens=%v", cycle, plan.CycleLength,
		lo.Map(ring.Phases(), func(p *Phase, _ int) string { return formatSeconds(p.Green) }))
	return plan
}

// LatestPlan 最新一次应用的配时方案
func (e *Engine) LatestPlan() (Plan, bool) {
	return e.latest, e.planned
}

// SmoothedDS 各相位当前的平滑饱和度（按环顺序）
func (e *Engine) SmoothedDS() []float64 {
	return append([]float64(nil), e.prevDS...)
}

func formatSeconds(s float64) string {
	return fmt.Sprintf("%.1fs", s)
}
