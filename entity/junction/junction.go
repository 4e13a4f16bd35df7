package junction

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/adaptive-signal/entity"
	"github.com/tsinghua-fib-lab/adaptive-signal/entity/junction/trafficlight"
	"github.com/tsinghua-fib-lab/adaptive-signal/utils/config"
)

var (
	ErrUnknownPhase = errors.New("unknown phase")
	ErrInvalidGreen = errors.New("green time must be finite")
)

// Junction 自适应信控路口
// 功能：组合路口车道、相位环、自适应配时引擎、信号状态机与冲突监视器
// 说明：作为显式上下文对象传给每一次核心操作，不使用任何全局状态
type Junction struct {
	intersection *Intersection
	ring         *trafficlight.PhaseRing
	enforcer     *trafficlight.Enforcer
	engine       *trafficlight.Engine
	controller   *trafficlight.SignalController
	monitor      *trafficlight.ConflictMonitor
}

// New 创建并初始化路口
// 功能：根据配置创建四进口道、标准四相位环，并将自身注册为周期完成回调
// 参数：c-配置
// 返回：初始化完成的Junction实例
func New(c config.Config) *Junction {
	j := &Junction{
		intersection: NewIntersection(c.Flow),
		ring:         trafficlight.NewStandardRing(c.Timing),
		enforcer:     trafficlight.NewEnforcer(c.Timing),
		monitor:      trafficlight.NewConflictMonitor(),
	}
	j.engine = trafficlight.NewEngine(c.Timing, j.ring.Len())
	j.controller = trafficlight.NewSignalController(j.ring, j)
	log.Infof("junction ready: %d phases, initial cycle %.1fs", j.ring.Len(), j.ring.CycleTime())
	return j
}

// OnCycleComplete 实现trafficlight.ICyclePlanner，周期完成时重算配时
func (j *Junction) OnCycleComplete(cycle int, ring *trafficlight.PhaseRing) {
	j.engine.Replan(j.intersection, ring, cycle)
}

// update 更新阶段：推进信号状态机，随后由冲突监视器独立检查
// 参数：now-当前仿真时刻
func (j *Junction) update(now float64) {
	j.controller.Tick(now)
	j.monitor.Check(j.controller)
}

// setPhaseGreen 外部设置相位绿灯，写入后立即执行约束
// 参数：id-相位ID，green-绿灯时长
// 返回：相位不存在时返回错误
func (j *Junction) setPhaseGreen(id int32, green float64) error {
	p, ok := j.phase(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownPhase, id)
	}
	p.Green = green
	j.enforcer.EnforcePhase(p)
	log.Infof("phase %d green set to %.1fs", id, p.Green)
	return nil
}

func (j *Junction) phase(id int32) (*trafficlight.Phase, bool) {
	return lo.Find(j.ring.Phases(), func(p *trafficlight.Phase) bool { return p.ID == id })
}

// servingPhase 为某车道分配路权的相位
func (j *Junction) servingPhase(d entity.Direction, m entity.Movement) (*trafficlight.Phase, bool) {
	return lo.Find(j.ring.Phases(), func(p *trafficlight.Phase) bool { return p.Serves(d) && p.Movement() == m })
}

func (j *Junction) Intersection() *Intersection {
	return j.intersection
}

func (j *Junction) Ring() *trafficlight.PhaseRing {
	return j.ring
}

func (j *Junction) Controller() *trafficlight.SignalController {
	return j.controller
}

func (j *Junction) Engine() *trafficlight.Engine {
	return j.engine
}

func (j *Junction) Monitor() *trafficlight.ConflictMonitor {
	return j.monitor
}

// Snapshot 路口状态快照，供展示与遥测只读使用
type Snapshot struct {
	Controller trafficlight.Status  `json:"controller"`
	Phases     []trafficlight.Phase `json:"phases"`
	CycleTime  float64              `json:"cycle_time"` // 当前配时下的周期总时长
	Plan       *trafficlight.Plan   `json:"plan,omitempty"`
	Lanes      []LaneState          `json:"lanes"`
	TotalQueue int                  `json:"total_queue"`
	Conflicts  int                  `json:"conflicts"`
}

// Snapshot 生成状态快照（深拷贝，可跨goroutine传递）
func (j *Junction) Snapshot() Snapshot {
	s := Snapshot{
		Controller: j.controller.Status(),
		Phases:     lo.Map(j.ring.Phases(), func(p *trafficlight.Phase, _ int) trafficlight.Phase { return *p }),
		CycleTime:  j.ring.CycleTime(),
		Lanes:      j.intersection.Lanes(),
		TotalQueue: j.intersection.TotalQueue(),
		Conflicts:  j.monitor.Conflicts(),
	}
	for i := range s.Lanes {
		l := &s.Lanes[i]
		if p, ok := j.servingPhase(l.Direction, l.Movement); ok {
			l.DegreeOfSaturation = j.intersection.Lane(l.Direction, l.Movement).DegreeOfSaturation(p.Green)
		}
	}
	if plan, ok := j.engine.LatestPlan(); ok {
		plan.Demands = append([]trafficlight.PhaseDemand(nil), plan.Demands...)
		plan.Greens = append([]float64(nil), plan.Greens...)
		s.Plan = &plan
	}
	return s
}
