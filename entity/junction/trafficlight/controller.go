package trafficlight

import (
	"github.com/tsinghua-fib-lab/adaptive-signal/entity"
)

// ICyclePlanner 周期完成回调
// 功能：相位索引绕回0时调用，在新相位时长被读取之前重算配时
type ICyclePlanner interface {
	OnCycleComplete(cycle int, ring *PhaseRing)
}

// Status 信号控制器状态快照
type Status struct {
	PhaseIndex   int              `json:"phase_index"`
	PhaseID      int32            `json:"phase_id"`
	Step         Step             `json:"step"`
	StepElapsed  float64          `json:"step_elapsed"`
	StepDuration StepDuration     `json:"step_duration"`
	Remaining    *float64         `json:"remaining,omitempty"` // 无限保持时为空
	Cycle        int              `json:"cycle"`
	Fault        bool             `json:"fault"`
	Preemption   PreemptionStatus `json:"preemption"`
	Heads        Heads            `json:"heads"`
}

// SignalController 信号灯状态机
// 功能：按相位环推进GREEN→YELLOW→ALL_RED，处理紧急抢占与故障模式，并输出灯头状态
// 说明：单线程驱动，所有方法都应由同一个调用者按顺序调用
type SignalController struct {
	ring    *PhaseRing
	planner ICyclePlanner

	phaseIndex int
	step       Step
	stepStart  float64 // 当前子状态开始时刻
	now        float64 // 最近一次Tick的时刻
	cycles     int

	preempt preemption
	fault   bool

	heads Heads // 由deriveHeads重新计算，不单独修改
}

// NewSignalController 创建信号控制器，从第一个相位的绿灯开始
// 参数：ring-相位环，planner-周期完成回调（可为nil）
func NewSignalController(ring *PhaseRing, planner ICyclePlanner) *SignalController {
	c := &SignalController{
		ring:    ring,
		planner: planner,
		step:    StepGreen,
	}
	c.deriveHeads()
	return c
}

// Tick 推进状态机
// 功能：若当前子状态已到期则执行一次状态迁移
// 参数：now-当前仿真时刻
// 返回：是否发生了状态迁移
func (c *SignalController) Tick(now float64) bool {
	c.now = now
	if !c.StepDuration().Expired(now - c.stepStart) {
		return false
	}
	switch c.step {
	case StepGreen:
		c.enter(StepYellow)
	case StepYellow:
		c.enter(StepAllRed)
	case StepAllRed:
		c.advance()
	}
	return true
}

func (c *SignalController) enter(step Step) {
	c.step = step
	c.stepStart = c.now
	c.deriveHeads()
}

// advance 全红结束：进入抢占绿灯或推进到下一个相位
func (c *SignalController) advance() {
	if c.preempt.pending() {
		c.preempt.activate(c.now)
		log.Warnf("preemption active: %s green held", c.preempt.direction)
		c.enter(StepGreen)
		return
	}
	prev := c.phaseIndex
	c.phaseIndex = c.ring.Next(prev)
	if c.phaseIndex == 0 && prev != 0 {
		c.cycles++
		log.Debugf("cycle %d complete", c.cycles)
		if c.planner != nil {
			c.planner.OnCycleComplete(c.cycles, c.ring)
		}
	}
	c.enter(StepGreen)
}

// StepDuration 当前子状态的持续时间
// 说明：存在抢占（请求中或已激活）时绿灯无限保持
func (c *SignalController) StepDuration() StepDuration {
	p := c.CurrentPhase()
	switch c.step {
	case StepYellow:
		return Finite(p.Yellow)
	case StepAllRed:
		return Finite(p.AllRed)
	}
	if c.preempt.pending() {
		return Held()
	}
	return Finite(p.Green)
}

// StepElapsed 当前子状态已经过的时间
func (c *SignalController) StepElapsed() float64 {
	return c.now - c.stepStart
}

// RequestPreemption 请求紧急车辆抢占
// 功能：当前为绿灯时立即切换到黄灯，保证抢占方位获得绿灯前完整经过黄灯与全红
// 参数：d-抢占方位
// 返回：是否被接受（方位非法或已有抢占时丢弃）
func (c *SignalController) RequestPreemption(d entity.Direction) bool {
	if !d.Valid() {
		log.Warnf("preemption request ignored: invalid direction %d", int(d))
		return false
	}
	if !c.preempt.request(d, c.now) {
		log.Warnf("preemption request for %s dropped: %s already preempted", d, c.preempt.direction)
		return false
	}
	log.Infof("preemption requested for %s during phase %d %s", d, c.CurrentPhase().ID, c.step)
	if c.step == StepGreen {
		c.enter(StepYellow)
	}
	return true
}

// ClearPreemption 解除抢占
// 功能：只清除抢占标志，状态机在下一个自然的全红边界恢复正常推进
// 返回：是否存在被解除的抢占
func (c *SignalController) ClearPreemption() bool {
	if !c.preempt.clear(c.now) {
		return false
	}
	log.Infof("preemption cleared")
	return true
}

// EnterFaultMode 进入故障模式（锁存，不会自动恢复）
func (c *SignalController) EnterFaultMode() {
	if !c.fault {
		log.Errorf("entering fault mode at t=%.1f: all heads forced to ALL_RED", c.now)
	}
	c.fault = true
	c.deriveHeads()
}

func (c *SignalController) deriveHeads() {
	var dir *entity.Direction
	if c.preempt.state == PreemptionActive && c.step == StepGreen {
		d := c.preempt.direction
		dir = &d
	}
	c.heads = DeriveHeads(c.CurrentPhase(), c.step, c.fault, dir)
}

// Heads 当前灯头状态
func (c *SignalController) Heads() Heads {
	return c.heads
}

func (c *SignalController) Ring() *PhaseRing {
	return c.ring
}

func (c *SignalController) PhaseIndex() int {
	return c.phaseIndex
}

func (c *SignalController) CurrentPhase() *Phase {
	return c.ring.Phase(c.phaseIndex)
}

func (c *SignalController) Step() Step {
	return c.step
}

func (c *SignalController) Cycles() int {
	return c.cycles
}

func (c *SignalController) FaultMode() bool {
	return c.fault
}

func (c *SignalController) Preemption() PreemptionStatus {
	return c.preempt.status()
}

// Status 状态快照
func (c *SignalController) Status() Status {
	var remaining *float64
	if r, ok := c.StepDuration().Remaining(c.StepElapsed()); ok {
		remaining = &r
	}
	return Status{
		PhaseIndex:   c.phaseIndex,
		PhaseID:      c.CurrentPhase().ID,
		Step:         c.step,
		StepElapsed:  c.StepElapsed(),
		StepDuration: c.StepDuration(),
		Remaining:    remaining,
		Cycle:        c.cycles,
		Fault:        c.fault,
		Preemption:   c.preempt.status(),
		Heads:        c.heads,
	}
}
