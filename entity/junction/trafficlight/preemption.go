package trafficlight

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/tsinghua-fib-lab/adaptive-signal/entity"
)

// PreemptionState 紧急车辆抢占状态
type PreemptionState int

const (
	PreemptionIdle      PreemptionState = iota // 无抢占
	PreemptionRequested                        // 已请求，正在执行黄灯/全红清空
	PreemptionActive                           // 抢占方位绿灯保持中
)

func (s PreemptionState) String() string {
	switch s {
	case PreemptionIdle:
		return "IDLE"
	case PreemptionRequested:
		return "REQUESTED"
	case PreemptionActive:
		return "ACTIVE"
	}
	return fmt.Sprintf("PreemptionState(%d)", int(s))
}

func (s PreemptionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// PreemptionEvent 一次抢占事件的记录
type PreemptionEvent struct {
	ID          string           `json:"id"`
	Direction   entity.Direction `json:"direction"`
	RequestedAt float64          `json:"requested_at"`
	ActivatedAt *float64         `json:"activated_at,omitempty"`
	ClearedAt   *float64         `json:"cleared_at,omitempty"`
}

// PreemptionStatus 抢占状态快照
type PreemptionStatus struct {
	State     PreemptionState   `json:"state"`
	Direction *entity.Direction `json:"direction,omitempty"` // 非Idle时有效
	Last      *PreemptionEvent  `json:"last,omitempty"`      // 最近一次事件（含已解除的）
	Total     int               `json:"total"`               // 已接受的抢占请求总数
}

// preemption 抢占管理器，由SignalController持有
// 说明：同一时刻只处理一个紧急事件，抢占期间的新请求直接丢弃而不排队
type preemption struct {
	state     PreemptionState
	direction entity.Direction
	last      *PreemptionEvent
	total     int
}

func (p *preemption) pending() bool {
	return p.state != PreemptionIdle
}

// request 尝试接受一次抢占请求
func (p *preemption) request(d entity.Direction, now float64) bool {
	if p.pending() {
		return false
	}
	p.state = PreemptionRequested
	p.direction = d
	p.total++
	p.last = &PreemptionEvent{
		ID:          uuid.NewString(),
		Direction:   d,
		RequestedAt: now,
	}
	return true
}

func (p *preemption) activate(now float64) {
	p.state = PreemptionActive
	if p.last != nil {
		t := now
		p.last.ActivatedAt = &t
	}
}

// clear 解除抢占，仅清除标志
func (p *preemption) clear(now float64) bool {
	if !p.pending() {
		return false
	}
	p.state = PreemptionIdle
	if p.last != nil {
		t := now
		p.last.ClearedAt = &t
	}
	return true
}

func (p *preemption) status() PreemptionStatus {
	s := PreemptionStatus{State: p.state, Total: p.total}
	if p.pending() {
		d := p.direction
		s.Direction = &d
	}
	if p.last != nil {
		ev := *p.last
		s.Last = &ev
	}
	return s
}
