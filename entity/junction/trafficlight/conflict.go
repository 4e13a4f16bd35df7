package trafficlight

import (
	"github.com/tsinghua-fib-lab/adaptive-signal/entity"
)

// ISignalOutput 冲突监视器观察与控制的对象
type ISignalOutput interface {
	Heads() Heads
	EnterFaultMode()
}

// FindConflict 检查灯头状态中是否存在冲突方位同时显示绿灯类指示
// 返回：第一组冲突方位，ok为false表示无冲突
func FindConflict(h Heads) (pair [2]entity.Direction, ok bool) {
	for _, p := range entity.ConflictingPairs {
		if h[p[0]].GreenClass() && h[p[1]].GreenClass() {
			return p, true
		}
	}
	return pair, false
}

// ConflictMonitor 冲突监视器
// 功能：每个tick在状态机之后独立检查灯头状态，发现冲突即锁存故障模式
type ConflictMonitor struct {
	conflicts int
}

func NewConflictMonitor() *ConflictMonitor {
	return &ConflictMonitor{}
}

// Check 检查一次
// 返回：是否发现冲突
func (m *ConflictMonitor) Check(out ISignalOutput) bool {
	pair, ok := FindConflict(out.Heads())
	if !ok {
		return false
	}
	m.conflicts++
	log.Errorf("conflicting greens detected: %s and %s", pair[0], pair[1])
	out.EnterFaultMode()
	return true
}

// Conflicts 已检测到的冲突次数
func (m *ConflictMonitor) Conflicts() int {
	return m.conflicts
}
