package junction

import (
	"fmt"
	"math"
	"sync"

	"github.com/tsinghua-fib-lab/adaptive-signal/entity"
)

// command 缓存的外部写入操作，在下一次Prepare时由仿真线程执行
type command func(j *Junction)

// Manager 路口管理器
// 功能：对外提供线程安全的写入接口（抢占、配时修改），写入先进入buffer，在准备阶段统一生效
// 说明：Prepare/Update只能由仿真主循环调用
type Manager struct {
	junction *Junction

	bufferMtx sync.Mutex
	buffer    []command
}

// NewManager 创建路口管理器
func NewManager(j *Junction) *Manager {
	return &Manager{junction: j}
}

func (m *Manager) Junction() *Junction {
	return m.junction
}

func (m *Manager) push(c command) {
	m.bufferMtx.Lock()
	defer m.bufferMtx.Unlock()
	m.buffer = append(m.buffer, c)
}

// RequestPreemption 请求紧急车辆抢占（写入buffer）
// 返回：方位非法时返回错误；抢占是否被接受在生效时记录日志
func (m *Manager) RequestPreemption(d entity.Direction) error {
	if !d.Valid() {
		return fmt.Errorf("%w: %d", entity.ErrUnknownDirection, int(d))
	}
	m.push(func(j *Junction) {
		j.controller.RequestPreemption(d)
	})
	return nil
}

// ClearPreemption 解除抢占（写入buffer）
func (m *Manager) ClearPreemption() {
	m.push(func(j *Junction) {
		j.controller.ClearPreemption()
	})
}

// SetPhaseGreen 修改相位绿灯（写入buffer，生效时执行约束）
// 返回：相位ID不存在或绿灯时间非有限值时返回错误
func (m *Manager) SetPhaseGreen(id int32, green float64) error {
	if math.IsNaN(green) || math.IsInf(green, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidGreen, green)
	}
	// 相位环成员在构造后不变，可以直接校验
	if _, ok := m.junction.phase(id); !ok {
		return fmt.Errorf("%w: %d", ErrUnknownPhase, id)
	}
	m.push(func(j *Junction) {
		if err := j.setPhaseGreen(id, green); err != nil {
			log.Warnf("set phase green: %v", err)
		}
	})
	return nil
}

// Prepare 准备阶段，处理各种写入buffer
func (m *Manager) Prepare() {
	m.bufferMtx.Lock()
	buffer := m.buffer
	m.buffer = nil
	m.bufferMtx.Unlock()
	for _, c := range buffer {
		c(m.junction)
	}
}

// Update 更新阶段，推进信号状态机并执行冲突检查
// 参数：now-当前仿真时刻
func (m *Manager) Update(now float64) {
	m.junction.update(now)
}
