package task

import (
	"fmt"
	"sync"

	"github.com/tsinghua-fib-lab/adaptive-signal/clock"
	"github.com/tsinghua-fib-lab/adaptive-signal/entity"
	"github.com/tsinghua-fib-lab/adaptive-signal/entity/junction"
	"github.com/tsinghua-fib-lab/adaptive-signal/metrics"
	"github.com/tsinghua-fib-lab/adaptive-signal/utils/config"
)

// IPublisher 每个tick结束后接收最新快照的展示/遥测协作者
type IPublisher interface {
	Publish(v any)
}

// Snapshot 一个tick结束时的完整只读状态
type Snapshot struct {
	Name     string            `json:"name"`
	Time     float64           `json:"time"`
	Clock    string            `json:"clock"`
	Step     int32             `json:"step"`
	Speed    float64           `json:"speed"`
	Paused   bool              `json:"paused"`
	Junction junction.Snapshot `json:"junction"`
}

// Context 控制任务上下文
// 功能：包含一次运行的所有变量和状态，替代全局变量
// 说明：只有运行循环所在的goroutine修改核心状态，其他goroutine的写入进入buffer，在下一个tick开始时生效
type Context struct {
	name string

	// 时钟
	clock *clock.Clock
	// 运行时配置
	runtimeConfig *config.RuntimeConfig
	// 路口管理器
	junctionManager *junction.Manager
	// 交通需求源
	demand junction.IDemandSource
	// 指标，可为nil
	metrics *metrics.Metrics
	// 快照订阅者
	publishers []IPublisher

	// 时钟写入buffer
	clockBufferMtx sync.Mutex
	clockBuffer    []func(c *clock.Clock)

	// 最新快照
	snapshotMtx sync.RWMutex
	snapshot    Snapshot
}

// NewContext 创建控制任务上下文
// 参数：c-配置，source-交通需求源（可为nil），m-指标（可为nil）
// 返回：初始化完成的Context实例
func NewContext(c config.Config, source junction.IDemandSource, m *metrics.Metrics) *Context {
	ctx := &Context{
		name:            c.Name,
		clock:           clock.New(c.Control),
		runtimeConfig:   config.NewRuntimeConfig(c),
		junctionManager: junction.NewManager(junction.New(c)),
		demand:          source,
		metrics:         m,
	}
	ctx.publish()
	return ctx
}

// AddPublisher 注册快照订阅者（需在Run之前调用）
func (ctx *Context) AddPublisher(p IPublisher) {
	ctx.publishers = append(ctx.publishers, p)
}

func (ctx *Context) Clock() *clock.Clock {
	return ctx.clock
}

// RuntimeConfig 启动时生效的配置（只读）
func (ctx *Context) RuntimeConfig() *config.RuntimeConfig {
	return ctx.runtimeConfig
}

func (ctx *Context) JunctionManager() *junction.Manager {
	return ctx.junctionManager
}

// Snapshot 最近一个tick结束时的快照（线程安全）
func (ctx *Context) Snapshot() Snapshot {
	ctx.snapshotMtx.RLock()
	defer ctx.snapshotMtx.RUnlock()
	return ctx.snapshot
}

func (ctx *Context) pushClock(f func(c *clock.Clock)) {
	ctx.clockBufferMtx.Lock()
	defer ctx.clockBufferMtx.Unlock()
	ctx.clockBuffer = append(ctx.clockBuffer, f)
}

// RequestPreemption 请求紧急车辆抢占（线程安全，下一个tick生效）
func (ctx *Context) RequestPreemption(d entity.Direction) error {
	return ctx.junctionManager.RequestPreemption(d)
}

// ClearPreemption 解除抢占（线程安全，下一个tick生效）
func (ctx *Context) ClearPreemption() {
	ctx.junctionManager.ClearPreemption()
}

// SetPhaseGreen 修改相位绿灯（线程安全，下一个tick生效）
func (ctx *Context) SetPhaseGreen(id int32, green float64) error {
	return ctx.junctionManager.SetPhaseGreen(id, green)
}

// Pause 暂停（线程安全，下一个tick生效）
func (ctx *Context) Pause() {
	ctx.pushClock(func(c *clock.Clock) { c.Pause() })
}

// Resume 恢复（线程安全，下一个tick生效）
func (ctx *Context) Resume() {
	ctx.pushClock(func(c *clock.Clock) { c.Resume() })
}

// SetSpeed 设置倍速（线程安全，下一个tick生效）
// 返回：倍速不是有限正数时立即返回错误
func (ctx *Context) SetSpeed(factor float64) error {
	if !clock.ValidSpeed(factor) {
		return fmt.Errorf("%w: %v", clock.ErrInvalidSpeed, factor)
	}
	ctx.pushClock(func(c *clock.Clock) {
		if err := c.SetSpeed(factor); err != nil {
			log.Warnf("set speed: %v", err)
		}
	})
	return nil
}
