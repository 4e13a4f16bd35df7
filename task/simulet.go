package task

import (
	"context"
	"flag"
	"time"
)

var (
	heartBeatInterval = flag.Int("log.heartbeat_interval", 600, "心跳日志间隔步数")
)

// prepare 准备阶段，每步执行一次
// 功能：处理其他goroutine写入的buffer（时钟操作、抢占、配时修改）
func (ctx *Context) prepare() {
	ctx.clockBufferMtx.Lock()
	buffer := ctx.clockBuffer
	ctx.clockBuffer = nil
	ctx.clockBufferMtx.Unlock()
	for _, f := range buffer {
		f(ctx.clock)
	}
	ctx.junctionManager.Prepare()
}

// update 更新阶段，每步执行一次
// 功能：推进时钟后依次执行需求源更新、信号状态机推进与冲突检查
// 参数：realDT-距上一步的真实时间
// 算法说明：
// 1. 时钟推进：截断到MaxDT后乘以倍速，暂停时直接返回，不修改任何状态
// 2. 需求源：根据上一步的灯头状态写入排队
// 3. 路口：状态机推进（周期边界处重算配时），随后冲突监视器检查
func (ctx *Context) update(realDT float64) {
	if ctx.clock.Paused() {
		return
	}
	dt := ctx.clock.Advance(realDT)
	j := ctx.junctionManager.Junction()
	if ctx.demand != nil {
		ctx.demand.Update(dt, j.Intersection(), j.Controller().Heads())
	}
	ctx.junctionManager.Update(ctx.clock.T)

	if *heartBeatInterval > 0 && ctx.clock.InternalStep%int32(*heartBeatInterval) == 0 {
		st := j.Controller().Status()
		log.Infof(
			"STEP: %d(%s) phase=%d %s cycle=%d queue=%d",
			ctx.clock.InternalStep, ctx.clock, st.PhaseID, st.Step, st.Cycle, j.Intersection().TotalQueue(),
		)
	}
}

// publish 生成快照，更新指标并通知订阅者
func (ctx *Context) publish() {
	s := Snapshot{
		Name:     ctx.name,
		Time:     ctx.clock.T,
		Clock:    ctx.clock.String(),
		Step:     ctx.clock.InternalStep,
		Speed:    ctx.clock.Speed,
		Paused:   ctx.clock.Paused(),
		Junction: ctx.junctionManager.Junction().Snapshot(),
	}
	ctx.snapshotMtx.Lock()
	ctx.snapshot = s
	ctx.snapshotMtx.Unlock()

	if ctx.metrics != nil {
		ctx.metrics.Observe(s.Junction)
	}
	for _, p := range ctx.publishers {
		p.Publish(s)
	}
}

// Tick 同步执行一步
// 参数：realDT-距上一步的真实时间（秒）
func (ctx *Context) Tick(realDT float64) {
	ctx.prepare()
	ctx.update(realDT)
	ctx.publish()
}

// Run 运行，直到ctx取消或达到结束步
// 功能：按配置的步长定时调用Tick，每步传入实际经过的时间
func (ctx *Context) Run(c context.Context) {
	interval := time.Duration(ctx.RuntimeConfig().C.Interval * float64(time.Second))
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Infof("controller %q running: interval=%v speed=%.1fx", ctx.name, interval, ctx.clock.Speed)
	last := time.Now()
	for !ctx.clock.Done() {
		select {
		case <-c.Done():
			log.Infof("engine stopped at %s", ctx.clock)
			return
		case now := <-ticker.C:
			ctx.Tick(now.Sub(last).Seconds())
			last = now
		}
	}
	log.Infof("engine complete")
}
