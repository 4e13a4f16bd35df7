package clock

import (
	"errors"
	"fmt"
	"math"

	"github.com/tsinghua-fib-lab/adaptive-signal/utils/config"
)

var (
	ErrInvalidSpeed = errors.New("clock: speed factor must be positive and finite")
)

// Clock 仿真时钟管理器
// 功能：管理控制器的仿真时间推进，支持单步上限、倍速与暂停
// 说明：时间只由外部传入的时间增量推进，自身不读取系统时间
type Clock struct {
	DT    float64 // 名义步长（秒）
	MaxDT float64 // 单次推进的最大真实时间跨度（秒）
	Speed float64 // 倍速

	T            float64 // 当前时间（秒）
	InternalStep int32   // 当前内部步数
	END_STEP     int32   // 结束步，0表示不限制

	paused bool
}

// New 根据配置创建新的时钟实例
// 功能：根据控制配置初始化时钟
// 参数：c-控制配置，包含步长、单步上限、倍速、总步数
// 返回：初始化完成的时钟实例
func New(c config.Control) *Clock {
	clk := &Clock{
		DT:       c.Interval,
		MaxDT:    c.MaxDT,
		Speed:    c.Speed,
		END_STEP: c.Total,
	}
	if !ValidSpeed(clk.Speed) {
		clk.Speed = 1
	}
	clk.Init()
	return clk
}

// Init 重置时钟状态
func (c *Clock) Init() {
	c.InternalStep = 0
	c.T = 0
	c.paused = false
}

// Advance 推进时钟
// 功能：将真实时间增量换算为仿真时间增量并累加
// 参数：realDT-距上次调用的真实时间（秒）
// 返回：本次推进的仿真时间（秒），暂停时为0
// 算法说明：
// 1. 暂停时不做任何修改
// 2. 负值与NaN视为0，超过MaxDT的部分截断（避免暂停/卡顿后的时间跳变）
// 3. 乘以倍速后累加到T，步数+1
func (c *Clock) Advance(realDT float64) float64 {
	if c.paused {
		return 0
	}
	if !(realDT > 0) {
		realDT = 0
	}
	if c.MaxDT > 0 && realDT > c.MaxDT {
		realDT = c.MaxDT
	}
	dt := realDT * c.Speed
	c.T += dt
	c.InternalStep++
	return dt
}

// Pause 暂停时钟（幂等）
func (c *Clock) Pause() {
	c.paused = true
}

// Resume 恢复时钟（幂等）
func (c *Clock) Resume() {
	c.paused = false
}

// Paused 是否处于暂停状态
func (c *Clock) Paused() bool {
	return c.paused
}

// ValidSpeed 倍速是否为有限正数
func ValidSpeed(factor float64) bool {
	return factor > 0 && !math.IsInf(factor, 1)
}

// SetSpeed 设置倍速
func (c *Clock) SetSpeed(factor float64) error {
	if !ValidSpeed(factor) {
		return fmt.Errorf("%w: %v", ErrInvalidSpeed, factor)
	}
	c.Speed = factor
	return nil
}

// Done 是否达到结束步
func (c *Clock) Done() bool {
	return c.END_STEP > 0 && c.InternalStep >= c.END_STEP
}

// String 获取时钟的字符串表示
// 功能：将当前时间格式化为可读的字符串（HH:MM:SS）
func (c *Clock) String() string {
	hour, minute, second := c.GetHourMinuteSecond()
	return fmt.Sprintf("%02d:%02d:%02d", hour, minute, int(second))
}

// GetHourMinuteSecond 获取当前时间的小时、分钟、秒
// 返回：小时、分钟、秒（秒为浮点数，支持亚秒级精度）
func (c *Clock) GetHourMinuteSecond() (int, int, float64) {
	hour := int(c.T) / 3600
	minute := int(c.T) % 3600 / 60
	second := c.T - float64(hour*3600+minute*60)
	return hour, minute, second
}
