// 随机数引擎，包装了golang.org/x/exp/rand，提供了一些常用的随机数生成方法
package randengine

import (
	"flag"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	seedOffset = flag.Uint64("rand.seed_offset", 0, "seed offset") // 种子偏移量，用于调整随机数生成
)

// Engine 随机数引擎
// 功能：提供可复现的随机数生成功能，非线程安全，由单一调用者使用
type Engine struct {
	*rand.Rand // 底层随机数生成器

	src rand.Source
}

// New 创建随机数引擎
// 参数：seed-随机数种子
// 返回：随机数引擎指针
// 说明：种子偏移量允许在不修改配置的情况下调整随机数序列
func New(seed uint64) *Engine {
	src := rand.NewSource(seed + *seedOffset)
	return &Engine{Rand: rand.New(src), src: src}
}

// PTrue 以指定概率返回true（非线程安全）
// 参数：p-返回true的概率（0.0到1.0之间）
func (e *Engine) PTrue(p float64) bool {
	return e.Float64() < p
}

// Poisson 泊松分布随机数（非线程安全）
// 功能：生成均值为lambda的泊松分布整数，用于单位时间内的到达/驶离车辆数
// 参数：lambda-均值，非正或NaN时返回0
// 说明：采样由gonum的distuv.Poisson完成，与引擎共用同一个随机源以保证可复现
func (e *Engine) Poisson(lambda float64) int {
	if !(lambda > 0) {
		return 0
	}
	return int(distuv.Poisson{Lambda: lambda, Src: e.src}.Rand())
}
