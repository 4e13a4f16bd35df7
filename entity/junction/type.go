package junction

import (
	"github.com/tsinghua-fib-lab/adaptive-signal/entity/junction/trafficlight"
)

// 依赖倒置，表达junction对外部协作者的接口需求

// 交通需求源：每个tick在信号状态机推进之前写入各车道排队
type IDemandSource interface {
	// 参数：dt-本步仿真时长，in-路口（可写车道），heads-上一步结束时的灯头状态
	Update(dt float64, in *Intersection, heads trafficlight.Heads)
}
