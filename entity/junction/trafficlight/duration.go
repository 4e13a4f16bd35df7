package trafficlight

import (
	"encoding/json"
	"math"
)

// StepDuration 子状态持续时间
// 功能：显式区分有限时长与无限保持（抢占绿灯），避免使用无穷大哨兵参与时间运算
type StepDuration struct {
	seconds float64
	held    bool
}

// Finite 有限时长，负值截断为0
func Finite(seconds float64) StepDuration {
	return StepDuration{seconds: math.Max(0, seconds)}
}

// Held 无限保持，直到外部解除
func Held() StepDuration {
	return StepDuration{held: true}
}

func (d StepDuration) IsHeld() bool {
	return d.held
}

// Seconds 有限时长的秒数，ok为false表示无限保持
func (d StepDuration) Seconds() (seconds float64, ok bool) {
	return d.seconds, !d.held
}

// Expired 给定已经过时间是否已到期，保持状态永不到期
func (d StepDuration) Expired(elapsed float64) bool {
	return !d.held && elapsed >= d.seconds
}

// Remaining 剩余时间，ok为false表示无限保持
func (d StepDuration) Remaining(elapsed float64) (remaining float64, ok bool) {
	if d.held {
		return 0, false
	}
	return math.Max(0, d.seconds-elapsed), true
}

func (d StepDuration) MarshalJSON() ([]byte, error) {
	if d.held {
		return json.Marshal("held")
	}
	return json.Marshal(d.seconds)
}
