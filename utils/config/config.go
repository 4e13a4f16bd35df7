package config

import (
	"errors"
	"fmt"
	"math"

	"gopkg.in/yaml.v2"
)

var (
	ErrInvalidConfig = errors.New("config: invalid value")
)

// Default 返回默认配置
func Default() Config {
	return Config{
		Name: "Main & 1st",
		Timing: Timing{
			MinGreen:              7,
			MaxGreen:              60,
			YellowClearance:       4,
			AllRedClearance:       2.5,
			StartupLostTime:       2,
			MinProtectedLeftGreen: 8,
			MaxProtectedLeftGreen: 25,
			LeftQueueThreshold:    3,
			MinWalk:               7,
			PedClearanceSpeed:     3.5,
			CrosswalkDistance:     48,
			MinCycle:              45,
			MaxCycle:              150,
		},
		Flow: Flow{
			ThroughLane:  1800,
			LeftTurnLane: 1600,
		},
		Control: Control{
			Interval: 0.1,
			MaxDT:    0.5,
			Speed:    1,
		},
		Demand: Demand{
			BaseArrivalRate:  0.3,
			PeakMultiplier:   2.5,
			PeakPeriod:       120,
			LeftTurnFraction: 0.15,
			EnableSurge:      true,
			MaxQueue:         25,
		},
		Server: Server{
			Listen: ":8080",
		},
	}
}

// Parse 解析YAML配置
// 功能：在默认配置之上严格解析YAML数据并校验
// 参数：data-YAML数据
// 返回：配置对象与错误信息
// 说明：未知字段会导致解析失败
func Parse(data []byte) (Config, error) {
	c := Default()
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return Config{}, fmt.Errorf("config unmarshal: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate 校验配置的一致性
// 功能：检查上下限关系与正数约束，核心运行时不再做这些检查
func (c Config) Validate() error {
	t := c.Timing
	checks := []struct {
		ok  bool
		msg string
	}{
		{t.MinGreen > 0 && t.MinGreen <= t.MaxGreen, "timing.min_green must be in (0, max_green]"},
		{t.MinProtectedLeftGreen > 0 && t.MinProtectedLeftGreen <= t.MaxProtectedLeftGreen,
			"timing.min_protected_left_green must be in (0, max_protected_left_green]"},
		{t.MinCycle > 0 && t.MinCycle <= t.MaxCycle, "timing.min_cycle must be in (0, max_cycle]"},
		{t.YellowClearance > 0, "timing.yellow_clearance must be positive"},
		{t.AllRedClearance >= 0, "timing.all_red_clearance must not be negative"},
		{t.StartupLostTime >= 0, "timing.startup_lost_time must not be negative"},
		{t.LeftQueueThreshold >= 0, "timing.left_queue_threshold must not be negative"},
		{t.MinWalk >= 0, "timing.min_walk must not be negative"},
		{t.PedClearanceSpeed > 0, "timing.ped_clearance_speed must be positive"},
		{t.CrosswalkDistance >= 0, "timing.crosswalk_distance must not be negative"},
		{c.Flow.ThroughLane > 0 && c.Flow.LeftTurnLane > 0, "flow rates must be positive"},
		{c.Control.Interval > 0, "control.interval must be positive"},
		{c.Control.MaxDT > 0, "control.max_dt must be positive"},
		{c.Control.Speed > 0 && !math.IsInf(c.Control.Speed, 1), "control.speed must be positive and finite"},
		{c.Control.Total >= 0, "control.total must not be negative"},
		{c.Demand.MaxQueue >= 0, "demand.max_queue must not be negative"},
	}
	for _, check := range checks {
		if !check.ok {
			return fmt.Errorf("%w: %s", ErrInvalidConfig, check.msg)
		}
	}
	return nil
}

// RuntimeConfig 运行时配置
// 功能：存储运行时使用的配置信息
type RuntimeConfig struct {
	All Config  // 全部配置
	C   Control // 全局控制配置
}

// NewRuntimeConfig 根据配置初始化运行时配置
func NewRuntimeConfig(config Config) *RuntimeConfig {
	return &RuntimeConfig{
		All: config,
		C:   config.Control,
	}
}
