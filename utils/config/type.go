package config

// Timing 信号配时安全约束（单位：秒）
// 功能：定义自适应算法不得突破的硬约束，取值参考ITE/MUTCD常用标准
type Timing struct {
	MinGreen              float64 `yaml:"min_green"`                // 直行相位最小绿灯时间
	MaxGreen              float64 `yaml:"max_green"`                // 直行相位最大绿灯时间
	YellowClearance       float64 `yaml:"yellow_clearance"`         // 黄灯清空时间
	AllRedClearance       float64 `yaml:"all_red_clearance"`        // 全红清空时间
	StartupLostTime       float64 `yaml:"startup_lost_time"`        // 绿灯启动损失时间
	MinProtectedLeftGreen float64 `yaml:"min_protected_left_green"` // 保护左转最小绿灯时间
	MaxProtectedLeftGreen float64 `yaml:"max_protected_left_green"` // 保护左转最大绿灯时间
	LeftQueueThreshold    int     `yaml:"left_queue_threshold"`     // 启用保护左转的排队车辆数阈值
	MinWalk               float64 `yaml:"min_walk"`                 // 行人WALK最短时间
	PedClearanceSpeed     float64 `yaml:"ped_clearance_speed"`      // 行人清空步行速度(ft/s)
	CrosswalkDistance     float64 `yaml:"crosswalk_distance"`       // 人行横道长度(ft)
	MinCycle              float64 `yaml:"min_cycle"`                // 最短周期
	MaxCycle              float64 `yaml:"max_cycle"`                // 最长周期
}

// PedestrianClearance 行人清空（闪烁DON'T WALK）时长，由人行横道长度与步行速度推导
func (t Timing) PedestrianClearance() float64 {
	if t.PedClearanceSpeed <= 0 {
		return 0
	}
	return t.CrosswalkDistance / t.PedClearanceSpeed
}

// Flow 饱和流率（veh/h/lane）
type Flow struct {
	ThroughLane  float64 `yaml:"through_lane"`
	LeftTurnLane float64 `yaml:"left_turn_lane"`
}

// Control 模拟过程控制
// 功能：定义控制器节拍、单步最大时间跨度、倍速与总步数
type Control struct {
	Interval float64 `yaml:"interval"`        // 每步的时间间隔（秒）
	MaxDT    float64 `yaml:"max_dt"`          // 单步最大推进时间，防止暂停后时间跳变
	Speed    float64 `yaml:"speed"`           // 初始倍速
	Total    int32   `yaml:"total,omitempty"` // 总步数，0表示一直运行
}

// Demand 模拟需求源配置
type Demand struct {
	BaseArrivalRate  float64 `yaml:"base_arrival_rate"`  // 每个进口道的基础到达率(veh/s)
	PeakMultiplier   float64 `yaml:"peak_multiplier"`    // 高峰倍率
	PeakPeriod       float64 `yaml:"peak_period"`        // 高峰变化周期（秒）
	LeftTurnFraction float64 `yaml:"left_turn_fraction"` // 左转比例
	EnableSurge      bool    `yaml:"enable_surge"`       // 是否注入随机激增
	MaxQueue         int     `yaml:"max_queue"`          // 单车道最大排队数
	Seed             uint64  `yaml:"seed"`               // 随机种子
}

// Server 对外展示/操作接口配置
type Server struct {
	Listen string `yaml:"listen,omitempty"` // HTTP监听地址，为空则不启动
}

// Config YAML配置文件的根结构
// 功能：定义整个控制器的配置结构
type Config struct {
	Name    string  `yaml:"name"`
	Timing  Timing  `yaml:"timing"`
	Flow    Flow    `yaml:"flow"`
	Control Control `yaml:"control"`
	Demand  Demand  `yaml:"demand"`
	Server  Server  `yaml:"server"`
}
