package trafficlight

import (
	"encoding/json"
	"fmt"

	"github.com/tsinghua-fib-lab/adaptive-signal/entity"
)

// 每一类信号灯头使用独立的枚举，非法组合（例如故障模式下的行人WALK）无法表达

// VehicleSignal 机动车直行灯头显示
type VehicleSignal int

const (
	VehicleRed VehicleSignal = iota
	VehicleGreen
	VehicleYellow
	VehicleAllRed // 故障安全全红
)

func (s VehicleSignal) String() string {
	switch s {
	case VehicleRed:
		return "RED"
	case VehicleGreen:
		return "GREEN"
	case VehicleYellow:
		return "YELLOW"
	case VehicleAllRed:
		return "ALL_RED"
	}
	return fmt.Sprintf("VehicleSignal(%d)", int(s))
}

func (s VehicleSignal) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// LeftTurnSignal 左转灯头显示
type LeftTurnSignal int

const (
	LeftRed LeftTurnSignal = iota
	LeftGreenArrow
	LeftYellowArrow
	LeftFlashingYellow // 许可左转，让行对向直行
	LeftAllRed         // 故障安全全红
)

func (s LeftTurnSignal) String() string {
	switch s {
	case LeftRed:
		return "RED"
	case LeftGreenArrow:
		return "GREEN_ARROW"
	case LeftYellowArrow:
		return "YELLOW_ARROW"
	case LeftFlashingYellow:
		return "FLASHING_YELLOW"
	case LeftAllRed:
		return "ALL_RED"
	}
	return fmt.Sprintf("LeftTurnSignal(%d)", int(s))
}

func (s LeftTurnSignal) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// PedestrianSignal 行人灯头显示
type PedestrianSignal int

const (
	DontWalk PedestrianSignal = iota
	Walk
	PedClearance // 闪烁DON'T WALK
)

func (s PedestrianSignal) String() string {
	switch s {
	case DontWalk:
		return "DONT_WALK"
	case Walk:
		return "WALK"
	case PedClearance:
		return "PED_CLEARANCE"
	}
	return fmt.Sprintf("PedestrianSignal(%d)", int(s))
}

func (s PedestrianSignal) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Head 单个方位的灯头状态
type Head struct {
	Vehicle    VehicleSignal    `json:"vehicle"`
	LeftTurn   LeftTurnSignal   `json:"left_turn"`
	Pedestrian PedestrianSignal `json:"pedestrian"`
}

// GreenClass 是否显示绿灯类指示（直行绿/黄或左转绿箭头）
func (h Head) GreenClass() bool {
	return h.Vehicle == VehicleGreen || h.Vehicle == VehicleYellow || h.LeftTurn == LeftGreenArrow
}

// Heads 四个方位的灯头状态，按entity.Direction索引
type Heads [entity.NumDirections]Head

// Get 获取指定方位的灯头
func (h Heads) Get(d entity.Direction) Head {
	return h[d]
}

func (h Heads) MarshalJSON() ([]byte, error) {
	m := make(map[string]Head, entity.NumDirections)
	for _, d := range entity.Directions {
		m[d.String()] = h[d]
	}
	return json.Marshal(m)
}

// Step 相位内的子状态
type Step int

const (
	StepGreen Step = iota
	StepYellow
	StepAllRed
)

func (s Step) String() string {
	switch s {
	case StepGreen:
		return "GREEN"
	case StepYellow:
		return "YELLOW"
	case StepAllRed:
		return "ALL_RED"
	}
	return fmt.Sprintf("Step(%d)", int(s))
}

func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// 基线状态：全部红灯/禁止通行
var redHeads = func() Heads {
	var h Heads
	for i := range h {
		h[i] = Head{Vehicle: VehicleRed, LeftTurn: LeftRed, Pedestrian: DontWalk}
	}
	return h
}()

// DeriveHeads 根据（相位、子状态、故障、抢占方位）推导全部灯头状态
// 功能：纯函数，不依赖任何已存储的灯头状态，每次状态迁移后重新调用
// 参数：phase-当前相位，step-当前子状态，fault-是否处于故障模式，preempt-处于抢占绿灯时的方位（否则为nil）
// 返回：四个方位的灯头状态
// 算法说明：
// 1. 故障模式：直行与左转全部为ALL_RED，行人DONT_WALK，直接返回
// 2. 以全红/DONT_WALK为基线
// 3. 抢占绿灯：仅抢占方位直行为GREEN
// 4. GREEN：左转相位显示绿箭头或闪黄；直行相位直行GREEN、左转闪黄（许可左转）、行人WALK
// 5. YELLOW：左转相位显示黄箭头；直行相位直行YELLOW、行人清空
// 6. ALL_RED及非服务方位保持基线
func DeriveHeads(phase *Phase, step Step, fault bool, preempt *entity.Direction) Heads {
	if fault {
		var h Heads
		for i := range h {
			h[i] = Head{Vehicle: VehicleAllRed, LeftTurn: LeftAllRed, Pedestrian: DontWalk}
		}
		return h
	}
	h := redHeads
	if preempt != nil {
		if step == StepGreen && preempt.Valid() {
			h[*preempt].Vehicle = VehicleGreen
		}
		return h
	}
	if phase == nil {
		return h
	}
	for _, d := range phase.Directions {
		head := &h[d]
		switch step {
		case StepGreen:
			if phase.IsLeft {
				if phase.ProtectedLeft {
					head.LeftTurn = LeftGreenArrow
				} else {
					head.LeftTurn = LeftFlashingYellow
				}
			} else {
				head.Vehicle = VehicleGreen
				head.LeftTurn = LeftFlashingYellow
				head.Pedestrian = Walk
			}
		case StepYellow:
			if phase.IsLeft {
				head.LeftTurn = LeftYellowArrow
			} else {
				head.Vehicle = VehicleYellow
				head.Pedestrian = PedClearance
			}
		}
	}
	return h
}
