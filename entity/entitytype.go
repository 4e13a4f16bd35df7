package entity

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownDirection = errors.New("unknown direction")
)

// Direction 进口道方位
type Direction int

const (
	North Direction = iota
	South
	East
	West
)

// NumDirections 路口进口道数量（固定为4）
const NumDirections = 4

// Directions 全部方位，按N,S,E,W顺序
var Directions = [NumDirections]Direction{North, South, East, West}

// ConflictingPairs 绝不能同时获得绿灯类指示的方位对
var ConflictingPairs = [4][2]Direction{
	{North, East},
	{North, West},
	{South, East},
	{South, West},
}

func (d Direction) String() string {
	switch d {
	case North:
		return "N"
	case South:
		return "S"
	case East:
		return "E"
	case West:
		return "W"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// Valid 是否为四个合法方位之一
func (d Direction) Valid() bool {
	return d >= North && d <= West
}

// Opposite 对向方位
func (d Direction) Opposite() Direction {
	switch d {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	default:
		return East
	}
}

func (d Direction) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownDirection, int(d))
	}
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(text []byte) error {
	v, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// ParseDirection 解析方位字符串（N/S/E/W或north/south/east/west，不区分大小写）
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "N", "NORTH":
		return North, nil
	case "S", "SOUTH":
		return South, nil
	case "E", "EAST":
		return East, nil
	case "W", "WEST":
		return West, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDirection, s)
}

// Movement 车道转向类型
type Movement int

const (
	Through Movement = iota
	LeftTurn
)

func (m Movement) String() string {
	if m == LeftTurn {
		return "left_turn"
	}
	return "through"
}

func (m Movement) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// 依赖倒置，表达信号控制核心对车道/路口数据的只读需求

// ILane 车道排队数据（核心只读）
type ILane interface {
	Queue() int                                       // 当前排队车辆数
	SaturationFlow() float64                          // 饱和流率(veh/h)
	SaturationFlowPerSecond() float64                 // 饱和流率(veh/s)
	GreenTimeToClear(startupLostTime float64) float64 // 清空排队所需绿灯
	Capacity(green float64) float64                   // 给定绿灯的通行能力(veh)
	DegreeOfSaturation(green float64) float64         // 给定绿灯的饱和度
}

// IIntersection 路口车道查询
type IIntersection interface {
	Lane(d Direction, m Movement) ILane
}
