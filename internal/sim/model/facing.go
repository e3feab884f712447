package model

import "strings"

// Facing is one of the six cardinal directions a block can point at.
type Facing uint8

const (
	Down Facing = iota
	Up
	North
	South
	West
	East
)

var facingNames = [...]string{"DOWN", "UP", "NORTH", "SOUTH", "WEST", "EAST"}

func (f Facing) String() string {
	if int(f) < len(facingNames) {
		return facingNames[f]
	}
	return "UNKNOWN"
}

func (f Facing) Valid() bool { return int(f) < len(facingNames) }

// Offset returns the unit vector for f. North is -Z, East is +X.
func (f Facing) Offset() Vec3i {
	switch f {
	case Down:
		return Vec3i{Y: -1}
	case Up:
		return Vec3i{Y: 1}
	case North:
		return Vec3i{Z: -1}
	case South:
		return Vec3i{Z: 1}
	case West:
		return Vec3i{X: -1}
	case East:
		return Vec3i{X: 1}
	}
	return Vec3i{}
}

func ParseFacing(s string) (Facing, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, n := range facingNames {
		if n == s {
			return Facing(i), true
		}
	}
	return 0, false
}
