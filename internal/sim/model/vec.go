package model

import "fmt"

type Vec3i struct {
	X int
	Y int
	Z int
}

func (v Vec3i) ToArray() [3]int { return [3]int{v.X, v.Y, v.Z} }

func FromArray(a [3]int) Vec3i { return Vec3i{X: a[0], Y: a[1], Z: a[2]} }

func (v Vec3i) Add(o Vec3i) Vec3i { return Vec3i{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z} }

func (v Vec3i) Scale(n int) Vec3i { return Vec3i{X: v.X * n, Y: v.Y * n, Z: v.Z * n} }

func (v Vec3i) String() string { return fmt.Sprintf("%d,%d,%d", v.X, v.Y, v.Z) }

// Less orders positions by X, then Y, then Z.
func Less(a, b Vec3i) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.Z < b.Z
}

func Manhattan(a, b Vec3i) int {
	return absInt(a.X-b.X) + absInt(a.Y-b.Y) + absInt(a.Z-b.Z)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// FaceOffsets are the six face-adjacent offsets in a fixed order.
func FaceOffsets() []Vec3i {
	return []Vec3i{
		{X: 0, Y: -1, Z: 0},
		{X: 0, Y: 1, Z: 0},
		{X: 0, Y: 0, Z: -1},
		{X: 0, Y: 0, Z: 1},
		{X: -1, Y: 0, Z: 0},
		{X: 1, Y: 0, Z: 0},
	}
}

// LateralOffsets are the four horizontal neighbours (no vertical component).
func LateralOffsets() []Vec3i {
	return []Vec3i{
		{X: 0, Y: 0, Z: -1},
		{X: 0, Y: 0, Z: 1},
		{X: -1, Y: 0, Z: 0},
		{X: 1, Y: 0, Z: 0},
	}
}
