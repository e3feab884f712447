package model

import "testing"

func TestFacingOffsetsAreUnitVectors(t *testing.T) {
	for f := Down; f <= East; f++ {
		o := f.Offset()
		if Manhattan(o, Vec3i{}) != 1 {
			t.Fatalf("facing %s offset=%v", f, o)
		}
		got, ok := ParseFacing(f.String())
		if !ok || got != f {
			t.Fatalf("ParseFacing(%q)=%v,%v", f.String(), got, ok)
		}
	}
	if _, ok := ParseFacing("sideways"); ok {
		t.Fatalf("expected unknown facing to be rejected")
	}
}

func TestLateralOffsetsStayInPlane(t *testing.T) {
	offs := LateralOffsets()
	if len(offs) != 4 {
		t.Fatalf("len=%d want=4", len(offs))
	}
	for _, o := range offs {
		if o.Y != 0 {
			t.Fatalf("lateral offset has vertical component: %v", o)
		}
	}
}

func TestLess(t *testing.T) {
	if !Less(Vec3i{X: 1, Y: 5}, Vec3i{X: 2}) {
		t.Fatalf("expected X to dominate")
	}
	if !Less(Vec3i{X: 1, Y: 1, Z: 9}, Vec3i{X: 1, Y: 2}) {
		t.Fatalf("expected Y before Z")
	}
	if Less(Vec3i{X: 1}, Vec3i{X: 1}) {
		t.Fatalf("equal positions are not less")
	}
}
