package math

import (
	"math"
	"testing"
)

func TestIdentity(t *testing.T) {
	m := Identity()
	// Diagonal should be 1
	if m[0] != 1 || m[5] != 1 || m[10] != 1 || m[15] != 1 {
		t.Error("Identity diagonal should be 1")
	}
	// Off-diagonal should be 0
	if m[1] != 0 || m[4] != 0 {
		t.Error("Identity off-diagonal should be 0")
	}
	if !m.IsIdentity() {
		t.Error("IsIdentity should be true for Identity()")
	}
	if Translate(0, 0, 1).IsIdentity() {
		t.Error("IsIdentity should be false for a translation")
	}
}

func TestMulIdentity(t *testing.T) {
	m := Translate(1, 2, 3)
	result := m.Mul(Identity())

	for i := 0; i < 16; i++ {
		if result[i] != m[i] {
			t.Errorf("M * I should equal M, element %d: got %f, want %f", i, result[i], m[i])
		}
	}
}

func TestTranslate(t *testing.T) {
	m := Translate(5, 10, 15)

	// Translation should be in column 4 (indices 12, 13, 14)
	if m[12] != 5 || m[13] != 10 || m[14] != 15 {
		t.Errorf("Translate: got (%f, %f, %f), want (5, 10, 15)", m[12], m[13], m[14])
	}
}

func TestTransformPoint(t *testing.T) {
	m := Translate(10, 20, 30)
	result := m.TransformPoint(Vec3{1, 2, 3})

	expected := Vec3{11, 22, 33}
	if result != expected {
		t.Errorf("TransformPoint: got %v, want %v", result, expected)
	}
}

func TestTransformPointScale(t *testing.T) {
	m := Scale(2, 2, 2)
	result := m.TransformPoint(Vec3{1, 2, 3})

	expected := Vec3{2, 4, 6}
	if result != expected {
		t.Errorf("TransformPoint with scale: got %v, want %v", result, expected)
	}
}

func TestTransformPositions(t *testing.T) {
	positions := []float64{0, 0, 0, 1, 1, 1}
	Translate(1, 2, 3).Mul(Scale(2, 2, 2)).TransformPositions(positions)

	expected := []float64{1, 2, 3, 3, 4, 5}
	for i := range expected {
		if positions[i] != expected[i] {
			t.Errorf("TransformPositions[%d]: got %f, want %f", i, positions[i], expected[i])
		}
	}
}

func TestRotateY90(t *testing.T) {
	m := rotationY(math.Pi / 2)
	result := m.TransformPoint(Vec3{1, 0, 0})

	// After 90 degree Y rotation, (1,0,0) should become approximately (0,0,-1)
	if math.Abs(result.X) > 1e-9 || math.Abs(result.Y) > 1e-9 || math.Abs(result.Z+1) > 1e-9 {
		t.Errorf("RotateY 90: got %v, want (0, 0, -1)", result)
	}
}

func TestInverse(t *testing.T) {
	m := Translate(3, -4, 5).Mul(rotationZ(0.3)).Mul(Scale(2, 3, 4))
	result := m.Mul(m.Inverse())

	id := Identity()
	for i := 0; i < 16; i++ {
		if math.Abs(result[i]-id[i]) > 1e-12 {
			t.Errorf("M * M^-1 element %d: got %v, want %v", i, result[i], id[i])
		}
	}
}

func TestInverseSingular(t *testing.T) {
	if !Scale(0, 1, 1).Inverse().IsIdentity() {
		t.Error("singular matrix inverse should fall back to identity")
	}
}

func TestNormalMatrix(t *testing.T) {
	// Non-uniform scale: the normal of the plane x = y must stay perpendicular to it.
	m := Scale(2, 1, 1)
	n := m.NormalMatrix().TransformDirection(Vec3{1, -1, 0}).Normalize()
	tangent := m.TransformDirection(Vec3{1, 1, 0})

	if dot := n.Dot(tangent); math.Abs(dot) > 1e-12 {
		t.Errorf("transformed normal not perpendicular to transformed tangent, dot = %v", dot)
	}
}

func TestFloat32RoundTrip(t *testing.T) {
	m := Translate(1.5, 2.25, -8)
	if got := FromFloat32(m.Float32()); got != m {
		t.Errorf("FromFloat32(Float32()): got %v, want %v", got, m)
	}
}

func TestCompose(t *testing.T) {
	m := Compose(Vec3{0, -3, 0}, QuatIdentity(), Vec3{6, 0.5, 6})
	got := m.TransformPoint(Vec3{1, 1, 1})

	expected := Vec3{6, -2.5, 6}
	if got != expected {
		t.Errorf("Compose: got %v, want %v", got, expected)
	}
}
