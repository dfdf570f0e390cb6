package math

import "testing"

func TestIdentity(t *testing.T) {
	m := Identity()
	if m[0] != 1 || m[5] != 1 || m[10] != 1 || m[15] != 1 {
		t.Error("Identity diagonal should be 1")
	}
	if m[1] != 0 || m[4] != 0 {
		t.Error("Identity off-diagonal should be 0")
	}
}

func TestMulIdentity(t *testing.T) {
	m := Translate(1, 2, 3)
	result := m.Mul(Identity())

	if result != m {
		t.Errorf("M * I should equal M: got %v, want %v", result, m)
	}
}

func TestTranslate(t *testing.T) {
	m := Translate(5, 10, 15)

	// Translation lives in column 4 (indices 12, 13, 14)
	if m[12] != 5 || m[13] != 10 || m[14] != 15 {
		t.Errorf("Translate: got (%f, %f, %f), want (5, 10, 15)", m[12], m[13], m[14])
	}
}

func TestScale(t *testing.T) {
	m := Scale(2, 3, 4)

	if m[0] != 2 || m[5] != 3 || m[10] != 4 {
		t.Errorf("Scale diagonal: got (%f, %f, %f), want (2, 3, 4)", m[0], m[5], m[10])
	}
}

// apply returns the affine transform m applied to p.
func apply(m Mat4, p [3]float32) [3]float32 {
	r := m.Mul(Translate(p[0], p[1], p[2]))
	return [3]float32{r[12], r[13], r[14]}
}

func TestMulApply(t *testing.T) {
	tests := []struct {
		name string
		m    Mat4
		p    [3]float32
		want [3]float32
	}{
		{"translate", Translate(10, 20, 30), [3]float32{1, 2, 3}, [3]float32{11, 22, 33}},
		{"scale", Scale(2, 2, 2), [3]float32{1, 2, 3}, [3]float32{2, 4, 6}},
		{"scale then translate", Translate(1, 1, 0).Mul(Scale(100, 100, 1)), [3]float32{1, 1, 0}, [3]float32{101, 101, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := apply(tt.m, tt.p); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOrtho2DCorners(t *testing.T) {
	// Pixel-space projection centred on the origin.
	m := Ortho2D(-320, 320, -240, 240)

	tests := []struct {
		p    [3]float32
		want [3]float32
	}{
		{[3]float32{-320, -240, 0}, [3]float32{-1, -1, 0}},
		{[3]float32{320, 240, 0}, [3]float32{1, 1, 0}},
		{[3]float32{0, 0, 0}, [3]float32{0, 0, 0}},
	}
	for _, tt := range tests {
		got := apply(m, tt.p)
		for i := range got {
			if abs(got[i]-tt.want[i]) > 1e-5 {
				t.Errorf("Ortho2D(%v): got %v, want %v", tt.p, got, tt.want)
				break
			}
		}
	}
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

func TestArrayAliases(t *testing.T) {
	m := Identity()
	a := m.Array()
	a[12] = 7
	if m[12] != 7 {
		t.Error("Array should alias the matrix storage")
	}
}
