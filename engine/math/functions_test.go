package math

import "testing"

func TestNormalizeDegrees(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"zero", 0, 0},
		{"within range", 135, 135},
		{"full turn", 360, 0},
		{"over one turn", 400, 40},
		{"many turns", 1080, 0},
		{"negative", -20, 340},
		{"negative turns", -380, 340},
		{"fractional", 720.5, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeDegrees(tt.in); got != tt.want {
				t.Errorf("NormalizeDegrees(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestMat4InverseRoundTrip(t *testing.T) {
	mt := NewMat4Translation(NewVec3(3, -2, 7)).Mul(NewMat4Scale(NewVec3(2, 2, 2)))
	identity := mt.Mul(mt.Inverse())

	want := NewMat4Identity()
	for i := 0; i < 16; i++ {
		if kabs(identity.Data[i]-want.Data[i]) > 1e-5 {
			t.Fatalf("element %d = %v, want %v", i, identity.Data[i], want.Data[i])
		}
	}
}

func TestMat4Transposed(t *testing.T) {
	mt := NewMat4Translation(NewVec3(1, 2, 3))
	tr := mt.Transposed()
	if tr.Data[3] != 1 || tr.Data[7] != 2 || tr.Data[11] != 3 {
		t.Errorf("translation row not transposed: %v", tr.Data)
	}
	if back := tr.Transposed(); back != mt {
		t.Errorf("double transpose changed the matrix")
	}
}

func TestVec3TransformTranslation(t *testing.T) {
	p := NewVec3(1, 1, 1).Transform(NewMat4Translation(NewVec3(10, 0, -5)))
	if !p.Compare(NewVec3(11, 1, -4), 1e-6) {
		t.Errorf("transform = %v", p)
	}
}

func TestVec3NormalizedZero(t *testing.T) {
	if got := NewVec3Zero().Normalized(); !got.IsZero() {
		t.Errorf("normalizing the zero vector should stay zero, got %v", got)
	}
}
