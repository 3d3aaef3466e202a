package common

import "testing"

func identityMatrix() []float32 {
	return []float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

func translationMatrix(x, y, z float32) []float32 {
	m := identityMatrix()
	m[12], m[13], m[14] = x, y, z
	return m
}

func TestAABB_WorldAABB_Identity(t *testing.T) {
	box := AABB{Center: [3]float32{1, 2, 3}, Extents: [3]float32{1, 1, 1}}
	got := box.WorldAABB(identityMatrix())
	if got.Center != box.Center || got.Extents != box.Extents {
		t.Fatalf("identity transform changed box: got %+v, want %+v", got, box)
	}
}

func TestAABB_WorldAABB_Translation(t *testing.T) {
	box := AABB{Center: [3]float32{0, 0, 0}, Extents: [3]float32{1, 1, 1}}
	got := box.WorldAABB(translationMatrix(5, -3, 2))
	want := [3]float32{5, -3, 2}
	if got.Center != want {
		t.Fatalf("translated center = %v, want %v", got.Center, want)
	}
	if got.Extents != box.Extents {
		t.Fatalf("translation must not change extents: got %v, want %v", got.Extents, box.Extents)
	}
}

func TestAABB_IntersectsFrustum(t *testing.T) {
	// A frustum whose only plane is "x >= -10" (positive half-space x >= -10).
	f := Frustum{Planes: [6]Plane{
		{Normal: [3]float32{1, 0, 0}, Distance: 10},
		{Normal: [3]float32{1, 0, 0}, Distance: 10},
		{Normal: [3]float32{1, 0, 0}, Distance: 10},
		{Normal: [3]float32{1, 0, 0}, Distance: 10},
		{Normal: [3]float32{1, 0, 0}, Distance: 10},
		{Normal: [3]float32{1, 0, 0}, Distance: 10},
	}}

	tests := []struct {
		name string
		box  AABB
		want bool
	}{
		{"fully inside", AABB{Center: [3]float32{0, 0, 0}, Extents: [3]float32{1, 1, 1}}, true},
		{"fully outside", AABB{Center: [3]float32{-20, 0, 0}, Extents: [3]float32{1, 1, 1}}, false},
		{"straddling boundary", AABB{Center: [3]float32{-10, 0, 0}, Extents: [3]float32{2, 2, 2}}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.box.IntersectsFrustum(f); got != tc.want {
				t.Errorf("IntersectsFrustum() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAABB_Corners_Count(t *testing.T) {
	box := AABB{Center: [3]float32{0, 0, 0}, Extents: [3]float32{2, 3, 4}}
	corners := box.Corners()
	if len(corners) != 8 {
		t.Fatalf("expected 8 corners, got %d", len(corners))
	}
	for _, c := range corners {
		for a := 0; a < 3; a++ {
			if c[a] != box.Center[a]+box.Extents[a] && c[a] != box.Center[a]-box.Extents[a] {
				t.Errorf("corner component %f is not center +/- extents", c[a])
			}
		}
	}
}
