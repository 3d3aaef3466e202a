package meshset

import "testing"

func TestAlignForUAVCounter(t *testing.T) {
	tests := []struct {
		size uint64
		want uint64
	}{
		{0, 0},
		{1, 4096},
		{4096, 4096},
		{4097, 8192},
		{144 * 1000, 147456},
	}
	for _, tc := range tests {
		if got := AlignForUAVCounter(tc.size); got != tc.want {
			t.Errorf("AlignForUAVCounter(%d) = %d, want %d", tc.size, got, tc.want)
		}
	}
}

func TestSet_OrderedIsStable(t *testing.T) {
	s := NewSet()
	a := &Mesh{Name: "a"}
	b := &Mesh{Name: "b"}
	c := &Mesh{Name: "c"}
	s.Add(a)
	s.Add(b)
	s.Add(c)

	ordered := s.Ordered()
	if len(ordered) != 3 {
		t.Fatalf("Ordered() length = %d, want 3", len(ordered))
	}
	if ordered[0].Name != "a" || ordered[1].Name != "b" || ordered[2].Name != "c" {
		t.Fatalf("Ordered() = %v, want [a b c]", names(ordered))
	}

	// Re-adding an existing mesh must not change its index.
	s.Add(&Mesh{Name: "b", Occluder: true})
	ordered = s.Ordered()
	if len(ordered) != 3 {
		t.Fatalf("Ordered() length after re-add = %d, want 3", len(ordered))
	}
	if !ordered[1].Occluder {
		t.Fatal("re-adding mesh b should update its record in place, index unchanged")
	}
}

func names(meshes []*Mesh) []string {
	out := make([]string, len(meshes))
	for i, m := range meshes {
		out[i] = m.Name
	}
	return out
}

func TestSet_Get(t *testing.T) {
	s := NewSet()
	s.Add(&Mesh{Name: "rock"})

	if _, ok := s.Get("missing"); ok {
		t.Fatal("Get(\"missing\") should report ok=false")
	}
	m, ok := s.Get("rock")
	if !ok || m.Name != "rock" {
		t.Fatalf("Get(\"rock\") = %+v, %v", m, ok)
	}
}
