package common

import "testing"

func TestGPUMaterialData_RoundTrip(t *testing.T) {
	m := GPUMaterialData{
		DiffuseAlbedo: [4]float32{0.5, 0.25, 0.1, 1},
		FresnelR0:     [3]float32{0.04, 0.04, 0.04},
		Roughness:     0.6,
		DiffuseMapIndex: 3,
		NormalMapIndex:  7,
	}
	m.MaterialTransform[0] = 1
	m.MaterialTransform[5] = 1
	m.MaterialTransform[10] = 1
	m.MaterialTransform[15] = 1

	buf := m.Marshal()
	if len(buf) != m.Size() {
		t.Fatalf("Marshal produced %d bytes, want %d", len(buf), m.Size())
	}

	got := UnmarshalMaterialData(buf)
	if got.DiffuseAlbedo != m.DiffuseAlbedo {
		t.Errorf("DiffuseAlbedo round-trip mismatch: got %v, want %v", got.DiffuseAlbedo, m.DiffuseAlbedo)
	}
	if got.FresnelR0 != m.FresnelR0 {
		t.Errorf("FresnelR0 round-trip mismatch: got %v, want %v", got.FresnelR0, m.FresnelR0)
	}
	if got.Roughness != m.Roughness {
		t.Errorf("Roughness round-trip mismatch: got %v, want %v", got.Roughness, m.Roughness)
	}
	if got.MaterialTransform != m.MaterialTransform {
		t.Errorf("MaterialTransform round-trip mismatch")
	}
	if got.DiffuseMapIndex != m.DiffuseMapIndex || got.NormalMapIndex != m.NormalMapIndex {
		t.Errorf("texture indices round-trip mismatch: got (%d,%d), want (%d,%d)",
			got.DiffuseMapIndex, got.NormalMapIndex, m.DiffuseMapIndex, m.NormalMapIndex)
	}
}

func TestGPUMaterialData_Size(t *testing.T) {
	var m GPUMaterialData
	if m.Size() != 112 {
		t.Fatalf("GPUMaterialData size = %d, want 112", m.Size())
	}
}
