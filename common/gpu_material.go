package common

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUMaterialDataSource is the canonical WGSL definition of the MaterialData
// struct. Matches GPUMaterialData layout exactly (112 bytes).
//
//go:embed assets/material_data.wgsl
var GPUMaterialDataSource string

// GPUMaterialData is one row of the per-frame material upload table
// (internal/frameres), indexed by an instance's material index.
// Matches the WGSL MaterialData struct layout exactly (see
// GPUMaterialDataSource). Size: 112 bytes.
type GPUMaterialData struct {
	DiffuseAlbedo      [4]float32  // offset 0: albedo RGBA (16 bytes)
	FresnelR0          [3]float32  // offset 16: Fresnel reflectance at normal incidence (12 bytes)
	Roughness          float32     // offset 28: surface roughness (4 bytes)
	MaterialTransform [16]float32 // offset 32: texture-coordinate transform, column-major (64 bytes)
	DiffuseMapIndex   uint32      // offset 96: index into the diffuse texture table (4 bytes)
	NormalMapIndex    uint32      // offset 100: index into the normal-map texture table (4 bytes)
	_pad0             uint32      // offset 104: alignment padding (4 bytes)
	_pad1             uint32      // offset 108: alignment padding (4 bytes)
}

// Size returns the size of GPUMaterialData in bytes.
func (m *GPUMaterialData) Size() int {
	return int(unsafe.Sizeof(*m))
}

// Marshal serializes GPUMaterialData into a buffer for GPU upload.
func (m *GPUMaterialData) Marshal() []byte {
	buf := make([]byte, m.Size())
	off := 0
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(m.DiffuseAlbedo[i]))
		off += 4
	}
	putVec3(buf[off:off+12], m.FresnelR0)
	off += 12
	binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(m.Roughness))
	off += 4
	for i := 0; i < 16; i++ {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(m.MaterialTransform[i]))
		off += 4
	}
	binary.LittleEndian.PutUint32(buf[off:off+4], m.DiffuseMapIndex)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:off+4], m.NormalMapIndex)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:off+4], m._pad0)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:off+4], m._pad1)
	return buf
}

// UnmarshalMaterialData parses a buffer produced by Marshal back into a
// GPUMaterialData, the inverse transform.
func UnmarshalMaterialData(buf []byte) GPUMaterialData {
	var m GPUMaterialData
	off := 0
	for i := 0; i < 4; i++ {
		m.DiffuseAlbedo[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[off : off+4]))
		off += 4
	}
	for i := 0; i < 3; i++ {
		m.FresnelR0[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[off : off+4]))
		off += 4
	}
	m.Roughness = math.Float32frombits(binary.LittleEndian.Uint32(buf[off : off+4]))
	off += 4
	for i := 0; i < 16; i++ {
		m.MaterialTransform[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[off : off+4]))
		off += 4
	}
	m.DiffuseMapIndex = binary.LittleEndian.Uint32(buf[off : off+4])
	off += 4
	m.NormalMapIndex = binary.LittleEndian.Uint32(buf[off : off+4])
	off += 4
	m._pad0 = binary.LittleEndian.Uint32(buf[off : off+4])
	off += 4
	m._pad1 = binary.LittleEndian.Uint32(buf[off : off+4])
	return m
}
