package meshset

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUInstanceDataSource is the canonical WGSL definition of the
// InstanceData struct. Matches GPUInstanceData layout exactly (144 bytes).
//
//go:embed assets/instance_data.wgsl
var GPUInstanceDataSource string

// GPUInstanceData is one instance record: a fixed-size world transform,
// texture transform, and material index, built once at scene load and
// never mutated afterward (spec.md §3's "Instance" data model).
// Matches the WGSL InstanceData struct layout exactly (see
// GPUInstanceDataSource). Size: 144 bytes.
type GPUInstanceData struct {
	World         [16]float32 // offset 0: world matrix, column-major (64 bytes)
	TexTransform  [16]float32 // offset 64: texture-coordinate transform, column-major (64 bytes)
	MaterialIndex uint32      // offset 128: index into the per-frame material table (4 bytes)
	_pad          [3]uint32   // offset 132: padding to 16-byte alignment (12 bytes)
}

// Size returns the size of GPUInstanceData in bytes.
func (i *GPUInstanceData) Size() int {
	return int(unsafe.Sizeof(*i))
}

// Marshal serializes GPUInstanceData into a 144-byte buffer for GPU upload.
func (i *GPUInstanceData) Marshal() []byte {
	buf := make([]byte, i.Size())
	off := 0
	for k := 0; k < 16; k++ {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(i.World[k]))
		off += 4
	}
	for k := 0; k < 16; k++ {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(i.TexTransform[k]))
		off += 4
	}
	binary.LittleEndian.PutUint32(buf[off:off+4], i.MaterialIndex)
	off += 4
	for k := 0; k < 3; k++ {
		binary.LittleEndian.PutUint32(buf[off:off+4], i._pad[k])
		off += 4
	}
	return buf
}
