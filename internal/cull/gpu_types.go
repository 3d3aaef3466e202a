package cull

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// GPUCullParamsSource is the canonical WGSL definition of the CullParams
// struct. Matches GPUCullParams layout exactly (32 bytes).
//
//go:embed assets/cull_params.wgsl
var GPUCullParamsSource string

// GPUCullParams is the per-mesh uniform written once per frame before that
// mesh's culling dispatch, replacing the seven root constants
// (instance_count, bounding-box center, bounding-box extents) the
// reference design binds directly. Size: 32 bytes.
type GPUCullParams struct {
	InstanceCount uint32     // offset 0 (4 bytes)
	BoundsCenter  mgl32.Vec3 // offset 4: object-space AABB center (12 bytes)
	BoundsExtents mgl32.Vec3 // offset 16: object-space AABB extents (12 bytes)
	_pad          uint32     // offset 28 (4 bytes)
}

// Size returns the size of GPUCullParams in bytes.
func (p *GPUCullParams) Size() int { return int(unsafe.Sizeof(*p)) }

// Marshal serializes GPUCullParams into a 32-byte buffer for GPU upload.
func (p *GPUCullParams) Marshal() []byte {
	buf := make([]byte, p.Size())
	binary.LittleEndian.PutUint32(buf[0:4], p.InstanceCount)
	for k := 0; k < 3; k++ {
		binary.LittleEndian.PutUint32(buf[4+k*4:8+k*4], math.Float32bits(p.BoundsCenter[k]))
	}
	for k := 0; k < 3; k++ {
		binary.LittleEndian.PutUint32(buf[16+k*4:20+k*4], math.Float32bits(p.BoundsExtents[k]))
	}
	binary.LittleEndian.PutUint32(buf[28:32], p._pad)
	return buf
}
