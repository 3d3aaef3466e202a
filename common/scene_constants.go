package common

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// MaxSceneLights is the fixed light-array length carried by GPUSceneConstants,
// matching the bit-exact layout in the scene constants contract.
const MaxSceneLights = 16

// GPULightSource is the canonical WGSL definition of the Light struct.
// Matches GPULight layout exactly (48 bytes).
//
//go:embed assets/light.wgsl
var GPULightSource string

// GPULight is the GPU-aligned per-light record.
// Matches the WGSL Light struct layout exactly (see GPULightSource).
// Size: 48 bytes.
type GPULight struct {
	Strength      [3]float32 // offset 0: radiant intensity (12 bytes)
	FalloffStart  float32    // offset 12: point/spot falloff start distance (4 bytes)
	Direction     [3]float32 // offset 16: directional/spot light direction (12 bytes)
	FalloffEnd    float32    // offset 28: point/spot falloff end distance (4 bytes)
	Position      [3]float32 // offset 32: point/spot light position (12 bytes)
	SpotPower     float32    // offset 44: spot light cone exponent (4 bytes)
}

// Size returns the size of GPULight in bytes.
func (l *GPULight) Size() int {
	return int(unsafe.Sizeof(*l))
}

// Marshal serializes GPULight into a 48-byte buffer for GPU upload.
func (l *GPULight) Marshal() []byte {
	buf := make([]byte, 48)
	putVec3(buf[0:12], l.Strength)
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(l.FalloffStart))
	putVec3(buf[16:28], l.Direction)
	binary.LittleEndian.PutUint32(buf[28:32], math.Float32bits(l.FalloffEnd))
	putVec3(buf[32:44], l.Position)
	binary.LittleEndian.PutUint32(buf[44:48], math.Float32bits(l.SpotPower))
	return buf
}

// GPUSceneConstantsSource is the canonical WGSL definition of the
// SceneConstants struct. Matches GPUSceneConstants layout exactly (944
// bytes, std140 aligned).
//
//go:embed assets/scene_constants.wgsl
var GPUSceneConstantsSource string

// GPUSceneConstants is the per-frame uniform written by the CPU into the
// frame-resources ring (internal/frameres) and bound by every pass that
// consumes the view/projection/light state. Matches the WGSL SceneConstants
// struct layout exactly (see GPUSceneConstantsSource).
// Size: 944 bytes.
type GPUSceneConstants struct {
	View         [16]float32                // offset 0: view matrix, column-major (64 bytes)
	Proj         [16]float32                // offset 64: projection matrix, column-major (64 bytes)
	ViewportSize [4]float32                  // offset 128: width, height, 1/width, 1/height (16 bytes)
	EyePos       [3]float32                  // offset 144: world-space eye position (12 bytes)
	_pad         float32                     // offset 156: alignment padding (4 bytes)
	Ambient      [4]float32                  // offset 160: ambient RGBA term (16 bytes)
	Lights       [MaxSceneLights]GPULight    // offset 176: bounded light array (768 bytes)
}

// Size returns the size of GPUSceneConstants in bytes.
func (s *GPUSceneConstants) Size() int {
	return int(unsafe.Sizeof(*s))
}

// Marshal serializes GPUSceneConstants into a 944-byte buffer for GPU
// upload, matching the bit-exact wire layout published in the scene
// constants contract.
func (s *GPUSceneConstants) Marshal() []byte {
	buf := make([]byte, s.Size())
	off := 0
	for i := 0; i < 16; i++ {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(s.View[i]))
		off += 4
	}
	for i := 0; i < 16; i++ {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(s.Proj[i]))
		off += 4
	}
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(s.ViewportSize[i]))
		off += 4
	}
	putVec3(buf[off:off+12], s.EyePos)
	off += 12
	binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(s._pad))
	off += 4
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(s.Ambient[i]))
		off += 4
	}
	for i := range s.Lights {
		copy(buf[off:off+48], s.Lights[i].Marshal())
		off += 48
	}
	return buf
}

func putVec3(dst []byte, v [3]float32) {
	binary.LittleEndian.PutUint32(dst[0:4], math.Float32bits(v[0]))
	binary.LittleEndian.PutUint32(dst[4:8], math.Float32bits(v[1]))
	binary.LittleEndian.PutUint32(dst[8:12], math.Float32bits(v[2]))
}
