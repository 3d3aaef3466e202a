// Package frameres owns the per-pipeline-slot upload buffer ring: one
// scene-constants buffer and one material-table buffer per frame in
// flight. See SPEC_FULL.md §4.6.
package frameres

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/hiz-cull-go/common"
)

// UniformAlignment is the byte alignment constant-buffer-usage storage
// requires, matching spec.md §4.6's 256-byte element alignment.
const UniformAlignment = 256

// alignUp rounds size up to the next multiple of UniformAlignment.
func alignUp(size uint64) uint64 {
	return (size + UniformAlignment - 1) &^ (UniformAlignment - 1)
}

// slot is one pipeline slot's pair of upload buffers.
type slot struct {
	sceneConstants *wgpu.Buffer
	materials      *wgpu.Buffer
}

// Ring is the rotating set of per-frame upload buffers, sized to the
// device context's pipeline depth. Rotation is strict round-robin; callers
// must wait on the graphics fence for a slot before writing into it
// (spec.md §4.6).
type Ring struct {
	device *wgpu.Device
	queue  *wgpu.Queue

	slots        []slot
	current      int
	materialCount int
}

// New allocates depth slots, each with a scene-constants buffer (one
// element, 256-byte rounded) and a material-table buffer sized for
// materialCount rows.
func New(device *wgpu.Device, queue *wgpu.Queue, depth, materialCount int) (*Ring, error) {
	r := &Ring{
		device:        device,
		queue:         queue,
		slots:         make([]slot, depth),
		materialCount: materialCount,
	}

	sceneSize := alignUp(uint64(new(common.GPUSceneConstants).Size()))
	materialElemSize := alignUp(uint64(new(common.GPUMaterialData).Size()))
	materialsSize := materialElemSize * uint64(materialCount)
	if materialsSize == 0 {
		materialsSize = materialElemSize
	}

	for i := range r.slots {
		sceneBuf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: fmt.Sprintf("scene constants slot %d", i),
			Size:  sceneSize,
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, fmt.Errorf("create scene constants buffer slot %d: %w", i, err)
		}

		matBuf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: fmt.Sprintf("material table slot %d", i),
			Size:  materialsSize,
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, fmt.Errorf("create material table buffer slot %d: %w", i, err)
		}

		r.slots[i] = slot{sceneConstants: sceneBuf, materials: matBuf}
	}

	return r, nil
}

// Depth returns the number of pipeline slots.
func (r *Ring) Depth() int { return len(r.slots) }

// Advance moves to the next slot in round-robin order. Callers must have
// already waited on the graphics fence for the new current slot before
// calling WriteSceneConstants/WriteMaterial.
func (r *Ring) Advance() {
	r.current = (r.current + 1) % len(r.slots)
}

// Current returns the index of the active pipeline slot.
func (r *Ring) Current() int { return r.current }

// SceneConstantsBuffer returns the active slot's scene-constants buffer.
func (r *Ring) SceneConstantsBuffer() *wgpu.Buffer { return r.slots[r.current].sceneConstants }

// MaterialsBuffer returns the active slot's material-table buffer.
func (r *Ring) MaterialsBuffer() *wgpu.Buffer { return r.slots[r.current].materials }

// WriteSceneConstants uploads the scene constants into the active slot.
func (r *Ring) WriteSceneConstants(c *common.GPUSceneConstants) {
	r.queue.WriteBuffer(r.slots[r.current].sceneConstants, 0, c.Marshal())
}

// WriteMaterial uploads one material row at index into the active slot's
// material table, aligned to UniformAlignment per row.
func (r *Ring) WriteMaterial(index int, m *common.GPUMaterialData) error {
	if index < 0 || index >= r.materialCount {
		return fmt.Errorf("frameres: material index %d out of range [0,%d)", index, r.materialCount)
	}
	elemSize := alignUp(uint64(m.Size()))
	r.queue.WriteBuffer(r.slots[r.current].materials, uint64(index)*elemSize, m.Marshal())
	return nil
}
