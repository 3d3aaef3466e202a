package orchestrator

import (
	"encoding/binary"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// FrameStats is a toggleable debug summary derived from state this core
// already maintains, supplementing spec.md's distilled scope with a
// feature the original demo carries (see SPEC_FULL.md §3). It never draws
// anything itself — HUD rendering stays out of scope per spec.md §1.
type FrameStats struct {
	// PerMeshInstanceCount is each mesh's patched InstanceCount word, in
	// CommandTable order, read back from the same buffer
	// ReadBackInstanceCounts already populates every frame.
	PerMeshInstanceCount []uint32
}

// FrameStats maps the instance-count readback buffer and returns the
// current per-mesh draw counts. Must be called after a frame with culling
// enabled has fully retired (after RunFrame returns), mirroring
// gpudevice.Context.FrameTimings' map/poll/unmap shape.
func (o *Orchestrator) FrameStats() (FrameStats, error) {
	var result FrameStats
	var mapErr error
	mapped := false

	size := uint64(o.table.Len()) * 4
	if size == 0 {
		return result, nil
	}

	o.readbackBuffer.MapAsync(wgpu.MapModeRead, 0, size, func(status wgpu.BufferMapAsyncStatus) {
		if status == wgpu.BufferMapAsyncStatusSuccess {
			mapped = true
		} else {
			mapErr = fmt.Errorf("orchestrator: instance count readback map failed: %v", status)
		}
	})

	for !mapped && mapErr == nil {
		o.device.Device().Poll(true, nil)
	}
	if mapErr != nil {
		return result, mapErr
	}
	defer o.readbackBuffer.Unmap()

	data := o.readbackBuffer.GetMappedRange(0, uint(size))
	counts := make([]uint32, o.table.Len())
	for i := range counts {
		counts[i] = binary.LittleEndian.Uint32(data[i*4 : i*4+4])
	}
	result.PerMeshInstanceCount = counts
	return result, nil
}
