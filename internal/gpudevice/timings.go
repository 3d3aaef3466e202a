package gpudevice

import (
	"encoding/binary"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// FrameTimings is the interpreted form of the four-slot timestamp heap
// ResolveTimestamps copies into the readback buffer: occluder-pass and
// cull-dispatch GPU durations for the frame that was just submitted.
// Supplements spec.md's distilled scope with the original demo's per-pass
// timestamp queries (see SPEC_FULL.md §3), read back the way the teacher's
// Profiler reports CPU frame timing via log.Printf, except sourced from
// GPU timestamp queries rather than the wall clock.
type FrameTimings struct {
	OccluderTicks uint64 // occluder pre-pass GPU duration, raw queue ticks
	CullTicks     uint64 // cull-dispatch GPU duration, raw queue ticks
}

// The 4-slot timestamp heap layout: each pass writes a begin tick then an
// end tick at its assigned pair of slots. Exported so callers recording
// passes (internal/hiz, internal/cull, via internal/orchestrator) can build
// the RenderPassTimestampWrites/ComputePassTimestampWrites descriptors that
// target the same slots FrameTimings later interprets.
const (
	SlotOccluderBegin = 0
	SlotOccluderEnd   = 1
	SlotCullBegin     = 2
	SlotCullEnd       = 3
)

// FrameTimings maps the timestamp readback buffer and interprets it. Must
// be called after ResolveTimestamps has been submitted and retired (i.e.
// after WaitForGPU), or the read observes a stale or partially-written
// frame. Ticks are in the device's native timestamp units; this core does
// not assume a fixed nanosecond period across backends, matching spec.md
// §9's note that the original never reconciles timestamp units across
// branches either — callers that need wall-clock time convert using
// whatever adapter-reported period their backend exposes.
func (c *Context) FrameTimings() (FrameTimings, error) {
	var result FrameTimings
	var mapErr error
	mapped := false

	size := uint64(TimestampSlotCount * 8)
	c.timestampReadback.MapAsync(wgpu.MapModeRead, 0, size, func(status wgpu.BufferMapAsyncStatus) {
		if status == wgpu.BufferMapAsyncStatusSuccess {
			mapped = true
		} else {
			mapErr = fmt.Errorf("gpudevice: timestamp readback map failed: %v", status)
		}
	})

	for !mapped && mapErr == nil {
		c.device.Poll(true, nil)
	}
	if mapErr != nil {
		return result, mapErr
	}
	defer c.timestampReadback.Unmap()

	data := c.timestampReadback.GetMappedRange(0, uint(size))
	var ticks [TimestampSlotCount]uint64
	for i := range ticks {
		ticks[i] = binary.LittleEndian.Uint64(data[i*8 : i*8+8])
	}

	result.OccluderTicks = ticks[SlotOccluderEnd] - ticks[SlotOccluderBegin]
	result.CullTicks = ticks[SlotCullEnd] - ticks[SlotCullBegin]
	return result, nil
}
