package indirect

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/hiz-cull-go/internal/meshset"
)

// entry is one mesh's bookkeeping inside a CommandTable: the record as last
// written, plus the two candidate instancesShaderView addresses so mode
// transitions don't need to re-derive them.
type entry struct {
	mesh            *meshset.Mesh
	record          IndirectCommand
	sourceSRVAddr   uint64
	compactedSRVAddr uint64
}

// CommandTable is the GPU-resident buffer of per-mesh IndirectCommand
// records plus the CPU-side mirror used to patch and rewrite it.
type CommandTable struct {
	device *wgpu.Device
	queue  *wgpu.Queue
	buffer *wgpu.Buffer

	entries       []entry
	cullingEnabled bool
}

// Build constructs the command table for the given meshes, in the order
// supplied (this fixes each mesh's integer index for the rest of the
// frame loop, per spec.md §9's dense mesh-id table note). sourceSRVAddr and
// compactedSRVAddr are the raw GPU addresses of each mesh's instance
// buffers — WebGPU has no raw-address concept, so these are the core's own
// synthetic addressing scheme (see SPEC_FULL.md §4.3): a monotonic index
// the culling and render passes use to select the matching bind group
// rather than a literal pointer.
func Build(device *wgpu.Device, queue *wgpu.Queue, meshes []*meshset.Mesh) (*CommandTable, error) {
	t := &CommandTable{
		device:  device,
		queue:   queue,
		entries: make([]entry, len(meshes)),
	}

	for i, m := range meshes {
		sourceAddr := uint64(i)<<1 | 0
		compactedAddr := uint64(i)<<1 | 1

		rec := IndirectCommand{
			VertexBufferSize:      0,
			VertexBufferStride:    0,
			IndexBufferFormat:     IndexFormatU32,
			InstanceSRVAddr:       sourceAddr,
			IndexCountPerInstance: m.IndexCount,
			InstanceCount:         m.SourceInstanceCount,
			StartIndexLocation:    0,
			BaseVertexLocation:    0,
			StartInstanceLocation: 0,
		}

		t.entries[i] = entry{
			mesh:             m,
			record:           rec,
			sourceSRVAddr:    sourceAddr,
			compactedSRVAddr: compactedAddr,
		}
	}

	size := uint64(len(meshes)) * IndirectCommandSize
	if size == 0 {
		size = IndirectCommandSize
	}
	buf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "indirect command table",
		Size:  size,
		Usage: wgpu.BufferUsageIndirect | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("create command table buffer: %w", err)
	}
	t.buffer = buf

	t.writeAll()
	return t, nil
}

// Buffer returns the underlying GPU buffer.
func (t *CommandTable) Buffer() *wgpu.Buffer { return t.buffer }

// Len returns the number of mesh records in the table.
func (t *CommandTable) Len() int { return len(t.entries) }

// Record returns the CPU-side mirror of mesh i's record.
func (t *CommandTable) Record(i int) IndirectCommand { return t.entries[i].record }

// Mesh returns the mesh backing record i.
func (t *CommandTable) Mesh(i int) *meshset.Mesh { return t.entries[i].mesh }

func (t *CommandTable) writeAll() {
	for i := range t.entries {
		t.writeEntry(i)
	}
}

func (t *CommandTable) writeEntry(i int) {
	rec := t.entries[i].record
	t.queue.WriteBuffer(t.buffer, uint64(i)*IndirectCommandSize, rec.Marshal())
}

// SetCullingMode rewrites the instancesShaderView field of every
// non-occluder record (to the compacted or source address) in a single
// pass, matching spec.md §4.3's mode-transition contract. Occluder records
// always keep their source address per spec.md's invariant that occluders
// are never culled.
func (t *CommandTable) SetCullingMode(enabled bool) {
	if t.cullingEnabled == enabled {
		return
	}
	t.cullingEnabled = enabled

	for i := range t.entries {
		e := &t.entries[i]
		if e.mesh.Occluder {
			continue
		}
		if enabled {
			e.record.InstanceSRVAddr = e.compactedSRVAddr
		} else {
			e.record.InstanceSRVAddr = e.sourceSRVAddr
			e.record.InstanceCount = e.mesh.SourceInstanceCount
		}
		t.writeEntry(i)
	}
}

// PatchInstanceCounts copies each non-occluder mesh's compacted-buffer
// append counter into its record's InstanceCount slot via
// CopyBufferToBuffer (WebGPU's CopyBufferRegion equivalent), matching
// spec.md §4.3's per-frame patching contract. Only meaningful when culling
// is enabled; callers must ensure the graphics queue has already waited on
// the compute fence for this frame's culling dispatches.
func (t *CommandTable) PatchInstanceCounts(encoder *wgpu.CommandEncoder) {
	if !t.cullingEnabled {
		return
	}
	for i := range t.entries {
		e := &t.entries[i]
		if e.mesh.Occluder {
			continue
		}
		dstOffset := uint64(i)*IndirectCommandSize + offInstanceCount
		encoder.CopyBufferToBuffer(e.mesh.CompactedInstances, e.mesh.CounterOffset, t.buffer, dstOffset, 4)
	}
}

// ReadBackInstanceCounts copies every record's InstanceCount word into dst,
// one u32 per mesh in table order, for the HUD readback buffer spec.md
// §4.5 step 5 describes. dst must be at least 4*Len() bytes long.
func (t *CommandTable) ReadBackInstanceCounts(encoder *wgpu.CommandEncoder, dst *wgpu.Buffer) {
	for i := range t.entries {
		srcOffset := uint64(i)*IndirectCommandSize + offInstanceCount
		encoder.CopyBufferToBuffer(t.buffer, srcOffset, dst, uint64(i)*4, 4)
	}
}
