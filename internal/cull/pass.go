package cull

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/hiz-cull-go/common"
	"github.com/Carmen-Shannon/hiz-cull-go/internal/meshset"
)

// WorkgroupSize is the compute shader's thread-block size (spec.md §4.4:
// "the shader's thread-block size is 64").
const WorkgroupSize = 64

// zeroCounterSize is the width of the reset write: a single zero u32.
const zeroCounterSize = 4

// Pass owns the culling compute pipeline, its bind group layouts, and the
// zero buffer used to reset each mesh's append counter. The small per-mesh
// uniform buffer that stands in for the reference design's root constants
// is created by each Dispatch call.
type Pass struct {
	device   *wgpu.Device
	queue    *wgpu.Queue
	pipeline *wgpu.ComputePipeline

	sceneBindGroupLayout *wgpu.BindGroupLayout
	hizBindGroupLayout   *wgpu.BindGroupLayout
	meshBindGroupLayout  *wgpu.BindGroupLayout

	zeroBuffer *wgpu.Buffer
}

// New creates the culling pass against a compute pipeline supplied by the
// caller — the compute shader's WGSL source is an external collaborator,
// out of this core's scope per spec.md §1.
func New(device *wgpu.Device, queue *wgpu.Queue, pipeline *wgpu.ComputePipeline) (*Pass, error) {
	p := &Pass{
		device:   device,
		queue:    queue,
		pipeline: pipeline,
	}

	p.sceneBindGroupLayout = pipeline.GetBindGroupLayout(0)
	p.hizBindGroupLayout = pipeline.GetBindGroupLayout(1)
	p.meshBindGroupLayout = pipeline.GetBindGroupLayout(2)

	zero, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "cull counter reset",
		Size:  zeroCounterSize,
		Usage: wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create counter reset buffer: %w", err)
	}
	queue.WriteBuffer(zero, 0, make([]byte, zeroCounterSize))
	p.zeroBuffer = zero

	return p, nil
}

// SceneBindGroup builds the group-0 bind group (scene constants uniform).
func (p *Pass) SceneBindGroup(sceneConstants *wgpu.Buffer) (*wgpu.BindGroup, error) {
	return p.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "cull scene constants",
		Layout: p.sceneBindGroupLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: sceneConstants, Size: wgpu.WholeSize},
		},
	})
}

// HiZBindGroup builds the group-1 bind group (Hi-Z SRV + sampler).
func (p *Pass) HiZBindGroup(hizView *wgpu.TextureView, sampler *wgpu.Sampler) (*wgpu.BindGroup, error) {
	return p.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "cull hiz srv",
		Layout: p.hizBindGroupLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: hizView},
			{Binding: 1, Sampler: sampler},
		},
	})
}

// meshBindGroup builds the group-2 bind group: the per-mesh GPUCullParams
// uniform at binding 0, then the source instance storage buffer
// (read-only) and the compacted instance storage buffer (read-write) at
// bindings 1 and 2, the latter two matching spec.md §4.4's two-slot
// descriptor table.
func (p *Pass) meshBindGroup(m *meshset.Mesh, params *wgpu.Buffer) (*wgpu.BindGroup, error) {
	return p.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  fmt.Sprintf("cull mesh %s", m.Name),
		Layout: p.meshBindGroupLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: params, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: m.SourceInstances, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: m.CompactedInstances, Size: wgpu.WholeSize},
		},
	})
}

// PreparedDispatch is the CPU-only work for one mesh's culling dispatch —
// marshaling its GPUCullParams — split out so the frame orchestrator can
// fan this part across goroutines (mirroring the teacher's Phase
// 1/Phase 2 split in scene.PrepareCompute) while keeping the actual
// encoder recording, which is not safe to parallelize, serial.
type PreparedDispatch struct {
	mesh   *meshset.Mesh
	params GPUCullParams
}

// Prepare computes mesh m's GPUCullParams from its object-space bounds.
// Pure CPU work: safe to call concurrently across meshes.
func (p *Pass) Prepare(m *meshset.Mesh, bounds common.AABB) (PreparedDispatch, error) {
	if m.Occluder {
		return PreparedDispatch{}, fmt.Errorf("cull: mesh %q is an occluder and must not be dispatched", m.Name)
	}
	return PreparedDispatch{
		mesh: m,
		params: GPUCullParams{
			InstanceCount: m.SourceInstanceCount,
			BoundsCenter:  bounds.Center,
			BoundsExtents: bounds.Extents,
		},
	}, nil
}

// Dispatch records one mesh's culling dispatch: reset the compacted
// buffer's trailing counter, bind its SRV/UAV pair plus the per-mesh
// params, and dispatch ceil(instance_count/64) workgroups, following
// spec.md §4.4's per-mesh sequence exactly (steps 1-3's resource-state
// transitions have no WebGPU equivalent and are omitted — a storage buffer
// needs no transition between CopyBufferToBuffer and compute-shader use).
// Must be called serially against a single encoder. timestamps is optional
// (nil skips query writes); the orchestrator supplies it only on the first
// and last dispatch of a frame's mesh loop so the cull-dispatch GPU
// duration spans the whole phase, per SPEC_FULL.md §3's supplemented
// per-pass timestamp feature.
func (p *Pass) Dispatch(encoder *wgpu.CommandEncoder, prepared PreparedDispatch, sceneBindGroup, hizBindGroup *wgpu.BindGroup, timestamps *wgpu.ComputePassTimestampWrites) error {
	m := prepared.mesh

	encoder.CopyBufferToBuffer(p.zeroBuffer, 0, m.CompactedInstances, m.CounterOffset, zeroCounterSize)

	paramsBuf, err := p.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: fmt.Sprintf("cull params %s", m.Name),
		Size:  uint64(prepared.params.Size()),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create cull params buffer for %q: %w", m.Name, err)
	}
	p.queue.WriteBuffer(paramsBuf, 0, prepared.params.Marshal())

	meshBindGroup, err := p.meshBindGroup(m, paramsBuf)
	if err != nil {
		return fmt.Errorf("create mesh bind group for %q: %w", m.Name, err)
	}

	pass := encoder.BeginComputePass(&wgpu.ComputePassDescriptor{TimestampWrites: timestamps})
	pass.SetPipeline(p.pipeline)
	pass.SetBindGroup(0, sceneBindGroup, nil)
	pass.SetBindGroup(1, hizBindGroup, nil)
	pass.SetBindGroup(2, meshBindGroup, nil)

	workgroups := (m.SourceInstanceCount + WorkgroupSize - 1) / WorkgroupSize
	if workgroups == 0 {
		workgroups = 1
	}
	pass.DispatchWorkgroups(workgroups, 1, 1)
	pass.End()

	return nil
}
