// Command hizculldemo wires the culling core's collaborators — surface,
// device context, mesh set, and orchestrator — against a small built-in
// scene: a terrain occluder plus a field of non-occluder instances.
//
// The WGSL shader sources under assets/ are glue for this demo only; the
// culling algorithm itself lives in internal/cull's CPU-testable dispatch
// prep and reference implementation, per SPEC_FULL.md §1's scoping note
// that shader source is an external collaborator of this core.
package main

import (
	_ "embed"
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/hiz-cull-go/common"
	"github.com/Carmen-Shannon/hiz-cull-go/internal/gpudevice"
	"github.com/Carmen-Shannon/hiz-cull-go/internal/indirect"
	"github.com/Carmen-Shannon/hiz-cull-go/internal/meshset"
	"github.com/Carmen-Shannon/hiz-cull-go/internal/orchestrator"
	"github.com/Carmen-Shannon/hiz-cull-go/internal/surface"
)

//go:embed assets/mipdown.wgsl
var mipDownSource string

//go:embed assets/cull.wgsl
var cullSource string

//go:embed assets/occluder.wgsl
var occluderSource string

//go:embed assets/main_render.wgsl
var mainRenderSource string

const (
	windowWidth  = 1600
	windowHeight = 900
	hizWidth     = 1024
	hizHeight    = 1024
	treeCount    = 4000
	fieldExtent  = 600.0
)

func main() {
	surf, err := surface.New(windowWidth, windowHeight, "hiz-cull-go demo")
	if err != nil {
		log.Fatalf("create surface: %v", err)
	}
	defer surf.Close()

	device, err := gpudevice.New(surf)
	if err != nil {
		log.Fatalf("create device: %v", err)
	}

	meshes, err := buildScene(device.Device(), device.Queue())
	if err != nil {
		log.Fatalf("build scene: %v", err)
	}

	mipDownPipeline, mipBindGroupLayout, err := buildMipDownPipeline(device.Device())
	if err != nil {
		log.Fatalf("build mip-down pipeline: %v", err)
	}

	cullPipeline, err := buildCullPipeline(device.Device())
	if err != nil {
		log.Fatalf("build cull pipeline: %v", err)
	}

	occluderPipeline, occluderInstanceLayout, err := buildOccluderPipeline(device.Device())
	if err != nil {
		log.Fatalf("build occluder pipeline: %v", err)
	}

	mainPipeline, mainInstanceLayout, err := buildMainRenderPipeline(device.Device(), device.SurfaceFormat())
	if err != nil {
		log.Fatalf("build main render pipeline: %v", err)
	}

	orch, err := orchestrator.New(device, orchestrator.Config{
		Meshes:             meshes,
		MipDownPipeline:    mipDownPipeline,
		MipBindGroupLayout: mipBindGroupLayout,
		CullPipeline:       cullPipeline,
		MaterialCount:      1,
		HiZWidth:           hizWidth,
		HiZHeight:          hizHeight,
		OccluderRender:     occluderRenderFunc(meshes, occluderPipeline, occluderInstanceLayout, device.Device()),
		MainRender:         mainRenderFunc(meshes, mainPipeline, mainInstanceLayout, device.Device()),
	})
	if err != nil {
		log.Fatalf("build orchestrator: %v", err)
	}

	orch.SetCullingEnabled(true)
	orch.EnableProfiler()

	constants := sceneConstants()

	last := time.Now()
	for surf.PollEvents() {
		dt := time.Since(last)
		last = time.Now()
		_ = dt

		device.AdvanceFrame()
		if err := orch.RunFrame(&constants, []common.GPUMaterialData{{Roughness: 0.8}}); err != nil {
			log.Printf("frame error: %v", err)
		}
	}

	device.WaitForGPU()
}

func sceneConstants() common.GPUSceneConstants {
	var c common.GPUSceneConstants
	common.LookAt(c.View[:], 0, 400, 700, 0, 0, 0, 0, 1, 0)
	common.Perspective(c.Proj[:], float32(60*math.Pi/180), float32(windowWidth)/float32(windowHeight), 1, 5000)
	c.ViewportSize = [4]float32{windowWidth, windowHeight, 1.0 / windowWidth, 1.0 / windowHeight}
	c.EyePos = [3]float32{0, 400, 700}
	c.Ambient = [4]float32{0.2, 0.2, 0.22, 1}
	return c
}

// buildScene constructs a terrain occluder (a single large flat quad) and a
// field of small instanced "tree" cubes scattered across it, the
// minimal two-mesh shape spec.md §3's instance model requires to exercise
// both the occluder and culled-mesh code paths.
func buildScene(device *wgpu.Device, queue *wgpu.Queue) (*meshset.Set, error) {
	set := meshset.NewSet()

	terrainVerts, terrainIdx := buildQuad(fieldExtent)
	terrainBounds := common.AABB{Center: [3]float32{0, 0, 0}, Extents: [3]float32{fieldExtent, 1, fieldExtent}}
	terrainInstance := meshset.GPUInstanceData{}
	common.Identity(terrainInstance.World[:])
	common.Identity(terrainInstance.TexTransform[:])

	terrain, err := meshset.New(device, queue, "terrain", true, terrainBounds,
		common.SliceToBytes(terrainVerts), common.SliceToBytes(terrainIdx), uint32(len(terrainIdx)),
		[]meshset.GPUInstanceData{terrainInstance})
	if err != nil {
		return nil, err
	}
	set.Add(terrain)

	treeVerts, treeIdx := buildCube(2.0)
	treeBounds := common.AABB{Extents: [3]float32{1, 1, 1}}

	rng := rand.New(rand.NewSource(1))
	instances := make([]meshset.GPUInstanceData, treeCount)
	for i := range instances {
		x := (rng.Float32()*2 - 1) * fieldExtent
		z := (rng.Float32()*2 - 1) * fieldExtent
		var inst meshset.GPUInstanceData
		common.BuildModelMatrix(inst.World[:], x, 0, z, 0, rng.Float32()*2*math.Pi, 0, 1, 1, 1)
		common.Identity(inst.TexTransform[:])
		instances[i] = inst
	}

	trees, err := meshset.New(device, queue, "trees", false, treeBounds,
		common.SliceToBytes(treeVerts), common.SliceToBytes(treeIdx), uint32(len(treeIdx)), instances)
	if err != nil {
		return nil, err
	}
	set.Add(trees)

	return set, nil
}

type demoVertex struct {
	Position [3]float32
	Normal   [3]float32
}

func buildQuad(extent float32) ([]demoVertex, []uint32) {
	verts := []demoVertex{
		{Position: [3]float32{-extent, 0, -extent}, Normal: [3]float32{0, 1, 0}},
		{Position: [3]float32{extent, 0, -extent}, Normal: [3]float32{0, 1, 0}},
		{Position: [3]float32{extent, 0, extent}, Normal: [3]float32{0, 1, 0}},
		{Position: [3]float32{-extent, 0, extent}, Normal: [3]float32{0, 1, 0}},
	}
	idx := []uint32{0, 1, 2, 0, 2, 3}
	return verts, idx
}

func buildCube(size float32) ([]demoVertex, []uint32) {
	h := size / 2
	pos := [8][3]float32{
		{-h, -h, -h}, {h, -h, -h}, {h, h, -h}, {-h, h, -h},
		{-h, -h, h}, {h, -h, h}, {h, h, h}, {-h, h, h},
	}
	verts := make([]demoVertex, 8)
	for i, p := range pos {
		n := [3]float32{p[0] / h, p[1] / h, p[2] / h}
		verts[i] = demoVertex{Position: p, Normal: n}
	}
	idx := []uint32{
		4, 5, 6, 4, 6, 7,
		1, 0, 3, 1, 3, 2,
		5, 1, 2, 5, 2, 6,
		0, 4, 7, 0, 7, 3,
		3, 7, 6, 3, 6, 2,
		0, 1, 5, 0, 5, 4,
	}
	return verts, idx
}

func buildMipDownPipeline(device *wgpu.Device) (*wgpu.RenderPipeline, *wgpu.BindGroupLayout, error) {
	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "mip-down",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: mipDownSource},
	})
	if err != nil {
		return nil, nil, err
	}

	bgl, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "mip-down bind group layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 0, Visibility: wgpu.ShaderStageFragment, Texture: wgpu.TextureBindingLayout{SampleType: wgpu.TextureSampleTypeFloat}},
			{Binding: 1, Visibility: wgpu.ShaderStageFragment, Sampler: wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeNonFiltering}},
		},
	})
	if err != nil {
		return nil, nil, err
	}

	layout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "mip-down pipeline layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{bgl},
	})
	if err != nil {
		return nil, nil, err
	}

	pipeline, err := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "mip-down pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{Module: module, EntryPoint: "vs_main"},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets:    []wgpu.ColorTargetState{{Format: wgpu.TextureFormatR32Float, WriteMask: wgpu.ColorWriteMaskAll}},
		},
		Primitive: wgpu.PrimitiveState{Topology: wgpu.PrimitiveTopologyTriangleStrip},
	})
	if err != nil {
		return nil, nil, err
	}
	return pipeline, bgl, nil
}

func buildCullPipeline(device *wgpu.Device) (*wgpu.ComputePipeline, error) {
	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "cull",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: cullSource},
	})
	if err != nil {
		return nil, err
	}
	return device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:   "cull pipeline",
		Compute: wgpu.ProgrammableStageDescriptor{Module: module, EntryPoint: "cs_main"},
	})
}

func instanceVertexLayout() []wgpu.VertexBufferLayout {
	return []wgpu.VertexBufferLayout{
		{
			ArrayStride: 24,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes: []wgpu.VertexAttribute{
				{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
				{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
			},
		},
	}
}

func buildOccluderPipeline(device *wgpu.Device) (*wgpu.RenderPipeline, *wgpu.BindGroupLayout, error) {
	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "occluder",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: occluderSource},
	})
	if err != nil {
		return nil, nil, err
	}

	sceneLayout, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "occluder scene layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 0, Visibility: wgpu.ShaderStageVertex, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform}},
		},
	})
	if err != nil {
		return nil, nil, err
	}
	instanceLayout, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "occluder instance layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 0, Visibility: wgpu.ShaderStageVertex, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage}},
		},
	})
	if err != nil {
		return nil, nil, err
	}

	pipelineLayout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "occluder pipeline layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{sceneLayout, instanceLayout},
	})
	if err != nil {
		return nil, nil, err
	}

	pipeline, err := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "occluder pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers:    instanceVertexLayout(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets:    []wgpu.ColorTargetState{{Format: wgpu.TextureFormatR32Float, WriteMask: wgpu.ColorWriteMaskAll}},
		},
		Primitive: wgpu.PrimitiveState{Topology: wgpu.PrimitiveTopologyTriangleList, CullMode: wgpu.CullModeBack},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth32Float,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
		},
	})
	if err != nil {
		return nil, nil, err
	}
	return pipeline, instanceLayout, nil
}

func buildMainRenderPipeline(device *wgpu.Device, surfaceFormat wgpu.TextureFormat) (*wgpu.RenderPipeline, *wgpu.BindGroupLayout, error) {
	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "main render",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: mainRenderSource},
	})
	if err != nil {
		return nil, nil, err
	}

	sceneLayout, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "main render scene layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 0, Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform}},
		},
	})
	if err != nil {
		return nil, nil, err
	}
	instanceLayout, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "main render instance layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 0, Visibility: wgpu.ShaderStageVertex, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage}},
		},
	})
	if err != nil {
		return nil, nil, err
	}

	pipelineLayout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "main render pipeline layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{sceneLayout, instanceLayout},
	})
	if err != nil {
		return nil, nil, err
	}

	pipeline, err := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "main render pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers:    instanceVertexLayout(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets:    []wgpu.ColorTargetState{{Format: surfaceFormat, WriteMask: wgpu.ColorWriteMaskAll}},
		},
		Primitive: wgpu.PrimitiveState{Topology: wgpu.PrimitiveTopologyTriangleList, CullMode: wgpu.CullModeBack},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth32Float,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
		},
	})
	if err != nil {
		return nil, nil, err
	}
	return pipeline, instanceLayout, nil
}

// occluderRenderFunc draws every occluder mesh against its source instance
// buffer, the depth-only pass internal/hiz.Pyramid.RenderOccluders records
// into.
func occluderRenderFunc(meshes *meshset.Set, pipeline *wgpu.RenderPipeline, instanceLayout *wgpu.BindGroupLayout, device *wgpu.Device) func(pass *wgpu.RenderPassEncoder) error {
	return func(pass *wgpu.RenderPassEncoder) error {
		pass.SetPipeline(pipeline)
		for _, m := range meshes.Ordered() {
			if !m.Occluder {
				continue
			}
			bindGroup, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
				Label:  "occluder instances " + m.Name,
				Layout: instanceLayout,
				Entries: []wgpu.BindGroupEntry{
					{Binding: 0, Buffer: m.SourceInstances, Size: wgpu.WholeSize},
				},
			})
			if err != nil {
				return err
			}
			pass.SetBindGroup(1, bindGroup, nil)
			pass.SetVertexBuffer(0, m.VertexBuffer, 0, wgpu.WholeSize)
			pass.SetIndexBuffer(m.IndexBuffer, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
			pass.DrawIndexed(m.IndexCount, m.SourceInstanceCount, 0, 0, 0)
		}
		return nil
	}
}

// mainRenderFunc draws every mesh's IndirectCommand record via
// DrawIndexedIndirect, binding whichever instance buffer the command
// table's current mode selects (internal/meshset.Mesh.InstancesShaderView).
func mainRenderFunc(meshes *meshset.Set, pipeline *wgpu.RenderPipeline, instanceLayout *wgpu.BindGroupLayout, device *wgpu.Device) func(pass *wgpu.RenderPassEncoder, table *indirect.CommandTable) error {
	return func(pass *wgpu.RenderPassEncoder, table *indirect.CommandTable) error {
		pass.SetPipeline(pipeline)
		for i := 0; i < table.Len(); i++ {
			m := table.Mesh(i)
			instancesBuf := m.InstancesShaderView(table.Record(i).InstanceSRVAddr&1 == 1)

			bindGroup, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
				Label:  "main render instances " + m.Name,
				Layout: instanceLayout,
				Entries: []wgpu.BindGroupEntry{
					{Binding: 0, Buffer: instancesBuf, Size: wgpu.WholeSize},
				},
			})
			if err != nil {
				return err
			}
			pass.SetBindGroup(1, bindGroup, nil)
			pass.SetVertexBuffer(0, m.VertexBuffer, 0, wgpu.WholeSize)
			pass.SetIndexBuffer(m.IndexBuffer, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
			pass.DrawIndexedIndirect(table.Buffer(), uint64(i)*indirect.IndirectCommandSize+indirect.DrawArgsOffset)
		}
		return nil
	}
}
