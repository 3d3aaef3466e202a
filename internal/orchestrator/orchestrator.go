// Package orchestrator drives the per-frame sequence: advance resources,
// upload constants, (optionally) render occluders and cull, patch the
// command table, issue the indirect draws, and present.
// See SPEC_FULL.md §4.5.
package orchestrator

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/automation/tools/worker"

	"github.com/Carmen-Shannon/hiz-cull-go/common"
	"github.com/Carmen-Shannon/hiz-cull-go/internal/cull"
	"github.com/Carmen-Shannon/hiz-cull-go/internal/frameres"
	"github.com/Carmen-Shannon/hiz-cull-go/internal/gpudevice"
	"github.com/Carmen-Shannon/hiz-cull-go/internal/hiz"
	"github.com/Carmen-Shannon/hiz-cull-go/internal/indirect"
	"github.com/Carmen-Shannon/hiz-cull-go/internal/meshset"
	"github.com/Carmen-Shannon/hiz-cull-go/internal/profiler"
)

// prepQueueDepth and prepIdleTimeout mirror the teacher's compute-pool
// settings for a per-frame CPU fan-out workload (engine/scene/scene.go);
// prepWorkerCount is a fixed 4 rather than derived from runtime.NumCPU.
const (
	prepWorkerCount = 4
	prepQueueDepth  = 256
	prepIdleTimeout = 1 * time.Second
)

// Orchestrator owns every component the frame loop touches and drives the
// sequence spec.md §4.5 describes.
type Orchestrator struct {
	device   *gpudevice.Context
	meshes   *meshset.Set
	table    *indirect.CommandTable
	pyramid  *hiz.Pyramid
	cullPass *cull.Pass
	ring     *frameres.Ring

	prepPool worker.DynamicWorkerPool

	mipBindGroupLayout *wgpu.BindGroupLayout

	cullingEnabled     bool
	pendingModeRewrite bool

	readbackBuffer *wgpu.Buffer

	occluderRender func(pass *wgpu.RenderPassEncoder) error
	mainRender     func(pass *wgpu.RenderPassEncoder, table *indirect.CommandTable) error

	profiler         *profiler.Profiler
	profilingEnabled bool
}

// Config supplies the externally-owned pipelines and render callbacks this
// core does not itself construct (shader source is out of scope per
// spec.md §1).
type Config struct {
	Meshes             *meshset.Set
	MipDownPipeline    *wgpu.RenderPipeline
	MipBindGroupLayout *wgpu.BindGroupLayout
	CullPipeline       *wgpu.ComputePipeline
	MaterialCount      int
	HiZWidth           uint32
	HiZHeight          uint32

	// OccluderRender records the occluder subset's draw calls into the
	// supplied render pass, using the source instance buffers.
	OccluderRender func(pass *wgpu.RenderPassEncoder) error

	// MainRender records the per-mesh indirect draws against the swap-chain
	// render pass, reading each record's 20-byte draw-args sub-slice from
	// table (see internal/indirect's divergence note).
	MainRender func(pass *wgpu.RenderPassEncoder, table *indirect.CommandTable) error
}

// New wires every component together against an already-initialized device
// context.
func New(device *gpudevice.Context, cfg Config) (*Orchestrator, error) {
	table, err := indirect.Build(device.Device(), device.Queue(), cfg.Meshes.Ordered())
	if err != nil {
		return nil, fmt.Errorf("build command table: %w", err)
	}

	pyramid, err := hiz.New(device.Device(), cfg.HiZWidth, cfg.HiZHeight, cfg.MipDownPipeline)
	if err != nil {
		return nil, fmt.Errorf("build hiz pyramid: %w", err)
	}

	cullPass, err := cull.New(device.Device(), device.Queue(), cfg.CullPipeline)
	if err != nil {
		return nil, fmt.Errorf("build cull pass: %w", err)
	}

	ring, err := frameres.New(device.Device(), device.Queue(), gpudevice.PipelineDepth, cfg.MaterialCount)
	if err != nil {
		return nil, fmt.Errorf("build frame resource ring: %w", err)
	}

	readback, err := device.Device().CreateBuffer(&wgpu.BufferDescriptor{
		Label: "instance count readback",
		Size:  uint64(cfg.Meshes.Len()) * 4,
		Usage: wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead,
	})
	if err != nil {
		return nil, fmt.Errorf("create instance count readback buffer: %w", err)
	}

	return &Orchestrator{
		device:             device,
		meshes:             cfg.Meshes,
		table:              table,
		pyramid:            pyramid,
		cullPass:           cullPass,
		ring:               ring,
		prepPool:           worker.NewDynamicWorkerPool(prepWorkerCount, prepQueueDepth, prepIdleTimeout),
		mipBindGroupLayout: cfg.MipBindGroupLayout,
		readbackBuffer:     readback,
		occluderRender:     cfg.OccluderRender,
		mainRender:         cfg.MainRender,
		profiler:           profiler.New(),
	}, nil
}

// EnableProfiler turns on per-frame FPS/memory logging, the same toggle
// shape the teacher's engine exposed around its own profiler.
func (o *Orchestrator) EnableProfiler() { o.profilingEnabled = true }

// DisableProfiler turns off per-frame FPS/memory logging.
func (o *Orchestrator) DisableProfiler() { o.profilingEnabled = false }

// SetCullingEnabled toggles culling. The actual command-table rewrite is
// deferred to the next RunFrame call, per spec.md §4.3's "gated by a
// one-shot flag... consumed in the next frame's recording".
func (o *Orchestrator) SetCullingEnabled(enabled bool) {
	if o.cullingEnabled == enabled {
		return
	}
	o.cullingEnabled = enabled
	o.pendingModeRewrite = true
}

// CullingEnabled reports the current culling mode.
func (o *Orchestrator) CullingEnabled() bool { return o.cullingEnabled }

// RunFrame executes one full frame sequence per spec.md §4.5: advance
// resources, upload constants, optionally cull, patch and draw, present.
func (o *Orchestrator) RunFrame(constants *common.GPUSceneConstants, materials []common.GPUMaterialData) error {
	if o.device.Lost() {
		return fmt.Errorf("orchestrator: device lost, caller must reinitialize")
	}

	o.ring.Advance()
	o.ring.WriteSceneConstants(constants)
	for i := range materials {
		if err := o.ring.WriteMaterial(i, &materials[i]); err != nil {
			return fmt.Errorf("write material %d: %w", i, err)
		}
	}

	if o.pendingModeRewrite {
		o.table.SetCullingMode(o.cullingEnabled)
		o.pendingModeRewrite = false
	}

	if o.cullingEnabled {
		if err := o.runCullingPhase(constants); err != nil {
			return err
		}
	}

	err := o.device.Present(func(view *wgpu.TextureView) error {
		encoder, err := o.device.Device().CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: "main frame encoder"})
		if err != nil {
			return fmt.Errorf("create main frame encoder: %w", err)
		}

		o.table.PatchInstanceCounts(encoder)

		pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
			Label: "main render pass",
			ColorAttachments: []wgpu.RenderPassColorAttachment{
				{
					View:       view,
					LoadOp:     wgpu.LoadOpClear,
					StoreOp:    wgpu.StoreOpStore,
					ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
				},
			},
		})
		if o.mainRender != nil {
			if err := o.mainRender(pass, o.table); err != nil {
				pass.End()
				return fmt.Errorf("main render: %w", err)
			}
		}
		pass.End()

		o.table.ReadBackInstanceCounts(encoder, o.readbackBuffer)
		o.device.ResolveTimestamps(encoder)

		cmdBuf, err := encoder.Finish(nil)
		if err != nil {
			return fmt.Errorf("finish main frame encoder: %w", err)
		}
		o.device.Queue().Submit(cmdBuf)
		o.device.SignalGraphics()
		return nil
	})
	if err != nil {
		return err
	}

	if o.profilingEnabled {
		o.profiler.Tick(o.gpuSample())
	}
	return nil
}

// gpuSample reads the supplemented per-pass timestamp and per-mesh
// instance-count features into the shape internal/profiler folds into its
// FPS/memory line. Valid is false only when either readback fails; a
// frame without culling still maps both buffers and reports whatever they
// last held.
func (o *Orchestrator) gpuSample() profiler.GPUStats {
	timings, err := o.device.FrameTimings()
	if err != nil {
		log.Printf("[Profiler] frame timings unavailable: %v", err)
		return profiler.GPUStats{}
	}

	stats, err := o.FrameStats()
	if err != nil {
		log.Printf("[Profiler] instance counts unavailable: %v", err)
		return profiler.GPUStats{}
	}

	total := uint32(0)
	for _, c := range stats.PerMeshInstanceCount {
		total += c
	}
	return profiler.GPUStats{
		OccluderTicks:      timings.OccluderTicks,
		CullTicks:          timings.CullTicks,
		SurvivingInstances: total,
		Valid:              true,
	}
}

// runCullingPhase records and submits the occluder pass, mip build, and
// per-mesh culling dispatches, then has the graphics logical queue wait on
// the compute fence before returning — spec.md §4.4's ordering rule.
func (o *Orchestrator) runCullingPhase(constants *common.GPUSceneConstants) error {
	graphicsEncoder, err := o.device.Device().CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: "hiz encoder"})
	if err != nil {
		return fmt.Errorf("create hiz encoder: %w", err)
	}

	occluderTimestamps := &wgpu.RenderPassTimestampWrites{
		QuerySet:                  o.device.TimestampQuerySet(),
		BeginningOfPassWriteIndex: timestampIndexPtr(gpudevice.SlotOccluderBegin),
		EndOfPassWriteIndex:       timestampIndexPtr(gpudevice.SlotOccluderEnd),
	}
	if err := o.pyramid.RenderOccluders(graphicsEncoder, o.occluderRender, occluderTimestamps); err != nil {
		return fmt.Errorf("render occluders: %w", err)
	}
	if err := o.pyramid.BuildMipChain(graphicsEncoder, o.mipBindGroupLayout); err != nil {
		return fmt.Errorf("build mip chain: %w", err)
	}

	hizBuf, err := graphicsEncoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("finish hiz encoder: %w", err)
	}
	o.device.Queue().Submit(hizBuf)
	o.device.SignalGraphics()

	hizView, err := o.pyramid.FullView()
	if err != nil {
		return fmt.Errorf("hiz full view: %w", err)
	}
	hizBindGroup, err := o.cullPass.HiZBindGroup(hizView, o.pyramid.Sampler())
	if err != nil {
		return fmt.Errorf("hiz bind group: %w", err)
	}
	sceneBindGroup, err := o.cullPass.SceneBindGroup(o.ring.SceneConstantsBuffer())
	if err != nil {
		return fmt.Errorf("scene bind group: %w", err)
	}

	meshes := o.meshes.Ordered()
	var nonOccluders []*meshset.Mesh
	for _, m := range meshes {
		if !m.Occluder {
			nonOccluders = append(nonOccluders, m)
		}
	}

	// Phase 1 (parallel): compute each mesh's GPUCullParams across workers,
	// the same CPU-only fan-out/join shape as the teacher's
	// scene.PrepareCompute Phase 1.
	prepared := make([]cull.PreparedDispatch, len(nonOccluders))
	var wg sync.WaitGroup
	var prepErr error
	var prepMu sync.Mutex
	for i, m := range nonOccluders {
		wg.Add(1)
		idx, mCap := i, m
		o.prepPool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()
				p, err := o.cullPass.Prepare(mCap, mCap.Bounds)
				if err != nil {
					prepMu.Lock()
					prepErr = err
					prepMu.Unlock()
					return nil, nil
				}
				prepared[idx] = p
				return nil, nil
			},
		})
	}
	wg.Wait()
	if prepErr != nil {
		return fmt.Errorf("cull prepare: %w", prepErr)
	}

	// Phase 2 (serial): record every mesh's dispatch against one encoder.
	// If every mesh is an occluder, prepared is empty and no cull-dispatch
	// timestamps get written this frame; FrameTimings then reports
	// whatever CullTicks was left over from the last frame that had one.
	computeEncoder, err := o.device.Device().CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: "cull encoder"})
	if err != nil {
		return fmt.Errorf("create cull encoder: %w", err)
	}
	for i, p := range prepared {
		var timestamps *wgpu.ComputePassTimestampWrites
		switch i {
		case 0:
			timestamps = &wgpu.ComputePassTimestampWrites{
				QuerySet:                  o.device.TimestampQuerySet(),
				BeginningOfPassWriteIndex: timestampIndexPtr(gpudevice.SlotCullBegin),
			}
		case len(prepared) - 1:
			timestamps = &wgpu.ComputePassTimestampWrites{
				QuerySet:            o.device.TimestampQuerySet(),
				EndOfPassWriteIndex: timestampIndexPtr(gpudevice.SlotCullEnd),
			}
		}
		if i == 0 && len(prepared) == 1 {
			timestamps.EndOfPassWriteIndex = timestampIndexPtr(gpudevice.SlotCullEnd)
		}
		if err := o.cullPass.Dispatch(computeEncoder, p, sceneBindGroup, hizBindGroup, timestamps); err != nil {
			return fmt.Errorf("cull dispatch: %w", err)
		}
	}

	computeBuf, err := computeEncoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("finish cull encoder: %w", err)
	}
	o.device.Queue().Submit(computeBuf)
	computeSignal := o.device.SignalCompute()

	o.device.WaitCompute(computeSignal)

	return nil
}

// timestampIndexPtr returns a pointer to a query-slot index literal, the
// shape wgpu.RenderPassTimestampWrites/ComputePassTimestampWrites require
// since a nil field means "don't write".
func timestampIndexPtr(slot uint32) *uint32 {
	return &slot
}

// InstanceCountReadback returns the buffer the HUD reads each mesh's
// patched InstanceCount word from, matching spec.md §4.5 step 5's readback
// requirement.
func (o *Orchestrator) InstanceCountReadback() *wgpu.Buffer { return o.readbackBuffer }

// CommandTable exposes the underlying table for tests and the HUD.
func (o *Orchestrator) CommandTable() *indirect.CommandTable { return o.table }
