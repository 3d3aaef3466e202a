// Package gpudevice owns the GPU device, its single queue, the swap chain,
// and the two logical-queue fences the rest of the core synchronizes
// against. See SPEC_FULL.md §4.1.
package gpudevice

import (
	"fmt"
	"log"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/hiz-cull-go/internal/surface"
)

// PipelineDepth is the number of frames that may be in flight at once (P in
// spec.md §5), matching the reference design's triple buffering.
const PipelineDepth = 3

// TimestampSlotCount is the size of the shared timestamp query heap: one
// begin/end pair for the graphics logical queue, one for the compute
// logical queue, scoped per spec.md §9's recommendation rather than shared
// loosely across branches the way the original source left it.
const TimestampSlotCount = 4

// Context is the device context. It owns the instance/adapter/device/queue,
// the configured surface, the graphics and compute fences, and the
// timestamp query heap.
type Context struct {
	mu sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  surface.Surface
	wgpuSurf *wgpu.Surface

	surfaceFormat wgpu.TextureFormat

	graphicsFence *fence
	computeFence  *fence

	timestamps        *wgpu.QuerySet
	timestampReadback *wgpu.Buffer

	frameIndex int // current pipeline slot, 0..PipelineDepth-1

	lost bool
}

// New creates the device context against the given surface collaborator,
// requesting an adapter compatible with it and configuring the swap chain
// at the surface's current size.
func New(surf surface.Surface) (*Context, error) {
	inst := wgpu.CreateInstance(nil)

	wgpuSurf := inst.CreateSurface(surf.Descriptor())

	adapter, err := inst.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: wgpuSurf,
	})
	if err != nil {
		return nil, fmt.Errorf("request adapter: %w", err)
	}

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "cull-core device",
	})
	if err != nil {
		return nil, fmt.Errorf("request device: %w", err)
	}

	timestamps, err := device.CreateQuerySet(&wgpu.QuerySetDescriptor{
		Label: "cull-core timestamps",
		Type:  wgpu.QueryTypeTimestamp,
		Count: TimestampSlotCount,
	})
	if err != nil {
		return nil, fmt.Errorf("create timestamp query set: %w", err)
	}

	readback, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "cull-core timestamp readback",
		Size:  TimestampSlotCount * 8,
		Usage: wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead,
	})
	if err != nil {
		return nil, fmt.Errorf("create timestamp readback buffer: %w", err)
	}

	ctx := &Context{
		instance:          inst,
		adapter:           adapter,
		device:            device,
		queue:             device.GetQueue(),
		surface:           surf,
		wgpuSurf:          wgpuSurf,
		graphicsFence:     newFence(device),
		computeFence:      newFence(device),
		timestamps:        timestamps,
		timestampReadback: readback,
	}

	if err := ctx.configureSurface(surf.Width(), surf.Height()); err != nil {
		return nil, err
	}

	surf.SetResizeCallback(func(w, h int) {
		if err := ctx.configureSurface(w, h); err != nil {
			log.Printf("gpudevice: resize reconfigure failed: %v", err)
		}
	})

	return ctx, nil
}

func (c *Context) configureSurface(width, height int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if width == 0 || height == 0 {
		return nil
	}

	caps := c.wgpuSurf.GetCapabilities(c.adapter)
	c.surfaceFormat = caps.Formats[0]

	c.wgpuSurf.Configure(c.adapter, c.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      c.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	})
	return nil
}

// Device returns the underlying wgpu device.
func (c *Context) Device() *wgpu.Device { return c.device }

// Queue returns the single underlying wgpu queue both logical queues submit to.
func (c *Context) Queue() *wgpu.Queue { return c.queue }

// SurfaceFormat returns the configured swap-chain texture format.
func (c *Context) SurfaceFormat() wgpu.TextureFormat { return c.surfaceFormat }

// FrameIndex returns the current pipeline slot, in [0, PipelineDepth).
func (c *Context) FrameIndex() int { return c.frameIndex }

// Lost reports whether a fatal device error has been observed. The
// orchestrator, not the device context, decides what to do about it —
// per spec.md §9's recommendation to separate "safe to continue" detection
// from the reinitialize decision.
func (c *Context) Lost() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lost
}

func (c *Context) markLost(err error) {
	c.mu.Lock()
	c.lost = true
	c.mu.Unlock()
	log.Printf("gpudevice: device lost/reset: %v", err)
}

// SignalGraphics records a graphics-logical-queue submission and returns
// its fence value.
func (c *Context) SignalGraphics() uint64 { return c.graphicsFence.Signal() }

// SignalCompute records a compute-logical-queue submission and returns its
// fence value.
func (c *Context) SignalCompute() uint64 { return c.computeFence.Signal() }

// WaitCompute blocks until the compute submission tagged with value has
// retired. The graphics logical queue calls this before recording the
// InstanceCount patch copies of §4.3, honoring the "graphics queue waits on
// compute fence" ordering rule of spec.md §5.
func (c *Context) WaitCompute(value uint64) { c.computeFence.Wait(value) }

// WaitGraphics blocks until the graphics submission tagged with value has
// retired.
func (c *Context) WaitGraphics(value uint64) { c.graphicsFence.Wait(value) }

// WaitForGPU is the hard host-side barrier used at startup, shutdown, and
// window-resize: it blocks until both logical queues have fully drained.
func (c *Context) WaitForGPU() {
	c.graphicsFence.Wait(c.graphicsFence.lastSignaled)
	c.computeFence.Wait(c.computeFence.lastSignaled)
}

// Present acquires the current swap-chain texture via a caller-supplied
// render callback, then presents it. The callback receives the acquired
// texture view and must record and submit all rendering into it.
//
// Parameters:
//   - render: invoked with the swap-chain texture view to draw into
//
// Returns:
//   - error: the underlying GetCurrentTexture/render error, or nil
func (c *Context) Present(render func(view *wgpu.TextureView) error) error {
	surfaceTexture, err := c.wgpuSurf.GetCurrentTexture()
	if err != nil {
		c.markLost(err)
		return fmt.Errorf("acquire swap-chain texture: %w", err)
	}
	defer surfaceTexture.Release()

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		return fmt.Errorf("create swap-chain view: %w", err)
	}
	defer view.Release()

	if err := render(view); err != nil {
		return err
	}

	c.wgpuSurf.Present()
	return nil
}

// AdvanceFrame moves to the next pipeline slot, signals a fresh graphics
// fence value and waits on it, so every call blocks until all work
// submitted so far has retired. It does not record which fence value
// belongs to which slot, so it never skips the wait for a slot that has
// already retired.
func (c *Context) AdvanceFrame() {
	c.frameIndex = (c.frameIndex + 1) % PipelineDepth
	value := c.graphicsFence.Signal()
	c.WaitGraphics(value)
}

// ResolveTimestamps records into encoder a copy of the timestamp query heap
// into the readback buffer (occluder begin, occluder end, cull begin, cull
// end — see FrameTimings for the interpreted form). Record it after the
// passes that write the queries; FrameTimings reads the result only once
// the encoder's submission has retired.
func (c *Context) ResolveTimestamps(encoder *wgpu.CommandEncoder) {
	encoder.ResolveQuerySet(c.timestamps, 0, TimestampSlotCount, c.timestampReadback, 0)
}

// TimestampQuerySet returns the shared query set so passes can write begin/
// end timestamps at their assigned slot index.
func (c *Context) TimestampQuerySet() *wgpu.QuerySet { return c.timestamps }
