// Package hiz owns the hierarchical-Z depth pyramid: the occluder depth
// pass, the max-downsample mip-build pass, and the resource-state
// bookkeeping that keeps both honest about what state the pyramid is in.
// See SPEC_FULL.md §4.2.
package hiz

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// State names the logical state a Hi-Z texture is in, standing in for the
// D3D12 resource-state machine the reference design assumes. WebGPU has no
// explicit barrier call; State exists purely so the "after state of one
// transition equals the before state of the next" invariant stays a
// checkable property in this core and in its tests.
type State int

const (
	StateRenderTarget State = iota
	StateCopySrc
	StateCopyDst
	StateShaderResource
)

func (s State) String() string {
	switch s {
	case StateRenderTarget:
		return "render-target"
	case StateCopySrc:
		return "copy-src"
	case StateCopyDst:
		return "copy-dst"
	case StateShaderResource:
		return "shader-resource"
	default:
		return "unknown"
	}
}

// Pyramid is the Hi-Z texture, its depth-stencil occluder target, and the
// temporal ping-pong texture used while downsampling.
type Pyramid struct {
	device *wgpu.Device

	width, height uint32
	mipCount      uint32

	hiz      *wgpu.Texture
	hizViews []*wgpu.TextureView
	hizState State

	hizDepth      *wgpu.Texture
	hizDepthView  *wgpu.TextureView
	hizDepthState State

	temporal      *wgpu.Texture
	temporalViews []*wgpu.TextureView

	mipDownPipeline *wgpu.RenderPipeline
	sampler         *wgpu.Sampler
}

// mipCountFor returns the number of mip levels a power-of-two-ish base size
// needs to reach 1x1, matching the teacher's dim-halving loop.
func mipCountFor(width, height uint32) uint32 {
	dim := width
	if height > dim {
		dim = height
	}
	count := uint32(0)
	for dim > 0 {
		count++
		dim >>= 1
	}
	return count
}

// New creates the Hi-Z pyramid and its companion textures at the given base
// size. mipDownPipeline is supplied by the caller since shader source is an
// external collaborator of this core.
func New(device *wgpu.Device, width, height uint32, mipDownPipeline *wgpu.RenderPipeline) (*Pyramid, error) {
	mips := mipCountFor(width, height)

	p := &Pyramid{
		device:          device,
		width:           width,
		height:          height,
		mipCount:        mips,
		mipDownPipeline: mipDownPipeline,
		hizState:        StateShaderResource,
		hizDepthState:   StateRenderTarget,
	}

	var err error
	p.hiz, err = device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "hiz pyramid",
		Size:          wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: mips,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatR32Float,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopySrc | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create hiz texture: %w", err)
	}

	p.temporal, err = device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "hiz temporal",
		Size:          wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: mips,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatR32Float,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create hiz temporal texture: %w", err)
	}

	p.hizDepth, err = device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "hiz occluder depth",
		Size:          wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth32Float,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("create hiz occluder depth texture: %w", err)
	}
	p.hizDepthView, err = p.hizDepth.CreateView(nil)
	if err != nil {
		return nil, fmt.Errorf("create hiz occluder depth view: %w", err)
	}

	p.hizViews = make([]*wgpu.TextureView, mips)
	p.temporalViews = make([]*wgpu.TextureView, mips)
	for i := uint32(0); i < mips; i++ {
		p.hizViews[i], err = p.hiz.CreateView(&wgpu.TextureViewDescriptor{
			Label:           fmt.Sprintf("hiz mip %d", i),
			Format:          wgpu.TextureFormatR32Float,
			Dimension:       wgpu.TextureViewDimension2D,
			BaseMipLevel:    i,
			MipLevelCount:   1,
			BaseArrayLayer:  0,
			ArrayLayerCount: 1,
		})
		if err != nil {
			return nil, fmt.Errorf("create hiz mip %d view: %w", i, err)
		}
		p.temporalViews[i], err = p.temporal.CreateView(&wgpu.TextureViewDescriptor{
			Label:           fmt.Sprintf("hiz temporal mip %d", i),
			Format:          wgpu.TextureFormatR32Float,
			Dimension:       wgpu.TextureViewDimension2D,
			BaseMipLevel:    i,
			MipLevelCount:   1,
			BaseArrayLayer:  0,
			ArrayLayerCount: 1,
		})
		if err != nil {
			return nil, fmt.Errorf("create hiz temporal mip %d view: %w", i, err)
		}
	}

	p.sampler, err = device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "hiz sampler",
		MagFilter:     wgpu.FilterModeNearest,
		MinFilter:     wgpu.FilterModeNearest,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		LodMinClamp:   0,
		LodMaxClamp:   float32(mips),
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("create hiz sampler: %w", err)
	}

	return p, nil
}

// MipCount returns the number of mip levels in the pyramid.
func (p *Pyramid) MipCount() uint32 { return p.mipCount }

// FullView returns the full-chain texture view used as the culling pass's
// Hi-Z SRV binding.
func (p *Pyramid) FullView() (*wgpu.TextureView, error) {
	return p.hiz.CreateView(&wgpu.TextureViewDescriptor{
		Label:         "hiz full chain",
		Format:        wgpu.TextureFormatR32Float,
		Dimension:     wgpu.TextureViewDimension2D,
		BaseMipLevel:  0,
		MipLevelCount: p.mipCount,
	})
}

// MipView returns the single-mip view for level.
func (p *Pyramid) MipView(level uint32) *wgpu.TextureView { return p.hizViews[level] }

// Sampler returns the Hi-Z sampler used by the culling pass.
func (p *Pyramid) Sampler() *wgpu.Sampler { return p.sampler }

// State reports the pyramid's current logical resource state.
func (p *Pyramid) State() State { return p.hizState }

// transition asserts that the pyramid is in the expected "from" state and
// moves it to "to". It panics on mismatch: a phase recorded out of the
// fixed per-frame cycle is a programmer error, not a runtime condition to
// recover from (spec.md §9's resource-state law).
func (p *Pyramid) transition(from, to State) {
	if p.hizState != from {
		panic(fmt.Sprintf("hiz: invalid transition %s -> %s while in %s", from, to, p.hizState))
	}
	p.hizState = to
}

// transitionHizDepth is transition's counterpart for the occluder depth
// target, the copy source in RenderOccluders' hizDepth->hiz copy. Tracked
// separately from hiz's own state since the two textures are never in the
// same state at the same point in the occluder pass.
func (p *Pyramid) transitionHizDepth(from, to State) {
	if p.hizDepthState != from {
		panic(fmt.Sprintf("hiz: invalid hizDepth transition %s -> %s while in %s", from, to, p.hizDepthState))
	}
	p.hizDepthState = to
}

// RenderOccluders clears hizDepth and hiz mip 0, draws the occluder subset
// via render, then copies hizDepth into hiz mip 0. render must record an
// indirect-or-direct draw into the supplied render pass; it receives the
// occluder depth target already bound as the depth attachment. timestamps
// is optional (nil skips query writes); when supplied, the occluder pass'
// begin/end GPU ticks are written at the given query-set slots, feeding
// gpudevice.Context.FrameTimings per SPEC_FULL.md §3's supplemented
// per-pass timestamp feature.
func (p *Pyramid) RenderOccluders(encoder *wgpu.CommandEncoder, render func(pass *wgpu.RenderPassEncoder) error, timestamps *wgpu.RenderPassTimestampWrites) error {
	p.transition(StateShaderResource, StateRenderTarget)

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "hiz occluder pass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       p.hizViews[0],
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: wgpu.Color{R: 1, G: 1, B: 1, A: 1},
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            p.hizDepthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
		TimestampWrites: timestamps,
	})

	if err := render(pass); err != nil {
		pass.End()
		return fmt.Errorf("render occluders: %w", err)
	}
	pass.End()

	p.transition(StateRenderTarget, StateCopyDst)
	p.transitionHizDepth(StateRenderTarget, StateCopySrc)
	encoder.CopyTextureToTexture(
		&wgpu.ImageCopyTexture{Texture: p.hizDepth, MipLevel: 0},
		&wgpu.ImageCopyTexture{Texture: p.hiz, MipLevel: 0},
		&wgpu.Extent3D{Width: p.width, Height: p.height, DepthOrArrayLayers: 1},
	)
	p.transition(StateCopyDst, StateShaderResource)
	p.transitionHizDepth(StateCopySrc, StateRenderTarget)

	return nil
}

// BuildMipChain downsamples hiz mip 0 into every coarser level by, per
// level k, copying mip k-1 into the temporal texture, binding it as SRV,
// and rendering a fullscreen triangle strip into mip k whose pixel shader
// (external to this core) takes the four-texel maximum.
func (p *Pyramid) BuildMipChain(encoder *wgpu.CommandEncoder, bindGroupLayout *wgpu.BindGroupLayout) error {
	prevW, prevH := p.width, p.height

	for k := uint32(1); k < p.mipCount; k++ {
		p.transition(StateShaderResource, StateCopySrc)
		encoder.CopyTextureToTexture(
			&wgpu.ImageCopyTexture{Texture: p.hiz, MipLevel: k - 1},
			&wgpu.ImageCopyTexture{Texture: p.temporal, MipLevel: k - 1},
			&wgpu.Extent3D{Width: prevW, Height: prevH, DepthOrArrayLayers: 1},
		)
		p.transition(StateCopySrc, StateShaderResource)

		w, h := prevW>>1, prevH>>1
		if w == 0 {
			w = 1
		}
		if h == 0 {
			h = 1
		}

		bindGroup, err := p.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  fmt.Sprintf("hiz mip-build %d", k),
			Layout: bindGroupLayout,
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, TextureView: p.temporalViews[k-1]},
				{Binding: 1, Sampler: p.sampler},
			},
		})
		if err != nil {
			return fmt.Errorf("build mip %d bind group: %w", k, err)
		}

		p.transition(StateShaderResource, StateRenderTarget)
		pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
			Label: fmt.Sprintf("hiz mip-build pass %d", k),
			ColorAttachments: []wgpu.RenderPassColorAttachment{
				{
					View:    p.hizViews[k],
					LoadOp:  wgpu.LoadOpClear,
					StoreOp: wgpu.StoreOpStore,
				},
			},
		})
		pass.SetPipeline(p.mipDownPipeline)
		pass.SetBindGroup(0, bindGroup, nil)
		pass.Draw(4, 1, 0, 0)
		pass.End()
		p.transition(StateRenderTarget, StateShaderResource)

		prevW, prevH = w, h
	}

	return nil
}
