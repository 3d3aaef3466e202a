package cull

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/hiz-cull-go/common"
)

// HiZSampler is the minimal read-only view onto a built Hi-Z pyramid that
// ReferenceCull needs: mip dimensions and a nearest-neighbor texel fetch.
// internal/hiz.Pyramid is not itself this interface since ReferenceCull runs
// entirely on the CPU against a scripted or read-back pyramid, never a live
// GPU texture, matching spec.md §8's reference-CPU verification approach.
type HiZSampler interface {
	MipSize(level int) (width, height int)
	MipCount() int
	Texel(level, x, y int) float32
}

// Instance is the minimal per-instance input ReferenceCull needs: a world
// transform. The mesh's object-space bounds are passed to ReferenceCull
// separately, mirroring the GPU shader's per-instance logic described at
// contract level in spec.md §4.4.
type Instance struct {
	World [16]float32
}

// ReferenceCull reproduces the per-instance culling shader logic in Go:
// transform the object-space AABB by the instance's world matrix, reject
// against the view frustum, then reject against the Hi-Z pyramid using a
// screen-space rectangle derived from the world AABB's clip-space
// projection. Used only by tests to verify the count-equality and
// round-trip properties of spec.md §8 against a reference implementation.
func ReferenceCull(bounds common.AABB, instances []Instance, viewProj []float32, hiz HiZSampler, viewportWidth, viewportHeight int) []int {
	frustum := common.ExtractFrustumFromMatrix(viewProj)

	var survivors []int
	for i, inst := range instances {
		world := bounds.WorldAABB(inst.World[:])
		if !world.IntersectsFrustum(frustum) {
			continue
		}

		rect, nearestZ, ok := projectScreenRect(world, viewProj, viewportWidth, viewportHeight)
		if !ok {
			// Degenerate projection (behind the camera, zero extent): treat
			// as visible rather than silently dropping it.
			survivors = append(survivors, i)
			continue
		}

		if occludedBy(hiz, rect, nearestZ) {
			continue
		}

		survivors = append(survivors, i)
	}
	return survivors
}

type screenRect struct {
	minX, minY, maxX, maxY float32
}

// projectScreenRect projects a world-space AABB's eight corners through
// viewProj into normalized device coordinates, then into a viewport-space
// rectangle, and returns the nearest (smallest) NDC z as the instance's
// nearest-z value, per spec.md §4.4's "derive a screen-space rectangle and
// a nearest-z value" description.
func projectScreenRect(box common.AABB, viewProj []float32, viewportWidth, viewportHeight int) (screenRect, float32, bool) {
	corners := box.Corners()

	var rect screenRect
	rect.minX, rect.minY = float32(viewportWidth), float32(viewportHeight)
	rect.maxX, rect.maxY = 0, 0
	nearestZ := float32(1.0)
	any := false

	for _, c := range corners {
		clip := projectPoint(viewProj, c)
		if clip[3] <= 0 {
			continue
		}
		ndcX := clip[0] / clip[3]
		ndcY := clip[1] / clip[3]
		ndcZ := clip[2] / clip[3]

		sx := (ndcX*0.5 + 0.5) * float32(viewportWidth)
		sy := (1.0 - (ndcY*0.5 + 0.5)) * float32(viewportHeight)

		if sx < rect.minX {
			rect.minX = sx
		}
		if sx > rect.maxX {
			rect.maxX = sx
		}
		if sy < rect.minY {
			rect.minY = sy
		}
		if sy > rect.maxY {
			rect.maxY = sy
		}
		if ndcZ < nearestZ {
			nearestZ = ndcZ
		}
		any = true
	}

	return rect, nearestZ, any
}

func projectPoint(m []float32, p [3]float32) [4]float32 {
	var mat mgl32.Mat4
	copy(mat[:], m)
	clip := mat.Mul4x1(mgl32.Vec4{p[0], p[1], p[2], 1})
	return [4]float32{clip[0], clip[1], clip[2], clip[3]}
}

// occludedBy samples the Hi-Z mip whose texel footprint bounds rect and
// rejects the instance if the sampled max-depth is nearer to the camera
// than nearestZ (i.e. something already drawn fully covers it). rect is
// expressed in base-level (mip 0) viewport pixel coordinates.
func occludedBy(hiz HiZSampler, rect screenRect, nearestZ float32) bool {
	if hiz == nil {
		return false
	}

	baseW, baseH := hiz.MipSize(0)

	footprint := rect.maxX - rect.minX
	if h := rect.maxY - rect.minY; h > footprint {
		footprint = h
	}
	if footprint <= 0 {
		footprint = 1
	}

	level := 0
	for level < hiz.MipCount()-1 {
		mw, _ := hiz.MipSize(level)
		texelsPerPixel := float32(mw) / float32(baseW)
		if footprint*texelsPerPixel <= 1 {
			break
		}
		level++
	}

	mw, mh := hiz.MipSize(level)
	scaleX := float32(mw) / float32(baseW)
	scaleY := float32(mh) / float32(baseH)
	x := clampInt(int((rect.minX+rect.maxX)*0.5*scaleX), 0, mw-1)
	y := clampInt(int((rect.minY+rect.maxY)*0.5*scaleY), 0, mh-1)

	maxDepth := hiz.Texel(level, x, y)
	return maxDepth < nearestZ
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
