package cull

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/hiz-cull-go/common"
)

// fakeHiZ is an in-memory Hi-Z pyramid for ReferenceCull tests: level 0 is
// the finest, each coarser level halves both dimensions.
type fakeHiZ struct {
	levels [][]float32
	widths []int
	heights []int
}

func newFakeHiZ(baseW, baseH int, value float32) *fakeHiZ {
	h := &fakeHiZ{}
	w, ht := baseW, baseH
	for w >= 1 && ht >= 1 {
		texels := make([]float32, w*ht)
		for i := range texels {
			texels[i] = value
		}
		h.levels = append(h.levels, texels)
		h.widths = append(h.widths, w)
		h.heights = append(h.heights, ht)
		if w == 1 && ht == 1 {
			break
		}
		w /= 2
		if w == 0 {
			w = 1
		}
		ht /= 2
		if ht == 0 {
			ht = 1
		}
	}
	return h
}

func (h *fakeHiZ) MipCount() int { return len(h.levels) }
func (h *fakeHiZ) MipSize(level int) (int, int) { return h.widths[level], h.heights[level] }
func (h *fakeHiZ) Texel(level, x, y int) float32 { return h.levels[level][y*h.widths[level]+x] }

func perspectiveProjection(fovY, aspect, near, far float32) []float32 {
	f := float32(1.0 / math.Tan(float64(fovY)/2))
	m := make([]float32, 16)
	m[0] = f / aspect
	m[5] = f
	m[10] = far / (near - far)
	m[11] = -1
	m[14] = (far * near) / (near - far)
	return m
}

func TestReferenceCull_FrustumRejectsOutsideInstances(t *testing.T) {
	bounds := common.AABB{Center: [3]float32{0, 0, 0}, Extents: [3]float32{0.5, 0.5, 0.5}}

	viewProj := perspectiveProjection(0.9, 1.0, 0.1, 1000)

	var instances []Instance
	for _, x := range []float32{-90, -70, -50, -30, 0, 30, 50, 70, 90} {
		instances = append(instances, Instance{World: translationMatrix(x, 0, -20)})
	}

	survivors := ReferenceCull(bounds, instances, viewProj, nil, 1920, 1080)
	if len(survivors) == 0 {
		t.Fatal("expected at least one surviving instance near the frustum center")
	}
	if len(survivors) == len(instances) {
		t.Fatal("expected some instances to be frustum-culled, all survived")
	}
}

func TestReferenceCull_OcclusionRejectsFullyCovered(t *testing.T) {
	bounds := common.AABB{Center: [3]float32{0, 0, 0}, Extents: [3]float32{0.5, 0.5, 0.5}}
	viewProj := perspectiveProjection(0.9, 1.0, 0.1, 1000)

	// A near-zero Hi-Z depth value (close to the camera) occludes anything farther away.
	opaqueHiZ := newFakeHiZ(64, 64, 0.01)

	instances := []Instance{{World: translationMatrix(0, 0, -50)}}
	survivors := ReferenceCull(bounds, instances, viewProj, opaqueHiZ, 1920, 1080)
	if len(survivors) != 0 {
		t.Fatalf("expected instance behind opaque occluder to be culled, got %d survivors", len(survivors))
	}

	farHiZ := newFakeHiZ(64, 64, 1.0)
	survivors = ReferenceCull(bounds, instances, viewProj, farHiZ, 1920, 1080)
	if len(survivors) != 1 {
		t.Fatalf("expected instance to survive against a far (non-occluding) Hi-Z, got %d survivors", len(survivors))
	}
}

func translationMatrix(x, y, z float32) [16]float32 {
	m := [16]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
	m[12], m[13], m[14] = x, y, z
	return m
}
