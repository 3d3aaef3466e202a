package hiz

import "testing"

// downsampleMax reproduces the mip-build pixel shader's per-texel logic in
// Go: each coarser texel is the maximum of the four corresponding finer
// texels, matching spec.md §4.2's "four-texel maximum" rule and the
// monotonicity invariant of spec.md §8. Exercised here purely as a CPU
// model so the invariant is checkable without a live GPU device.
func downsampleMax(fine []float32, fineW, fineH int) (coarse []float32, coarseW, coarseH int) {
	coarseW = fineW / 2
	if coarseW == 0 {
		coarseW = 1
	}
	coarseH = fineH / 2
	if coarseH == 0 {
		coarseH = 1
	}
	coarse = make([]float32, coarseW*coarseH)
	for y := 0; y < coarseH; y++ {
		for x := 0; x < coarseW; x++ {
			fx, fy := x*2, y*2
			max := fine[fy*fineW+fx]
			for _, off := range [][2]int{{1, 0}, {0, 1}, {1, 1}} {
				sx, sy := fx+off[0], fy+off[1]
				if sx < fineW && sy < fineH {
					if v := fine[sy*fineW+sx]; v > max {
						max = v
					}
				}
			}
			coarse[y*coarseW+x] = max
		}
	}
	return coarse, coarseW, coarseH
}

func TestDownsampleMax_Monotonicity(t *testing.T) {
	fineW, fineH := 8, 8
	fine := make([]float32, fineW*fineH)
	for i := range fine {
		fine[i] = float32(i%7) * 0.1
	}

	coarse, coarseW, coarseH := downsampleMax(fine, fineW, fineH)

	for y := 0; y < coarseH; y++ {
		for x := 0; x < coarseW; x++ {
			got := coarse[y*coarseW+x]
			offsets := [][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
			want := fine[(y*2)*fineW+(x*2)]
			for _, off := range offsets[1:] {
				if v := fine[(y*2+off[1])*fineW+(x*2+off[0])]; v > want {
					want = v
				}
			}
			if got != want {
				t.Errorf("mip[%d,%d] = %f, want %f (max of the four finer texels)", x, y, got, want)
			}
		}
	}
}

func TestDownsampleMax_UniformDepthStaysUniform(t *testing.T) {
	fineW, fineH := 16, 16
	fine := make([]float32, fineW*fineH)
	for i := range fine {
		fine[i] = 0.3
	}

	w, h := fineW, fineH
	levels := [][]float32{fine}
	for w > 1 || h > 1 {
		var coarse []float32
		coarse, w, h = downsampleMax(levels[len(levels)-1], w, h)
		levels = append(levels, coarse)
	}

	for level, texels := range levels {
		for _, v := range texels {
			if v != 0.3 {
				t.Fatalf("mip level %d: texel = %f, want 0.3 (uniform occluder depth)", level, v)
			}
		}
	}
}

func TestState_String(t *testing.T) {
	cases := map[State]string{
		StateRenderTarget:   "render-target",
		StateCopySrc:        "copy-src",
		StateCopyDst:        "copy-dst",
		StateShaderResource: "shader-resource",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}

func TestPyramid_TransitionPanicsOnMismatch(t *testing.T) {
	p := &Pyramid{hizState: StateShaderResource}

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected transition from wrong state to panic")
		}
	}()
	p.transition(StateRenderTarget, StateCopySrc)
}

func TestMipCountFor(t *testing.T) {
	tests := []struct {
		w, h uint32
		want uint32
	}{
		{1024, 768, 11},
		{1, 1, 1},
		{256, 256, 9},
	}
	for _, tc := range tests {
		if got := mipCountFor(tc.w, tc.h); got != tc.want {
			t.Errorf("mipCountFor(%d,%d) = %d, want %d", tc.w, tc.h, got, tc.want)
		}
	}
}
