package common

import (
	"math"
	"testing"
)

func TestGPUSceneConstants_MarshalSize(t *testing.T) {
	var c GPUSceneConstants
	got := len(c.Marshal())
	want := c.Size()
	if got != want {
		t.Fatalf("Marshal produced %d bytes, Size() reports %d", got, want)
	}
	if want != 944 {
		t.Fatalf("GPUSceneConstants size = %d, want 944 per the scene constants layout contract", want)
	}
}

func TestGPULight_MarshalSize(t *testing.T) {
	var l GPULight
	if got, want := len(l.Marshal()), l.Size(); got != want {
		t.Fatalf("Marshal produced %d bytes, Size() reports %d", got, want)
	}
	if l.Size() != 48 {
		t.Fatalf("GPULight size = %d, want 48", l.Size())
	}
}

func TestGPUSceneConstants_FieldRoundTrip(t *testing.T) {
	c := GPUSceneConstants{
		EyePos:  [3]float32{1, 2, 3},
		Ambient: [4]float32{0.1, 0.2, 0.3, 1},
	}
	c.Lights[0] = GPULight{
		Strength:     [3]float32{1, 1, 1},
		FalloffStart: 1,
		Direction:    [3]float32{0, -1, 0},
		FalloffEnd:   10,
		Position:     [3]float32{0, 5, 0},
		SpotPower:    2,
	}

	buf := c.Marshal()

	// eye_pos lives at byte offset 144 (after view+proj+viewport_size).
	eyeOff := 144
	for i := 0; i < 3; i++ {
		got := readFloat32LE(buf[eyeOff+i*4:])
		if got != c.EyePos[i] {
			t.Errorf("eye_pos[%d] = %f, want %f", i, got, c.EyePos[i])
		}
	}
}

func readFloat32LE(b []byte) float32 {
	bits := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	return math.Float32frombits(bits)
}
