package indirect

import "testing"

func TestIndirectCommand_RoundTrip(t *testing.T) {
	c := IndirectCommand{
		VertexBufferAddr:      1,
		VertexBufferSize:      240,
		VertexBufferStride:    24,
		IndexBufferAddr:       2,
		IndexBufferSize:       120,
		IndexBufferFormat:     IndexFormatU32,
		InstanceSRVAddr:       3,
		IndexCountPerInstance: 36,
		InstanceCount:         42,
		StartIndexLocation:    0,
		BaseVertexLocation:    -5,
		StartInstanceLocation: 0,
	}

	buf := c.Marshal()
	if len(buf) != IndirectCommandSize {
		t.Fatalf("Marshal produced %d bytes, want %d", len(buf), IndirectCommandSize)
	}

	got := Unmarshal(buf)
	if got != c {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, c)
	}
}

func TestIndirectCommand_DrawArgsIsTrailing20Bytes(t *testing.T) {
	c := IndirectCommand{InstanceCount: 7}
	args := c.DrawArgs()
	if len(args) != 20 {
		t.Fatalf("DrawArgs length = %d, want 20", len(args))
	}
	full := c.Marshal()
	for i, b := range args {
		if full[offIndexCountPerInstance+i] != b {
			t.Fatalf("DrawArgs byte %d diverges from full record", i)
		}
	}
}

func TestIndirectCommandSize(t *testing.T) {
	if IndirectCommandSize != 60 {
		t.Fatalf("IndirectCommandSize = %d, want 60 per the command signature wire layout", IndirectCommandSize)
	}
}
