// Package indirect owns the GPU-resident command table: one IndirectCommand
// record per mesh, patched every frame from each mesh's compacted-instance
// counter and rewritten in full on culling-mode transitions.
// See SPEC_FULL.md §4.3.
package indirect

import (
	"encoding/binary"
)

// IndirectCommandSize is the fixed byte stride of one command-table record:
// 16B vertex-buffer-view + 16B index-buffer-view + 8B instance-SRV address +
// 20B draw-indexed args, matching spec.md §6's wire layout exactly.
const IndirectCommandSize = 16 + 16 + 8 + 20

// Byte offsets within one IndirectCommand record.
const (
	offVBVAddr  = 0
	offVBVSize  = 8
	offVBVStride = 12

	offIBVAddr   = 16
	offIBVSize   = 24
	offIBVFormat = 28

	offInstanceSRVAddr = 32

	offIndexCountPerInstance = 40
	offInstanceCount         = 44
	offStartIndexLocation    = 48
	offBaseVertexLocation    = 52
	offStartInstanceLocation = 56
)

// IndexFormatU32 is the only index format this core's draw-indexed args
// support.
const IndexFormatU32 = 1

// DrawArgsOffset is the byte offset of the 20-byte draw-indexed argument
// sub-slice within one record, the offset callers pass to
// DrawIndexedIndirect against the command table's buffer.
const DrawArgsOffset = offIndexCountPerInstance

// IndirectCommand is the CPU-side mirror of one 60-byte command-table
// record. The GPU command-table buffer is the source of truth during
// rendering; this struct is how the frame orchestrator builds and patches
// records before writing them with Queue.WriteBuffer.
type IndirectCommand struct {
	VertexBufferAddr   uint64
	VertexBufferSize   uint32
	VertexBufferStride uint32

	IndexBufferAddr   uint64
	IndexBufferSize   uint32
	IndexBufferFormat uint32

	InstanceSRVAddr uint64

	IndexCountPerInstance uint32
	InstanceCount         uint32
	StartIndexLocation    uint32
	BaseVertexLocation    int32
	StartInstanceLocation uint32
}

// Marshal serializes the record into its 60-byte wire layout.
func (c *IndirectCommand) Marshal() []byte {
	buf := make([]byte, IndirectCommandSize)
	binary.LittleEndian.PutUint64(buf[offVBVAddr:], c.VertexBufferAddr)
	binary.LittleEndian.PutUint32(buf[offVBVSize:], c.VertexBufferSize)
	binary.LittleEndian.PutUint32(buf[offVBVStride:], c.VertexBufferStride)

	binary.LittleEndian.PutUint64(buf[offIBVAddr:], c.IndexBufferAddr)
	binary.LittleEndian.PutUint32(buf[offIBVSize:], c.IndexBufferSize)
	binary.LittleEndian.PutUint32(buf[offIBVFormat:], c.IndexBufferFormat)

	binary.LittleEndian.PutUint64(buf[offInstanceSRVAddr:], c.InstanceSRVAddr)

	binary.LittleEndian.PutUint32(buf[offIndexCountPerInstance:], c.IndexCountPerInstance)
	binary.LittleEndian.PutUint32(buf[offInstanceCount:], c.InstanceCount)
	binary.LittleEndian.PutUint32(buf[offStartIndexLocation:], c.StartIndexLocation)
	binary.LittleEndian.PutUint32(buf[offBaseVertexLocation:], uint32(c.BaseVertexLocation))
	binary.LittleEndian.PutUint32(buf[offStartInstanceLocation:], c.StartInstanceLocation)
	return buf
}

// DrawArgs returns the 20-byte draw-indexed argument sub-slice WebGPU's
// DrawIndexedIndirect actually consumes — the rest of the 60-byte record is
// this core's own bookkeeping, since WebGPU has no command-signature
// concept that binds vertex/index/SRV state from an indirect buffer.
func (c *IndirectCommand) DrawArgs() []byte {
	return c.Marshal()[offIndexCountPerInstance:]
}

// Unmarshal populates the record from a 60-byte buffer, the inverse of Marshal.
func Unmarshal(buf []byte) IndirectCommand {
	var c IndirectCommand
	c.VertexBufferAddr = binary.LittleEndian.Uint64(buf[offVBVAddr:])
	c.VertexBufferSize = binary.LittleEndian.Uint32(buf[offVBVSize:])
	c.VertexBufferStride = binary.LittleEndian.Uint32(buf[offVBVStride:])

	c.IndexBufferAddr = binary.LittleEndian.Uint64(buf[offIBVAddr:])
	c.IndexBufferSize = binary.LittleEndian.Uint32(buf[offIBVSize:])
	c.IndexBufferFormat = binary.LittleEndian.Uint32(buf[offIBVFormat:])

	c.InstanceSRVAddr = binary.LittleEndian.Uint64(buf[offInstanceSRVAddr:])

	c.IndexCountPerInstance = binary.LittleEndian.Uint32(buf[offIndexCountPerInstance:])
	c.InstanceCount = binary.LittleEndian.Uint32(buf[offInstanceCount:])
	c.StartIndexLocation = binary.LittleEndian.Uint32(buf[offStartIndexLocation:])
	c.BaseVertexLocation = int32(binary.LittleEndian.Uint32(buf[offBaseVertexLocation:]))
	c.StartInstanceLocation = binary.LittleEndian.Uint32(buf[offStartInstanceLocation:])
	return c
}
