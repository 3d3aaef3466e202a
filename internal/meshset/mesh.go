// Package meshset holds the per-mesh GPU buffers the rest of the core
// reads and writes: vertex/index buffers, the source instance SRV buffer,
// and the compacted-instance UAV buffer with its trailing append counter.
// See SPEC_FULL.md §3 and §4.3, and the original's RenderItem/CreateCounterOffset.
package meshset

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/hiz-cull-go/common"
)

// UAVCounterAlignment is the byte alignment the append counter tail must
// sit at past a compacted-instance buffer's data array, matching the
// original's D3D12_UAV_COUNTER_PLACEMENT_ALIGNMENT constant (4096).
const UAVCounterAlignment = 4096

// AlignForUAVCounter rounds bufferSize up to the next UAVCounterAlignment
// boundary, the offset at which the append counter word lives.
func AlignForUAVCounter(bufferSize uint64) uint64 {
	const mask = UAVCounterAlignment - 1
	return (bufferSize + mask) &^ mask
}

// Mesh is one mesh's immutable-after-load attributes plus its runtime GPU
// buffers. Identified by a stable string name the scene builder uses to
// attach instances (spec.md §3).
type Mesh struct {
	Name       string
	Occluder   bool
	Bounds     common.AABB
	IndexCount uint32

	VertexBuffer *wgpu.Buffer
	IndexBuffer  *wgpu.Buffer

	// SourceInstances is the read-only SRV holding every instance, in load
	// order. Always the instancesShaderView target when culling is off or
	// the mesh is an occluder.
	SourceInstances     *wgpu.Buffer
	SourceInstanceCount  uint32

	// CompactedInstances is the read-write UAV the culling compute pass
	// appends survivors into. Sized to SourceInstances' byte length rounded
	// up to UAVCounterAlignment (that rounded size is CounterOffset), plus a
	// 4-byte counter at CounterOffset. Nil for occluders.
	CompactedInstances *wgpu.Buffer
	CounterOffset      uint64
}

// New creates the GPU buffers for a mesh from its CPU-side vertex/index
// bytes and instance records, following the teacher's InitMeshBuffers
// pattern (CreateBuffer + Queue.WriteBuffer rather than MappedAtCreation).
func New(device *wgpu.Device, queue *wgpu.Queue, name string, occluder bool, bounds common.AABB, vertexData, indexData []byte, indexCount uint32, instances []GPUInstanceData) (*Mesh, error) {
	m := &Mesh{
		Name:       name,
		Occluder:   occluder,
		Bounds:     bounds,
		IndexCount: indexCount,
	}

	var err error
	m.VertexBuffer, err = createAndWrite(device, queue, name+" vertex buffer", wgpu.BufferUsageVertex, vertexData)
	if err != nil {
		return nil, fmt.Errorf("mesh %q: %w", name, err)
	}

	m.IndexBuffer, err = createAndWrite(device, queue, name+" index buffer", wgpu.BufferUsageIndex, indexData)
	if err != nil {
		return nil, fmt.Errorf("mesh %q: %w", name, err)
	}

	instanceBytes := marshalInstances(instances)
	m.SourceInstances, err = createAndWrite(device, queue, name+" instance buffer", wgpu.BufferUsageStorage, instanceBytes)
	if err != nil {
		return nil, fmt.Errorf("mesh %q: %w", name, err)
	}
	m.SourceInstanceCount = uint32(len(instances))

	if !occluder {
		m.CounterOffset = AlignForUAVCounter(uint64(len(instanceBytes)))
		compactedSize := m.CounterOffset + 4
		m.CompactedInstances, err = device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: name + " compacted instance buffer",
			Size:  compactedSize,
			Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc,
		})
		if err != nil {
			return nil, fmt.Errorf("mesh %q: create compacted instance buffer: %w", name, err)
		}
	}

	return m, nil
}

func createAndWrite(device *wgpu.Device, queue *wgpu.Queue, label string, usage wgpu.BufferUsage, data []byte) (*wgpu.Buffer, error) {
	if len(data) == 0 {
		return nil, nil
	}
	buf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	queue.WriteBuffer(buf, 0, data)
	return buf, nil
}

func marshalInstances(instances []GPUInstanceData) []byte {
	if len(instances) == 0 {
		return nil
	}
	out := make([]byte, 0, len(instances)*instances[0].Size())
	for i := range instances {
		out = append(out, instances[i].Marshal()...)
	}
	return out
}

// InstancesShaderView returns the buffer that should back the
// instancesShaderView field of this mesh's IndirectCommand record:
// the source buffer for occluders or when culling is disabled, the
// compacted buffer otherwise (spec.md §3's invariant).
func (m *Mesh) InstancesShaderView(cullingEnabled bool) *wgpu.Buffer {
	if m.Occluder || !cullingEnabled {
		return m.SourceInstances
	}
	return m.CompactedInstances
}

// Set is the dense {mesh name -> *Mesh} table built at load, plus the
// ordered slice the frame orchestrator iterates every frame (spec.md §9's
// "dynamic mesh map" note: integer-indexed in the hot path, string-indexed
// only during the scene-builder phase).
type Set struct {
	order  []string
	byName map[string]*Mesh
}

// NewSet creates an empty mesh set.
func NewSet() *Set {
	return &Set{byName: make(map[string]*Mesh)}
}

// Add registers a mesh. The mesh's position in Ordered() is its stable
// index for the rest of the frame — the indirect command table and the
// culling pass both address meshes by this index.
func (s *Set) Add(m *Mesh) {
	if _, exists := s.byName[m.Name]; !exists {
		s.order = append(s.order, m.Name)
	}
	s.byName[m.Name] = m
}

// Get looks up a mesh by its stable name.
func (s *Set) Get(name string) (*Mesh, bool) {
	m, ok := s.byName[name]
	return m, ok
}

// Ordered returns every mesh in load order. Index into this slice is the
// mesh's integer ID for the remainder of the frame loop.
func (s *Set) Ordered() []*Mesh {
	out := make([]*Mesh, len(s.order))
	for i, name := range s.order {
		out[i] = s.byName[name]
	}
	return out
}

// Len returns the number of meshes in the set.
func (s *Set) Len() int { return len(s.order) }
