// Package scenecache reads and writes the binary scene cache: a forward
// sequence of length-prefixed little-endian records persisting a parsed
// scene so it need not be reparsed from source assets on every load.
// See SPEC_FULL.md §6 / spec.md §6.
package scenecache

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/Carmen-Shannon/hiz-cull-go/common"
)

// MeshRecord is one mesh entry in Section 1 of the cache.
type MeshRecord struct {
	Name             string
	VertexBytes      []byte
	IndexBytes       []byte
	MaterialIndex    uint32
	World            [16]float32
	TextureTransform [16]float32
}

// TextureRecord is one entry in Section 2 (diffuse) or Section 3 (normal).
type TextureRecord struct {
	Filename string
	Name     string
	Index    uint32
}

// MaterialRecord is one entry in Section 4.
type MaterialRecord struct {
	Data    common.GPUMaterialData
	CBIndex uint32
	Name    string
}

// Scene is the full parsed contents of a cache file.
type Scene struct {
	Meshes    []MeshRecord
	Diffuse   []TextureRecord
	Normal    []TextureRecord
	Materials []MaterialRecord
}

// Write serializes s to w in the exact byte layout spec.md §6 defines, so
// that parse-then-write-then-parse round-trips bytewise identically.
func Write(w io.Writer, s *Scene) error {
	bw := bufio.NewWriter(w)

	if err := writeU32(bw, uint32(len(s.Meshes))); err != nil {
		return fmt.Errorf("write mesh count: %w", err)
	}
	for i, m := range s.Meshes {
		if err := writeMesh(bw, m); err != nil {
			return fmt.Errorf("write mesh %d (%q): %w", i, m.Name, err)
		}
	}

	if err := writeTextureSection(bw, s.Diffuse); err != nil {
		return fmt.Errorf("write diffuse textures: %w", err)
	}
	if err := writeTextureSection(bw, s.Normal); err != nil {
		return fmt.Errorf("write normal textures: %w", err)
	}

	if err := writeU32(bw, uint32(len(s.Materials))); err != nil {
		return fmt.Errorf("write material count: %w", err)
	}
	for i, m := range s.Materials {
		if err := writeMaterial(bw, m); err != nil {
			return fmt.Errorf("write material %d (%q): %w", i, m.Name, err)
		}
	}

	return bw.Flush()
}

func writeMesh(w *bufio.Writer, m MeshRecord) error {
	if err := writeString(w, m.Name); err != nil {
		return err
	}
	if err := writeU32(w, uint32(len(m.VertexBytes))); err != nil {
		return err
	}
	if err := writeU32(w, uint32(len(m.IndexBytes))); err != nil {
		return err
	}
	if _, err := w.Write(m.VertexBytes); err != nil {
		return err
	}
	if _, err := w.Write(m.IndexBytes); err != nil {
		return err
	}
	if err := writeU32(w, m.MaterialIndex); err != nil {
		return err
	}
	if err := writeFloats(w, m.World[:]); err != nil {
		return err
	}
	return writeFloats(w, m.TextureTransform[:])
}

func writeTextureSection(w *bufio.Writer, textures []TextureRecord) error {
	if err := writeU32(w, uint32(len(textures))); err != nil {
		return err
	}
	for _, t := range textures {
		if err := writeString(w, t.Filename); err != nil {
			return err
		}
		if err := writeString(w, t.Name); err != nil {
			return err
		}
		if err := writeU32(w, t.Index); err != nil {
			return err
		}
	}
	return nil
}

func writeMaterial(w *bufio.Writer, m MaterialRecord) error {
	if _, err := w.Write(m.Data.Marshal()); err != nil {
		return err
	}
	if err := writeU32(w, m.CBIndex); err != nil {
		return err
	}
	return writeString(w, m.Name)
}

func writeString(w *bufio.Writer, s string) error {
	if err := writeU32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

func writeU32(w *bufio.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeFloats(w *bufio.Writer, values []float32) error {
	var buf [4]byte
	for _, v := range values {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
	}
	return nil
}

// Read parses a cache file from r. It validates section counts and
// requires the reader to reach EOF exactly at the end of Section 4; a
// cache that is corrupt or truncated returns a non-nil error so the loader
// can fall back to reparsing source assets, per spec.md §7's cache-error
// contract.
func Read(r io.Reader) (*Scene, error) {
	br := bufio.NewReader(r)

	meshCount, err := readU32(br)
	if err != nil {
		return nil, fmt.Errorf("read mesh count: %w", err)
	}

	s := &Scene{Meshes: make([]MeshRecord, meshCount)}
	for i := range s.Meshes {
		m, err := readMesh(br)
		if err != nil {
			return nil, fmt.Errorf("read mesh %d: %w", i, err)
		}
		s.Meshes[i] = m
	}

	s.Diffuse, err = readTextureSection(br)
	if err != nil {
		return nil, fmt.Errorf("read diffuse textures: %w", err)
	}
	s.Normal, err = readTextureSection(br)
	if err != nil {
		return nil, fmt.Errorf("read normal textures: %w", err)
	}

	materialCount, err := readU32(br)
	if err != nil {
		return nil, fmt.Errorf("read material count: %w", err)
	}
	s.Materials = make([]MaterialRecord, materialCount)
	for i := range s.Materials {
		m, err := readMaterial(br)
		if err != nil {
			return nil, fmt.Errorf("read material %d: %w", i, err)
		}
		s.Materials[i] = m
	}

	if _, err := br.ReadByte(); err != io.EOF {
		return nil, fmt.Errorf("trailing data after material section")
	}

	return s, nil
}

func readMesh(r *bufio.Reader) (MeshRecord, error) {
	var m MeshRecord
	var err error

	if m.Name, err = readString(r); err != nil {
		return m, fmt.Errorf("name: %w", err)
	}
	vertexBytes, err := readU32(r)
	if err != nil {
		return m, fmt.Errorf("vertex byte count: %w", err)
	}
	indexBytes, err := readU32(r)
	if err != nil {
		return m, fmt.Errorf("index byte count: %w", err)
	}

	m.VertexBytes = make([]byte, vertexBytes)
	if _, err := io.ReadFull(r, m.VertexBytes); err != nil {
		return m, fmt.Errorf("vertex data: %w", err)
	}
	m.IndexBytes = make([]byte, indexBytes)
	if _, err := io.ReadFull(r, m.IndexBytes); err != nil {
		return m, fmt.Errorf("index data: %w", err)
	}

	if m.MaterialIndex, err = readU32(r); err != nil {
		return m, fmt.Errorf("material index: %w", err)
	}
	if err := readFloats(r, m.World[:]); err != nil {
		return m, fmt.Errorf("world matrix: %w", err)
	}
	if err := readFloats(r, m.TextureTransform[:]); err != nil {
		return m, fmt.Errorf("texture transform: %w", err)
	}

	return m, nil
}

func readTextureSection(r *bufio.Reader) ([]TextureRecord, error) {
	count, err := readU32(r)
	if err != nil {
		return nil, fmt.Errorf("count: %w", err)
	}
	records := make([]TextureRecord, count)
	for i := range records {
		filename, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("record %d filename: %w", i, err)
		}
		name, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("record %d name: %w", i, err)
		}
		index, err := readU32(r)
		if err != nil {
			return nil, fmt.Errorf("record %d index: %w", i, err)
		}
		records[i] = TextureRecord{Filename: filename, Name: name, Index: index}
	}
	return records, nil
}

func readMaterial(r *bufio.Reader) (MaterialRecord, error) {
	var m MaterialRecord
	buf := make([]byte, m.Data.Size())
	if _, err := io.ReadFull(r, buf); err != nil {
		return m, fmt.Errorf("material data: %w", err)
	}
	m.Data = common.UnmarshalMaterialData(buf)

	cbIndex, err := readU32(r)
	if err != nil {
		return m, fmt.Errorf("cb index: %w", err)
	}
	m.CBIndex = cbIndex

	if m.Name, err = readString(r); err != nil {
		return m, fmt.Errorf("name: %w", err)
	}
	return m, nil
}

func readString(r *bufio.Reader) (string, error) {
	n, err := readU32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func readU32(r *bufio.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func readFloats(r *bufio.Reader, dst []float32) error {
	var buf [4]byte
	for i := range dst {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return err
		}
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[:]))
	}
	return nil
}
