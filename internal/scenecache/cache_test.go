package scenecache

import (
	"bytes"
	"testing"

	"github.com/Carmen-Shannon/hiz-cull-go/common"
)

func sampleScene() *Scene {
	var world, tex [16]float32
	world[0], world[5], world[10], world[15] = 1, 1, 1, 1
	tex[0], tex[5], tex[10], tex[15] = 1, 1, 1, 1

	return &Scene{
		Meshes: []MeshRecord{
			{
				Name:             "terrain",
				VertexBytes:      []byte{1, 2, 3, 4, 5, 6, 7, 8},
				IndexBytes:       []byte{0, 0, 0, 0, 1, 0, 0, 0},
				MaterialIndex:    0,
				World:            world,
				TextureTransform: tex,
			},
			{
				Name:             "tree",
				VertexBytes:      []byte{9, 9, 9, 9},
				IndexBytes:       []byte{2, 0, 0, 0},
				MaterialIndex:    1,
				World:            world,
				TextureTransform: tex,
			},
		},
		Diffuse: []TextureRecord{
			{Filename: "diffuse0.png", Name: "dirt", Index: 0},
		},
		Normal: []TextureRecord{
			{Filename: "normal0.png", Name: "dirt_n", Index: 0},
		},
		Materials: []MaterialRecord{
			{Data: common.GPUMaterialData{Roughness: 0.5}, CBIndex: 0, Name: "dirt_mat"},
		},
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	scene := sampleScene()

	var buf bytes.Buffer
	if err := Write(&buf, scene); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := Read(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if len(got.Meshes) != len(scene.Meshes) {
		t.Fatalf("mesh count = %d, want %d", len(got.Meshes), len(scene.Meshes))
	}
	for i := range scene.Meshes {
		if got.Meshes[i].Name != scene.Meshes[i].Name {
			t.Errorf("mesh %d name = %q, want %q", i, got.Meshes[i].Name, scene.Meshes[i].Name)
		}
		if !bytes.Equal(got.Meshes[i].VertexBytes, scene.Meshes[i].VertexBytes) {
			t.Errorf("mesh %d vertex bytes mismatch", i)
		}
		if !bytes.Equal(got.Meshes[i].IndexBytes, scene.Meshes[i].IndexBytes) {
			t.Errorf("mesh %d index bytes mismatch", i)
		}
		if got.Meshes[i].World != scene.Meshes[i].World {
			t.Errorf("mesh %d world matrix mismatch", i)
		}
	}

	if len(got.Diffuse) != 1 || got.Diffuse[0].Name != "dirt" {
		t.Errorf("diffuse textures round-trip mismatch: %+v", got.Diffuse)
	}
	if len(got.Materials) != 1 || got.Materials[0].Data.Roughness != 0.5 {
		t.Errorf("materials round-trip mismatch: %+v", got.Materials)
	}
}

func TestWriteIsBytewiseDeterministic(t *testing.T) {
	scene := sampleScene()

	var first, second bytes.Buffer
	if err := Write(&first, scene); err != nil {
		t.Fatalf("first Write failed: %v", err)
	}
	if err := Write(&second, scene); err != nil {
		t.Fatalf("second Write failed: %v", err)
	}

	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Fatal("Write is not deterministic across identical inputs")
	}
}

func TestParseWriteParseRoundTrip(t *testing.T) {
	scene := sampleScene()

	var original bytes.Buffer
	if err := Write(&original, scene); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	parsed, err := Read(bytes.NewReader(original.Bytes()))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	var rewritten bytes.Buffer
	if err := Write(&rewritten, parsed); err != nil {
		t.Fatalf("re-Write failed: %v", err)
	}

	if !bytes.Equal(original.Bytes(), rewritten.Bytes()) {
		t.Fatal("parse-then-write-then-parse did not yield a bytewise-identical file")
	}
}

func TestReadRejectsTrailingData(t *testing.T) {
	scene := sampleScene()

	var buf bytes.Buffer
	if err := Write(&buf, scene); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	buf.Write([]byte{0xFF})

	if _, err := Read(bytes.NewReader(buf.Bytes())); err == nil {
		t.Fatal("expected Read to reject trailing data after the material section")
	}
}

func TestReadRejectsTruncatedFile(t *testing.T) {
	scene := sampleScene()

	var buf bytes.Buffer
	if err := Write(&buf, scene); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	truncated := buf.Bytes()[:buf.Len()-4]
	if _, err := Read(bytes.NewReader(truncated)); err == nil {
		t.Fatal("expected Read to reject a truncated cache file")
	}
}
