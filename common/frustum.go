package common

import "github.com/go-gl/mathgl/mgl32"

// Plane represents a plane in 3D space using the equation: ax + by + cz + d = 0
// where (a, b, c) is the normal and d is the distance from origin. Normal is
// an mgl32.Vec3 so a Frustum's planes share the same vector type AABB's
// Center/Extents use, rather than a parallel [3]float32 representation.
type Plane struct {
	Normal   mgl32.Vec3
	Distance float32
}

// Frustum represents the six planes of a view frustum for culling.
// Planes are oriented so that positive half-space is inside the frustum.
// AABB.IntersectsFrustum is the consumer: every instance's WorldAABB is
// tested against these six planes each frame.
type Frustum struct {
	Planes [6]Plane // Left, Right, Bottom, Top, Near, Far
}

// FrustumPlane indices for clarity
const (
	FrustumLeft   = 0
	FrustumRight  = 1
	FrustumBottom = 2
	FrustumTop    = 3
	FrustumNear   = 4
	FrustumFar    = 5
)

// ExtractFrustumFromMatrix extracts frustum planes from a view-projection matrix.
// The matrix should be the combined View * Projection matrix.
// Uses the Gribb/Hartmann method for plane extraction.
//
// Reference: https://www8.cs.umu.se/kurser/5DV051/HT12/lab/plane_extraction.pdf
//
// Parameters:
//   - viewProj: 16 float32 values representing the view-projection matrix (column-major)
//
// Returns:
//   - Frustum: the extracted frustum with normalized planes
func ExtractFrustumFromMatrix(viewProj []float32) Frustum {
	var m mgl32.Mat4
	copy(m[:], viewProj)

	var f Frustum

	// For column-major matrix M, element M[row][col] is at index col*4 + row
	// So M[i][j] = m[j*4 + i]

	// Left plane: row3 + row0
	f.Planes[FrustumLeft] = Plane{
		Normal:   mgl32.Vec3{m[3] + m[0], m[7] + m[4], m[11] + m[8]},
		Distance: m[15] + m[12],
	}

	// Right plane: row3 - row0
	f.Planes[FrustumRight] = Plane{
		Normal:   mgl32.Vec3{m[3] - m[0], m[7] - m[4], m[11] - m[8]},
		Distance: m[15] - m[12],
	}

	// Bottom plane: row3 + row1
	f.Planes[FrustumBottom] = Plane{
		Normal:   mgl32.Vec3{m[3] + m[1], m[7] + m[5], m[11] + m[9]},
		Distance: m[15] + m[13],
	}

	// Top plane: row3 - row1
	f.Planes[FrustumTop] = Plane{
		Normal:   mgl32.Vec3{m[3] - m[1], m[7] - m[5], m[11] - m[9]},
		Distance: m[15] - m[13],
	}

	// Near plane: row3 + row2
	f.Planes[FrustumNear] = Plane{
		Normal:   mgl32.Vec3{m[3] + m[2], m[7] + m[6], m[11] + m[10]},
		Distance: m[15] + m[14],
	}

	// Far plane: row3 - row2
	f.Planes[FrustumFar] = Plane{
		Normal:   mgl32.Vec3{m[3] - m[2], m[7] - m[6], m[11] - m[10]},
		Distance: m[15] - m[14],
	}

	for i := range f.Planes {
		f.normalizePlane(i)
	}

	return f
}

// normalizePlane normalizes a frustum plane so that the normal has unit length.
func (f *Frustum) normalizePlane(index int) {
	p := &f.Planes[index]
	length := p.Normal.Len()
	if length > 0 {
		invLen := 1.0 / length
		p.Normal = p.Normal.Mul(invLen)
		p.Distance *= invLen
	}
}
