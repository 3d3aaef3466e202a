package common

import "github.com/go-gl/mathgl/mgl32"

// AABB is an axis-aligned bounding box expressed as a center and half-extents,
// matching the object-space bounding box carried on every Mesh record.
type AABB struct {
	Center  mgl32.Vec3
	Extents mgl32.Vec3
}

// Corners returns the 8 object-space corner points of the box.
func (b AABB) Corners() [8][3]float32 {
	var out [8][3]float32
	i := 0
	for _, sx := range [2]float32{-1, 1} {
		for _, sy := range [2]float32{-1, 1} {
			for _, sz := range [2]float32{-1, 1} {
				out[i] = [3]float32{
					b.Center[0] + sx*b.Extents[0],
					b.Center[1] + sy*b.Extents[1],
					b.Center[2] + sz*b.Extents[2],
				}
				i++
			}
		}
	}
	return out
}

// TransformPoint applies a column-major 4x4 matrix to a point.
func TransformPoint(m []float32, p [3]float32) [3]float32 {
	var mat mgl32.Mat4
	copy(mat[:], m)
	v := mat.Mul4x1(mgl32.Vec4{p[0], p[1], p[2], 1})
	return [3]float32{v[0], v[1], v[2]}
}

// WorldAABB transforms the object-space box corners by the world matrix and
// returns the axis-aligned bounds of the resulting point cloud, matching the
// per-instance shader logic's "transform the object-space AABB corners by
// the instance's world matrix to obtain a world-space AABB" step.
func (b AABB) WorldAABB(world []float32) AABB {
	corners := b.Corners()
	min := TransformPoint(world, corners[0])
	max := min
	for i := 1; i < len(corners); i++ {
		p := TransformPoint(world, corners[i])
		for a := 0; a < 3; a++ {
			if p[a] < min[a] {
				min[a] = p[a]
			}
			if p[a] > max[a] {
				max[a] = p[a]
			}
		}
	}
	var out AABB
	for a := 0; a < 3; a++ {
		out.Center[a] = (min[a] + max[a]) / 2
		out.Extents[a] = (max[a] - min[a]) / 2
	}
	return out
}

// IntersectsFrustum tests the box against all six frustum planes using the
// standard positive-vertex (p-vertex) test: reject if the box lies entirely
// in the negative half-space of any plane.
func (b AABB) IntersectsFrustum(f Frustum) bool {
	for _, plane := range f.Planes {
		var px, py, pz float32
		if plane.Normal[0] >= 0 {
			px = b.Center[0] + b.Extents[0]
		} else {
			px = b.Center[0] - b.Extents[0]
		}
		if plane.Normal[1] >= 0 {
			py = b.Center[1] + b.Extents[1]
		} else {
			py = b.Center[1] - b.Extents[1]
		}
		if plane.Normal[2] >= 0 {
			pz = b.Center[2] + b.Extents[2]
		} else {
			pz = b.Center[2] - b.Extents[2]
		}
		dist := plane.Normal[0]*px + plane.Normal[1]*py + plane.Normal[2]*pz + plane.Distance
		if dist < 0 {
			return false
		}
	}
	return true
}
