package common

import (
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// Identity resets a 4x4 matrix (flat slice) to the identity matrix.
// The matrix is stored in column-major order.
//
// Parameters:
//   - m: destination slice (must be at least 16 elements)
func Identity(m []float32) {
	id := mgl32.Ident4()
	copy(m, id[:])
}

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// Perspective creates a perspective projection matrix.
// Uses a finite far plane and maps view depth near..far to WebGPU clip-space
// z in [0, 1].
//
// mgl32.Perspective targets OpenGL's [-1, 1] clip-space z, which does not
// match the [0, 1] convention every Hi-Z depth comparison in this core
// depends on, so this builds the matrix by hand rather than delegating.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
func Perspective(out []float32, fovY, aspect, near, far float32) {
	f := 1.0 / float32(math.Tan(float64(fovY)/2.0))
	Identity(out)

	out[0] = f / aspect
	out[5] = f
	out[10] = far / (near - far)
	out[11] = -1.0
	out[14] = (near * far) / (near - far)
	out[15] = 0.0
}

// BuildModelMatrix constructs a 4x4 model matrix from position, Euler rotation, and scale.
// The rotation order is Y * X * Z (yaw-pitch-roll), composed as M = T * Ry * Rx * Rz * S
// using mgl32's rotation/scale/translation builders rather than a hand-expanded
// trig matrix. All matrices are column-major.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - posX, posY, posZ: translation in world space
//   - rotX, rotY, rotZ: rotation angles in radians around each axis
//   - scaleX, scaleY, scaleZ: scale factors along each axis
func BuildModelMatrix(out []float32, posX, posY, posZ, rotX, rotY, rotZ, scaleX, scaleY, scaleZ float32) {
	t := mgl32.Translate3D(posX, posY, posZ)
	r := mgl32.HomogRotate3DY(rotY).Mul4(mgl32.HomogRotate3DX(rotX)).Mul4(mgl32.HomogRotate3DZ(rotZ))
	s := mgl32.Scale3D(scaleX, scaleY, scaleZ)

	m := t.Mul4(r).Mul4(s)
	copy(out, m[:])
}

// LookAt creates a view matrix that positions and orients the camera.
// The resulting matrix transforms world coordinates to view/camera space.
// Delegates to mgl32.LookAtV, which implements the same eye/center/up
// convention this builder's parameters describe.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - eyeX, eyeY, eyeZ: camera position in world space
//   - centerX, centerY, centerZ: target point the camera looks at
//   - upX, upY, upZ: up vector defining camera orientation (typically 0,1,0)
func LookAt(out []float32, eyeX, eyeY, eyeZ, centerX, centerY, centerZ, upX, upY, upZ float32) {
	m := mgl32.LookAtV(
		mgl32.Vec3{eyeX, eyeY, eyeZ},
		mgl32.Vec3{centerX, centerY, centerZ},
		mgl32.Vec3{upX, upY, upZ},
	)
	copy(out, m[:])
}
