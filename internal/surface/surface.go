// Package surface provides the minimal window/surface collaborator the
// device context needs: a platform surface descriptor and a resize
// notification. The free-fly camera and input handling the teacher's
// window package also carries are out of scope here — the culling core
// consumes a view/projection matrix and a surface, nothing else.
package surface

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// Surface wraps a platform window for the sole purpose of handing the
// device context a wgpu.SurfaceDescriptor and reporting resizes.
type Surface interface {
	// SetResizeCallback sets the function called when the framebuffer is resized.
	SetResizeCallback(callback func(width, height int))

	// Descriptor returns a platform-appropriate wgpu.SurfaceDescriptor.
	Descriptor() *wgpu.SurfaceDescriptor

	// IsRunning reports whether the window is still open.
	IsRunning() bool

	// Close destroys the window and releases platform resources.
	Close() error

	// PollEvents polls the platform event queue without blocking.
	//
	// Returns:
	//   - bool: true if the window is still running after polling
	PollEvents() bool

	// Width returns the current framebuffer width in pixels.
	Width() int

	// Height returns the current framebuffer height in pixels.
	Height() int
}

type glfwSurface struct {
	window   *glfw.Window
	running  bool
	width    int
	height   int
	onResize func(width, height int)
}

var _ Surface = &glfwSurface{}

// New creates a platform window of the given size and title and returns the
// Surface collaborator wrapping it.
func New(width, height int, title string) (Surface, error) {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize GLFW: %w", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("failed to create GLFW window: %w", err)
	}

	s := &glfwSurface{
		window:  win,
		running: true,
	}

	win.SetFramebufferSizeCallback(func(_ *glfw.Window, w, h int) {
		s.width = w
		s.height = h
		if s.onResize != nil {
			s.onResize(w, h)
		}
	})

	fbWidth, fbHeight := win.GetFramebufferSize()
	s.width = fbWidth
	s.height = fbHeight

	return s, nil
}

func (s *glfwSurface) SetResizeCallback(callback func(width, height int)) {
	s.onResize = callback
}

func (s *glfwSurface) Descriptor() *wgpu.SurfaceDescriptor {
	return wgpuglfw.GetSurfaceDescriptor(s.window)
}

func (s *glfwSurface) IsRunning() bool {
	return s.running && !s.window.ShouldClose()
}

func (s *glfwSurface) Close() error {
	s.running = false
	s.window.SetShouldClose(true)
	s.window.Destroy()
	glfw.Terminate()
	return nil
}

func (s *glfwSurface) PollEvents() bool {
	glfw.PollEvents()
	return s.IsRunning()
}

func (s *glfwSurface) Width() int {
	return s.width
}

func (s *glfwSurface) Height() int {
	return s.height
}
