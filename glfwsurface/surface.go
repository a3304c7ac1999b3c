// Package glfwsurface connects a GLFW window to vulkano: it supplies the
// surface and drawable-size callbacks and the instance extensions GLFW needs.
package glfwsurface

import (
	"github.com/andewx/vulkano"
	"github.com/cockroachdb/errors"
	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"
)

// Init points vulkan-go at the loader GLFW found and initializes it.
// glfw.Init must have succeeded and the calling goroutine should be locked
// to the main thread.
func Init() error {
	if !glfw.VulkanSupported() {
		return errors.New("glfwsurface: vulkan loader not found")
	}
	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	return errors.Wrap(vk.Init(), "glfwsurface: vulkan init")
}

// Window adapts a GLFW window created with the NoAPI client hint.
type Window struct {
	*glfw.Window
}

// CreateSurface is a vulkano.SurfaceFunc.
func (w Window) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	ptr, err := w.Window.CreateWindowSurface(instance, nil)
	if err != nil {
		return vk.NullSurface, errors.Wrap(err, "glfwsurface: create window surface")
	}
	return vk.SurfaceFromPointer(ptr), nil
}

// Size is a vulkano.SizeFunc reporting the framebuffer size in pixels.
// A minimized window reports zero.
func (w Window) Size() (width, height uint32) {
	fw, fh := w.GetFramebufferSize()
	if fw < 0 {
		fw = 0
	}
	if fh < 0 {
		fh = 0
	}
	return uint32(fw), uint32(fh)
}

// RequiredExtensions lists the instance extensions GLFW needs to create
// surfaces on this platform.
func (w Window) RequiredExtensions() []string {
	return w.GetRequiredInstanceExtensions()
}

// Configure wires w into cfg: both callbacks and the surface extensions.
func Configure(cfg *vulkano.Config, w *glfw.Window) {
	win := Window{w}
	cfg.CreateSurface = win.CreateSurface
	cfg.WindowSize = win.Size
	cfg.InstanceExtensions = append(cfg.InstanceExtensions, win.RequiredExtensions()...)
}
