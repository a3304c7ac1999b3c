package vulkano

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
	lin "github.com/xlab/linmath"
)

// VulkanProjectionMat converts an OpenGL style projection matrix to Vulkan style projection matrix.
// Vulkan has a topLeft clipSpace with [0, 1] depth range instead of [-1, 1].
func VulkanProjectionMat(m *lin.Mat4x4, proj *lin.Mat4x4) {
	// Columns: flip Y in clipspace, X = -1, Y = -1 is topLeft in Vulkan,
	// then map Z from [-1, 1] to [0, 1].
	fix := lin.Mat4x4{
		{1.0, 0.0, 0.0, 0.0},
		{0.0, -1.0, 0.0, 0.0},
		{0.0, 0.0, 0.5, 0.0},
		{0.0, 0.0, 0.5, 1.0},
	}
	m.Mult(&fix, proj)
}

// Perspective returns a Vulkan clip space perspective projection for the
// given extent, with fovy in radians.
func Perspective(fovy float32, extent vk.Extent2D, near, far float32) lin.Mat4x4 {
	var gl, m lin.Mat4x4
	aspect := float32(1)
	if extent.Height > 0 {
		aspect = float32(extent.Width) / float32(extent.Height)
	}
	gl.Perspective(fovy, aspect, near, far)
	VulkanProjectionMat(&m, &gl)
	return m
}

// MatBytes views m as the 64 bytes a mat4 push constant or uniform expects.
func MatBytes(m *lin.Mat4x4) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(m)), unsafe.Sizeof(*m))
}

// Viewport covers the live swapchain extent with the [0, 1] depth range.
func (c *Context) Viewport() vk.Viewport {
	e := c.Extent()
	return vk.Viewport{
		Width:    float32(e.Width),
		Height:   float32(e.Height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
}

// Scissor covers the live swapchain extent.
func (c *Context) Scissor() vk.Rect2D {
	return vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: c.Extent(),
	}
}
