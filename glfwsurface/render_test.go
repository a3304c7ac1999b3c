package glfwsurface

import (
	"runtime"
	"testing"

	"github.com/andewx/vulkano"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

const (
	width  = 500
	height = 500
)

func TestRenderClearFrames(t *testing.T) {
	if testing.Short() {
		t.Skip("needs a display and a Vulkan driver")
	}
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := glfw.Init(); err != nil {
		t.Skipf("glfw unavailable: %v", err)
	}
	defer glfw.Terminate()
	if err := Init(); err != nil {
		t.Skipf("vulkan unavailable: %v", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.Visible, glfw.False)
	window, err := glfw.CreateWindow(width, height, "vulkano", nil, nil)
	if err != nil {
		t.Skipf("no window: %v", err)
	}
	defer window.Destroy()

	cfg := vulkano.Config{
		AppName:      "vulkano-render-test",
		RenderPasses: []vk.RenderPassCreateInfo{vulkano.ColorDepthRenderPass(vk.FormatUndefined)},
	}
	Configure(&cfg, window)
	ctx, err := vulkano.New(cfg)
	if vulkano.KindOf(err) == vulkano.KindUnsupported {
		t.Skipf("no suitable gpu: %v", err)
	}
	require.NoError(t, err)
	defer ctx.Destroy()

	require.NotNil(t, ctx.GPU())
	require.NoError(t, ctx.ConfigureSwapchain(ctx.Resources().RenderPasses[0], 3))

	submitted := 0
	for i := 0; i < 10; i++ {
		frame, err := ctx.BeginFrame([4]float32{0.1, 0.2, 0.3, 1.0})
		if vulkano.KindOf(err) == vulkano.KindMinimized {
			glfw.PollEvents()
			continue
		}
		require.NoError(t, err)
		require.NoError(t, ctx.SubmitFrame(frame, vulkano.SubmitSync{}))
		submitted++
		glfw.PollEvents()
	}
	require.NoError(t, ctx.WaitIdle())
	require.Equal(t, uint64(submitted), ctx.FrameNumber())
}
