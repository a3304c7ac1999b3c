package vulkano

import (
	"time"

	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"
)

const (
	// DefaultTimeout bounds every fence and acquire wait.
	DefaultTimeout = 5 * time.Second
	// DefaultMaxSwapchainRebuilds bounds the stale-chain retry loop in BeginFrame.
	DefaultMaxSwapchainRebuilds = 4
	// DepthFormat is the format of the per-image depth attachments.
	DepthFormat = vk.FormatD24UnormS8Uint

	validationLayer    = "VK_LAYER_KHRONOS_validation"
	swapchainExtension = "VK_KHR_swapchain"
	debugReportExt     = "VK_EXT_debug_report"
)

// SurfaceFunc creates the presentable surface for instance.
type SurfaceFunc func(instance vk.Instance) (vk.Surface, error)

// SizeFunc reports the drawable size of the window in pixels.
type SizeFunc func() (width, height uint32)

// GPUInfo is what a GPU comparator gets to look at.
type GPUInfo struct {
	Handle           vk.PhysicalDevice
	Properties       vk.PhysicalDeviceProperties
	MemoryProperties vk.PhysicalDeviceMemoryProperties
}

// Comparators define a total order, returning a negative number when a ranks
// below b, zero when equal and positive otherwise. Candidates are sorted
// worst to best and the last one wins.
type (
	GPUCompare           func(a, b GPUInfo) int
	PresentModeCompare   func(a, b vk.PresentMode) int
	SurfaceFormatCompare func(a, b vk.SurfaceFormat) int
)

// Config is the caller-owned description of a session.
type Config struct {
	// CreateSurface and WindowSize are required.
	CreateSurface SurfaceFunc
	WindowSize    SizeFunc

	AppName    string
	APIVersion vk.Version

	// Validation enables VK_LAYER_KHRONOS_validation.
	Validation bool
	// DebugReport registers a VK_EXT_debug_report callback logging through Logger.
	DebugReport bool

	Layers             []string
	InstanceExtensions []string
	DeviceExtensions   []string

	GPUCompare           GPUCompare
	PresentModeCompare   PresentModeCompare
	SurfaceFormatCompare SurfaceFormatCompare

	RenderPasses         []vk.RenderPassCreateInfo
	DescriptorSetLayouts []vk.DescriptorSetLayoutCreateInfo
	PipelineLayouts      []PipelineLayoutConfig
	DescriptorPools      []vk.DescriptorPoolCreateInfo
	Pipelines            []PipelineConfig

	// FramesInFlight is the number of frame sync slots. Zero uses the
	// swapchain image count.
	FramesInFlight int
	// Timeout bounds fence and acquire waits. Zero uses DefaultTimeout.
	Timeout              time.Duration
	MaxSwapchainRebuilds int

	Logger *slog.Logger
	Driver Driver
}

func (c Config) withDefaults() Config {
	if c.AppName == "" {
		c.AppName = "vulkano"
	}
	if c.APIVersion == 0 {
		c.APIVersion = vk.Version(vk.MakeVersion(1, 0, 0))
	}
	if c.GPUCompare == nil {
		c.GPUCompare = DefaultGPUCompare
	}
	if c.PresentModeCompare == nil {
		c.PresentModeCompare = DefaultPresentModeCompare
	}
	if c.SurfaceFormatCompare == nil {
		c.SurfaceFormatCompare = DefaultSurfaceFormatCompare
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxSwapchainRebuilds <= 0 {
		c.MaxSwapchainRebuilds = DefaultMaxSwapchainRebuilds
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Driver == nil {
		c.Driver = VulkanDriver()
	}
	var baseLayers, baseInstance []string
	if c.Validation {
		baseLayers = []string{validationLayer}
	}
	if c.DebugReport {
		baseInstance = []string{debugReportExt}
	}
	c.Layers = mergeNames(baseLayers, c.Layers)
	c.InstanceExtensions = mergeNames(baseInstance, c.InstanceExtensions)
	c.DeviceExtensions = mergeNames([]string{swapchainExtension}, c.DeviceExtensions)
	return c
}

// validate checks everything that can be checked without touching the GPU.
func (c *Config) validate() error {
	if c.CreateSurface == nil {
		return configErrorf("vulkano: CreateSurface callback is required")
	}
	if c.WindowSize == nil {
		return configErrorf("vulkano: WindowSize callback is required")
	}
	if c.FramesInFlight < 0 {
		return configErrorf("vulkano: FramesInFlight must not be negative, got %d", c.FramesInFlight)
	}
	return validateResources(c)
}

func (c *Config) timeoutNanos() uint64 {
	return uint64(c.Timeout.Nanoseconds())
}

// mergeNames appends extra to base, dropping duplicates and empty names
// while keeping first-seen order.
func mergeNames(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, name := range list {
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}
