package vulkano

import (
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slices"
)

// ValidationLayers gets the validation layers available on the platform.
func ValidationLayers(d Driver) ([]string, error) {
	names, ret := d.InstanceLayers()
	return names, newError("enumerate instance layers", ret)
}

// InstanceExtensions gets the instance extensions available on the platform.
func InstanceExtensions(d Driver) ([]string, error) {
	names, ret := d.InstanceExtensions()
	return names, newError("enumerate instance extensions", ret)
}

// DeviceExtensions gets the extensions available on gpu.
func DeviceExtensions(d Driver, gpu vk.PhysicalDevice) ([]string, error) {
	names, ret := d.DeviceExtensions(gpu)
	return names, newError("enumerate device extensions", ret)
}

// checkExisting reports the first required name missing from actual,
// wrapped in sentinel.
func checkExisting(actual, required []string, sentinel error) error {
	have := make(map[string]struct{}, len(actual))
	for _, name := range actual {
		have[name] = struct{}{}
	}
	for _, name := range required {
		if _, ok := have[name]; !ok {
			return markf(sentinel, "%q", name)
		}
	}
	return nil
}

func checkLayers(d Driver, required []string) error {
	if len(required) == 0 {
		return nil
	}
	actual, err := ValidationLayers(d)
	if err != nil {
		return err
	}
	return checkExisting(actual, required, ErrUnsupportedLayer)
}

func checkInstanceExtensions(d Driver, required []string) error {
	if len(required) == 0 {
		return nil
	}
	actual, err := InstanceExtensions(d)
	if err != nil {
		return err
	}
	return checkExisting(actual, required, ErrUnsupportedInstanceExtension)
}

func checkDeviceExtensions(d Driver, gpu vk.PhysicalDevice, required []string) error {
	actual, err := DeviceExtensions(d, gpu)
	if err != nil {
		return err
	}
	return checkExisting(actual, required, ErrUnsupportedDeviceExtension)
}

// selectBest sorts a copy of items worst to best and returns the last one.
func selectBest[T any](items []T, cmp func(a, b T) int) (T, bool) {
	var zero T
	if len(items) == 0 {
		return zero, false
	}
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, cmp)
	return sorted[len(sorted)-1], true
}

// SelectPresentMode picks the best of modes under cmp.
func SelectPresentMode(modes []vk.PresentMode, cmp PresentModeCompare) (vk.PresentMode, bool) {
	if cmp == nil {
		cmp = DefaultPresentModeCompare
	}
	return selectBest[vk.PresentMode](modes, cmp)
}

// SelectSurfaceFormat picks the best of formats under cmp.
func SelectSurfaceFormat(formats []vk.SurfaceFormat, cmp SurfaceFormatCompare) (vk.SurfaceFormat, bool) {
	if cmp == nil {
		cmp = DefaultSurfaceFormatCompare
	}
	return selectBest[vk.SurfaceFormat](formats, cmp)
}

func compareUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

const heapSizeMask = uint64(1)<<61 - 1

// gpuScore puts the device type in the top bits and the size of the first
// device-local heap below them.
func gpuScore(info GPUInfo) uint64 {
	var score uint64
	switch info.Properties.DeviceType {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		score = 1 << 63
	case vk.PhysicalDeviceTypeIntegratedGpu:
		score = 1 << 62
	case vk.PhysicalDeviceTypeVirtualGpu:
		score = 1 << 61
	}
	mem := info.MemoryProperties
	for i := uint32(0); i < mem.MemoryHeapCount && int(i) < len(mem.MemoryHeaps); i++ {
		heap := mem.MemoryHeaps[i]
		if vk.MemoryHeapFlagBits(heap.Flags)&vk.MemoryHeapDeviceLocalBit != 0 {
			score += uint64(heap.Size) & heapSizeMask
			break
		}
	}
	return score
}

// DefaultGPUCompare ranks discrete > integrated > virtual > other, then by
// device-local heap size.
func DefaultGPUCompare(a, b GPUInfo) int {
	return compareUint64(gpuScore(a), gpuScore(b))
}

func presentModeScore(mode vk.PresentMode) uint64 {
	switch mode {
	case vk.PresentModeMailbox:
		return 4
	case vk.PresentModeFifo:
		return 3
	case vk.PresentModeFifoRelaxed:
		return 2
	case vk.PresentModeImmediate:
		return 1
	}
	return 0
}

// DefaultPresentModeCompare ranks mailbox > fifo > fifo-relaxed > immediate > unknown.
func DefaultPresentModeCompare(a, b vk.PresentMode) int {
	return compareUint64(presentModeScore(a), presentModeScore(b))
}

func surfaceFormatScore(format vk.SurfaceFormat) uint64 {
	var score uint64
	if format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
		score |= 1 << 30
	}
	if format.Format == vk.FormatB8g8r8a8Srgb {
		score |= 1 << 29
	}
	return score
}

// DefaultSurfaceFormatCompare prefers the sRGB non-linear color space, then
// B8G8R8A8_SRGB.
func DefaultSurfaceFormatCompare(a, b vk.SurfaceFormat) int {
	return compareUint64(surfaceFormatScore(a), surfaceFormatScore(b))
}
