package vulkano

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slices"
	"golang.org/x/exp/slog"
)

// GPU is the physical device committed during selection together with the
// surface format and present mode chosen for it.
type GPU struct {
	Handle           vk.PhysicalDevice
	Name             string
	Properties       vk.PhysicalDeviceProperties
	MemoryProperties vk.PhysicalDeviceMemoryProperties
	Features         vk.PhysicalDeviceFeatures

	SurfaceFormat vk.SurfaceFormat
	PresentMode   vk.PresentMode
	// QueueFamily supports graphics and presentation to the session surface.
	QueueFamily uint32
}

// selectGPU ranks every visible device worst to best and commits the first
// one, walking from the best, that passes confirmGPU.
func selectGPU(d Driver, instance vk.Instance, surface vk.Surface, cfg *Config) (*GPU, error) {
	handles, ret := d.PhysicalDevices(instance)
	if err := newError("enumerate physical devices", ret); err != nil {
		return nil, err
	}
	if len(handles) == 0 {
		return nil, errors.WithStack(ErrNoGPU)
	}
	candidates := make([]GPUInfo, len(handles))
	for i, h := range handles {
		candidates[i] = GPUInfo{
			Handle:           h,
			Properties:       d.PhysicalDeviceProperties(h),
			MemoryProperties: d.PhysicalDeviceMemoryProperties(h),
		}
	}
	slices.SortStableFunc(candidates, cfg.GPUCompare)

	var reason error
	for i := len(candidates) - 1; i >= 0; i-- {
		gpu, err := confirmGPU(d, candidates[i], surface, cfg)
		if err == nil {
			return gpu, nil
		}
		if k := KindOf(err); k != KindUnsupported {
			return nil, err
		}
		cfg.Logger.Debug("vulkan: gpu rejected",
			slog.String("name", deviceName(candidates[i].Properties)),
			slog.Any("reason", err))
		reason = err
	}
	return nil, markf(ErrNoSuitableGPU, "%d candidates rejected, last: %v", len(candidates), reason)
}

// confirmGPU checks extension support and queue/surface compatibility of one
// candidate and fills in the rest of the GPU record.
func confirmGPU(d Driver, info GPUInfo, surface vk.Surface, cfg *Config) (*GPU, error) {
	name := deviceName(info.Properties)
	if err := checkDeviceExtensions(d, info.Handle, cfg.DeviceExtensions); err != nil {
		return nil, errors.Wrapf(err, "gpu %q", name)
	}
	family, ok, err := findQueueFamily(d, info.Handle, surface)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, markf(ErrNoSuitableGPU, "gpu %q: no queue family supports graphics and presentation", name)
	}

	formats, ret := d.SurfaceFormats(info.Handle, surface)
	if err := newError("enumerate surface formats", ret); err != nil {
		return nil, err
	}
	format, ok := SelectSurfaceFormat(formats, cfg.SurfaceFormatCompare)
	if !ok {
		return nil, markf(ErrNoSuitableGPU, "gpu %q: surface reports no formats", name)
	}
	modes, ret := d.PresentModes(info.Handle, surface)
	if err := newError("enumerate present modes", ret); err != nil {
		return nil, err
	}
	mode, ok := SelectPresentMode(modes, cfg.PresentModeCompare)
	if !ok {
		return nil, markf(ErrNoSuitableGPU, "gpu %q: surface reports no present modes", name)
	}

	return &GPU{
		Handle:           info.Handle,
		Name:             name,
		Properties:       info.Properties,
		MemoryProperties: info.MemoryProperties,
		Features:         d.PhysicalDeviceFeatures(info.Handle),
		SurfaceFormat:    format,
		PresentMode:      mode,
		QueueFamily:      family,
	}, nil
}

func deviceName(props vk.PhysicalDeviceProperties) string {
	return vk.ToString(props.DeviceName[:])
}

// createDevice opens the logical device with one queue on the selected
// family. Sampler anisotropy is enabled when the GPU has it.
func createDevice(d Driver, gpu *GPU, cfg *Config) (vk.Device, error) {
	var features vk.PhysicalDeviceFeatures
	if gpu.Features.SamplerAnisotropy == vk.True {
		features.SamplerAnisotropy = vk.True
	} else {
		cfg.Logger.Warn("vulkan warning: sampler anisotropy not supported", slog.String("gpu", gpu.Name))
	}
	queueInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: gpu.QueueFamily,
		QueueCount:       1,
		PQueuePriorities: []float32{1.0},
	}}
	device, ret := d.CreateDevice(gpu.Handle, &vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(cfg.DeviceExtensions)),
		PpEnabledExtensionNames: safeStrings(cfg.DeviceExtensions),
		EnabledLayerCount:       uint32(len(cfg.Layers)),
		PpEnabledLayerNames:     safeStrings(cfg.Layers),
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{features},
	})
	if err := newError("create device", ret); err != nil {
		return nil, err
	}
	cfg.Logger.Info("vulkan: enabling device extensions", slog.Int("count", len(cfg.DeviceExtensions)))
	return device, nil
}
