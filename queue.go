package vulkano

import (
	vk "github.com/vulkan-go/vulkan"
)

// findQueueFamily returns the first queue family on gpu that supports both
// graphics operations and presentation to surface.
func findQueueFamily(d Driver, gpu vk.PhysicalDevice, surface vk.Surface) (uint32, bool, error) {
	families := d.QueueFamilies(gpu)
	for i := range families {
		if families[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) == 0 {
			continue
		}
		supported, ret := d.SurfaceSupport(gpu, uint32(i), surface)
		if err := newError("query surface support", ret); err != nil {
			return 0, false, err
		}
		if supported {
			return uint32(i), true, nil
		}
	}
	return 0, false, nil
}
