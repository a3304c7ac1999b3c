package vulkano

import (
	vk "github.com/vulkan-go/vulkan"
)

// commandPool is the pool shared by single-use submissions. Its buffers are
// allocated per call and freed once the submission completes.
type commandPool struct {
	handle vk.CommandPool
	family uint32
}

func newCommandPool(d Driver, device vk.Device, family uint32) (*commandPool, error) {
	pool, ret := d.CreateCommandPool(device, family)
	if err := newError("create command pool", ret); err != nil {
		return nil, err
	}
	return &commandPool{handle: pool, family: family}, nil
}

func (p *commandPool) destroy(d Driver, device vk.Device) {
	if p == nil || p.handle == vk.NullCommandPool {
		return
	}
	d.DestroyCommandPool(device, p.handle)
	p.handle = vk.NullCommandPool
}
