package vulkano

import (
	vk "github.com/vulkan-go/vulkan"
)

// frameSlot holds the synchronization objects and command recording state
// for one frame in flight. Slots are used round-robin by frame number.
type frameSlot struct {
	imageAcquired  vk.Semaphore
	renderComplete vk.Semaphore
	// fence is signaled when the GPU finishes the last submission that used
	// this slot. It is created signaled so the first wait returns at once.
	fence vk.Fence
	pool  vk.CommandPool
	cmd   vk.CommandBuffer
}

func newFrameSlot(d Driver, device vk.Device, family uint32) (slot frameSlot, err error) {
	defer func() {
		if err != nil {
			slot.destroy(d, device)
		}
	}()
	var ret vk.Result
	if slot.imageAcquired, ret = d.CreateSemaphore(device); isError(ret) {
		return slot, newError("create image acquired semaphore", ret)
	}
	if slot.renderComplete, ret = d.CreateSemaphore(device); isError(ret) {
		return slot, newError("create render complete semaphore", ret)
	}
	if slot.fence, ret = d.CreateFence(device, true); isError(ret) {
		return slot, newError("create frame fence", ret)
	}
	if slot.pool, ret = d.CreateCommandPool(device, family); isError(ret) {
		return slot, newError("create frame command pool", ret)
	}
	if slot.cmd, ret = d.AllocateCommandBuffer(device, slot.pool); isError(ret) {
		return slot, newError("allocate frame command buffer", ret)
	}
	return slot, nil
}

func (s *frameSlot) destroy(d Driver, device vk.Device) {
	if s.cmd != nil {
		d.FreeCommandBuffer(device, s.pool, s.cmd)
		s.cmd = nil
	}
	if s.pool != vk.NullCommandPool {
		d.DestroyCommandPool(device, s.pool)
		s.pool = vk.NullCommandPool
	}
	if s.fence != vk.NullFence {
		d.DestroyFence(device, s.fence)
		s.fence = vk.NullFence
	}
	if s.renderComplete != vk.NullSemaphore {
		d.DestroySemaphore(device, s.renderComplete)
		s.renderComplete = vk.NullSemaphore
	}
	if s.imageAcquired != vk.NullSemaphore {
		d.DestroySemaphore(device, s.imageAcquired)
		s.imageAcquired = vk.NullSemaphore
	}
}

// renewFence replaces the slot fence with a signaled one. It is used after a
// submission failed, when the reset fence would otherwise never signal.
func (s *frameSlot) renewFence(d Driver, device vk.Device) error {
	fence, ret := d.CreateFence(device, true)
	if err := newError("create frame fence", ret); err != nil {
		return err
	}
	if s.fence != vk.NullFence {
		d.DestroyFence(device, s.fence)
	}
	s.fence = fence
	return nil
}

func (c *Context) createSlots(n int) error {
	c.slots = make([]frameSlot, 0, n)
	for i := 0; i < n; i++ {
		slot, err := newFrameSlot(c.driver, c.device, c.gpu.QueueFamily)
		if err != nil {
			c.destroySlots()
			return err
		}
		c.slots = append(c.slots, slot)
	}
	return nil
}

func (c *Context) destroySlots() {
	if len(c.slots) > 0 {
		c.generation++
	}
	for i := range c.slots {
		c.slots[i].destroy(c.driver, c.device)
	}
	c.slots = nil
}
