package vulkano

import (
	vk "github.com/vulkan-go/vulkan"
)

// BeginSingleUse allocates a primary command buffer from the shared pool and
// begins it for one-time submission. Pass it to SubmitSingleUse when done
// recording.
func (c *Context) BeginSingleUse() (vk.CommandBuffer, error) {
	if err := c.alive(); err != nil {
		return nil, err
	}
	d, pool := c.driver, c.resources.pool.handle
	cmd, ret := d.AllocateCommandBuffer(c.device, pool)
	if err := newError("allocate single-use command buffer", ret); err != nil {
		return nil, err
	}
	ret = d.BeginCommandBuffer(cmd, vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit))
	if err := newError("begin single-use command buffer", ret); err != nil {
		d.FreeCommandBuffer(c.device, pool, cmd)
		return nil, err
	}
	return cmd, nil
}

// SubmitSingleUse ends cmd, submits it and blocks until the GPU has executed
// it or Config.Timeout passes. The command buffer and its fence are released
// whatever the outcome.
func (c *Context) SubmitSingleUse(cmd vk.CommandBuffer) error {
	if err := c.alive(); err != nil {
		return err
	}
	if cmd == nil {
		return configErrorf("vulkano: nil single-use command buffer")
	}
	d, pool := c.driver, c.resources.pool.handle
	defer d.FreeCommandBuffer(c.device, pool, cmd)

	if err := newError("end single-use command buffer", d.EndCommandBuffer(cmd)); err != nil {
		return err
	}
	fence, ret := d.CreateFence(c.device, false)
	if err := newError("create single-use fence", ret); err != nil {
		return err
	}
	defer d.DestroyFence(c.device, fence)

	ret = d.QueueSubmit(c.queue, []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cmd},
	}}, fence)
	if err := newError("submit single-use command buffer", ret); err != nil {
		return err
	}
	return newError("wait for single-use fence", d.WaitForFence(c.device, fence, c.cfg.timeoutNanos()))
}

// AllocateCommandBuffers allocates count command buffers of the given level
// from the shared pool. A count of 0 allocates one. The buffers stay valid
// until FreeCommandBuffers or Destroy.
func (c *Context) AllocateCommandBuffers(level vk.CommandBufferLevel, count uint32) ([]vk.CommandBuffer, error) {
	if err := c.alive(); err != nil {
		return nil, err
	}
	if count == 0 {
		count = 1
	}
	cmds, ret := c.driver.AllocateCommandBuffers(c.device, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        c.resources.pool.handle,
		Level:              level,
		CommandBufferCount: count,
	})
	if err := newError("allocate command buffers", ret); err != nil {
		return nil, err
	}
	return cmds, nil
}

// FreeCommandBuffers returns buffers from AllocateCommandBuffers to the
// shared pool.
func (c *Context) FreeCommandBuffers(cmds ...vk.CommandBuffer) {
	if c.alive() != nil || len(cmds) == 0 {
		return
	}
	c.driver.FreeCommandBuffers(c.device, c.resources.pool.handle, cmds)
}
