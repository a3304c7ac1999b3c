package vulkano

import (
	vk "github.com/vulkan-go/vulkan"
)

// Frame is the in-progress frame returned by BeginFrame. The command buffer
// is recording inside the swapchain render pass. A Frame is consumed by
// SubmitFrame and must not be used afterwards.
type Frame struct {
	Number        uint64
	Slot          int
	ImageIndex    uint32
	Framebuffer   vk.Framebuffer
	CommandBuffer vk.CommandBuffer
	Extent        vk.Extent2D
	Clear         [4]float32

	ctx        *Context
	generation uint64
	submitted  bool
}

// SubmitSync adds caller semaphores to a frame submission. WaitStages pairs
// with WaitSemaphores.
type SubmitSync struct {
	WaitSemaphores   []vk.Semaphore
	WaitStages       []vk.PipelineStageFlags
	SignalSemaphores []vk.Semaphore
}

// BeginFrame waits for the next frame slot, acquires a swapchain image and
// starts the render pass cleared to clear. The chain is rebuilt first when
// the surface extent changed or presentation reported it stale.
//
// A minimized window yields ErrMinimized without acquiring; callers should
// skip the frame and try again later.
func (c *Context) BeginFrame(clear [4]float32) (*Frame, error) {
	if err := c.alive(); err != nil {
		return nil, err
	}
	if c.swapCfg == nil || len(c.slots) == 0 {
		return nil, configErrorf("vulkano: ConfigureSwapchain must succeed before BeginFrame")
	}
	if err := c.ensureSwapchain(); err != nil {
		return nil, err
	}

	d, device := c.driver, c.device
	slotIndex := int(c.frameNumber % uint64(len(c.slots)))
	slot := &c.slots[slotIndex]
	if err := newError("wait for frame fence", d.WaitForFence(device, slot.fence, c.cfg.timeoutNanos())); err != nil {
		return nil, err
	}
	index, err := c.acquire(slot)
	if err != nil {
		return nil, err
	}

	// The fence is reset only once an image is held, so a failed acquire
	// leaves the slot usable.
	if err := newError("reset frame fence", d.ResetFence(device, slot.fence)); err != nil {
		return nil, err
	}
	if err := newError("reset frame command buffer", d.ResetCommandBuffer(slot.cmd)); err != nil {
		return nil, err
	}
	if err := newError("begin frame command buffer", d.BeginCommandBuffer(slot.cmd,
		vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit))); err != nil {
		return nil, err
	}

	fb := c.chain.images[index].framebuffer
	d.CmdBeginRenderPass(slot.cmd, &vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  c.chain.renderPass,
		Framebuffer: fb,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: c.chain.extent,
		},
		ClearValueCount: 2,
		PClearValues: []vk.ClearValue{
			vk.NewClearValue(clear[:]),
			vk.NewClearDepthStencil(1.0, 0),
		},
	})

	return &Frame{
		Number:        c.frameNumber,
		Slot:          slotIndex,
		ImageIndex:    index,
		Framebuffer:   fb,
		CommandBuffer: slot.cmd,
		Extent:        c.chain.extent,
		Clear:         clear,
		ctx:           c,
		generation:    c.generation,
	}, nil
}

// ensureSwapchain rebuilds the chain when it is missing, marked stale or no
// longer matches the surface extent.
func (c *Context) ensureSwapchain() error {
	if c.chain != nil && !c.stale {
		caps, ret := c.driver.SurfaceCapabilities(c.gpu.Handle, c.surface)
		if err := newError("query surface capabilities", ret); err != nil {
			return err
		}
		if c.negotiateExtent(caps) != c.chain.extent {
			c.stale = true
		}
	}
	if c.chain == nil || c.stale {
		c.stale = false
		return c.buildSwapchain()
	}
	return nil
}

// acquire gets the next image, rebuilding the chain while it reports out of
// date, up to Config.MaxSwapchainRebuilds times.
func (c *Context) acquire(slot *frameSlot) (uint32, error) {
	for rebuilds := 0; ; rebuilds++ {
		index, ret := c.driver.AcquireNextImage(c.device, c.chain.handle, c.cfg.timeoutNanos(), slot.imageAcquired)
		switch ret {
		case vk.Success:
			return index, nil
		case vk.Suboptimal:
			c.stale = true
			return index, nil
		case vk.ErrorOutOfDate:
			if rebuilds >= c.cfg.MaxSwapchainRebuilds {
				return 0, markf(ErrSwapchainThrash, "acquire still out of date after %d rebuilds", rebuilds)
			}
			if err := c.buildSwapchain(); err != nil {
				return 0, err
			}
		default:
			return 0, newError("acquire next image", ret)
		}
	}
}

// SubmitFrame ends the render pass and recording, submits the frame's command
// buffer and presents the image. The frame counter advances even when
// submission fails, so the next BeginFrame moves on to the next slot.
// An out of date or suboptimal present only marks the chain for rebuild.
func (c *Context) SubmitFrame(f *Frame, sync SubmitSync) error {
	if err := c.alive(); err != nil {
		return err
	}
	if f == nil || f.ctx != c {
		return configErrorf("vulkano: frame does not belong to this context")
	}
	if f.submitted {
		return configErrorf("vulkano: frame %d was already submitted", f.Number)
	}
	if f.generation != c.generation {
		f.submitted = true
		c.releaseStaleFrame(f)
		return configErrorf("vulkano: frame %d was begun before the swapchain was rebuilt", f.Number)
	}
	if len(sync.WaitStages) != len(sync.WaitSemaphores) {
		return configErrorf("vulkano: %d wait stages for %d wait semaphores",
			len(sync.WaitStages), len(sync.WaitSemaphores))
	}
	f.submitted = true
	c.frameNumber++

	d, slot := c.driver, &c.slots[f.Slot]
	d.CmdEndRenderPass(f.CommandBuffer)
	if err := newError("end frame command buffer", d.EndCommandBuffer(f.CommandBuffer)); err != nil {
		c.recoverSlot(slot)
		return err
	}

	waits := append([]vk.Semaphore{slot.imageAcquired}, sync.WaitSemaphores...)
	stages := append([]vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)}, sync.WaitStages...)
	signals := append([]vk.Semaphore{slot.renderComplete}, sync.SignalSemaphores...)
	ret := d.QueueSubmit(c.queue, []vk.SubmitInfo{{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(waits)),
		PWaitSemaphores:      waits,
		PWaitDstStageMask:    stages,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{f.CommandBuffer},
		SignalSemaphoreCount: uint32(len(signals)),
		PSignalSemaphores:    signals,
	}}, slot.fence)
	if err := newError("submit frame", ret); err != nil {
		c.recoverSlot(slot)
		return err
	}

	ret = d.QueuePresent(c.queue, &vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{slot.renderComplete},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{c.chain.handle},
		PImageIndices:      []uint32{f.ImageIndex},
	})
	switch ret {
	case vk.Success:
		return nil
	case vk.Suboptimal, vk.ErrorOutOfDate:
		c.stale = true
		return nil
	default:
		return newError("present frame", ret)
	}
}

// recoverSlot swaps in a signaled fence after a failed submission, since the
// reset fence would never be signaled by the GPU.
func (c *Context) recoverSlot(slot *frameSlot) {
	if err := slot.renewFence(c.driver, c.device); err != nil {
		c.log.Error("vulkan: frame slot fence could not be renewed", "err", err)
	}
}

// releaseStaleFrame gives the slot of a frame that can no longer be submitted
// a signaled fence again, provided the slot itself survived.
func (c *Context) releaseStaleFrame(f *Frame) {
	if f.Slot < len(c.slots) && c.slots[f.Slot].cmd == f.CommandBuffer {
		c.recoverSlot(&c.slots[f.Slot])
	}
}
