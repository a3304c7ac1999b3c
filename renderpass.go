package vulkano

import (
	vk "github.com/vulkan-go/vulkan"
)

// ColorDepthRenderPass describes a single-subpass pass with a cleared color
// attachment presented at the end and a cleared depth attachment in
// DepthFormat. A zero colorFormat is replaced with the surface format at
// creation time, which makes the pass compatible with swapchain framebuffers.
func ColorDepthRenderPass(colorFormat vk.Format) vk.RenderPassCreateInfo {
	attachments := []vk.AttachmentDescription{
		{
			Format:         colorFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutPresentSrc,
		},
		{
			Format:         DepthFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpDontCare,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		},
	}
	depthRef := vk.AttachmentReference{
		Attachment: 1,
		Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
	}
	subpasses := []vk.SubpassDescription{{
		PipelineBindPoint: vk.PipelineBindPointGraphics,
		PColorAttachments: []vk.AttachmentReference{{
			Attachment: 0,
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		}},
		PDepthStencilAttachment: &depthRef,
	}}
	dependencies := []vk.SubpassDependency{{
		SrcSubpass: vk.MaxUint32,
		DstSubpass: 0,
		SrcStageMask: vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit |
			vk.PipelineStageEarlyFragmentTestsBit),
		DstStageMask: vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit |
			vk.PipelineStageEarlyFragmentTestsBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit |
			vk.AccessDepthStencilAttachmentWriteBit),
	}}
	return vk.RenderPassCreateInfo{
		PAttachments:  attachments,
		PSubpasses:    subpasses,
		PDependencies: dependencies,
	}
}

// defaultRenderPass fills structure type and counts from the slices, and
// replaces undefined attachment formats and zero sample counts. info's
// slices are copied, never modified.
func defaultRenderPass(info vk.RenderPassCreateInfo, surfaceFormat vk.Format) vk.RenderPassCreateInfo {
	info.SType = vk.StructureTypeRenderPassCreateInfo

	attachments := make([]vk.AttachmentDescription, len(info.PAttachments))
	copy(attachments, info.PAttachments)
	for i := range attachments {
		if attachments[i].Format == vk.FormatUndefined {
			attachments[i].Format = surfaceFormat
		}
		if attachments[i].Samples == 0 {
			attachments[i].Samples = vk.SampleCount1Bit
		}
	}
	info.PAttachments = attachments
	info.AttachmentCount = uint32(len(attachments))

	subpasses := make([]vk.SubpassDescription, len(info.PSubpasses))
	copy(subpasses, info.PSubpasses)
	for i := range subpasses {
		sp := &subpasses[i]
		sp.InputAttachmentCount = uint32(len(sp.PInputAttachments))
		sp.ColorAttachmentCount = uint32(len(sp.PColorAttachments))
		sp.PreserveAttachmentCount = uint32(len(sp.PPreserveAttachments))
	}
	info.PSubpasses = subpasses
	info.SubpassCount = uint32(len(subpasses))
	info.DependencyCount = uint32(len(info.PDependencies))
	return info
}

// CreateRenderPass creates a render pass owned by the caller, with the same
// defaults applied to configured render passes.
func (c *Context) CreateRenderPass(info vk.RenderPassCreateInfo) (vk.RenderPass, error) {
	if err := c.alive(); err != nil {
		return vk.NullRenderPass, err
	}
	if len(info.PSubpasses) == 0 {
		return vk.NullRenderPass, configErrorf("vulkano: render pass needs at least one subpass")
	}
	return c.createRenderPass(info)
}

func (c *Context) createRenderPass(info vk.RenderPassCreateInfo) (vk.RenderPass, error) {
	info = defaultRenderPass(info, c.gpu.SurfaceFormat.Format)
	pass, ret := c.driver.CreateRenderPass(c.device, &info)
	if err := newError("create render pass", ret); err != nil {
		return vk.NullRenderPass, err
	}
	return pass, nil
}
