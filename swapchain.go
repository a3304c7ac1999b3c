package vulkano

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"
)

type swapchainConfig struct {
	renderPass vk.RenderPass
	imageCount uint32
}

// swapchainImage is everything built per presentable image. Records are
// created and destroyed as a whole.
type swapchainImage struct {
	image       vk.Image
	view        vk.ImageView
	depth       *Image
	depthView   vk.ImageView
	framebuffer vk.Framebuffer
}

type swapchain struct {
	handle     vk.Swapchain
	extent     vk.Extent2D
	renderPass vk.RenderPass
	images     []swapchainImage
}

// ConfigureSwapchain sets the render pass the swapchain framebuffers are
// compatible with and the number of images to request, then builds the chain
// and the frame slots. Calling it again replaces both after the device goes
// idle. A minimized window is not an error here: the chain is built by the
// first BeginFrame that sees a drawable area.
func (c *Context) ConfigureSwapchain(renderPass vk.RenderPass, imageCount uint32) error {
	if err := c.alive(); err != nil {
		return err
	}
	if renderPass == vk.NullRenderPass {
		return configErrorf("vulkano: swapchain needs a render pass")
	}
	caps, ret := c.driver.SurfaceCapabilities(c.gpu.Handle, c.surface)
	if err := newError("query surface capabilities", ret); err != nil {
		return err
	}
	if imageCount < caps.MinImageCount || (caps.MaxImageCount > 0 && imageCount > caps.MaxImageCount) {
		return markf(ErrInvalidImageCount, "%d images requested, surface allows [%d, %d]",
			imageCount, caps.MinImageCount, caps.MaxImageCount)
	}

	if c.chain != nil || len(c.slots) > 0 {
		c.driver.DeviceWaitIdle(c.device)
	}
	c.swapCfg = nil
	c.destroySlots()
	c.destroySwapchain()
	c.stale = false

	slots := c.cfg.FramesInFlight
	if slots == 0 {
		slots = int(imageCount)
	}
	if err := c.createSlots(slots); err != nil {
		return err
	}
	c.swapCfg = &swapchainConfig{renderPass: renderPass, imageCount: imageCount}
	if err := c.buildSwapchain(); err != nil && !errors.Is(err, ErrMinimized) {
		return err
	}
	return nil
}

// negotiateExtent uses the surface's current extent unless the surface lets
// the swapchain decide, in which case the window size is clamped to the
// supported range.
func (c *Context) negotiateExtent(caps vk.SurfaceCapabilities) vk.Extent2D {
	if caps.CurrentExtent.Width != vk.MaxUint32 {
		return caps.CurrentExtent
	}
	w, h := c.cfg.WindowSize()
	return vk.Extent2D{
		Width:  clampUint32(w, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clampUint32(h, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

func clampUint32(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// buildSwapchain creates a chain for the current surface extent, retiring the
// live one if any. A zero-area extent destroys the live chain and returns
// ErrMinimized.
func (c *Context) buildSwapchain() error {
	d, device := c.driver, c.device
	caps, ret := d.SurfaceCapabilities(c.gpu.Handle, c.surface)
	if err := newError("query surface capabilities", ret); err != nil {
		return err
	}
	extent := c.negotiateExtent(caps)
	if extent.Width == 0 || extent.Height == 0 {
		c.destroySwapchain()
		return errors.WithStack(ErrMinimized)
	}

	// Figure out a suitable surface transform.
	preTransform := caps.CurrentTransform
	if vk.SurfaceTransformFlagBits(caps.SupportedTransforms)&vk.SurfaceTransformIdentityBit != 0 {
		preTransform = vk.SurfaceTransformIdentityBit
	}
	// Find a supported composite alpha mode - one of these is guaranteed to be set.
	compositeAlpha := vk.CompositeAlphaOpaqueBit
	for _, flag := range []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	} {
		if caps.SupportedCompositeAlpha&vk.CompositeAlphaFlags(flag) != 0 {
			compositeAlpha = flag
			break
		}
	}

	old := vk.NullSwapchain
	if c.chain != nil {
		d.DeviceWaitIdle(device)
		c.chain.destroyImages(c)
		old = c.chain.handle
	}
	handle, ret := d.CreateSwapchain(device, &vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          c.surface,
		MinImageCount:    c.swapCfg.imageCount,
		ImageFormat:      c.gpu.SurfaceFormat.Format,
		ImageColorSpace:  c.gpu.SurfaceFormat.ColorSpace,
		ImageExtent:      extent,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     preTransform,
		CompositeAlpha:   compositeAlpha,
		ImageArrayLayers: 1,
		ImageSharingMode: vk.SharingModeExclusive,
		PresentMode:      c.gpu.PresentMode,
		OldSwapchain:     old,
		Clipped:          vk.True,
	})
	if old != vk.NullSwapchain {
		d.DestroySwapchain(device, old)
		c.chain = nil
	}
	if err := newError("create swapchain", ret); err != nil {
		return err
	}
	sc := &swapchain{
		handle:     handle,
		extent:     extent,
		renderPass: c.swapCfg.renderPass,
	}
	c.chain = sc
	c.generation++

	images, ret := d.SwapchainImages(device, handle)
	if err := newError("get swapchain images", ret); err != nil {
		c.destroySwapchain()
		return err
	}
	records := make([]swapchainImage, 0, len(images))
	for _, image := range images {
		rec, err := c.newSwapchainImage(image, extent, sc.renderPass)
		if err != nil {
			for i := range records {
				records[i].destroy(c)
			}
			c.destroySwapchain()
			return err
		}
		records = append(records, rec)
	}
	sc.images = records
	c.log.Info("vulkan: swapchain built",
		slog.Int("width", int(extent.Width)),
		slog.Int("height", int(extent.Height)),
		slog.Int("images", len(records)))
	return nil
}

func (c *Context) newSwapchainImage(image vk.Image, extent vk.Extent2D, pass vk.RenderPass) (rec swapchainImage, err error) {
	rec.image = image
	defer func() {
		if err != nil {
			rec.destroy(c)
		}
	}()
	if rec.view, err = c.createImageView(image, c.gpu.SurfaceFormat.Format, vk.ImageAspectColorBit); err != nil {
		return rec, err
	}
	rec.depth, err = c.CreateImage(vk.ImageCreateInfo{
		ImageType: vk.ImageType2d,
		Format:    DepthFormat,
		Extent:    vk.Extent3D{Width: extent.Width, Height: extent.Height, Depth: 1},
		Tiling:    vk.ImageTilingOptimal,
		Usage:     vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
	}, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return rec, err
	}
	if rec.depthView, err = c.createImageView(rec.depth.Handle, DepthFormat, vk.ImageAspectDepthBit); err != nil {
		return rec, err
	}
	attachments := []vk.ImageView{rec.view, rec.depthView}
	fb, ret := c.driver.CreateFramebuffer(c.device, &vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      pass,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		Width:           extent.Width,
		Height:          extent.Height,
		Layers:          1,
	})
	if err = newError("create framebuffer", ret); err != nil {
		return rec, err
	}
	rec.framebuffer = fb
	return rec, nil
}

// destroy releases what the record owns. The swapchain image itself belongs
// to the chain.
func (rec *swapchainImage) destroy(c *Context) {
	d, device := c.driver, c.device
	if rec.framebuffer != vk.NullFramebuffer {
		d.DestroyFramebuffer(device, rec.framebuffer)
		rec.framebuffer = vk.NullFramebuffer
	}
	if rec.depthView != vk.NullImageView {
		d.DestroyImageView(device, rec.depthView)
		rec.depthView = vk.NullImageView
	}
	rec.depth.Destroy()
	rec.depth = nil
	if rec.view != vk.NullImageView {
		d.DestroyImageView(device, rec.view)
		rec.view = vk.NullImageView
	}
}

func (sc *swapchain) destroyImages(c *Context) {
	for i := range sc.images {
		sc.images[i].destroy(c)
	}
	sc.images = nil
}

// destroySwapchain waits for the device, then destroys every per-image
// record followed by the chain handle.
func (c *Context) destroySwapchain() {
	if c.chain == nil {
		return
	}
	c.driver.DeviceWaitIdle(c.device)
	c.chain.destroyImages(c)
	if c.chain.handle != vk.NullSwapchain {
		c.driver.DestroySwapchain(c.device, c.chain.handle)
	}
	c.chain = nil
	c.generation++
}

// Extent is the extent of the live swapchain, zero when there is none.
func (c *Context) Extent() vk.Extent2D {
	if c.chain == nil {
		return vk.Extent2D{}
	}
	return c.chain.extent
}

// ImageCount is the number of images in the live swapchain.
func (c *Context) ImageCount() int {
	if c.chain == nil {
		return 0
	}
	return len(c.chain.images)
}
