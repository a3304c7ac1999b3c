package vulkano

import (
	vk "github.com/vulkan-go/vulkan"
)

// Image is a GPU image bound to its own device memory allocation.
type Image struct {
	Handle      vk.Image
	Memory      vk.DeviceMemory
	Format      vk.Format
	Extent      vk.Extent3D
	Usage       vk.ImageUsageFlags
	MemoryFlags vk.MemoryPropertyFlags
	// Layout starts as the create info's InitialLayout and follows
	// ChangeImageLayout.
	Layout vk.ImageLayout

	ctx *Context
}

// CreateImage creates an image from info and binds it to fresh memory with at
// least the requested property flags. Zero fields default to a single mip,
// single layer, single sample image in the surface format. The zero image
// type is 1D in Vulkan; it is kept for images one texel high and otherwise
// taken to mean 2D.
func (c *Context) CreateImage(info vk.ImageCreateInfo, flags vk.MemoryPropertyFlags) (*Image, error) {
	if err := c.alive(); err != nil {
		return nil, err
	}
	if info.Extent.Width == 0 || info.Extent.Height == 0 {
		return nil, configErrorf("vulkano: image extent %dx%d has zero area", info.Extent.Width, info.Extent.Height)
	}
	info.SType = vk.StructureTypeImageCreateInfo
	if info.ImageType == vk.ImageType1d && info.Extent.Height > 1 {
		info.ImageType = vk.ImageType2d
	}
	if info.Extent.Depth == 0 {
		info.Extent.Depth = 1
	}
	if info.MipLevels == 0 {
		info.MipLevels = 1
	}
	if info.ArrayLayers == 0 {
		info.ArrayLayers = 1
	}
	if info.Format == vk.FormatUndefined {
		info.Format = c.gpu.SurfaceFormat.Format
	}
	if info.Samples == 0 {
		info.Samples = vk.SampleCount1Bit
	}

	d := c.driver
	handle, ret := d.CreateImage(c.device, &info)
	if err := newError("create image", ret); err != nil {
		return nil, err
	}
	img := &Image{
		Handle: handle,
		Format: info.Format,
		Extent: info.Extent,
		Usage:  info.Usage,
		Layout: info.InitialLayout,
		ctx:    c,
	}
	memory, actual, err := c.allocate(d.ImageMemoryRequirements(c.device, handle), flags)
	if err != nil {
		img.Destroy()
		return nil, err
	}
	img.Memory, img.MemoryFlags = memory, actual
	if err := newError("bind image memory", d.BindImageMemory(c.device, handle, memory)); err != nil {
		img.Destroy()
		return nil, err
	}
	return img, nil
}

// Destroy releases the image and its memory. It is safe to call twice.
func (img *Image) Destroy() {
	if img == nil || img.ctx == nil {
		return
	}
	d, device := img.ctx.driver, img.ctx.device
	if img.Handle != vk.NullImage {
		d.DestroyImage(device, img.Handle)
		img.Handle = vk.NullImage
	}
	if img.Memory != vk.NullDeviceMemory {
		d.FreeMemory(device, img.Memory)
		img.Memory = vk.NullDeviceMemory
	}
	img.ctx = nil
}

func (c *Context) createImageView(image vk.Image, format vk.Format, aspect vk.ImageAspectFlagBits) (vk.ImageView, error) {
	view, ret := c.driver.CreateImageView(c.device, &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(aspect),
			LevelCount: 1,
			LayerCount: 1,
		},
	})
	if err := newError("create image view", ret); err != nil {
		return vk.NullImageView, err
	}
	return view, nil
}

type layoutTransition struct {
	from, to           vk.ImageLayout
	srcAccess          vk.AccessFlagBits
	dstAccess          vk.AccessFlagBits
	srcStage, dstStage vk.PipelineStageFlagBits
}

var layoutTransitions = []layoutTransition{
	{
		from: vk.ImageLayoutUndefined, to: vk.ImageLayoutTransferDstOptimal,
		dstAccess: vk.AccessTransferWriteBit,
		srcStage:  vk.PipelineStageTopOfPipeBit, dstStage: vk.PipelineStageTransferBit,
	},
	{
		from: vk.ImageLayoutTransferDstOptimal, to: vk.ImageLayoutShaderReadOnlyOptimal,
		srcAccess: vk.AccessTransferWriteBit, dstAccess: vk.AccessShaderReadBit,
		srcStage: vk.PipelineStageTransferBit, dstStage: vk.PipelineStageFragmentShaderBit,
	},
}

// ChangeImageLayout moves a color image from one layout to another with a
// pipeline barrier on a single-use command buffer. from must be the image's
// current layout. Only the transitions used for texture uploads are
// supported.
func (c *Context) ChangeImageLayout(img *Image, from, to vk.ImageLayout) error {
	if err := c.alive(); err != nil {
		return err
	}
	if img == nil || img.Handle == vk.NullImage {
		return configErrorf("vulkano: layout change on a nil or destroyed image")
	}
	if from != img.Layout {
		return configErrorf("vulkano: image is in layout %d, not %d", img.Layout, from)
	}
	var t *layoutTransition
	for i := range layoutTransitions {
		if layoutTransitions[i].from == from && layoutTransitions[i].to == to {
			t = &layoutTransitions[i]
			break
		}
	}
	if t == nil {
		return configErrorf("vulkano: unsupported image layout transition %d -> %d", from, to)
	}

	cmd, err := c.BeginSingleUse()
	if err != nil {
		return err
	}
	c.driver.CmdPipelineBarrier(cmd, vk.PipelineStageFlags(t.srcStage), vk.PipelineStageFlags(t.dstStage),
		[]vk.ImageMemoryBarrier{{
			SType:               vk.StructureTypeImageMemoryBarrier,
			SrcAccessMask:       vk.AccessFlags(t.srcAccess),
			DstAccessMask:       vk.AccessFlags(t.dstAccess),
			OldLayout:           from,
			NewLayout:           to,
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Image:               img.Handle,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}})
	if err := c.SubmitSingleUse(cmd); err != nil {
		return err
	}
	img.Layout = to
	return nil
}

// CopyToImage uploads tightly packed pixel data covering width x height texels
// into img, which must be in TRANSFER_DST_OPTIMAL layout.
func (c *Context) CopyToImage(img *Image, data []byte, width, height uint32) error {
	if err := c.alive(); err != nil {
		return err
	}
	if img == nil || img.Handle == vk.NullImage {
		return configErrorf("vulkano: copy to a nil or destroyed image")
	}
	if len(data) == 0 {
		return configErrorf("vulkano: no pixel data to copy")
	}
	if width == 0 || height == 0 || width > img.Extent.Width || height > img.Extent.Height {
		return configErrorf("vulkano: copy region %dx%d does not fit image %dx%d",
			width, height, img.Extent.Width, img.Extent.Height)
	}
	if img.Usage&vk.ImageUsageFlags(vk.ImageUsageTransferDstBit) == 0 {
		return configErrorf("vulkano: image needs TRANSFER_DST usage to be written")
	}
	if img.Layout != vk.ImageLayoutTransferDstOptimal {
		return configErrorf("vulkano: image is in layout %d, copies need TRANSFER_DST_OPTIMAL", img.Layout)
	}

	staging, err := c.stage(data)
	if err != nil {
		return err
	}
	defer staging.Destroy()

	cmd, err := c.BeginSingleUse()
	if err != nil {
		return err
	}
	c.driver.CmdCopyBufferToImage(cmd, staging.Handle, img.Handle, img.Layout,
		[]vk.BufferImageCopy{{
			ImageSubresource: vk.ImageSubresourceLayers{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LayerCount: 1,
			},
			ImageExtent: vk.Extent3D{Width: width, Height: height, Depth: 1},
		}})
	return c.SubmitSingleUse(cmd)
}

// TextureInfo describes a sampled 2D texture built from host pixels.
type TextureInfo struct {
	Width, Height uint32
	// Format defaults to R8G8B8A8_SRGB.
	Format      vk.Format
	Pixels      []byte
	Filter      vk.Filter
	AddressMode vk.SamplerAddressMode
}

// Texture is a sampled image with its view and sampler.
type Texture struct {
	Image   *Image
	View    vk.ImageView
	Sampler vk.Sampler

	ctx *Context
}

// CreateTexture creates a device-local image, uploads info.Pixels into it and
// leaves it in SHADER_READ_ONLY_OPTIMAL layout with a view and a sampler.
// Anisotropic filtering is used when the device enabled it.
func (c *Context) CreateTexture(info TextureInfo) (tex *Texture, err error) {
	if err := c.alive(); err != nil {
		return nil, err
	}
	if info.Format == vk.FormatUndefined {
		info.Format = vk.FormatR8g8b8a8Srgb
	}
	img, err := c.CreateImage(vk.ImageCreateInfo{
		Format:        info.Format,
		Extent:        vk.Extent3D{Width: info.Width, Height: info.Height, Depth: 1},
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vk.ImageUsageFlags(vk.ImageUsageTransferDstBit | vk.ImageUsageSampledBit),
		InitialLayout: vk.ImageLayoutUndefined,
	}, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return nil, err
	}
	tex = &Texture{Image: img, ctx: c}
	defer func() {
		if err != nil {
			tex.Destroy()
			tex = nil
		}
	}()

	if err = c.ChangeImageLayout(img, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal); err != nil {
		return tex, err
	}
	if err = c.CopyToImage(img, info.Pixels, info.Width, info.Height); err != nil {
		return tex, err
	}
	if err = c.ChangeImageLayout(img, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal); err != nil {
		return tex, err
	}
	if tex.View, err = c.createImageView(img.Handle, info.Format, vk.ImageAspectColorBit); err != nil {
		return tex, err
	}

	samplerInfo := vk.SamplerCreateInfo{
		SType:            vk.StructureTypeSamplerCreateInfo,
		MagFilter:        info.Filter,
		MinFilter:        info.Filter,
		MipmapMode:       vk.SamplerMipmapModeLinear,
		AddressModeU:     info.AddressMode,
		AddressModeV:     info.AddressMode,
		AddressModeW:     info.AddressMode,
		CompareOp:        vk.CompareOpAlways,
		BorderColor:      vk.BorderColorIntOpaqueBlack,
		AnisotropyEnable: vk.False,
		MaxAnisotropy:    1,
	}
	if c.gpu.Features.SamplerAnisotropy == vk.True {
		samplerInfo.AnisotropyEnable = vk.True
		samplerInfo.MaxAnisotropy = c.gpu.Properties.Limits.MaxSamplerAnisotropy
	}
	sampler, ret := c.driver.CreateSampler(c.device, &samplerInfo)
	if err = newError("create sampler", ret); err != nil {
		return tex, err
	}
	tex.Sampler = sampler
	return tex, nil
}

// Destroy releases the sampler, view and image. It is safe to call twice.
func (t *Texture) Destroy() {
	if t == nil || t.ctx == nil {
		return
	}
	d, device := t.ctx.driver, t.ctx.device
	if t.Sampler != nil {
		d.DestroySampler(device, t.Sampler)
		t.Sampler = nil
	}
	if t.View != vk.NullImageView {
		d.DestroyImageView(device, t.View)
		t.View = vk.NullImageView
	}
	t.Image.Destroy()
	t.ctx = nil
}
