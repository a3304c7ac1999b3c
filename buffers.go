package vulkano

import (
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"
)

// Buffer is a GPU buffer bound to its own device memory allocation.
type Buffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Usage  vk.BufferUsageFlags
	// MemoryFlags are the property flags of the memory type actually chosen,
	// a superset of what was requested.
	MemoryFlags vk.MemoryPropertyFlags
	Capacity    vk.DeviceSize

	ctx *Context
}

// SelectMemoryType returns the first memory type allowed by typeBits whose
// property flags contain every flag in required.
func SelectMemoryType(props vk.PhysicalDeviceMemoryProperties,
	typeBits uint32, required vk.MemoryPropertyFlags) (uint32, error) {

	for i := uint32(0); i < props.MemoryTypeCount && int(i) < len(props.MemoryTypes); i++ {
		if typeBits&(1<<i) == 0 {
			continue
		}
		if props.MemoryTypes[i].PropertyFlags&required == required {
			return i, nil
		}
	}
	return 0, markf(ErrOutOfMemory, "no memory type in %#x has flags %#x", typeBits, required)
}

func hasFlags(have vk.MemoryPropertyFlags, bits vk.MemoryPropertyFlagBits) bool {
	return have&vk.MemoryPropertyFlags(bits) == vk.MemoryPropertyFlags(bits)
}

// allocate picks a memory type for reqs and allocates from it. It reports the
// chosen type's flags.
func (c *Context) allocate(reqs vk.MemoryRequirements, flags vk.MemoryPropertyFlags) (vk.DeviceMemory, vk.MemoryPropertyFlags, error) {
	props := c.gpu.MemoryProperties
	index, err := SelectMemoryType(props, reqs.MemoryTypeBits, flags)
	if err != nil {
		return vk.NullDeviceMemory, 0, err
	}
	memory, ret := c.driver.AllocateMemory(c.device, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  reqs.Size,
		MemoryTypeIndex: index,
	})
	if err := newError("allocate memory", ret); err != nil {
		return vk.NullDeviceMemory, 0, err
	}
	return memory, props.MemoryTypes[index].PropertyFlags, nil
}

// CreateBuffer creates a buffer from info and binds it to fresh memory with
// at least the requested property flags. Nothing is left behind on failure.
func (c *Context) CreateBuffer(info vk.BufferCreateInfo, flags vk.MemoryPropertyFlags) (*Buffer, error) {
	if err := c.alive(); err != nil {
		return nil, err
	}
	if info.Size == 0 {
		return nil, configErrorf("vulkano: buffer size must be positive")
	}
	info.SType = vk.StructureTypeBufferCreateInfo
	d := c.driver
	handle, ret := d.CreateBuffer(c.device, &info)
	if err := newError("create buffer", ret); err != nil {
		return nil, err
	}
	buf := &Buffer{
		Handle:   handle,
		Usage:    info.Usage,
		Capacity: info.Size,
		ctx:      c,
	}
	memory, actual, err := c.allocate(d.BufferMemoryRequirements(c.device, handle), flags)
	if err != nil {
		buf.Destroy()
		return nil, err
	}
	buf.Memory, buf.MemoryFlags = memory, actual
	if err := newError("bind buffer memory", d.BindBufferMemory(c.device, handle, memory)); err != nil {
		buf.Destroy()
		return nil, err
	}
	return buf, nil
}

// Destroy releases the buffer and its memory. It is safe to call twice.
func (b *Buffer) Destroy() {
	if b == nil || b.ctx == nil {
		return
	}
	d, device := b.ctx.driver, b.ctx.device
	if b.Handle != vk.NullBuffer {
		d.DestroyBuffer(device, b.Handle)
		b.Handle = vk.NullBuffer
	}
	if b.Memory != vk.NullDeviceMemory {
		d.FreeMemory(device, b.Memory)
		b.Memory = vk.NullDeviceMemory
	}
	b.ctx = nil
}

// CopyToBuffer writes data to the start of buf. Host-visible buffers are
// written through a mapping, flushed when the memory is not coherent.
// Device-local buffers are filled from a temporary staging buffer with a
// single-use copy command and need TRANSFER_DST usage.
func (c *Context) CopyToBuffer(buf *Buffer, data []byte) error {
	if err := c.alive(); err != nil {
		return err
	}
	if buf == nil || buf.Handle == vk.NullBuffer {
		return configErrorf("vulkano: copy to a nil or destroyed buffer")
	}
	if len(data) == 0 {
		return nil
	}
	if vk.DeviceSize(len(data)) > buf.Capacity {
		return configErrorf("vulkano: %d bytes do not fit a buffer of %d", len(data), buf.Capacity)
	}
	if hasFlags(buf.MemoryFlags, vk.MemoryPropertyHostVisibleBit) {
		return c.writeMapped(buf.Memory, data, !hasFlags(buf.MemoryFlags, vk.MemoryPropertyHostCoherentBit))
	}
	if buf.Usage&vk.BufferUsageFlags(vk.BufferUsageTransferDstBit) == 0 {
		return configErrorf("vulkano: device-local buffer needs TRANSFER_DST usage to be written")
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
	c.driver.CmdCopyBuffer(cmd, staging.Handle, buf.Handle, []vk.BufferCopy{{
		Size: vk.DeviceSize(len(data)),
	}})
	if err := c.SubmitSingleUse(cmd); err != nil {
		return err
	}
	c.log.Debug("vulkan: staged upload", slog.Int("bytes", len(data)))
	return nil
}

// stage creates a host-visible transfer source holding data.
func (c *Context) stage(data []byte) (*Buffer, error) {
	staging, err := c.CreateBuffer(vk.BufferCreateInfo{
		Size:  vk.DeviceSize(len(data)),
		Usage: vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
	}, vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}
	if err := c.writeMapped(staging.Memory, data, false); err != nil {
		staging.Destroy()
		return nil, err
	}
	return staging, nil
}

func (c *Context) writeMapped(memory vk.DeviceMemory, data []byte, flush bool) error {
	d := c.driver
	ptr, ret := d.MapMemory(c.device, memory)
	if err := newError("map memory", ret); err != nil {
		return err
	}
	copy(bytesAt(ptr, len(data)), data)
	var err error
	if flush {
		err = newError("flush mapped memory", d.FlushMemory(c.device, memory))
	}
	d.UnmapMemory(c.device, memory)
	return err
}

// ReadBuffer copies len(out) bytes from the start of a host-visible buffer
// into out, invalidating the mapping first when memory is not coherent.
func (c *Context) ReadBuffer(buf *Buffer, out []byte) error {
	if err := c.alive(); err != nil {
		return err
	}
	if buf == nil || buf.Handle == vk.NullBuffer {
		return configErrorf("vulkano: read from a nil or destroyed buffer")
	}
	if vk.DeviceSize(len(out)) > buf.Capacity {
		return configErrorf("vulkano: %d bytes exceed a buffer of %d", len(out), buf.Capacity)
	}
	if !hasFlags(buf.MemoryFlags, vk.MemoryPropertyHostVisibleBit) {
		return configErrorf("vulkano: buffer memory is not host visible")
	}
	if len(out) == 0 {
		return nil
	}
	d := c.driver
	ptr, ret := d.MapMemory(c.device, buf.Memory)
	if err := newError("map memory", ret); err != nil {
		return err
	}
	defer d.UnmapMemory(c.device, buf.Memory)
	if !hasFlags(buf.MemoryFlags, vk.MemoryPropertyHostCoherentBit) {
		if err := newError("invalidate mapped memory", d.InvalidateMemory(c.device, buf.Memory)); err != nil {
			return err
		}
	}
	copy(out, bytesAt(ptr, len(out)))
	return nil
}
