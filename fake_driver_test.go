package vulkano

import (
	"io"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"
)

// fakeGPU is a physical device. Its own address is the handle the fake
// driver hands out for it.
type fakeGPU struct {
	name       string
	deviceType vk.PhysicalDeviceType
	heapSize   vk.DeviceSize
	exts       []string
	families   []vk.QueueFamilyProperties
	noPresent  bool
	formats    []vk.SurfaceFormat
	modes      []vk.PresentMode
	memTypes   []vk.MemoryPropertyFlags
	anisotropy bool
}

func (g *fakeGPU) handle() vk.PhysicalDevice {
	return vk.PhysicalDevice(unsafe.Pointer(g))
}

func gpuOf(h vk.PhysicalDevice) *fakeGPU {
	return (*fakeGPU)(unsafe.Pointer(h))
}

func (g *fakeGPU) properties() vk.PhysicalDeviceProperties {
	var p vk.PhysicalDeviceProperties
	p.DeviceType = g.deviceType
	copy(p.DeviceName[:], g.name)
	p.Limits.MaxSamplerAnisotropy = 16
	return p
}

func (g *fakeGPU) memory() vk.PhysicalDeviceMemoryProperties {
	var m vk.PhysicalDeviceMemoryProperties
	m.MemoryHeapCount = 1
	m.MemoryHeaps[0] = vk.MemoryHeap{
		Size:  g.heapSize,
		Flags: vk.MemoryHeapFlags(vk.MemoryHeapDeviceLocalBit),
	}
	m.MemoryTypeCount = uint32(len(g.memTypes))
	for i, flags := range g.memTypes {
		m.MemoryTypes[i] = vk.MemoryType{PropertyFlags: flags}
	}
	return m
}

var (
	deviceLocal    = vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	hostCoherent   = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	hostNonCoherent = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)
)

func newFakeGPU(name string, kind vk.PhysicalDeviceType) *fakeGPU {
	return &fakeGPU{
		name:       name,
		deviceType: kind,
		heapSize:   1 << 30,
		exts:       []string{swapchainExtension},
		families: []vk.QueueFamilyProperties{{
			QueueFlags: vk.QueueFlags(vk.QueueGraphicsBit),
			QueueCount: 1,
		}},
		formats: []vk.SurfaceFormat{{
			Format:     vk.FormatB8g8r8a8Srgb,
			ColorSpace: vk.ColorSpaceSrgbNonlinear,
		}},
		modes:      []vk.PresentMode{vk.PresentModeFifo},
		memTypes:   []vk.MemoryPropertyFlags{deviceLocal, hostCoherent, hostNonCoherent},
		anisotropy: true,
	}
}

type fakeBuffer struct {
	size   vk.DeviceSize
	memory vk.DeviceMemory
}

type fenceWait struct {
	fence    unsafe.Pointer
	signaled bool
}

// fakeDriver records every call, fabricates handles and keeps track of
// which ones are alive so tests can look for leaks and double frees.
type fakeDriver struct {
	layers       []string
	instanceExts []string
	gpus         []*fakeGPU
	caps         vk.SurfaceCapabilities
	// typeBits overrides MemoryTypeBits in memory requirements when non-zero.
	typeBits uint32

	// Scripted results, consumed one per call. Success once exhausted.
	acquireResults []vk.Result
	presentResults []vk.Result
	// fail makes the named entry point return the given result.
	fail map[string]vk.Result

	calls     []string
	live      map[unsafe.Pointer]string
	created   map[string]int
	destroyed map[string]int
	badFrees  []string

	deviceExtQueries map[string]int
	memory           map[unsafe.Pointer][]byte
	buffers          map[unsafe.Pointer]*fakeBuffer
	images           map[unsafe.Pointer]vk.DeviceSize
	fences           map[unsafe.Pointer]bool
	chains           map[unsafe.Pointer]uint32
	queue            unsafe.Pointer
	nextImage        uint32

	swapchainInfos   []vk.SwapchainCreateInfo
	deviceInfos      []vk.DeviceCreateInfo
	imageInfos       []vk.ImageCreateInfo
	submits          []vk.SubmitInfo
	fenceWaits       []fenceWait
	barriers         []vk.ImageMemoryBarrier
	copyLayouts      []vk.ImageLayout
	pipelineBatches  [][]vk.GraphicsPipelineCreateInfo
	samplers         []vk.SamplerCreateInfo
	setAllocs        []vk.DescriptorSetAllocateInfo
	cmdAllocs        []vk.CommandBufferAllocateInfo
	renderPassBegins int
	copies           int
	flushes          int
	invalidates      int
	mapped           int
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		layers:       []string{validationLayer},
		instanceExts: []string{"VK_KHR_surface", debugReportExt},
		gpus:         []*fakeGPU{newFakeGPU("fake discrete", vk.PhysicalDeviceTypeDiscreteGpu)},
		caps: vk.SurfaceCapabilities{
			MinImageCount:           1,
			MaxImageCount:           3,
			CurrentExtent:           vk.Extent2D{Width: 640, Height: 480},
			MinImageExtent:          vk.Extent2D{Width: 1, Height: 1},
			MaxImageExtent:          vk.Extent2D{Width: 4096, Height: 4096},
			MaxImageArrayLayers:     1,
			SupportedTransforms:     vk.SurfaceTransformFlags(vk.SurfaceTransformIdentityBit),
			CurrentTransform:        vk.SurfaceTransformIdentityBit,
			SupportedCompositeAlpha: vk.CompositeAlphaFlags(vk.CompositeAlphaOpaqueBit),
		},
		fail:             map[string]vk.Result{},
		live:             map[unsafe.Pointer]string{},
		created:          map[string]int{},
		destroyed:        map[string]int{},
		deviceExtQueries: map[string]int{},
		memory:           map[unsafe.Pointer][]byte{},
		buffers:          map[unsafe.Pointer]*fakeBuffer{},
		images:           map[unsafe.Pointer]vk.DeviceSize{},
		fences:           map[unsafe.Pointer]bool{},
		chains:           map[unsafe.Pointer]uint32{},
	}
}

func (f *fakeDriver) result(op string) vk.Result {
	f.calls = append(f.calls, op)
	if ret, ok := f.fail[op]; ok {
		return ret
	}
	return vk.Success
}

func (f *fakeDriver) alloc(kind string) unsafe.Pointer {
	p := unsafe.Pointer(new(uint64))
	f.live[p] = kind
	f.created[kind]++
	return p
}

func (f *fakeDriver) free(op string, p unsafe.Pointer, kind string) {
	f.calls = append(f.calls, op)
	if p == nil {
		return
	}
	if f.live[p] != kind {
		f.badFrees = append(f.badFrees, kind)
		return
	}
	delete(f.live, p)
	f.destroyed[kind]++
}

func (f *fakeDriver) liveCount(kind string) int {
	n := 0
	for _, k := range f.live {
		if k == kind {
			n++
		}
	}
	return n
}

func (f *fakeDriver) count(op string) int {
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (f *fakeDriver) createSurface(instance vk.Instance) (vk.Surface, error) {
	return vk.Surface(f.alloc("Surface")), nil
}

func (f *fakeDriver) windowSize() (uint32, uint32) {
	return 800, 600
}

func (f *fakeDriver) InstanceLayers() ([]string, vk.Result) {
	return f.layers, f.result("InstanceLayers")
}

func (f *fakeDriver) InstanceExtensions() ([]string, vk.Result) {
	return f.instanceExts, f.result("InstanceExtensions")
}

func (f *fakeDriver) CreateInstance(info *vk.InstanceCreateInfo) (vk.Instance, vk.Result) {
	if ret := f.result("CreateInstance"); ret != vk.Success {
		return nil, ret
	}
	return vk.Instance(f.alloc("Instance")), vk.Success
}

func (f *fakeDriver) DestroyInstance(instance vk.Instance) {
	f.free("DestroyInstance", unsafe.Pointer(instance), "Instance")
}

func (f *fakeDriver) DestroySurface(instance vk.Instance, surface vk.Surface) {
	f.free("DestroySurface", unsafe.Pointer(surface), "Surface")
}

func (f *fakeDriver) CreateDebugReportCallback(instance vk.Instance, info *vk.DebugReportCallbackCreateInfo) (vk.DebugReportCallback, vk.Result) {
	if ret := f.result("CreateDebugReportCallback"); ret != vk.Success {
		return vk.NullDebugReportCallback, ret
	}
	return vk.DebugReportCallback(f.alloc("DebugReportCallback")), vk.Success
}

func (f *fakeDriver) DestroyDebugReportCallback(instance vk.Instance, callback vk.DebugReportCallback) {
	f.free("DestroyDebugReportCallback", unsafe.Pointer(callback), "DebugReportCallback")
}

func (f *fakeDriver) PhysicalDevices(instance vk.Instance) ([]vk.PhysicalDevice, vk.Result) {
	if ret := f.result("PhysicalDevices"); ret != vk.Success {
		return nil, ret
	}
	out := make([]vk.PhysicalDevice, len(f.gpus))
	for i, g := range f.gpus {
		out[i] = g.handle()
	}
	return out, vk.Success
}

func (f *fakeDriver) DeviceExtensions(gpu vk.PhysicalDevice) ([]string, vk.Result) {
	g := gpuOf(gpu)
	f.deviceExtQueries[g.name]++
	return g.exts, f.result("DeviceExtensions")
}

func (f *fakeDriver) PhysicalDeviceProperties(gpu vk.PhysicalDevice) vk.PhysicalDeviceProperties {
	f.calls = append(f.calls, "PhysicalDeviceProperties")
	return gpuOf(gpu).properties()
}

func (f *fakeDriver) PhysicalDeviceMemoryProperties(gpu vk.PhysicalDevice) vk.PhysicalDeviceMemoryProperties {
	f.calls = append(f.calls, "PhysicalDeviceMemoryProperties")
	return gpuOf(gpu).memory()
}

func (f *fakeDriver) PhysicalDeviceFeatures(gpu vk.PhysicalDevice) vk.PhysicalDeviceFeatures {
	f.calls = append(f.calls, "PhysicalDeviceFeatures")
	var features vk.PhysicalDeviceFeatures
	if gpuOf(gpu).anisotropy {
		features.SamplerAnisotropy = vk.True
	}
	return features
}

func (f *fakeDriver) QueueFamilies(gpu vk.PhysicalDevice) []vk.QueueFamilyProperties {
	f.calls = append(f.calls, "QueueFamilies")
	return gpuOf(gpu).families
}

func (f *fakeDriver) SurfaceSupport(gpu vk.PhysicalDevice, family uint32, surface vk.Surface) (bool, vk.Result) {
	return !gpuOf(gpu).noPresent, f.result("SurfaceSupport")
}

func (f *fakeDriver) SurfaceCapabilities(gpu vk.PhysicalDevice, surface vk.Surface) (vk.SurfaceCapabilities, vk.Result) {
	return f.caps, f.result("SurfaceCapabilities")
}

func (f *fakeDriver) SurfaceFormats(gpu vk.PhysicalDevice, surface vk.Surface) ([]vk.SurfaceFormat, vk.Result) {
	return gpuOf(gpu).formats, f.result("SurfaceFormats")
}

func (f *fakeDriver) PresentModes(gpu vk.PhysicalDevice, surface vk.Surface) ([]vk.PresentMode, vk.Result) {
	return gpuOf(gpu).modes, f.result("PresentModes")
}

func (f *fakeDriver) CreateDevice(gpu vk.PhysicalDevice, info *vk.DeviceCreateInfo) (vk.Device, vk.Result) {
	if ret := f.result("CreateDevice"); ret != vk.Success {
		return nil, ret
	}
	f.deviceInfos = append(f.deviceInfos, *info)
	return vk.Device(f.alloc("Device")), vk.Success
}

func (f *fakeDriver) DestroyDevice(device vk.Device) {
	f.free("DestroyDevice", unsafe.Pointer(device), "Device")
}

func (f *fakeDriver) DeviceQueue(device vk.Device, family uint32) vk.Queue {
	f.calls = append(f.calls, "DeviceQueue")
	if f.queue == nil {
		f.queue = unsafe.Pointer(new(uint64))
	}
	return vk.Queue(f.queue)
}

func (f *fakeDriver) DeviceWaitIdle(device vk.Device) vk.Result {
	return f.result("DeviceWaitIdle")
}

func (f *fakeDriver) CreateSwapchain(device vk.Device, info *vk.SwapchainCreateInfo) (vk.Swapchain, vk.Result) {
	if ret := f.result("CreateSwapchain"); ret != vk.Success {
		return vk.NullSwapchain, ret
	}
	f.swapchainInfos = append(f.swapchainInfos, *info)
	p := f.alloc("Swapchain")
	f.chains[p] = info.MinImageCount
	return vk.Swapchain(p), vk.Success
}

func (f *fakeDriver) DestroySwapchain(device vk.Device, swapchain vk.Swapchain) {
	delete(f.chains, unsafe.Pointer(swapchain))
	f.free("DestroySwapchain", unsafe.Pointer(swapchain), "Swapchain")
}

func (f *fakeDriver) SwapchainImages(device vk.Device, swapchain vk.Swapchain) ([]vk.Image, vk.Result) {
	if ret := f.result("SwapchainImages"); ret != vk.Success {
		return nil, ret
	}
	images := make([]vk.Image, f.chains[unsafe.Pointer(swapchain)])
	for i := range images {
		images[i] = vk.Image(unsafe.Pointer(new(uint64)))
	}
	return images, vk.Success
}

func (f *fakeDriver) AcquireNextImage(device vk.Device, swapchain vk.Swapchain, timeout uint64, semaphore vk.Semaphore) (uint32, vk.Result) {
	f.calls = append(f.calls, "AcquireNextImage")
	ret := vk.Success
	if len(f.acquireResults) > 0 {
		ret, f.acquireResults = f.acquireResults[0], f.acquireResults[1:]
	}
	if ret != vk.Success && ret != vk.Suboptimal {
		return 0, ret
	}
	n := f.chains[unsafe.Pointer(swapchain)]
	index := f.nextImage % n
	f.nextImage++
	return index, ret
}

func (f *fakeDriver) QueuePresent(queue vk.Queue, info *vk.PresentInfo) vk.Result {
	f.calls = append(f.calls, "QueuePresent")
	if len(f.presentResults) > 0 {
		var ret vk.Result
		ret, f.presentResults = f.presentResults[0], f.presentResults[1:]
		return ret
	}
	return vk.Success
}

func (f *fakeDriver) QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) vk.Result {
	if ret := f.result("QueueSubmit"); ret != vk.Success {
		return ret
	}
	f.submits = append(f.submits, submits...)
	if fence != vk.NullFence {
		f.fences[unsafe.Pointer(fence)] = true
	}
	return vk.Success
}

func (f *fakeDriver) CreateImageView(device vk.Device, info *vk.ImageViewCreateInfo) (vk.ImageView, vk.Result) {
	if ret := f.result("CreateImageView"); ret != vk.Success {
		return vk.NullImageView, ret
	}
	return vk.ImageView(f.alloc("ImageView")), vk.Success
}

func (f *fakeDriver) DestroyImageView(device vk.Device, view vk.ImageView) {
	f.free("DestroyImageView", unsafe.Pointer(view), "ImageView")
}

func (f *fakeDriver) CreateFramebuffer(device vk.Device, info *vk.FramebufferCreateInfo) (vk.Framebuffer, vk.Result) {
	if ret := f.result("CreateFramebuffer"); ret != vk.Success {
		return vk.NullFramebuffer, ret
	}
	return vk.Framebuffer(f.alloc("Framebuffer")), vk.Success
}

func (f *fakeDriver) DestroyFramebuffer(device vk.Device, framebuffer vk.Framebuffer) {
	f.free("DestroyFramebuffer", unsafe.Pointer(framebuffer), "Framebuffer")
}

func (f *fakeDriver) CreateSemaphore(device vk.Device) (vk.Semaphore, vk.Result) {
	if ret := f.result("CreateSemaphore"); ret != vk.Success {
		return vk.NullSemaphore, ret
	}
	return vk.Semaphore(f.alloc("Semaphore")), vk.Success
}

func (f *fakeDriver) DestroySemaphore(device vk.Device, semaphore vk.Semaphore) {
	f.free("DestroySemaphore", unsafe.Pointer(semaphore), "Semaphore")
}

func (f *fakeDriver) CreateFence(device vk.Device, signaled bool) (vk.Fence, vk.Result) {
	if ret := f.result("CreateFence"); ret != vk.Success {
		return vk.NullFence, ret
	}
	p := f.alloc("Fence")
	f.fences[p] = signaled
	return vk.Fence(p), vk.Success
}

func (f *fakeDriver) DestroyFence(device vk.Device, fence vk.Fence) {
	delete(f.fences, unsafe.Pointer(fence))
	f.free("DestroyFence", unsafe.Pointer(fence), "Fence")
}

func (f *fakeDriver) WaitForFence(device vk.Device, fence vk.Fence, timeout uint64) vk.Result {
	signaled := f.fences[unsafe.Pointer(fence)]
	f.fenceWaits = append(f.fenceWaits, fenceWait{fence: unsafe.Pointer(fence), signaled: signaled})
	if ret := f.result("WaitForFence"); ret != vk.Success {
		return ret
	}
	if !signaled {
		return vk.Timeout
	}
	return vk.Success
}

func (f *fakeDriver) ResetFence(device vk.Device, fence vk.Fence) vk.Result {
	if ret := f.result("ResetFence"); ret != vk.Success {
		return ret
	}
	f.fences[unsafe.Pointer(fence)] = false
	return vk.Success
}

func (f *fakeDriver) CreateCommandPool(device vk.Device, family uint32) (vk.CommandPool, vk.Result) {
	if ret := f.result("CreateCommandPool"); ret != vk.Success {
		return vk.NullCommandPool, ret
	}
	return vk.CommandPool(f.alloc("CommandPool")), vk.Success
}

func (f *fakeDriver) DestroyCommandPool(device vk.Device, pool vk.CommandPool) {
	f.free("DestroyCommandPool", unsafe.Pointer(pool), "CommandPool")
}

func (f *fakeDriver) AllocateCommandBuffer(device vk.Device, pool vk.CommandPool) (vk.CommandBuffer, vk.Result) {
	if ret := f.result("AllocateCommandBuffer"); ret != vk.Success {
		return nil, ret
	}
	return vk.CommandBuffer(f.alloc("CommandBuffer")), vk.Success
}

func (f *fakeDriver) FreeCommandBuffer(device vk.Device, pool vk.CommandPool, cmd vk.CommandBuffer) {
	f.free("FreeCommandBuffer", unsafe.Pointer(cmd), "CommandBuffer")
}

func (f *fakeDriver) AllocateCommandBuffers(device vk.Device, info *vk.CommandBufferAllocateInfo) ([]vk.CommandBuffer, vk.Result) {
	if ret := f.result("AllocateCommandBuffers"); ret != vk.Success {
		return nil, ret
	}
	f.cmdAllocs = append(f.cmdAllocs, *info)
	cmds := make([]vk.CommandBuffer, info.CommandBufferCount)
	for i := range cmds {
		cmds[i] = vk.CommandBuffer(f.alloc("CommandBuffer"))
	}
	return cmds, vk.Success
}

func (f *fakeDriver) FreeCommandBuffers(device vk.Device, pool vk.CommandPool, cmds []vk.CommandBuffer) {
	for _, cmd := range cmds {
		f.free("FreeCommandBuffers", unsafe.Pointer(cmd), "CommandBuffer")
	}
}

func (f *fakeDriver) ResetCommandBuffer(cmd vk.CommandBuffer) vk.Result {
	return f.result("ResetCommandBuffer")
}

func (f *fakeDriver) BeginCommandBuffer(cmd vk.CommandBuffer, flags vk.CommandBufferUsageFlags) vk.Result {
	return f.result("BeginCommandBuffer")
}

func (f *fakeDriver) EndCommandBuffer(cmd vk.CommandBuffer) vk.Result {
	return f.result("EndCommandBuffer")
}

func (f *fakeDriver) CmdBeginRenderPass(cmd vk.CommandBuffer, info *vk.RenderPassBeginInfo) {
	f.calls = append(f.calls, "CmdBeginRenderPass")
	f.renderPassBegins++
}

func (f *fakeDriver) CmdEndRenderPass(cmd vk.CommandBuffer) {
	f.calls = append(f.calls, "CmdEndRenderPass")
}

func (f *fakeDriver) CmdCopyBuffer(cmd vk.CommandBuffer, src, dst vk.Buffer, regions []vk.BufferCopy) {
	f.calls = append(f.calls, "CmdCopyBuffer")
	f.copies++
	from := f.memory[unsafe.Pointer(f.buffers[unsafe.Pointer(src)].memory)]
	to := f.memory[unsafe.Pointer(f.buffers[unsafe.Pointer(dst)].memory)]
	for _, r := range regions {
		copy(to[r.DstOffset:r.DstOffset+r.Size], from[r.SrcOffset:r.SrcOffset+r.Size])
	}
}

func (f *fakeDriver) CmdCopyBufferToImage(cmd vk.CommandBuffer, src vk.Buffer, dst vk.Image, layout vk.ImageLayout, regions []vk.BufferImageCopy) {
	f.calls = append(f.calls, "CmdCopyBufferToImage")
	f.copies++
	f.copyLayouts = append(f.copyLayouts, layout)
}

func (f *fakeDriver) CmdPipelineBarrier(cmd vk.CommandBuffer, srcStage, dstStage vk.PipelineStageFlags, barriers []vk.ImageMemoryBarrier) {
	f.calls = append(f.calls, "CmdPipelineBarrier")
	f.barriers = append(f.barriers, barriers...)
}

func (f *fakeDriver) CreateBuffer(device vk.Device, info *vk.BufferCreateInfo) (vk.Buffer, vk.Result) {
	if ret := f.result("CreateBuffer"); ret != vk.Success {
		return vk.NullBuffer, ret
	}
	p := f.alloc("Buffer")
	f.buffers[p] = &fakeBuffer{size: info.Size}
	return vk.Buffer(p), vk.Success
}

func (f *fakeDriver) DestroyBuffer(device vk.Device, buffer vk.Buffer) {
	delete(f.buffers, unsafe.Pointer(buffer))
	f.free("DestroyBuffer", unsafe.Pointer(buffer), "Buffer")
}

func (f *fakeDriver) requirements(size vk.DeviceSize) vk.MemoryRequirements {
	bits := f.typeBits
	if bits == 0 {
		bits = ^uint32(0)
	}
	return vk.MemoryRequirements{Size: size, Alignment: 4, MemoryTypeBits: bits}
}

func (f *fakeDriver) BufferMemoryRequirements(device vk.Device, buffer vk.Buffer) vk.MemoryRequirements {
	f.calls = append(f.calls, "BufferMemoryRequirements")
	return f.requirements(f.buffers[unsafe.Pointer(buffer)].size)
}

func (f *fakeDriver) BindBufferMemory(device vk.Device, buffer vk.Buffer, memory vk.DeviceMemory) vk.Result {
	if ret := f.result("BindBufferMemory"); ret != vk.Success {
		return ret
	}
	f.buffers[unsafe.Pointer(buffer)].memory = memory
	return vk.Success
}

func (f *fakeDriver) CreateImage(device vk.Device, info *vk.ImageCreateInfo) (vk.Image, vk.Result) {
	if ret := f.result("CreateImage"); ret != vk.Success {
		return vk.NullImage, ret
	}
	f.imageInfos = append(f.imageInfos, *info)
	p := f.alloc("Image")
	e := info.Extent
	f.images[p] = vk.DeviceSize(e.Width) * vk.DeviceSize(e.Height) * vk.DeviceSize(e.Depth) * 4
	return vk.Image(p), vk.Success
}

func (f *fakeDriver) DestroyImage(device vk.Device, image vk.Image) {
	delete(f.images, unsafe.Pointer(image))
	f.free("DestroyImage", unsafe.Pointer(image), "Image")
}

func (f *fakeDriver) ImageMemoryRequirements(device vk.Device, image vk.Image) vk.MemoryRequirements {
	f.calls = append(f.calls, "ImageMemoryRequirements")
	return f.requirements(f.images[unsafe.Pointer(image)])
}

func (f *fakeDriver) BindImageMemory(device vk.Device, image vk.Image, memory vk.DeviceMemory) vk.Result {
	return f.result("BindImageMemory")
}

func (f *fakeDriver) AllocateMemory(device vk.Device, info *vk.MemoryAllocateInfo) (vk.DeviceMemory, vk.Result) {
	if ret := f.result("AllocateMemory"); ret != vk.Success {
		return vk.NullDeviceMemory, ret
	}
	p := f.alloc("Memory")
	f.memory[p] = make([]byte, info.AllocationSize)
	return vk.DeviceMemory(p), vk.Success
}

func (f *fakeDriver) FreeMemory(device vk.Device, memory vk.DeviceMemory) {
	delete(f.memory, unsafe.Pointer(memory))
	f.free("FreeMemory", unsafe.Pointer(memory), "Memory")
}

func (f *fakeDriver) MapMemory(device vk.Device, memory vk.DeviceMemory) (unsafe.Pointer, vk.Result) {
	if ret := f.result("MapMemory"); ret != vk.Success {
		return nil, ret
	}
	f.mapped++
	b := f.memory[unsafe.Pointer(memory)]
	return unsafe.Pointer(&b[0]), vk.Success
}

func (f *fakeDriver) UnmapMemory(device vk.Device, memory vk.DeviceMemory) {
	f.calls = append(f.calls, "UnmapMemory")
	f.mapped--
}

func (f *fakeDriver) FlushMemory(device vk.Device, memory vk.DeviceMemory) vk.Result {
	f.flushes++
	return f.result("FlushMemory")
}

func (f *fakeDriver) InvalidateMemory(device vk.Device, memory vk.DeviceMemory) vk.Result {
	f.invalidates++
	return f.result("InvalidateMemory")
}

func (f *fakeDriver) CreateRenderPass(device vk.Device, info *vk.RenderPassCreateInfo) (vk.RenderPass, vk.Result) {
	if ret := f.result("CreateRenderPass"); ret != vk.Success {
		return vk.NullRenderPass, ret
	}
	return vk.RenderPass(f.alloc("RenderPass")), vk.Success
}

func (f *fakeDriver) DestroyRenderPass(device vk.Device, pass vk.RenderPass) {
	f.free("DestroyRenderPass", unsafe.Pointer(pass), "RenderPass")
}

func (f *fakeDriver) CreateDescriptorSetLayout(device vk.Device, info *vk.DescriptorSetLayoutCreateInfo) (vk.DescriptorSetLayout, vk.Result) {
	if ret := f.result("CreateDescriptorSetLayout"); ret != vk.Success {
		return nil, ret
	}
	return vk.DescriptorSetLayout(f.alloc("DescriptorSetLayout")), vk.Success
}

func (f *fakeDriver) DestroyDescriptorSetLayout(device vk.Device, layout vk.DescriptorSetLayout) {
	f.free("DestroyDescriptorSetLayout", unsafe.Pointer(layout), "DescriptorSetLayout")
}

func (f *fakeDriver) CreatePipelineLayout(device vk.Device, info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, vk.Result) {
	if ret := f.result("CreatePipelineLayout"); ret != vk.Success {
		return vk.NullPipelineLayout, ret
	}
	return vk.PipelineLayout(f.alloc("PipelineLayout")), vk.Success
}

func (f *fakeDriver) DestroyPipelineLayout(device vk.Device, layout vk.PipelineLayout) {
	f.free("DestroyPipelineLayout", unsafe.Pointer(layout), "PipelineLayout")
}

func (f *fakeDriver) CreateDescriptorPool(device vk.Device, info *vk.DescriptorPoolCreateInfo) (vk.DescriptorPool, vk.Result) {
	if ret := f.result("CreateDescriptorPool"); ret != vk.Success {
		return nil, ret
	}
	return vk.DescriptorPool(f.alloc("DescriptorPool")), vk.Success
}

func (f *fakeDriver) DestroyDescriptorPool(device vk.Device, pool vk.DescriptorPool) {
	f.free("DestroyDescriptorPool", unsafe.Pointer(pool), "DescriptorPool")
}

// AllocateDescriptorSets hands out sets owned by the pool; they are not
// tracked since destroying the pool releases them.
func (f *fakeDriver) AllocateDescriptorSets(device vk.Device, info *vk.DescriptorSetAllocateInfo) ([]vk.DescriptorSet, vk.Result) {
	if ret := f.result("AllocateDescriptorSets"); ret != vk.Success {
		return nil, ret
	}
	f.setAllocs = append(f.setAllocs, *info)
	sets := make([]vk.DescriptorSet, info.DescriptorSetCount)
	for i := range sets {
		sets[i] = vk.DescriptorSet(unsafe.Pointer(new(uint64)))
	}
	return sets, vk.Success
}

func (f *fakeDriver) CreateShaderModule(device vk.Device, info *vk.ShaderModuleCreateInfo) (vk.ShaderModule, vk.Result) {
	if ret := f.result("CreateShaderModule"); ret != vk.Success {
		return vk.NullShaderModule, ret
	}
	return vk.ShaderModule(f.alloc("ShaderModule")), vk.Success
}

func (f *fakeDriver) DestroyShaderModule(device vk.Device, module vk.ShaderModule) {
	f.free("DestroyShaderModule", unsafe.Pointer(module), "ShaderModule")
}

func (f *fakeDriver) CreateGraphicsPipelines(device vk.Device, infos []vk.GraphicsPipelineCreateInfo) ([]vk.Pipeline, vk.Result) {
	f.pipelineBatches = append(f.pipelineBatches, infos)
	out := make([]vk.Pipeline, len(infos))
	if ret := f.result("CreateGraphicsPipelines"); ret != vk.Success {
		return out, ret
	}
	for i := range out {
		out[i] = vk.Pipeline(f.alloc("Pipeline"))
	}
	return out, vk.Success
}

func (f *fakeDriver) DestroyPipeline(device vk.Device, pipeline vk.Pipeline) {
	f.free("DestroyPipeline", unsafe.Pointer(pipeline), "Pipeline")
}

func (f *fakeDriver) CreateSampler(device vk.Device, info *vk.SamplerCreateInfo) (vk.Sampler, vk.Result) {
	if ret := f.result("CreateSampler"); ret != vk.Success {
		return nil, ret
	}
	f.samplers = append(f.samplers, *info)
	return vk.Sampler(f.alloc("Sampler")), vk.Success
}

func (f *fakeDriver) DestroySampler(device vk.Device, sampler vk.Sampler) {
	f.free("DestroySampler", unsafe.Pointer(sampler), "Sampler")
}

var _ Driver = (*fakeDriver)(nil)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testConfig is a minimal valid configuration over f.
func testConfig(f *fakeDriver) Config {
	return Config{
		CreateSurface: f.createSurface,
		WindowSize:    f.windowSize,
		Logger:        testLogger(),
		Driver:        f,
	}
}

func newTestContext(t *testing.T, f *fakeDriver, mutate func(*Config)) *Context {
	t.Helper()
	cfg := testConfig(f)
	if mutate != nil {
		mutate(&cfg)
	}
	ctx, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(ctx.Destroy)
	return ctx
}

// newSwapchainContext returns a context with one color+depth render pass and
// a configured swapchain of imageCount images.
func newSwapchainContext(t *testing.T, f *fakeDriver, imageCount uint32, mutate func(*Config)) *Context {
	t.Helper()
	ctx := newTestContext(t, f, func(c *Config) {
		c.RenderPasses = []vk.RenderPassCreateInfo{ColorDepthRenderPass(vk.FormatUndefined)}
		if mutate != nil {
			mutate(c)
		}
	})
	require.NoError(t, ctx.ConfigureSwapchain(ctx.Resources().RenderPasses[0], imageCount))
	return ctx
}

// requireNoLeaks checks that everything but the fabricated swapchain images
// was released exactly once.
func requireNoLeaks(t *testing.T, f *fakeDriver) {
	t.Helper()
	require.Empty(t, f.badFrees, "double or mismatched frees")
	require.Empty(t, f.live, "live handles after destroy")
}
