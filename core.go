package vulkano

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"
)

// Context owns the instance, surface, logical device and everything built on
// top of them for one session. It is not safe for concurrent use: a single
// goroutine drives it while the GPU runs asynchronously.
type Context struct {
	cfg    Config
	driver Driver
	log    *slog.Logger

	instance      vk.Instance
	debugCallback vk.DebugReportCallback
	surface       vk.Surface
	gpu           *GPU
	device        vk.Device
	queue         vk.Queue

	resources *Resources

	swapCfg *swapchainConfig
	chain   *swapchain
	// stale is set when the presentation engine reported the chain out of
	// date or suboptimal; the next BeginFrame rebuilds it.
	stale bool

	// generation changes whenever the chain or the slots are replaced. A
	// Frame begun under an older generation cannot be submitted.
	generation uint64

	slots       []frameSlot
	frameNumber uint64
}

// New bootstraps a session: instance, surface, GPU selection, logical device
// and the resources declared in cfg. On failure everything created so far is
// released before returning.
func New(cfg Config) (*Context, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	c := &Context{
		cfg:    cfg,
		driver: cfg.Driver,
		log:    cfg.Logger,
	}
	if err := c.init(); err != nil {
		c.Destroy()
		return nil, err
	}
	return c, nil
}

func (c *Context) init() error {
	if err := c.createInstance(); err != nil {
		return err
	}
	surface, err := c.cfg.CreateSurface(c.instance)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "vulkano: surface creation failed"), ErrFatal)
	}
	if surface == vk.NullSurface {
		return errors.Mark(errors.New("vulkano: surface creation returned a null surface"), ErrFatal)
	}
	c.surface = surface

	gpu, err := selectGPU(c.driver, c.instance, c.surface, &c.cfg)
	if err != nil {
		return err
	}
	c.gpu = gpu
	c.log.Info("vulkan: selected gpu",
		slog.String("name", gpu.Name),
		slog.Int("type", int(gpu.Properties.DeviceType)),
		slog.String("format", FormatString(gpu.SurfaceFormat.Format)),
		slog.String("present_mode", PresentModeString(gpu.PresentMode)))

	device, err := createDevice(c.driver, gpu, &c.cfg)
	if err != nil {
		return err
	}
	c.device = device
	c.queue = c.driver.DeviceQueue(device, gpu.QueueFamily)

	c.resources = &Resources{}
	return c.resources.create(c)
}

// Destroy releases everything the context owns in reverse creation order.
// It is safe on a partially constructed context and on one already destroyed.
func (c *Context) Destroy() {
	if c == nil || c.driver == nil {
		return
	}
	d := c.driver
	if c.device != nil {
		d.DeviceWaitIdle(c.device)
	}
	c.destroySlots()
	c.destroySwapchain()
	c.swapCfg = nil
	if c.resources != nil {
		c.resources.destroy(d, c.device)
		c.resources = nil
	}
	if c.device != nil {
		d.DestroyDevice(c.device)
		c.device = nil
	}
	c.queue = nil
	c.gpu = nil
	if c.surface != vk.NullSurface {
		d.DestroySurface(c.instance, c.surface)
		c.surface = vk.NullSurface
	}
	if c.debugCallback != vk.NullDebugReportCallback {
		d.DestroyDebugReportCallback(c.instance, c.debugCallback)
		c.debugCallback = vk.NullDebugReportCallback
	}
	if c.instance != nil {
		d.DestroyInstance(c.instance)
		c.instance = nil
	}
	c.stale = false
	c.frameNumber = 0
}

func (c *Context) alive() error {
	if c == nil || c.device == nil {
		return configErrorf("vulkano: context is not initialized or already destroyed")
	}
	return nil
}

// Instance gets the Vulkan instance.
func (c *Context) Instance() vk.Instance { return c.instance }

// Device gets the logical device.
func (c *Context) Device() vk.Device { return c.device }

// Queue gets the graphics and present queue.
func (c *Context) Queue() vk.Queue { return c.queue }

// Surface gets the presentable surface.
func (c *Context) Surface() vk.Surface { return c.surface }

// GPU gets the selected physical device record.
func (c *Context) GPU() *GPU { return c.gpu }

// Resources gets the table of objects built from the configuration.
func (c *Context) Resources() *Resources { return c.resources }

// Logger gets the logger the context reports through.
func (c *Context) Logger() *slog.Logger { return c.log }

// FrameNumber is the sequence number the next BeginFrame will use.
func (c *Context) FrameNumber() uint64 { return c.frameNumber }

// WaitIdle blocks until the device has finished all submitted work.
func (c *Context) WaitIdle() error {
	if err := c.alive(); err != nil {
		return err
	}
	return newError("device wait idle", c.driver.DeviceWaitIdle(c.device))
}
