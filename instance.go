package vulkano

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"
)

// createInstance validates the requested layers and extensions and creates
// the instance. A missing name is reported on its own, before any creation.
func (c *Context) createInstance() error {
	d, cfg := c.driver, &c.cfg
	if err := checkLayers(d, cfg.Layers); err != nil {
		return err
	}
	if err := checkInstanceExtensions(d, cfg.InstanceExtensions); err != nil {
		return err
	}
	instance, ret := d.CreateInstance(&vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			ApiVersion:         uint32(cfg.APIVersion),
			ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
			PApplicationName:   safeString(cfg.AppName),
			PEngineName:        "vulkano\x00",
		},
		EnabledExtensionCount:   uint32(len(cfg.InstanceExtensions)),
		PpEnabledExtensionNames: safeStrings(cfg.InstanceExtensions),
		EnabledLayerCount:       uint32(len(cfg.Layers)),
		PpEnabledLayerNames:     safeStrings(cfg.Layers),
	})
	if err := newError("create instance", ret); err != nil {
		return err
	}
	c.instance = instance
	c.log.Info("vulkan: instance created",
		slog.Int("extensions", len(cfg.InstanceExtensions)),
		slog.Int("layers", len(cfg.Layers)))

	if cfg.DebugReport {
		callback, ret := d.CreateDebugReportCallback(instance, &vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: c.debugReport,
		})
		if err := newError("create debug report callback", ret); err != nil {
			return err
		}
		c.debugCallback = callback
		c.log.Info("vulkan: DebugReportCallback enabled")
	}
	return nil
}

func (c *Context) debugReport(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint64, location uint, messageCode int32, pLayerPrefix string,
	pMessage string, pUserData unsafe.Pointer) vk.Bool32 {

	attrs := []any{slog.String("layer", pLayerPrefix), slog.Int("code", int(messageCode))}
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		c.log.Error(pMessage, attrs...)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0,
		flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		c.log.Warn(pMessage, attrs...)
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		c.log.Debug(pMessage, attrs...)
	default:
		c.log.Info(pMessage, attrs...)
	}
	return vk.Bool32(vk.False)
}
