package vulkano

import (
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"
)

// Resources holds the long-lived objects declared in Config, addressed by
// their index in the corresponding Config slice.
type Resources struct {
	RenderPasses         []vk.RenderPass
	DescriptorSetLayouts []vk.DescriptorSetLayout
	PipelineLayouts      []vk.PipelineLayout
	DescriptorPools      []vk.DescriptorPool
	Pipelines            []Pipeline

	// pool backs BeginSingleUse and AllocateCommandBuffers.
	pool *commandPool
}

// validateResources checks every cross-reference in the declared resources
// so that a bad index is reported before any GPU object exists.
func validateResources(c *Config) error {
	for i := range c.RenderPasses {
		if len(c.RenderPasses[i].PSubpasses) == 0 {
			return configErrorf("vulkano: render pass %d has no subpasses", i)
		}
	}
	for i, l := range c.PipelineLayouts {
		for _, idx := range l.SetLayouts {
			if idx < 0 || idx >= len(c.DescriptorSetLayouts) {
				return configErrorf("vulkano: pipeline layout %d: set layout index %d out of range [0, %d)",
					i, idx, len(c.DescriptorSetLayouts))
			}
		}
	}
	for i := range c.DescriptorPools {
		if c.DescriptorPools[i].MaxSets == 0 {
			return configErrorf("vulkano: descriptor pool %d has MaxSets 0", i)
		}
	}
	for i := range c.Pipelines {
		if err := validatePipeline(i, &c.Pipelines[i], len(c.PipelineLayouts), len(c.RenderPasses)); err != nil {
			return err
		}
	}
	return nil
}

// create builds the shared command pool and then every declared resource in
// dependency order.
func (r *Resources) create(c *Context) error {
	d, device, cfg := c.driver, c.device, &c.cfg
	pool, err := newCommandPool(d, device, c.gpu.QueueFamily)
	if err != nil {
		return err
	}
	r.pool = pool

	for i := range cfg.RenderPasses {
		pass, err := c.createRenderPass(cfg.RenderPasses[i])
		if err != nil {
			return err
		}
		r.RenderPasses = append(r.RenderPasses, pass)
	}

	for _, info := range cfg.DescriptorSetLayouts {
		info.SType = vk.StructureTypeDescriptorSetLayoutCreateInfo
		info.BindingCount = uint32(len(info.PBindings))
		layout, ret := d.CreateDescriptorSetLayout(device, &info)
		if err := newError("create descriptor set layout", ret); err != nil {
			return err
		}
		r.DescriptorSetLayouts = append(r.DescriptorSetLayouts, layout)
	}

	for _, lc := range cfg.PipelineLayouts {
		sets := make([]vk.DescriptorSetLayout, len(lc.SetLayouts))
		for j, idx := range lc.SetLayouts {
			sets[j] = r.DescriptorSetLayouts[idx]
		}
		layout, ret := d.CreatePipelineLayout(device, &vk.PipelineLayoutCreateInfo{
			SType:                  vk.StructureTypePipelineLayoutCreateInfo,
			SetLayoutCount:         uint32(len(sets)),
			PSetLayouts:            sets,
			PushConstantRangeCount: uint32(len(lc.PushConstantRanges)),
			PPushConstantRanges:    lc.PushConstantRanges,
		})
		if err := newError("create pipeline layout", ret); err != nil {
			return err
		}
		r.PipelineLayouts = append(r.PipelineLayouts, layout)
	}

	for _, info := range cfg.DescriptorPools {
		info.SType = vk.StructureTypeDescriptorPoolCreateInfo
		info.PoolSizeCount = uint32(len(info.PPoolSizes))
		dp, ret := d.CreateDescriptorPool(device, &info)
		if err := newError("create descriptor pool", ret); err != nil {
			return err
		}
		r.DescriptorPools = append(r.DescriptorPools, dp)
	}

	if err := r.createPipelines(c); err != nil {
		return err
	}
	c.log.Info("vulkan: resources created",
		slog.Int("render_passes", len(r.RenderPasses)),
		slog.Int("pipelines", len(r.Pipelines)))
	return nil
}

// destroy releases every category in reverse dependency order. Entries that
// were never created are skipped.
func (r *Resources) destroy(d Driver, device vk.Device) {
	for i := range r.Pipelines {
		r.Pipelines[i].destroy(d, device)
	}
	r.Pipelines = nil
	for _, dp := range r.DescriptorPools {
		if dp != nil {
			d.DestroyDescriptorPool(device, dp)
		}
	}
	r.DescriptorPools = nil
	for _, layout := range r.PipelineLayouts {
		if layout != vk.NullPipelineLayout {
			d.DestroyPipelineLayout(device, layout)
		}
	}
	r.PipelineLayouts = nil
	for _, layout := range r.DescriptorSetLayouts {
		if layout != nil {
			d.DestroyDescriptorSetLayout(device, layout)
		}
	}
	r.DescriptorSetLayouts = nil
	for _, pass := range r.RenderPasses {
		if pass != vk.NullRenderPass {
			d.DestroyRenderPass(device, pass)
		}
	}
	r.RenderPasses = nil
	r.pool.destroy(d, device)
	r.pool = nil
}

// AllocateDescriptorSets allocates one descriptor set per layout from pool.
// The sets are released with the pool.
func (c *Context) AllocateDescriptorSets(pool vk.DescriptorPool, layouts ...vk.DescriptorSetLayout) ([]vk.DescriptorSet, error) {
	if err := c.alive(); err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, configErrorf("vulkano: descriptor sets need a pool")
	}
	if len(layouts) == 0 {
		return nil, configErrorf("vulkano: no descriptor set layouts to allocate")
	}
	sets, ret := c.driver.AllocateDescriptorSets(c.device, &vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: uint32(len(layouts)),
		PSetLayouts:        layouts,
	})
	if err := newError("allocate descriptor sets", ret); err != nil {
		return nil, err
	}
	return sets, nil
}
