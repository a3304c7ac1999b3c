package vulkano

import (
	vk "github.com/vulkan-go/vulkan"
)

// MaxShaderStages is the number of stages a graphics pipeline may carry:
// vertex, tessellation control and evaluation, geometry and fragment.
const MaxShaderStages = 5

// ShaderStage is one SPIR-V blob of a pipeline. EntryPoint defaults to "main".
type ShaderStage struct {
	Stage      vk.ShaderStageFlagBits
	Code       []byte
	EntryPoint string
}

// PipelineLayoutConfig references descriptor set layouts by their index in
// Config.DescriptorSetLayouts.
type PipelineLayoutConfig struct {
	SetLayouts         []int
	PushConstantRanges []vk.PushConstantRange
}

// PipelineConfig declares a graphics pipeline. Layout and RenderPass index
// Config.PipelineLayouts and Config.RenderPasses. Nil states get defaults:
// no vertex input, triangle list, one dynamic viewport and scissor, filled
// polygons without culling, single sample, depth test and write, and one
// opaque color attachment.
type PipelineConfig struct {
	Layout     int
	RenderPass int
	Subpass    uint32
	Stages     []ShaderStage

	VertexInput   *vk.PipelineVertexInputStateCreateInfo
	InputAssembly *vk.PipelineInputAssemblyStateCreateInfo
	Tessellation  *vk.PipelineTessellationStateCreateInfo
	Viewport      *vk.PipelineViewportStateCreateInfo
	Rasterization *vk.PipelineRasterizationStateCreateInfo
	Multisample   *vk.PipelineMultisampleStateCreateInfo
	DepthStencil  *vk.PipelineDepthStencilStateCreateInfo
	ColorBlend    *vk.PipelineColorBlendStateCreateInfo
	Dynamic       *vk.PipelineDynamicStateCreateInfo
}

// Pipeline is a created graphics pipeline with the objects it was built
// from. Its shader modules are destroyed together with it.
type Pipeline struct {
	Handle     vk.Pipeline
	Layout     vk.PipelineLayout
	RenderPass vk.RenderPass

	modules []vk.ShaderModule
}

func (p *Pipeline) destroy(d Driver, device vk.Device) {
	if p.Handle != vk.NullPipeline {
		d.DestroyPipeline(device, p.Handle)
		p.Handle = vk.NullPipeline
	}
	for _, m := range p.modules {
		if m != vk.NullShaderModule {
			d.DestroyShaderModule(device, m)
		}
	}
	p.modules = nil
}

func validatePipeline(i int, p *PipelineConfig, layouts, passes int) error {
	if p.Layout < 0 || p.Layout >= layouts {
		return configErrorf("vulkano: pipeline %d: layout index %d out of range [0, %d)", i, p.Layout, layouts)
	}
	if p.RenderPass < 0 || p.RenderPass >= passes {
		return configErrorf("vulkano: pipeline %d: render pass index %d out of range [0, %d)", i, p.RenderPass, passes)
	}
	if len(p.Stages) == 0 || len(p.Stages) > MaxShaderStages {
		return configErrorf("vulkano: pipeline %d: %d shader stages, want 1 to %d", i, len(p.Stages), MaxShaderStages)
	}
	for j := range p.Stages {
		if err := checkShaderCode(p.Stages[j].Code); err != nil {
			return configErrorf("vulkano: pipeline %d stage %d: %v", i, j, err)
		}
	}
	return nil
}

var dynamicViewport = []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}

// graphicsPipelineInfo builds the create info for p with its defaults
// applied. Caller state structs are copied before their fields are filled.
func graphicsPipelineInfo(p *PipelineConfig, modules []vk.ShaderModule,
	layout vk.PipelineLayout, pass vk.RenderPass) vk.GraphicsPipelineCreateInfo {

	stages := make([]vk.PipelineShaderStageCreateInfo, len(p.Stages))
	for i, s := range p.Stages {
		entry := s.EntryPoint
		if entry == "" {
			entry = "main"
		}
		stages[i] = vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  s.Stage,
			Module: modules[i],
			PName:  safeString(entry),
		}
	}

	var vertexInput vk.PipelineVertexInputStateCreateInfo
	if p.VertexInput != nil {
		vertexInput = *p.VertexInput
	}
	vertexInput.SType = vk.StructureTypePipelineVertexInputStateCreateInfo
	vertexInput.VertexBindingDescriptionCount = uint32(len(vertexInput.PVertexBindingDescriptions))
	vertexInput.VertexAttributeDescriptionCount = uint32(len(vertexInput.PVertexAttributeDescriptions))

	assembly := vk.PipelineInputAssemblyStateCreateInfo{
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}
	if p.InputAssembly != nil {
		assembly = *p.InputAssembly
	}
	assembly.SType = vk.StructureTypePipelineInputAssemblyStateCreateInfo

	var dynamic vk.PipelineDynamicStateCreateInfo
	if p.Dynamic != nil {
		dynamic = *p.Dynamic
	}
	viewport := vk.PipelineViewportStateCreateInfo{
		ViewportCount: 1,
		ScissorCount:  1,
	}
	if p.Viewport != nil {
		viewport = *p.Viewport
	} else {
		dynamic.PDynamicStates = appendMissing(dynamic.PDynamicStates, dynamicViewport...)
	}
	viewport.SType = vk.StructureTypePipelineViewportStateCreateInfo
	if len(viewport.PViewports) > 0 {
		viewport.ViewportCount = uint32(len(viewport.PViewports))
	}
	if len(viewport.PScissors) > 0 {
		viewport.ScissorCount = uint32(len(viewport.PScissors))
	}

	rasterizer := vk.PipelineRasterizationStateCreateInfo{
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		CullMode:                vk.CullModeFlags(vk.CullModeNone),
		FrontFace:               vk.FrontFaceClockwise,
		DepthBiasEnable:         vk.False,
		LineWidth:               1.0,
	}
	if p.Rasterization != nil {
		rasterizer = *p.Rasterization
	}
	rasterizer.SType = vk.StructureTypePipelineRasterizationStateCreateInfo

	multisample := vk.PipelineMultisampleStateCreateInfo{
		RasterizationSamples: vk.SampleCount1Bit,
		SampleShadingEnable:  vk.False,
		MinSampleShading:     1.0,
	}
	if p.Multisample != nil {
		multisample = *p.Multisample
	}
	multisample.SType = vk.StructureTypePipelineMultisampleStateCreateInfo
	if multisample.RasterizationSamples == 0 {
		multisample.RasterizationSamples = vk.SampleCount1Bit
	}

	depth := vk.PipelineDepthStencilStateCreateInfo{
		DepthTestEnable:  vk.True,
		DepthWriteEnable: vk.True,
		DepthCompareOp:   vk.CompareOpLessOrEqual,
		MinDepthBounds:   0.0,
		MaxDepthBounds:   1.0,
	}
	if p.DepthStencil != nil {
		depth = *p.DepthStencil
	}
	depth.SType = vk.StructureTypePipelineDepthStencilStateCreateInfo

	blend := vk.PipelineColorBlendStateCreateInfo{
		LogicOpEnable: vk.False,
		LogicOp:       vk.LogicOpCopy,
		PAttachments: []vk.PipelineColorBlendAttachmentState{{
			BlendEnable: vk.False,
			ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit |
				vk.ColorComponentBBit | vk.ColorComponentABit),
		}},
	}
	if p.ColorBlend != nil {
		blend = *p.ColorBlend
	}
	blend.SType = vk.StructureTypePipelineColorBlendStateCreateInfo
	blend.AttachmentCount = uint32(len(blend.PAttachments))

	info := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &assembly,
		PViewportState:      &viewport,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisample,
		PDepthStencilState:  &depth,
		PColorBlendState:    &blend,
		Layout:              layout,
		RenderPass:          pass,
		Subpass:             p.Subpass,
		BasePipelineIndex:   -1,
	}
	if p.Tessellation != nil {
		tess := *p.Tessellation
		tess.SType = vk.StructureTypePipelineTessellationStateCreateInfo
		info.PTessellationState = &tess
	}
	if len(dynamic.PDynamicStates) > 0 {
		dynamic.SType = vk.StructureTypePipelineDynamicStateCreateInfo
		dynamic.DynamicStateCount = uint32(len(dynamic.PDynamicStates))
		info.PDynamicState = &dynamic
	}
	return info
}

func appendMissing(list []vk.DynamicState, states ...vk.DynamicState) []vk.DynamicState {
	out := append([]vk.DynamicState(nil), list...)
next:
	for _, s := range states {
		for _, have := range out {
			if have == s {
				continue next
			}
		}
		out = append(out, s)
	}
	return out
}

// createPipelines builds every configured pipeline in one batched call.
// Modules and handles are recorded in r as they are created so a failure
// leaves r destroyable.
func (r *Resources) createPipelines(c *Context) error {
	configs := c.cfg.Pipelines
	if len(configs) == 0 {
		return nil
	}
	r.Pipelines = make([]Pipeline, len(configs))
	infos := make([]vk.GraphicsPipelineCreateInfo, len(configs))
	for i := range configs {
		pc, p := &configs[i], &r.Pipelines[i]
		p.Layout = r.PipelineLayouts[pc.Layout]
		p.RenderPass = r.RenderPasses[pc.RenderPass]
		for _, stage := range pc.Stages {
			module, err := c.createShaderModule(stage.Code)
			if err != nil {
				return err
			}
			p.modules = append(p.modules, module)
		}
		infos[i] = graphicsPipelineInfo(pc, p.modules, p.Layout, p.RenderPass)
	}
	handles, ret := c.driver.CreateGraphicsPipelines(c.device, infos)
	for i := range handles {
		if i < len(r.Pipelines) {
			r.Pipelines[i].Handle = handles[i]
		}
	}
	return newError("create graphics pipelines", ret)
}
