package vulkano

import (
	vk "github.com/vulkan-go/vulkan"
)

// CreateShaderModule creates a shader module from SPIR-V bytes. The caller
// owns the module.
func (c *Context) CreateShaderModule(code []byte) (vk.ShaderModule, error) {
	if err := c.alive(); err != nil {
		return vk.NullShaderModule, err
	}
	if err := checkShaderCode(code); err != nil {
		return vk.NullShaderModule, err
	}
	return c.createShaderModule(code)
}

func checkShaderCode(code []byte) error {
	if len(code) == 0 {
		return configErrorf("vulkano: empty shader code")
	}
	if len(code)%4 != 0 {
		return configErrorf("vulkano: shader code length %d is not a multiple of 4", len(code))
	}
	return nil
}

func (c *Context) createShaderModule(code []byte) (vk.ShaderModule, error) {
	module, ret := c.driver.CreateShaderModule(c.device, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		// Vulkan expects to receive the code as uint32 words.
		PCode: sliceUint32(code),
	})
	if err := newError("create shader module", ret); err != nil {
		return vk.NullShaderModule, err
	}
	return module, nil
}
