package vulkano

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// ResultString describes a Vulkan result code the way vulkan-go does,
// falling back to the number for codes it has no error for.
func ResultString(ret vk.Result) string {
	if err := vk.Error(ret); err != nil {
		return err.Error()
	}
	return fmt.Sprintf("VkResult(%d)", ret)
}

// PresentModeString names a present mode.
func PresentModeString(mode vk.PresentMode) string {
	switch mode {
	case vk.PresentModeImmediate:
		return "immediate"
	case vk.PresentModeMailbox:
		return "mailbox"
	case vk.PresentModeFifo:
		return "fifo"
	case vk.PresentModeFifoRelaxed:
		return "fifo-relaxed"
	default:
		return fmt.Sprintf("PresentMode(%d)", mode)
	}
}

// FormatString names the formats a surface commonly reports. Others print
// their numeric value.
func FormatString(format vk.Format) string {
	switch format {
	case vk.FormatUndefined:
		return "UNDEFINED"
	case vk.FormatB8g8r8a8Srgb:
		return "B8G8R8A8_SRGB"
	case vk.FormatB8g8r8a8Unorm:
		return "B8G8R8A8_UNORM"
	case vk.FormatR8g8b8a8Srgb:
		return "R8G8B8A8_SRGB"
	case vk.FormatR8g8b8a8Unorm:
		return "R8G8B8A8_UNORM"
	case vk.FormatA2b10g10r10UnormPack32:
		return "A2B10G10R10_UNORM_PACK32"
	case vk.FormatR16g16b16a16Sfloat:
		return "R16G16B16A16_SFLOAT"
	case vk.FormatD24UnormS8Uint:
		return "D24_UNORM_S8_UINT"
	case vk.FormatD32Sfloat:
		return "D32_SFLOAT"
	default:
		return fmt.Sprintf("Format(%d)", format)
	}
}
