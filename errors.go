package vulkano

import (
	"fmt"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Kind is the machine-readable class of an error returned by the engine.
type Kind int

const (
	KindNone Kind = iota
	// KindConfig is a caller mistake detected before any GPU call.
	KindConfig
	// KindUnsupported means a layer, extension or GPU requirement cannot be met.
	KindUnsupported
	// KindOutOfMemory covers host/device exhaustion and unfulfillable memory types.
	KindOutOfMemory
	// KindTimeout is a fence or acquire wait that exceeded Config.Timeout.
	KindTimeout
	// KindMinimized is the zero-extent surface state. It is not a failure.
	KindMinimized
	// KindFatal is everything else.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindConfig:
		return "configuration"
	case KindUnsupported:
		return "unsupported"
	case KindOutOfMemory:
		return "out of memory"
	case KindTimeout:
		return "timeout"
	case KindMinimized:
		return "minimized"
	default:
		return "fatal"
	}
}

var (
	ErrConfig            = errors.New("vulkano: configuration error")
	ErrInvalidImageCount = errors.New("vulkano: invalid swapchain image count")

	ErrUnsupportedLayer             = errors.New("vulkano: unsupported validation layer")
	ErrUnsupportedInstanceExtension = errors.New("vulkano: unsupported instance extension")
	ErrUnsupportedDeviceExtension   = errors.New("vulkano: unsupported device extension")
	ErrNoGPU                        = errors.New("vulkano: no gpus visible")
	ErrNoSuitableGPU                = errors.New("vulkano: no suitable gpu available")

	ErrOutOfMemory = errors.New("vulkano: out of memory")
	ErrTimeout     = errors.New("vulkano: timeout")
	ErrMinimized   = errors.New("vulkano: surface minimized")
	ErrFatal       = errors.New("vulkano: fatal error")

	// ErrSwapchainThrash is returned when acquisition keeps reporting a stale
	// chain after Config.MaxSwapchainRebuilds rebuilds.
	ErrSwapchainThrash = errors.New("vulkano: swapchain rebuilt too many times")
)

var kindTable = []struct {
	sentinel error
	kind     Kind
}{
	{ErrMinimized, KindMinimized},
	{ErrTimeout, KindTimeout},
	{ErrOutOfMemory, KindOutOfMemory},
	{ErrUnsupportedLayer, KindUnsupported},
	{ErrUnsupportedInstanceExtension, KindUnsupported},
	{ErrUnsupportedDeviceExtension, KindUnsupported},
	{ErrNoGPU, KindUnsupported},
	{ErrNoSuitableGPU, KindUnsupported},
	{ErrInvalidImageCount, KindConfig},
	{ErrConfig, KindConfig},
	{ErrSwapchainThrash, KindFatal},
	{ErrFatal, KindFatal},
}

// KindOf classifies err. Unclassified non-nil errors are fatal.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	for _, k := range kindTable {
		if errors.Is(err, k.sentinel) {
			return k.kind
		}
	}
	return KindFatal
}

// ResultError carries the low-level status code of a failed Vulkan call.
type ResultError struct {
	Op     string
	Result vk.Result
}

func (e *ResultError) Error() string {
	return fmt.Sprintf("vulkan: %s failed: %s (%d)", e.Op, ResultString(e.Result), e.Result)
}

// ResultOf returns the Vulkan status code carried by err, if any.
func ResultOf(err error) (vk.Result, bool) {
	var re *ResultError
	if errors.As(err, &re) {
		return re.Result, true
	}
	return vk.Success, false
}

func isError(ret vk.Result) bool {
	return ret != vk.Success
}

// newError classifies a Vulkan result. It returns nil for vk.Success.
func newError(op string, ret vk.Result) error {
	if !isError(ret) {
		return nil
	}
	err := errors.WithStack(&ResultError{Op: op, Result: ret})
	switch ret {
	case vk.ErrorOutOfHostMemory, vk.ErrorOutOfDeviceMemory:
		return errors.Mark(err, ErrOutOfMemory)
	case vk.Timeout, vk.NotReady:
		return errors.Mark(err, ErrTimeout)
	default:
		return errors.Mark(err, ErrFatal)
	}
}

func configErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrConfig)
}

func markf(sentinel error, format string, args ...interface{}) error {
	return errors.Wrapf(sentinel, format, args...)
}
