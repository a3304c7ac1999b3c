package vulkano

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, KindOf(err), "error: %v", err)
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind Kind
	}{
		{"nil", nil, KindNone},
		{"config", configErrorf("bad %s", "value"), KindConfig},
		{"image count", markf(ErrInvalidImageCount, "5 images"), KindConfig},
		{"layer", markf(ErrUnsupportedLayer, "%q", "VK_LAYER_foo"), KindUnsupported},
		{"no gpu", errors.WithStack(ErrNoGPU), KindUnsupported},
		{"device memory", newError("allocate memory", vk.ErrorOutOfDeviceMemory), KindOutOfMemory},
		{"host memory", newError("allocate memory", vk.ErrorOutOfHostMemory), KindOutOfMemory},
		{"timeout", newError("wait", vk.Timeout), KindTimeout},
		{"not ready", newError("wait", vk.NotReady), KindTimeout},
		{"device lost", newError("submit", vk.ErrorDeviceLost), KindFatal},
		{"minimized", errors.WithStack(ErrMinimized), KindMinimized},
		{"thrash", markf(ErrSwapchainThrash, "after 4 rebuilds"), KindFatal},
		{"foreign", errors.New("something else"), KindFatal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.kind, KindOf(tc.err))
		})
	}
}

func TestNewError(t *testing.T) {
	require.NoError(t, newError("create instance", vk.Success))

	err := newError("create instance", vk.ErrorInitializationFailed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create instance")
	assert.Contains(t, err.Error(), ResultString(vk.ErrorInitializationFailed))
	assert.True(t, errors.Is(err, ErrFatal))

	ret, ok := ResultOf(err)
	require.True(t, ok)
	assert.Equal(t, vk.ErrorInitializationFailed, ret)

	_, ok = ResultOf(configErrorf("no result"))
	assert.False(t, ok)
}

func TestResultNamesComeFromVulkan(t *testing.T) {
	for _, ret := range []vk.Result{vk.ErrorDeviceLost, vk.ErrorOutOfDeviceMemory, vk.ErrorSurfaceLost} {
		want := vk.Error(ret)
		require.Error(t, want)
		assert.Equal(t, want.Error(), ResultString(ret))
		assert.Contains(t, newError("submit frame", ret).Error(), want.Error())
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "minimized", KindMinimized.String())
	assert.Equal(t, "configuration", KindConfig.String())
}
