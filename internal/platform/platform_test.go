package platform

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSupport(t *testing.T) {
	assert.Equal(t, SupportedOS(runtime.GOOS), GetOS())
	if runtime.GOOS == "linux" || runtime.GOOS == "windows" {
		assert.True(t, IsSupported())
		assert.NoError(t, ValidateSupport())
	} else {
		assert.False(t, IsSupported())
		assert.Error(t, ValidateSupport())
	}
}
