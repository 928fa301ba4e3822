//go:build linux

package bios

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBiosCfgTree(t *testing.T, attrs ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, attr := range attrs {
		dir := filepath.Join(root, "attributes", attr)
		require.NoError(t, os.MkdirAll(dir, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "current_value"), []byte("Auto\n"), 0644))
	}
	return root
}

func TestSysfsProviderExists(t *testing.T) {
	ok, err := NewSysfsProvider(t.TempDir()).Exists(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = NewSysfsProvider(newBiosCfgTree(t, SettingFanSpeedMode)).Exists(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSysfsProviderSetSetting(t *testing.T) {
	root := newBiosCfgTree(t, SettingFanSpeedMode)
	p := NewSysfsProvider(root)

	code, err := p.SetSetting(context.Background(), SettingFanSpeedMode, "Max", EmptyPassword)
	require.NoError(t, err)
	assert.Equal(t, ReturnSuccess, code)

	data, err := os.ReadFile(filepath.Join(root, "attributes", SettingFanSpeedMode, "current_value"))
	require.NoError(t, err)
	assert.Equal(t, "Max", string(data))
}

func TestSysfsProviderPendingReboot(t *testing.T) {
	root := newBiosCfgTree(t, SettingPerformanceMode)
	require.NoError(t, os.WriteFile(filepath.Join(root, "attributes", "pending_reboot"), []byte("1\n"), 0644))

	code, err := NewSysfsProvider(root).SetSetting(context.Background(), SettingPerformanceMode, "Cool", EmptyPassword)
	require.NoError(t, err)
	assert.Equal(t, ReturnRebootRequired, code)
}

func TestSysfsProviderUnknownSetting(t *testing.T) {
	p := NewSysfsProvider(newBiosCfgTree(t, SettingFanSpeedMode))

	code, err := p.SetSetting(context.Background(), "Boot Order", "USB", EmptyPassword)
	require.NoError(t, err)
	assert.Equal(t, ReturnNotSupported, code)
}

func TestSysfsProviderAbsent(t *testing.T) {
	_, err := NewSysfsProvider(t.TempDir()).SetSetting(context.Background(), SettingFanSpeedMode, "Max", EmptyPassword)
	assert.ErrorIs(t, err, ErrProviderAbsent)
}

func TestSysfsProviderRejectsPassword(t *testing.T) {
	p := NewSysfsProvider(newBiosCfgTree(t, SettingFanSpeedMode))

	code, err := p.SetSetting(context.Background(), SettingFanSpeedMode, "Max", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, ReturnAccessDenied, code)
}
