//go:build !linux && !windows

package bios

import "context"

// UnsupportedProvider is a fallback for unsupported platforms
type UnsupportedProvider struct{}

// newPlatformProvider creates a fallback provider for unsupported platforms
func newPlatformProvider(cfg ProviderConfig) Provider {
	return &UnsupportedProvider{}
}

// Exists always reports absence
func (p *UnsupportedProvider) Exists(ctx context.Context) (bool, error) {
	return false, nil
}

// SetSetting always reports absence
func (p *UnsupportedProvider) SetSetting(ctx context.Context, name, value, password string) (uint32, error) {
	return 0, ErrProviderAbsent
}
