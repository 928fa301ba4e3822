//go:build !linux && !windows

package ec

// DefaultDevice is empty on platforms without a driver
const DefaultDevice = ""

// newPlatformOpener returns an opener that always fails on unsupported platforms
func newPlatformOpener(cfg DriverConfig) Opener {
	return func() (Driver, error) {
		return nil, ErrNotSupported
	}
}
