//go:build !linux && !windows

package temps

import (
	"context"
	"errors"
)

// ErrNoSensors is returned where no thermal sensor source is wired up
var ErrNoSensors = errors.New("no thermal sensor source on this platform")

type noSensors struct{}

func newPlatformReader() Reader {
	return noSensors{}
}

// GetInfo never yields readings; CPU, GPU and system temperatures stay unknown
func (noSensors) GetInfo(ctx context.Context) (*Info, error) {
	return nil, ErrNoSensors
}
