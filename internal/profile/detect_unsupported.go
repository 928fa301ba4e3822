//go:build !linux && !windows

package profile

import (
	"context"
	"fmt"
)

// detectPlatformBoard returns an error for unsupported platforms
func detectPlatformBoard(ctx context.Context) (*Board, error) {
	return nil, fmt.Errorf("board detection not supported on this platform")
}
