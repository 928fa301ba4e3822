//go:build !linux && !windows

package platform

func isElevated() bool {
	return false
}
