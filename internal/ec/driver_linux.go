//go:build linux

package ec

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// DefaultDevice is the EC RAM file exposed by the ec_sys module. Writes need
// the module loaded with write_support=1.
const DefaultDevice = "/sys/kernel/debug/ec/ec0/io"

// SysfsDriver accesses EC RAM through the ec_sys debugfs file
type SysfsDriver struct {
	fd   int
	path string
	mu   sync.Mutex
}

// newPlatformOpener opens the ec_sys io file. The kernel's ACPI EC driver owns
// the command/data handshake, so cfg.Base is not needed here.
func newPlatformOpener(cfg DriverConfig) Opener {
	path := cfg.Device
	if path == "" {
		path = DefaultDevice
	}

	return func() (Driver, error) {
		fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
		if err != nil {
			switch {
			case errors.Is(err, unix.EPERM), errors.Is(err, unix.EACCES):
				// kernel lockdown refuses debugfs when Secure Boot is on
				return nil, fmt.Errorf("open %s: %w: %v", path, ErrDenied, err)
			case errors.Is(err, unix.ENOENT):
				return nil, fmt.Errorf("open %s: ec_sys not loaded or debugfs not mounted: %w", path, err)
			default:
				return nil, fmt.Errorf("open %s: %w", path, err)
			}
		}
		return &SysfsDriver{fd: fd, path: path}, nil
	}
}

// Read returns one byte of EC RAM
func (d *SysfsDriver) Read(register uint16) (byte, error) {
	if register >= ecRAMSize {
		return 0, fmt.Errorf("register 0x%X outside EC RAM", register)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	buf := make([]byte, 1)
	n, err := unix.Pread(d.fd, buf, int64(register))
	if err != nil {
		return 0, fmt.Errorf("read %s at 0x%02X: %w", d.path, register, err)
	}
	if n != 1 {
		return 0, fmt.Errorf("short read from %s at 0x%02X", d.path, register)
	}
	return buf[0], nil
}

// Write stores one byte of EC RAM
func (d *SysfsDriver) Write(register uint16, value byte) error {
	if register >= ecRAMSize {
		return fmt.Errorf("register 0x%X outside EC RAM", register)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	n, err := unix.Pwrite(d.fd, []byte{value}, int64(register))
	if err != nil {
		return fmt.Errorf("write %s at 0x%02X: %w", d.path, register, err)
	}
	if n != 1 {
		return fmt.Errorf("short write to %s at 0x%02X", d.path, register)
	}
	return nil
}

// Close releases the file descriptor
func (d *SysfsDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return unix.Close(d.fd)
}
