//go:build windows

package ec

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/windows"
)

// DefaultDevice is the port I/O library that installs the ring-0 helper
const DefaultDevice = "inpoutx64.dll"

const (
	statusIBF = 1 // Input Buffer Full bit
	statusOBF = 0 // Output Buffer Full bit

	cmdRead  = 0x80
	cmdWrite = 0x81

	handshakeRetries = 100
	handshakeDelay   = time.Millisecond
)

// PortDriver talks to the EC through raw port I/O
type PortDriver struct {
	out32    *windows.LazyProc
	inp32    *windows.LazyProc
	dataPort uint16
	cmdPort  uint16
	mu       sync.Mutex
}

// newPlatformOpener loads the port I/O library. The library loads fine even
// when its kernel driver is blocked by HVCI, so the driver state is checked too.
func newPlatformOpener(cfg DriverConfig) Opener {
	name := cfg.Device
	if name == "" {
		name = DefaultDevice
	}

	return func() (Driver, error) {
		dll := windows.NewLazyDLL(name)
		if err := dll.Load(); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", name, err)
		}

		out32 := dll.NewProc("Out32")
		inp32 := dll.NewProc("Inp32")
		isOpen := dll.NewProc("IsInpOutDriverOpen")
		if out32.Find() != nil || inp32.Find() != nil || isOpen.Find() != nil {
			return nil, fmt.Errorf("could not find port I/O procedures in %s", name)
		}

		if ok, _, _ := isOpen.Call(); ok == 0 {
			return nil, fmt.Errorf("%s kernel driver not running: %w", name, ErrDenied)
		}

		return &PortDriver{
			out32:    out32,
			inp32:    inp32,
			dataPort: cfg.Base,
			cmdPort:  cfg.Base + 4,
		}, nil
	}
}

// Read queries a value from a specific register in the EC
func (d *PortDriver) Read(register uint16) (byte, error) {
	// Out32 only forwards the low byte to the data port
	if register >= ecRAMSize {
		return 0, fmt.Errorf("register 0x%X outside EC RAM", register)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.waitIBF(); err != nil {
		return 0, fmt.Errorf("EC read failed during pre-command wait: %w", err)
	}
	d.out32.Call(uintptr(d.cmdPort), uintptr(cmdRead))

	if err := d.waitIBF(); err != nil {
		return 0, fmt.Errorf("EC read failed during address wait: %w", err)
	}
	d.out32.Call(uintptr(d.dataPort), uintptr(register))

	if err := d.waitOBF(); err != nil {
		return 0, fmt.Errorf("EC read failed waiting for data: %w", err)
	}

	result, _, _ := d.inp32.Call(uintptr(d.dataPort))
	return byte(result), nil
}

// Write sends a value to a specific register in the EC
func (d *PortDriver) Write(register uint16, value byte) error {
	if register >= ecRAMSize {
		return fmt.Errorf("register 0x%X outside EC RAM", register)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.waitIBF(); err != nil {
		return fmt.Errorf("EC write failed during pre-command wait: %w", err)
	}
	d.out32.Call(uintptr(d.cmdPort), uintptr(cmdWrite))

	if err := d.waitIBF(); err != nil {
		return fmt.Errorf("EC write failed during address wait: %w", err)
	}
	d.out32.Call(uintptr(d.dataPort), uintptr(register))

	if err := d.waitIBF(); err != nil {
		return fmt.Errorf("EC write failed during value wait: %w", err)
	}
	d.out32.Call(uintptr(d.dataPort), uintptr(value))

	return nil
}

// Close is a no-op, the library stays loaded for the process lifetime
func (d *PortDriver) Close() error {
	return nil
}

// waitIBF waits for the EC to accept a command or data byte
func (d *PortDriver) waitIBF() error {
	for i := 0; i < handshakeRetries; i++ {
		status, _, _ := d.inp32.Call(uintptr(d.cmdPort))
		if status&(1<<statusIBF) == 0 {
			return nil
		}
		time.Sleep(handshakeDelay)
	}
	return fmt.Errorf("timeout waiting for EC input buffer to clear")
}

// waitOBF waits for the EC to have data ready
func (d *PortDriver) waitOBF() error {
	for i := 0; i < handshakeRetries; i++ {
		status, _, _ := d.inp32.Call(uintptr(d.cmdPort))
		if status&(1<<statusOBF) != 0 {
			return nil
		}
		time.Sleep(handshakeDelay)
	}
	return fmt.Errorf("timeout waiting for EC output buffer to fill")
}
