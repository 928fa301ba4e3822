package ec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// State is the hardware access channel selected for the session
type State int32

const (
	StateUninitialized State = iota
	StatePrivileged
	StateFallback
	StateUnavailable
)

var stateNames = map[State]string{
	StateUninitialized: "uninitialized",
	StatePrivileged:    "privileged",
	StateFallback:      "fallback",
	StateUnavailable:   "unavailable",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// MarshalText renders the state name in JSON
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

var (
	// ErrDenied is returned by openers when platform security policy blocks
	// direct register access (HVCI, kernel lockdown)
	ErrDenied = errors.New("privileged EC access denied by platform policy")
	// ErrNotSupported is returned by openers on platforms without a driver
	ErrNotSupported = errors.New("privileged EC access not supported on this platform")
)

// Driver is an open privileged channel to the embedded controller
type Driver interface {
	// Read returns the byte held in an EC register
	Read(register uint16) (byte, error)
	// Write stores a byte into an EC register
	Write(register uint16, value byte) error
	Close() error
}

// Opener opens the privileged channel
type Opener func() (Driver, error)

// DriverConfig parametrizes the platform driver
type DriverConfig struct {
	// Device is the driver path: the ec_sys debugfs file on Linux, the port I/O DLL on Windows
	Device string
	// Base is the EC data port, the command port sits at Base+4
	Base uint16
}

// NewOpener returns the privileged channel opener for the current platform
func NewOpener(cfg DriverConfig) Opener {
	if cfg.Base == 0 {
		cfg.Base = DataPort
	}
	return newPlatformOpener(cfg)
}

// SupportChecker reports whether the management interface exists
type SupportChecker interface {
	IsSupported(ctx context.Context) bool
}

// SettingDispatcher applies named BIOS settings
type SettingDispatcher interface {
	SupportChecker
	InvokeSetting(ctx context.Context, name, value string) error
}

// ProbeOutcome is the tagged result of channel probing
type ProbeOutcome struct {
	State State
	// Driver is set only for StatePrivileged
	Driver Driver
	// PrivilegedErr explains why the privileged channel could not be opened
	PrivilegedErr error
}

// Probe tries the privileged channel first and the management interface second
func Probe(ctx context.Context, open Opener, settings SupportChecker) ProbeOutcome {
	var out ProbeOutcome

	if open != nil {
		drv, err := open()
		if err == nil {
			out.State = StatePrivileged
			out.Driver = drv
			return out
		}
		out.PrivilegedErr = err
	} else {
		out.PrivilegedErr = ErrNotSupported
	}

	if settings != nil && settings.IsSupported(ctx) {
		out.State = StateFallback
		return out
	}

	out.State = StateUnavailable
	return out
}

// Access routes register operations to whichever channel the probe selected.
// The channel is chosen once per Access and never changes afterwards.
// All Read and Write calls are serialized because the EC command/data
// handshake is not safe under interleaving.
type Access struct {
	open     Opener
	settings SettingDispatcher
	logger   *slog.Logger

	once       sync.Once
	state      atomic.Int32
	probeErr   error
	driver     Driver
	mu         sync.Mutex
	driverOpen bool
}

// NewAccess creates an uninitialized access layer
func NewAccess(open Opener, settings SettingDispatcher, logger *slog.Logger) *Access {
	if logger == nil {
		logger = slog.Default()
	}
	return &Access{
		open:     open,
		settings: settings,
		logger:   logger.With("component", "ec"),
	}
}

// Initialize selects the channel. Only the first call probes; later calls
// return the state already chosen. Failures are captured in the state.
func (a *Access) Initialize(ctx context.Context) State {
	a.once.Do(func() {
		out := Probe(ctx, a.open, a.settings)

		a.mu.Lock()
		a.driver = out.Driver
		a.driverOpen = out.Driver != nil
		a.probeErr = out.PrivilegedErr
		a.mu.Unlock()

		switch out.State {
		case StatePrivileged:
			a.logger.Info("privileged EC channel active")
		case StateFallback:
			a.logger.Warn("privileged EC channel blocked, using BIOS settings fallback", "error", out.PrivilegedErr)
		default:
			a.logger.Error("no hardware access channel available", "error", out.PrivilegedErr)
		}

		a.state.Store(int32(out.State))
	})
	return a.State()
}

// State returns the selected channel
func (a *Access) State() State {
	return State(a.state.Load())
}

// ProbeError returns why the privileged channel was not used, nil when it is active
func (a *Access) ProbeError() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.probeErr
}

// Read returns the value of an EC register. Without the privileged channel the
// value is a zero sentinel and the result is degraded; callers must not treat it
// as a real reading.
func (a *Access) Read(ctx context.Context, register uint16) (byte, Result) {
	if register >= ecRAMSize {
		return 0, Failed("register 0x%X outside EC RAM", register)
	}

	state := a.Initialize(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()

	switch state {
	case StatePrivileged:
		if !a.driverOpen {
			return 0, Failed("EC driver closed")
		}
		v, err := a.driver.Read(register)
		if err != nil {
			a.logger.Error("EC read failed", "register", register, "error", err)
			return 0, Failed("read 0x%02X: %v", register, err)
		}
		return v, Applied()
	case StateFallback:
		return 0, Degraded("register 0x%02X cannot be read through the BIOS settings interface", register)
	default:
		return 0, Failed("no hardware access channel")
	}
}

// Write stores a value into an EC register, or translates it into a BIOS
// setting in fallback mode. Writes with no BIOS equivalent are reported as degraded.
func (a *Access) Write(ctx context.Context, register uint16, value byte) Result {
	if register >= ecRAMSize {
		return Failed("register 0x%X outside EC RAM", register)
	}

	state := a.Initialize(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()

	switch state {
	case StatePrivileged:
		if !a.driverOpen {
			return Failed("EC driver closed")
		}
		if err := a.driver.Write(register, value); err != nil {
			a.logger.Error("EC write failed", "register", register, "value", value, "error", err)
			return Failed("write 0x%02X=0x%02X: %v", register, value, err)
		}
		return Applied()
	case StateFallback:
		req, ok := FallbackSetting(RegisterCommand{Register: register, Value: value})
		if !ok {
			a.logger.Warn("EC write has no BIOS equivalent, dropped", "register", register, "value", value)
			return Degraded("no BIOS setting for register write 0x%02X=0x%02X", register, value)
		}
		if err := a.settings.InvokeSetting(ctx, req.Name, req.Value); err != nil {
			return Failed("%s=%s: %v", req.Name, req.Value, err)
		}
		return Applied()
	default:
		return Failed("no hardware access channel")
	}
}

// Close releases the privileged driver. The channel state is left unchanged,
// so later register operations fail instead of re-probing.
func (a *Access) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.driverOpen {
		return nil
	}
	a.driverOpen = false
	return a.driver.Close()
}
