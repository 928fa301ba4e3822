package bios

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Named BIOS settings understood by HP firmware
const (
	SettingPerformanceMode = "System Performance Mode"
	SettingFanSpeedMode    = "Fan Speed Mode"
)

// EmptyPassword is HP's encoding of "no setup password"
const EmptyPassword = "<utf-16/>"

// Return codes of SetBiosSetting
const (
	ReturnSuccess          uint32 = 0
	ReturnNotSupported     uint32 = 1
	ReturnUnspecified      uint32 = 2
	ReturnTimeout          uint32 = 3
	ReturnFailed           uint32 = 4
	ReturnInvalidParameter uint32 = 5
	ReturnAccessDenied     uint32 = 6
	ReturnRebootRequired   uint32 = 3010
)

// DefaultTimeout bounds a single settings invocation
const DefaultTimeout = 5 * time.Second

// ErrProviderAbsent is returned when the machine exposes no BIOS settings interface
var ErrProviderAbsent = errors.New("bios settings interface not present")

// InvocationError reports a non-success return code from the firmware
type InvocationError struct {
	Setting string
	Value   string
	Code    uint32
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("set %q to %q returned code %d", e.Setting, e.Value, e.Code)
}

// Provider is the platform service holding the firmware settings
type Provider interface {
	// Exists reports whether the settings interface can be enumerated at all
	Exists(ctx context.Context) (bool, error)
	// SetSetting issues SetBiosSetting and returns the firmware return code.
	// ErrProviderAbsent is returned when no interface instance is found.
	SetSetting(ctx context.Context, name, value, password string) (uint32, error)
}

// ProviderConfig parametrizes the platform provider
type ProviderConfig struct {
	// Root is the firmware-attributes device directory, used on Linux only
	Root string
}

// NewProvider creates the settings provider for the current platform
func NewProvider(cfg ProviderConfig) Provider {
	return newPlatformProvider(cfg)
}

// PerformanceMode is an abstract thermal profile
type PerformanceMode int

const (
	PerformanceDefault PerformanceMode = iota
	PerformanceHigh
	PerformanceComfort
)

var performanceModeNames = map[string]PerformanceMode{
	"performance": PerformanceHigh,
	"default":     PerformanceDefault,
	"comfort":     PerformanceComfort,
}

var performanceModeValues = map[PerformanceMode]string{
	PerformanceHigh:    "Performance",
	PerformanceDefault: "Standard",
	PerformanceComfort: "Cool",
}

// ParsePerformanceMode maps a mode name case-insensitively. Unknown names
// resolve to PerformanceDefault.
func ParsePerformanceMode(name string) PerformanceMode {
	if mode, ok := performanceModeNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return mode
	}
	return PerformanceDefault
}

// Value returns the vendor string for the mode
func (m PerformanceMode) Value() string {
	if v, ok := performanceModeValues[m]; ok {
		return v
	}
	return performanceModeValues[PerformanceDefault]
}

func (m PerformanceMode) String() string {
	for name, mode := range performanceModeNames {
		if mode == m {
			return name
		}
	}
	return "default"
}

// FanMode is a firmware fan preset
type FanMode int

const (
	FanAuto FanMode = iota
	FanMax
)

var fanModeValues = map[FanMode]string{
	FanAuto: "Auto",
	FanMax:  "Max",
}

// Value returns the vendor string for the preset
func (m FanMode) Value() string {
	return fanModeValues[m]
}

// Channel translates named settings into SetBiosSetting invocations
type Channel struct {
	provider Provider
	timeout  time.Duration
	logger   *slog.Logger
	// busy holds one token while a provider call runs, including calls
	// abandoned after their deadline
	busy chan struct{}
}

// NewChannel creates a channel over provider. A non-positive timeout selects DefaultTimeout.
func NewChannel(provider Provider, timeout time.Duration, logger *slog.Logger) *Channel {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Channel{
		provider: provider,
		timeout:  timeout,
		logger:   logger.With("component", "bios"),
		busy:     make(chan struct{}, 1),
	}
}

// SetPerformanceMode applies the named thermal profile
func (c *Channel) SetPerformanceMode(ctx context.Context, mode string) error {
	return c.InvokeSetting(ctx, SettingPerformanceMode, ParsePerformanceMode(mode).Value())
}

// SetFanMode selects the Max preset when full is set, Auto otherwise
func (c *Channel) SetFanMode(ctx context.Context, full bool) error {
	mode := FanAuto
	if full {
		mode = FanMax
	}
	return c.InvokeSetting(ctx, SettingFanSpeedMode, mode.Value())
}

// InvokeSetting sets a named BIOS setting. Return codes 0 and 3010 (reboot
// required) are both success. Every failure is logged here and returned.
func (c *Channel) InvokeSetting(ctx context.Context, name, value string) error {
	if c.provider == nil {
		c.logger.Error("bios setting failed", "setting", name, "error", ErrProviderAbsent)
		return ErrProviderAbsent
	}

	code, err := c.call(ctx, func(ctx context.Context) (uint32, error) {
		return c.provider.SetSetting(ctx, name, value, EmptyPassword)
	})
	if err != nil {
		c.logger.Error("bios setting failed", "setting", name, "value", value, "error", err)
		return err
	}

	switch code {
	case ReturnSuccess, ReturnRebootRequired:
		c.logger.Info("bios setting applied", "setting", name, "value", value, "code", code)
		return nil
	default:
		invErr := &InvocationError{Setting: name, Value: value, Code: code}
		c.logger.Error("bios setting rejected", "setting", name, "value", value, "code", code)
		return invErr
	}
}

// IsSupported reports whether the settings interface is present on this machine
func (c *Channel) IsSupported(ctx context.Context) bool {
	if c.provider == nil {
		return false
	}

	found, err := c.call(ctx, func(ctx context.Context) (uint32, error) {
		ok, err := c.provider.Exists(ctx)
		if ok {
			return 1, err
		}
		return 0, err
	})
	if err != nil {
		c.logger.Warn("bios settings probe failed", "error", err)
		return false
	}
	return found == 1
}

// call runs fn bounded by the channel timeout. A provider that ignores its
// context is abandoned once the deadline passes, but later calls wait for it
// to return so at most one provider call is ever in flight.
func (c *Channel) call(ctx context.Context, fn func(ctx context.Context) (uint32, error)) (uint32, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	select {
	case c.busy <- struct{}{}:
	case <-ctx.Done():
		return 0, fmt.Errorf("bios settings call still running: %w", ctx.Err())
	}

	type outcome struct {
		code uint32
		err  error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() { <-c.busy }()
		code, err := fn(ctx)
		done <- outcome{code: code, err: err}
	}()

	select {
	case out := <-done:
		return out.code, out.err
	case <-ctx.Done():
		return 0, fmt.Errorf("bios settings call aborted: %w", ctx.Err())
	}
}
