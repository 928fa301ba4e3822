package fan

import (
	"context"
	"log/slog"

	"github.com/CristiGvl/picoOmenCtl/internal/ec"
	"github.com/CristiGvl/picoOmenCtl/internal/profile"
)

// MaxPresetThreshold is the highest percentage still served by the Auto preset
// when only BIOS fan presets are available
const MaxPresetThreshold = 80

// Registers is the register access used by the policy
type Registers interface {
	Initialize(ctx context.Context) ec.State
	Write(ctx context.Context, register uint16, value byte) ec.Result
}

// PresetSetter switches the firmware fan preset
type PresetSetter interface {
	SetFanMode(ctx context.Context, full bool) error
}

// Controller turns fan speed requests into EC writes or BIOS presets
type Controller struct {
	regs    Registers
	presets PresetSetter
	profile profile.DeviceProfile
	logger  *slog.Logger
}

// NewController creates a fan controller for the given device profile
func NewController(regs Registers, presets PresetSetter, p profile.DeviceProfile, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		regs:    regs,
		presets: presets,
		profile: p,
		logger:  logger.With("component", "fan"),
	}
}

// ClampPercent limits a speed request to 0-100
func ClampPercent(percentage int) int {
	if percentage > 100 {
		return 100
	}
	if percentage < 0 {
		return 0
	}
	return percentage
}

// TargetRPM estimates the RPM a percentage corresponds to on this device
func (c *Controller) TargetRPM(percentage int) int {
	return ClampPercent(percentage) * c.profile.FanMaxRPM / 100
}

// Profile returns the device profile the controller was configured with
func (c *Controller) Profile() profile.DeviceProfile {
	return c.profile
}

// SetFanSpeed applies a fan speed percentage. With direct EC access both fans
// are put in manual mode and set exactly. Otherwise the request collapses to
// the Max or Auto firmware preset and the result is degraded.
func (c *Controller) SetFanSpeed(ctx context.Context, percentage int) ec.Result {
	pct := ClampPercent(percentage)

	if c.regs.Initialize(ctx) == ec.StatePrivileged {
		writes := []ec.RegisterCommand{
			{Register: ec.ManualModeOffset, Value: ec.ManualModeEnable},
			{Register: ec.Fan1Offset, Value: byte(pct)},
			{Register: ec.Fan2Offset, Value: byte(pct)},
		}
		for _, w := range writes {
			if res := c.regs.Write(ctx, w.Register, w.Value); !res.OK() {
				c.logger.Error("failed to set fan speed", "percent", pct, "reason", res.Reason)
				return res
			}
		}
		c.logger.Info("fan speed set via EC", "percent", pct, "target_rpm", c.TargetRPM(pct))
		return ec.Applied()
	}

	full := pct > MaxPresetThreshold
	preset := "Auto"
	if full {
		preset = "Max"
	}
	c.logger.Warn("EC unavailable, using BIOS fan preset", "percent", pct, "preset", preset)

	if err := c.presets.SetFanMode(ctx, full); err != nil {
		c.logger.Error("failed to set fan preset", "preset", preset, "error", err)
		return ec.Failed("fan preset %s: %v", preset, err)
	}
	return ec.Degraded("requested %d%%, applied BIOS fan preset %s", pct, preset)
}

// ResetToAuto hands fan control back to the firmware
func (c *Controller) ResetToAuto(ctx context.Context) ec.Result {
	if c.regs.Initialize(ctx) == ec.StatePrivileged {
		res := c.regs.Write(ctx, ec.ManualModeOffset, ec.ManualModeDisable)
		if !res.OK() {
			c.logger.Error("failed to leave manual fan mode", "reason", res.Reason)
		}
		return res
	}

	if err := c.presets.SetFanMode(ctx, false); err != nil {
		c.logger.Error("failed to set fan preset", "preset", "Auto", "error", err)
		return ec.Failed("fan preset Auto: %v", err)
	}
	return ec.Applied()
}
