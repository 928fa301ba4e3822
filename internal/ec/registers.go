package ec

import "github.com/CristiGvl/picoOmenCtl/internal/bios"

// Omen EC ports and register offsets
const (
	CommandPort uint16 = 0x66
	DataPort    uint16 = 0x62

	// manual RPM targets, CPU and GPU fan
	Fan1Offset uint16 = 0x2E
	Fan2Offset uint16 = 0x2F

	ManualModeOffset  uint16 = 0x2D
	ManualModeEnable  byte   = 0x01
	ManualModeDisable byte   = 0x00

	// command byte firmware tools send to force both fans to full speed
	fanMaxCommand byte = 0xDD

	// ecRAMSize is the number of one-byte EC registers
	ecRAMSize = 0x100
)

// RegisterCommand is a single register write
type RegisterCommand struct {
	Register uint16
	Value    byte
}

// SettingRequest is a named BIOS setting assignment
type SettingRequest struct {
	Name  string
	Value string
}

// fallbackWrites lists the register writes that have a BIOS setting equivalent.
// Anything else cannot be expressed through the management interface.
var fallbackWrites = map[RegisterCommand]SettingRequest{
	{Register: CommandPort, Value: fanMaxCommand}:          {Name: bios.SettingFanSpeedMode, Value: bios.FanMax.Value()},
	{Register: CommandPort, Value: 0x00}:                   {Name: bios.SettingFanSpeedMode, Value: bios.FanAuto.Value()},
	{Register: ManualModeOffset, Value: ManualModeDisable}: {Name: bios.SettingFanSpeedMode, Value: bios.FanAuto.Value()},
}

// FallbackSetting returns the BIOS setting equivalent to a register write
func FallbackSetting(cmd RegisterCommand) (SettingRequest, bool) {
	req, ok := fallbackWrites[cmd]
	return req, ok
}
