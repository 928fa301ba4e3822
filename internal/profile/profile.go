package profile

import (
	"strings"
)

// KeyMap identifies the keyboard layout family of a board
type KeyMap string

const (
	KeyMapLegacy           KeyMap = "legacy"
	KeyMapStandardOmen2022 KeyMap = "standard_omen_2022"
)

// Default values applied to board entries that leave a field unset
const (
	DefaultName   = "Unknown"
	DefaultFanMax = 4500
	DefaultECBase = 0x62
)

// Heuristic parameters for boards missing from the table
const (
	genericName     = "Generic Omen 16 (Auto-Detected)"
	genericFanMax   = 5500
	productLineMark = "OMEN"
	screenSizeMark  = "16"
)

// DeviceProfile holds the static per-model parameters used for fan and lighting control.
// Profiles are values; resolving again always yields a fresh copy.
type DeviceProfile struct {
	Name           string `json:"name" yaml:"name"`
	FanMaxRPM      int    `json:"fan_max_rpm" yaml:"fan_max_rpm"`
	HasFourZoneRGB bool   `json:"has_four_zone_rgb" yaml:"has_four_zone_rgb"`
	ECBase         uint16 `json:"ec_base" yaml:"ec_base"`
	KeyMap         KeyMap `json:"key_map" yaml:"key_map"`
}

// withDefaults fills unset fields
func (p DeviceProfile) withDefaults() DeviceProfile {
	if p.Name == "" {
		p.Name = DefaultName
	}
	if p.FanMaxRPM <= 0 {
		p.FanMaxRPM = DefaultFanMax
	}
	if p.ECBase == 0 {
		p.ECBase = DefaultECBase
	}
	if p.KeyMap == "" {
		p.KeyMap = KeyMapLegacy
	}
	return p
}

// knownBoards maps HP board IDs to their profiles
var knownBoards = map[string]DeviceProfile{
	"8600": {
		Name:      "Omen 15 (2020)",
		FanMaxRPM: 5000,
	},
	"89C3": {
		Name:           "HP Omen 16-b Series",
		FanMaxRPM:      5800,
		HasFourZoneRGB: true,
		KeyMap:         KeyMapStandardOmen2022,
	},
}

// Resolver looks up device profiles by board ID
type Resolver struct {
	boards map[string]DeviceProfile
}

// NewResolver creates a resolver over the built-in board table. Entries in extra
// are added on top and replace built-in boards with the same ID.
func NewResolver(extra map[string]DeviceProfile) *Resolver {
	boards := make(map[string]DeviceProfile, len(knownBoards)+len(extra))
	for id, p := range knownBoards {
		boards[id] = p.withDefaults()
	}
	for id, p := range extra {
		boards[normalizeBoardID(id)] = p.withDefaults()
	}
	return &Resolver{boards: boards}
}

// GetProfile resolves a profile for the given board and product name.
// The second return value is false when the hardware is not supported,
// which is an expected outcome and not an error.
func (r *Resolver) GetProfile(boardID, productName string) (DeviceProfile, bool) {
	if p, ok := r.boards[normalizeBoardID(boardID)]; ok {
		return p, true
	}

	product := strings.ToUpper(productName)
	if strings.Contains(product, productLineMark) && strings.Contains(product, screenSizeMark) {
		return DeviceProfile{
			Name:           genericName,
			FanMaxRPM:      genericFanMax,
			HasFourZoneRGB: true,
			ECBase:         DefaultECBase,
			KeyMap:         KeyMapLegacy,
		}, true
	}

	return DeviceProfile{}, false
}

// Default returns the conservative profile used for unsupported hardware
func Default() DeviceProfile {
	return DeviceProfile{}.withDefaults()
}

// GetProfile resolves against the built-in board table only
func GetProfile(boardID, productName string) (DeviceProfile, bool) {
	return NewResolver(nil).GetProfile(boardID, productName)
}

func normalizeBoardID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}
