package temps

import (
	"context"
	"strings"
)

// Sensor is one temperature reading
type Sensor struct {
	Name        string  `json:"name"`
	Temperature float64 `json:"temperature_celsius"`
	Critical    float64 `json:"critical_celsius,omitempty"`
}

// Info groups readings by the component that produced them
type Info struct {
	CPU     []*Sensor `json:"cpu"`
	GPU     []*Sensor `json:"gpu"`
	System  []*Sensor `json:"system"`
	Hottest float64   `json:"hottest_celsius"`
}

// Reader reports current temperatures. Readings are informational and are
// never used to verify that a fan setting took effect.
type Reader interface {
	GetInfo(ctx context.Context) (*Info, error)
}

// NewReader creates a new temperature reader for the current platform
func NewReader() Reader {
	return newPlatformReader()
}

var (
	cpuMarkers = []string{"cpu", "core", "package", "k10temp", "coretemp", "acpitz"}
	gpuMarkers = []string{"gpu", "nvidia", "amdgpu", "radeon", "video"}
)

// classify sorts sensors into CPU, GPU and system groups
func classify(sensors []*Sensor) *Info {
	info := &Info{
		CPU:    []*Sensor{},
		GPU:    []*Sensor{},
		System: []*Sensor{},
	}

	for _, s := range sensors {
		name := strings.ToLower(s.Name)
		switch {
		case containsAny(name, gpuMarkers):
			info.GPU = append(info.GPU, s)
		case containsAny(name, cpuMarkers):
			info.CPU = append(info.CPU, s)
		default:
			info.System = append(info.System, s)
		}
		if s.Temperature > info.Hottest {
			info.Hottest = s.Temperature
		}
	}

	return info
}

func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
