//go:build windows

package temps

import (
	"context"
	"fmt"
	"math"

	"github.com/StackExchange/wmi"
)

// MSAcpi_ThermalZoneTemperature represents ACPI thermal zone data in root\wmi
type MSAcpi_ThermalZoneTemperature struct {
	InstanceName       string
	CurrentTemperature uint32
	CriticalTripPoint  uint32
}

// WindowsReader reads ACPI thermal zones over WMI
type WindowsReader struct{}

// newPlatformReader creates a new Windows temperature reader
func newPlatformReader() Reader {
	return &WindowsReader{}
}

// GetInfo returns temperature information
func (r *WindowsReader) GetInfo(ctx context.Context) (*Info, error) {
	var zones []MSAcpi_ThermalZoneTemperature
	query := wmi.CreateQuery(&zones, "")
	if err := wmi.QueryNamespace(query, &zones, `root\wmi`); err != nil {
		return nil, fmt.Errorf("WMI thermal zone query failed: %w", err)
	}

	sensors := make([]*Sensor, 0, len(zones))
	for _, zone := range zones {
		celsius := deciKelvinToCelsius(zone.CurrentTemperature)
		// Skip unrealistic temperatures
		if celsius < -50 || celsius > 150 {
			continue
		}
		sensors = append(sensors, &Sensor{
			Name:        zone.InstanceName,
			Temperature: celsius,
			Critical:    deciKelvinToCelsius(zone.CriticalTripPoint),
		})
	}

	return classify(sensors), nil
}

func deciKelvinToCelsius(dk uint32) float64 {
	if dk == 0 {
		return 0
	}
	return math.Round((float64(dk)-2732.0)/10.0*10) / 10
}
