//go:build linux

package temps

import (
	"context"

	"github.com/shirou/gopsutil/v3/host"
)

// LinuxReader reads hwmon temperatures through gopsutil
type LinuxReader struct{}

// newPlatformReader creates a new Linux temperature reader
func newPlatformReader() Reader {
	return &LinuxReader{}
}

// GetInfo returns temperature information
func (r *LinuxReader) GetInfo(ctx context.Context) (*Info, error) {
	stats, err := host.SensorsTemperaturesWithContext(ctx)
	if err != nil && len(stats) == 0 {
		return nil, err
	}

	sensors := make([]*Sensor, 0, len(stats))
	for _, st := range stats {
		// hwmon reports unpopulated inputs as zero
		if st.Temperature <= 0 {
			continue
		}
		sensors = append(sensors, &Sensor{
			Name:        st.SensorKey,
			Temperature: st.Temperature,
			Critical:    st.Critical,
		})
	}

	return classify(sensors), nil
}
