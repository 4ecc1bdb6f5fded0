package collect

import (
	"context"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
)

// Sensor name prefixes that identify CPU and GPU temperature readings on
// common platforms.
var (
	cpuSensorPrefixes = []string{"coretemp", "cpu_thermal", "k10temp", "acpi"}
	gpuSensorPrefixes = []string{"nouveau", "radeon", "amdgpu"}
)

// ThermalCollector reports best-effort CPU and GPU temperatures. Platforms
// without sensor support produce an empty result rather than an error.
type ThermalCollector struct {
	// sensors allows tests to substitute readings.
	sensors func(ctx context.Context) ([]host.TemperatureStat, error)
}

func NewThermalCollector() *ThermalCollector {
	return &ThermalCollector{sensors: host.SensorsTemperaturesWithContext}
}

func (c *ThermalCollector) Name() string { return "sensors" }

func (c *ThermalCollector) Collect(ctx context.Context) (any, error) {
	stats, err := c.sensors(ctx)
	if err != nil {
		// Sensor enumeration failing is an availability problem, not a
		// collection error.
		return &ThermalMetrics{}, nil
	}
	return pickTemperatures(stats), nil
}

// pickTemperatures selects the hottest reading among known CPU sensors and
// known GPU sensors. When no known CPU sensor is present, the hottest
// reading of any sensor stands in for the CPU temperature.
func pickTemperatures(stats []host.TemperatureStat) *ThermalMetrics {
	m := &ThermalMetrics{}

	maxMatching := func(prefixes []string) *float64 {
		var best *float64
		for i := range stats {
			s := &stats[i]
			if s.Temperature == 0 {
				continue
			}
			for _, p := range prefixes {
				if strings.HasPrefix(s.SensorKey, p) {
					if best == nil || s.Temperature > *best {
						t := s.Temperature
						best = &t
					}
				}
			}
		}
		return best
	}

	m.CPUTemp = maxMatching(cpuSensorPrefixes)
	m.GPUTemp = maxMatching(gpuSensorPrefixes)

	if m.CPUTemp == nil {
		var best *float64
		for i := range stats {
			if stats[i].Temperature == 0 {
				continue
			}
			if best == nil || stats[i].Temperature > *best {
				t := stats[i].Temperature
				best = &t
			}
		}
		m.CPUTemp = best
	}

	return m
}
