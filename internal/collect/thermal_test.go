package collect

import (
	"context"
	"errors"
	"testing"

	"github.com/shirou/gopsutil/v3/host"
)

func TestThermalPicksHottestCPUSensor(t *testing.T) {
	stats := []host.TemperatureStat{
		{SensorKey: "coretemp_core_0", Temperature: 55},
		{SensorKey: "coretemp_core_1", Temperature: 62},
		{SensorKey: "nvme_composite", Temperature: 40},
	}

	m := pickTemperatures(stats)
	if m.CPUTemp == nil || *m.CPUTemp != 62 {
		t.Errorf("CPUTemp = %v, want 62", m.CPUTemp)
	}
	if m.GPUTemp != nil {
		t.Errorf("GPUTemp = %v, want nil", *m.GPUTemp)
	}
}

func TestThermalGPUSensor(t *testing.T) {
	stats := []host.TemperatureStat{
		{SensorKey: "k10temp_tctl", Temperature: 48},
		{SensorKey: "amdgpu_edge", Temperature: 51},
	}

	m := pickTemperatures(stats)
	if m.CPUTemp == nil || *m.CPUTemp != 48 {
		t.Errorf("CPUTemp = %v, want 48", m.CPUTemp)
	}
	if m.GPUTemp == nil || *m.GPUTemp != 51 {
		t.Errorf("GPUTemp = %v, want 51", m.GPUTemp)
	}
}

func TestThermalFallsBackToHottestSensor(t *testing.T) {
	stats := []host.TemperatureStat{
		{SensorKey: "nvme_composite", Temperature: 40},
		{SensorKey: "wifi_chip", Temperature: 45},
	}

	m := pickTemperatures(stats)
	if m.CPUTemp == nil || *m.CPUTemp != 45 {
		t.Errorf("CPUTemp = %v, want fallback 45", m.CPUTemp)
	}
}

func TestThermalIgnoresZeroReadings(t *testing.T) {
	stats := []host.TemperatureStat{
		{SensorKey: "coretemp_core_0", Temperature: 0},
	}

	m := pickTemperatures(stats)
	if m.CPUTemp != nil {
		t.Errorf("CPUTemp = %v, want nil for all-zero readings", *m.CPUTemp)
	}
}

func TestThermalSensorErrorIsNotFatal(t *testing.T) {
	c := &ThermalCollector{
		sensors: func(ctx context.Context) ([]host.TemperatureStat, error) {
			return nil, errors.New("no sensors")
		},
	}

	result, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("sensor failure should not be a collection error: %v", err)
	}
	m := result.(*ThermalMetrics)
	if m.CPUTemp != nil || m.GPUTemp != nil {
		t.Errorf("expected empty metrics, got %+v", m)
	}
}
