package environment

import (
	"context"

	"github.com/mklimuk/tempmon"
)

// TemperatureBehaviorFunc defines the function signature for temperature behavior.
// It returns the temperature in millidegrees Celsius or an error.
type TemperatureBehaviorFunc func(ctx context.Context) (tempmon.MilliCelsius, error)

// MockTemperatureSensor is a mock implementation of a temperature sensor that uses a behavior function
// to produce results without requiring any hardware.
type MockTemperatureSensor struct {
	behavior TemperatureBehaviorFunc
}

// NewMockTemperatureSensor creates a new mock temperature sensor with the given behavior function.
// The behavior function is called whenever Read or GetTemperature is invoked.
//
// Example usage:
//
//	sensor := NewMockTemperatureSensor(func(ctx context.Context) (tempmon.MilliCelsius, error) { return 25000, nil })
func NewMockTemperatureSensor(behavior TemperatureBehaviorFunc) *MockTemperatureSensor {
	return &MockTemperatureSensor{behavior: behavior}
}

// Read returns the temperature by calling the behavior function.
func (m *MockTemperatureSensor) Read(ctx context.Context) (tempmon.MilliCelsius, error) {
	return m.behavior(ctx)
}

// GetTemperature returns the temperature in Celsius.
func (m *MockTemperatureSensor) GetTemperature(ctx context.Context) (float32, error) {
	t, err := m.behavior(ctx)
	if err != nil {
		return 0, err
	}
	return float32(t.Celsius()), nil
}
