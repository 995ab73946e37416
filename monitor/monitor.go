// Package monitor brings a bus controller up and polls a temperature sensor at a
// fixed interval, reporting every reading through the structured logger.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/tempmon"
)

const DefaultInterval = time.Second

// Sensor produces one temperature reading per call.
type Sensor interface {
	Read(ctx context.Context) (tempmon.MilliCelsius, error)
}

// Stats summarises a polling run.
type Stats struct {
	Polls               int
	Failures            int
	ConsecutiveFailures int
	Last                tempmon.MilliCelsius
	LastErr             error
}

// Prepare checks that the controller is ready and configures it as a bus controller
// at the given speed. It has to succeed before the sensor is polled.
func Prepare(ctx context.Context, ctrl tempmon.Controller, speed physic.Frequency) error {
	if !ctrl.IsReady(ctx) {
		return tempmon.ErrDeviceNotReady
	}
	err := ctrl.Configure(ctx, tempmon.ModeController, speed)
	if err == nil {
		return nil
	}
	var ce *tempmon.ConfigurationError
	if errors.As(err, &ce) {
		return err
	}
	return &tempmon.ConfigurationError{Mode: tempmon.ModeController, Speed: speed, Err: err}
}

type Option func(*Monitor)

func WithClock(c clock.Clock) Option {
	return func(m *Monitor) {
		m.clock = c
	}
}

func WithInterval(interval time.Duration) Option {
	return func(m *Monitor) {
		m.interval = interval
	}
}

// WithCount stops the loop after n polls. Zero polls forever.
func WithCount(n int) Option {
	return func(m *Monitor) {
		m.count = n
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) {
		m.logger = logger
	}
}

// Monitor runs the read, report, wait loop. A failed read is logged and the loop
// carries on with the next tick.
type Monitor struct {
	sensor   Sensor
	clock    clock.Clock
	interval time.Duration
	count    int
	logger   *slog.Logger

	mx    sync.Mutex
	stats Stats
}

func New(sensor Sensor, opts ...Option) *Monitor {
	m := &Monitor{
		sensor:   sensor,
		clock:    clock.New(),
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// Poll takes a single reading and reports it.
func (m *Monitor) Poll(ctx context.Context) (tempmon.MilliCelsius, error) {
	t, err := m.sensor.Read(ctx)
	m.mx.Lock()
	m.stats.Polls++
	if err != nil {
		m.stats.Failures++
		m.stats.ConsecutiveFailures++
		m.stats.LastErr = err
	} else {
		m.stats.ConsecutiveFailures = 0
		m.stats.Last = t
		m.stats.LastErr = nil
	}
	m.mx.Unlock()

	if err != nil {
		m.logger.ErrorContext(ctx, "read failed", "error", err)
		return 0, err
	}
	m.logger.InfoContext(ctx, "Temperature: "+t.String())
	return t, nil
}

// Run polls until ctx is done or the configured count is reached. The wait starts
// after each report, so the period is the interval plus the read time.
// It returns ctx.Err() when cancelled.
func (m *Monitor) Run(ctx context.Context) (Stats, error) {
	for {
		if err := ctx.Err(); err != nil {
			return m.Stats(), err
		}
		_, _ = m.Poll(ctx)
		stats := m.Stats()
		if m.count > 0 && stats.Polls >= m.count {
			return stats, nil
		}
		t := m.clock.Timer(m.interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return m.Stats(), ctx.Err()
		case <-t.C:
		}
	}
}

func (m *Monitor) Stats() Stats {
	m.mx.Lock()
	defer m.mx.Unlock()
	return m.stats
}
