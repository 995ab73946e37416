package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"

	"github.com/mklimuk/tempmon"
	"github.com/mklimuk/tempmon/adapter"
	"github.com/mklimuk/tempmon/config"
	"github.com/mklimuk/tempmon/environment"
	"github.com/mklimuk/tempmon/i2c"
)

// openController builds the controller selected by the configuration. The returned
// function releases it.
func openController(cfg config.Config) (tempmon.Controller, func(), error) {
	switch cfg.Adapter {
	case config.AdapterGeneric:
		bus, err := i2c.NewGenericBus(cfg.Device)
		if err != nil {
			return nil, nil, fmt.Errorf("could not open %s: %w", cfg.Device, err)
		}
		return bus, closer("generic bus", bus.Close), nil
	case config.AdapterMCP2221:
		var opts []adapter.MCP2221Option
		if cfg.DeviceIndex >= 0 {
			opts = append(opts, adapter.WithDeviceIndex(cfg.DeviceIndex))
		}
		mcp := adapter.NewMCP2221(opts...)
		err := mcp.Init()
		if err != nil {
			return nil, nil, fmt.Errorf("adapter initialization error: %w", err)
		}
		return mcp, func() {}, nil
	case config.AdapterNanoPi:
		bus := adapter.NewGobotBus(nanopi.NewNeoAdaptor(), cfg.Bus)
		err := bus.Open()
		if err != nil {
			return nil, nil, err
		}
		return bus, closer("gobot bus", bus.Close), nil
	case config.AdapterSim:
		return environment.NewSimulatedTMP102(simulatedRoom(time.Now)), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown adapter %q", cfg.Adapter)
	}
}

func closer(name string, fn func() error) func() {
	return func() {
		if err := fn(); err != nil {
			slog.Warn("could not close "+name, "error", err)
		}
	}
}

// simulatedRoom swings the temperature by two degrees around 21.5 C over a ten minute period.
func simulatedRoom(now func() time.Time) environment.TemperatureBehaviorFunc {
	start := now()
	return func(ctx context.Context) (tempmon.MilliCelsius, error) {
		phase := now().Sub(start).Seconds() / 600 * 2 * math.Pi
		return tempmon.MilliCelsius(21500 + 2000*math.Sin(phase)), nil
	}
}
