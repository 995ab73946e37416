package i2c

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mklimuk/tempmon"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

var _ tempmon.Controller = &GenericBus{}

var errClosed = errors.New("bus is closed")

// GenericBus is a bus controller backed by a periph.io bus (usually /dev/i2c-N).
// periph issues Tx with both a write and a read buffer as one combined message,
// so the bus is held across the register write and the data read.
type GenericBus struct {
	bus    i2c.BusCloser
	closed bool
}

func NewGenericBus(dev string) (*GenericBus, error) {
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("could not init host: %w", err)
	}
	for _, driver := range state.Loaded {
		slog.Debug("host driver loaded", "driver", driver.String())
	}
	bus, err := i2creg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("could not open i2c bus: %w", err)
	}
	return NewBus(bus), nil
}

// NewBus wraps an already opened periph bus.
func NewBus(bus i2c.BusCloser) *GenericBus {
	return &GenericBus{bus: bus}
}

func (b *GenericBus) IsReady(ctx context.Context) bool {
	return b.bus != nil && !b.closed
}

// Configure sets the clock speed. periph buses only act as controllers.
func (b *GenericBus) Configure(ctx context.Context, mode tempmon.Mode, speed physic.Frequency) error {
	if mode != tempmon.ModeController {
		return &tempmon.ConfigurationError{Mode: mode, Speed: speed, Err: fmt.Errorf("%s supports controller mode only", b.bus)}
	}
	if speed <= 0 {
		return &tempmon.ConfigurationError{Mode: mode, Speed: speed, Err: fmt.Errorf("invalid speed")}
	}
	err := b.bus.SetSpeed(speed)
	if err != nil && speed == tempmon.StandardSpeed {
		// i2c-dev cannot change the clock; the kernel default is standard mode
		slog.Warn("bus speed not settable, keeping kernel default", "bus", b.bus.String(), "error", err)
		return nil
	}
	if err != nil {
		return &tempmon.ConfigurationError{Mode: mode, Speed: speed, Err: err}
	}
	slog.Debug("i2c bus configured", "bus", b.bus.String(), "speed", speed)
	return nil
}

func (b *GenericBus) Transact(ctx context.Context, address byte, w []byte, readLen int) ([]byte, error) {
	if !b.IsReady(ctx) {
		return nil, tempmon.NewBusError(address, errClosed)
	}
	r := make([]byte, readLen)
	err := b.bus.Tx(uint16(address), w, r)
	if err != nil {
		return nil, tempmon.NewBusError(address, fmt.Errorf("could not transact with i2c bus %x: %w", address, err))
	}
	return r, nil
}

func (b *GenericBus) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	return b.bus.Close()
}
