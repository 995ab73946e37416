package adapter

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gobot.io/x/gobot/v2/drivers/i2c"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/tempmon"
)

var _ tempmon.Controller = &GobotBus{}

var ErrNotConnected = errors.New("gobot adaptor is not connected")

// Adaptor is a gobot platform adaptor exposing I2C buses (e.g. nanopi.NewNeoAdaptor()).
type Adaptor interface {
	i2c.Connector
	Connect() error
	Finalize() error
}

type blockConn interface {
	ReadBlockData(reg uint8, b []byte) error
	Close() error
}

// GobotBus drives the bus through a gobot adaptor. A register select followed by a
// read is issued as an SMBus I2C block read, which the kernel sends as one
// combined message. Adapters without I2C_FUNC_SMBUS_READ_I2C_BLOCK make gobot fall
// back to a plain write followed by a separate read, releasing the bus in between.
type GobotBus struct {
	mx        sync.Mutex
	adaptor   Adaptor
	busNr     int
	connected bool
	conns     map[byte]blockConn
	connect   func(address byte) (blockConn, error)
}

func NewGobotBus(adaptor Adaptor, busNr int) *GobotBus {
	b := &GobotBus{
		adaptor: adaptor,
		busNr:   busNr,
		conns:   make(map[byte]blockConn),
	}
	b.connect = func(address byte) (blockConn, error) {
		return b.adaptor.GetI2cConnection(int(address), b.busNr)
	}
	return b
}

// Open connects the adaptor. It has to succeed before the bus reports ready.
func (b *GobotBus) Open() error {
	b.mx.Lock()
	defer b.mx.Unlock()
	if b.connected {
		return nil
	}
	err := b.adaptor.Connect()
	if err != nil {
		return fmt.Errorf("adaptor connect error: %w", err)
	}
	b.connected = true
	return nil
}

func (b *GobotBus) IsReady(ctx context.Context) bool {
	b.mx.Lock()
	defer b.mx.Unlock()
	return b.connected
}

// Configure accepts the standard controller setup only; the clock of a Linux
// adapter is fixed by its kernel driver.
func (b *GobotBus) Configure(ctx context.Context, mode tempmon.Mode, speed physic.Frequency) error {
	if mode != tempmon.ModeController {
		return &tempmon.ConfigurationError{Mode: mode, Speed: speed, Err: fmt.Errorf("gobot buses support controller mode only")}
	}
	if speed != tempmon.StandardSpeed {
		return &tempmon.ConfigurationError{Mode: mode, Speed: speed, Err: fmt.Errorf("bus speed is fixed by the kernel driver at %s", tempmon.StandardSpeed)}
	}
	return nil
}

func (b *GobotBus) Transact(ctx context.Context, address byte, w []byte, readLen int) ([]byte, error) {
	if len(w) != 1 {
		return nil, &tempmon.BusError{Code: tempmon.CodeFault, Addr: address, Err: fmt.Errorf("expected a single register byte, got %d bytes", len(w))}
	}
	b.mx.Lock()
	defer b.mx.Unlock()
	if !b.connected {
		return nil, tempmon.NewBusError(address, ErrNotConnected)
	}
	conn, ok := b.conns[address]
	if !ok {
		var err error
		conn, err = b.connect(address)
		if err != nil {
			return nil, tempmon.NewBusError(address, fmt.Errorf("could not open connection to %#02x on bus %d: %w", address, b.busNr, err))
		}
		b.conns[address] = conn
	}
	r := make([]byte, readLen)
	err := conn.ReadBlockData(w[0], r)
	if err != nil {
		return nil, tempmon.NewBusError(address, fmt.Errorf("block read of register %#02x failed: %w", w[0], err))
	}
	return r, nil
}

// Close closes every device connection and finalizes the adaptor.
func (b *GobotBus) Close() error {
	b.mx.Lock()
	defer b.mx.Unlock()
	var errs []error
	for addr, conn := range b.conns {
		if err := conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing connection to %#02x: %w", addr, err))
		}
		delete(b.conns, addr)
	}
	if b.connected {
		b.connected = false
		if err := b.adaptor.Finalize(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
