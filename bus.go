package tempmon

import (
	"context"
	"errors"

	"periph.io/x/conn/v3/physic"
)

// StandardSpeed is the 100 kHz I2C standard mode.
const StandardSpeed = 100 * physic.KiloHertz

// FastSpeed is the 400 kHz I2C fast mode.
const FastSpeed = 400 * physic.KiloHertz

var ErrBusBusy = errors.New("I2C engine is busy (command not completed)")

// Mode is the role the bus controller plays on the wire.
type Mode int

const (
	ModeController Mode = iota
	ModeTarget
)

func (m Mode) String() string {
	switch m {
	case ModeController:
		return "controller"
	case ModeTarget:
		return "target"
	default:
		return "unknown"
	}
}

// Transactor performs a combined write-then-read transaction: START, address+W, w,
// RESTART, address+R, readLen bytes, STOP. The bus is not released between the two
// phases. Implementations return exactly readLen bytes or a *BusError.
type Transactor interface {
	Transact(ctx context.Context, address byte, w []byte, readLen int) ([]byte, error)
}

// Controller is a bus controller that has to be brought up once before any
// transaction is issued.
type Controller interface {
	Transactor
	IsReady(ctx context.Context) bool
	Configure(ctx context.Context, mode Mode, speed physic.Frequency) error
}
