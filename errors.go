package tempmon

import (
	"errors"
	"fmt"
	"syscall"

	"periph.io/x/conn/v3/physic"
)

// ErrDeviceNotReady is returned when the bus controller never reached a ready state.
var ErrDeviceNotReady = errors.New("bus controller is not ready")

// ConfigurationError is returned when a controller rejects the requested mode or speed.
type ConfigurationError struct {
	Mode  Mode
	Speed physic.Frequency
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("could not configure bus controller (mode %s, speed %s): %v", e.Mode, e.Speed, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// BusErrorCode classifies a failed transaction.
type BusErrorCode int

const (
	CodeFault BusErrorCode = iota + 1
	CodeNoAck
	CodeBusy
	CodeTimeout
	CodeArbitrationLost
	CodeShortRead
)

func (c BusErrorCode) String() string {
	switch c {
	case CodeFault:
		return "controller fault"
	case CodeNoAck:
		return "no acknowledgment"
	case CodeBusy:
		return "bus busy"
	case CodeTimeout:
		return "timeout"
	case CodeArbitrationLost:
		return "arbitration lost"
	case CodeShortRead:
		return "short read"
	default:
		return fmt.Sprintf("code(%d)", int(c))
	}
}

// BusError is returned when any phase of a transaction fails.
type BusError struct {
	Code BusErrorCode
	Addr byte
	Err  error
}

func (e *BusError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("i2c transaction with %#02x failed: %s", e.Addr, e.Code)
	}
	return fmt.Sprintf("i2c transaction with %#02x failed: %s: %v", e.Addr, e.Code, e.Err)
}

func (e *BusError) Unwrap() error {
	return e.Err
}

// NewBusError wraps err for address addr, deriving the code from a wrapped
// errno or ErrBusBusy when there is one.
func NewBusError(addr byte, err error) *BusError {
	var be *BusError
	if errors.As(err, &be) {
		return be
	}
	return &BusError{Code: codeOf(err), Addr: addr, Err: err}
}

func codeOf(err error) BusErrorCode {
	if errors.Is(err, ErrBusBusy) {
		return CodeBusy
	}
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return CodeFault
	}
	switch errno {
	case syscall.EIO, syscall.ENXIO, syscall.EREMOTEIO:
		return CodeNoAck
	case syscall.EAGAIN:
		// i2c-dev reports lost arbitration as EAGAIN
		return CodeArbitrationLost
	case syscall.EBUSY:
		return CodeBusy
	case syscall.ETIMEDOUT:
		return CodeTimeout
	default:
		return CodeFault
	}
}
