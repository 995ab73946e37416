package environment

import (
	"context"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/tempmon"
)

var _ tempmon.Controller = &SimulatedTMP102{}

// SimulatedTMP102 is an in-memory bus with a single TMP102 attached. Readings come
// from the behavior function and are encoded into the temperature register so the
// regular decode path is exercised.
type SimulatedTMP102 struct {
	mx         sync.Mutex
	behavior   TemperatureBehaviorFunc
	configured bool
}

func NewSimulatedTMP102(behavior TemperatureBehaviorFunc) *SimulatedTMP102 {
	return &SimulatedTMP102{behavior: behavior}
}

func (s *SimulatedTMP102) IsReady(ctx context.Context) bool {
	return true
}

func (s *SimulatedTMP102) Configure(ctx context.Context, mode tempmon.Mode, speed physic.Frequency) error {
	if mode != tempmon.ModeController || speed <= 0 {
		return &tempmon.ConfigurationError{Mode: mode, Speed: speed, Err: fmt.Errorf("unsupported setup")}
	}
	s.mx.Lock()
	s.configured = true
	s.mx.Unlock()
	return nil
}

func (s *SimulatedTMP102) Transact(ctx context.Context, address byte, w []byte, readLen int) ([]byte, error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if address != TMP102Address {
		return nil, &tempmon.BusError{Code: tempmon.CodeNoAck, Addr: address}
	}
	if len(w) != 1 || w[0] != tmp102TempRegister || readLen != tmp102TempLength {
		return nil, &tempmon.BusError{Code: tempmon.CodeFault, Addr: address, Err: fmt.Errorf("unsupported register access")}
	}
	t, err := s.behavior(ctx)
	if err != nil {
		return nil, tempmon.NewBusError(address, err)
	}
	return encodeTemperature(t), nil
}

// encodeTemperature is the inverse of decodeTemperature. Values are clamped to the
// sensor range and rounded to the nearest 0.0625 C step.
func encodeTemperature(t tempmon.MilliCelsius) []byte {
	// counts of 62.5 mC, doubled to stay in integers
	n := int64(t) * 20
	var count int64
	if n >= 0 {
		count = (n + 625) / 1250
	} else {
		count = (n - 625) / 1250
	}
	if count > 0x7FF {
		count = 0x7FF
	}
	if count < -0x800 {
		count = -0x800
	}
	word := uint16(int16(count) << 4)
	return []byte{byte(word >> 8), byte(word)}
}
