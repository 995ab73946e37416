package environment

import (
	"context"
	"fmt"

	"github.com/mklimuk/tempmon"
)

// TMP102Address is the 7-bit bus address of the TMP102 (ADD0 tied to ground).
const TMP102Address = 0x48

const tmp102TempRegister = 0x00
const tmp102TempLength = 2

// TMP102 represents a Texas Instruments TMP102 digital temperature sensor in its
// default 12-bit mode.
// See: https://www.ti.com/lit/ds/symlink/tmp102.pdf
//
// Usage: instantiate with NewTMP102 on a ready bus, then call Read(ctx).
type TMP102 struct {
	transport tempmon.Transactor
	address   byte
}

// NewTMP102 creates a sensor reader on the given bus. The bus is borrowed for each
// read and never closed by the sensor.
func NewTMP102(trans tempmon.Transactor) *TMP102 {
	return &TMP102{transport: trans, address: TMP102Address}
}

// Read selects the temperature register and reads it back in one combined
// transaction, returning the temperature in millidegrees Celsius. Bus errors are
// returned unchanged and nothing is retried.
func (sensor *TMP102) Read(ctx context.Context) (tempmon.MilliCelsius, error) {
	resp, err := sensor.transport.Transact(ctx, sensor.address, []byte{tmp102TempRegister}, tmp102TempLength)
	if err != nil {
		return 0, err
	}
	if len(resp) != tmp102TempLength {
		return 0, &tempmon.BusError{Code: tempmon.CodeShortRead, Addr: sensor.address, Err: fmt.Errorf("expected %d bytes, got %d", tmp102TempLength, len(resp))}
	}
	return decodeTemperature(resp), nil
}

// GetTemperature reads the current temperature in Celsius.
func (sensor *TMP102) GetTemperature(ctx context.Context) (float32, error) {
	t, err := sensor.Read(ctx)
	if err != nil {
		return 0, fmt.Errorf("tmp102: could not read temperature: %w", err)
	}
	return float32(t.Celsius()), nil
}

// decodeTemperature converts the temperature register content into millidegrees.
//
// The register is big-endian and holds a 12-bit two's complement count in bits
// 15..4; bits 3..0 are not part of the measurement. One count is 0.0625 C.
func decodeTemperature(resp []byte) tempmon.MilliCelsius {
	// byte 0 is the MSB
	word := uint16(resp[0])<<8 | uint16(resp[1])
	// arithmetic shift on the signed word drops the 4 unused bits
	raw := int16(word) >> 4
	// sign-extend the 12-bit field: replicate bit 11 into bits 15..12
	if raw&0x0800 != 0 {
		raw |= -0x1000 // 0xF000 as int16
	}
	// 0.0625 C = 62.5 mC per count, integer only; Go division truncates toward zero
	return tempmon.MilliCelsius(int32(raw) * 625 / 10)
}
