package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/tempmon"
)

// fakeHID replays scripted 64 byte responses and records every request.
type fakeHID struct {
	requests  [][]byte
	responses [][]byte
	closed    int
}

func (f *fakeHID) Write(b []byte) (int, error) {
	req := make([]byte, len(b))
	copy(req, b)
	f.requests = append(f.requests, req)
	return len(b), nil
}

func (f *fakeHID) Read(b []byte) (int, error) {
	if len(f.responses) == 0 {
		return 0, errors.New("no response scripted")
	}
	copy(b, f.responses[0])
	f.responses = f.responses[1:]
	return reportSize, nil
}

func (f *fakeHID) Close() error {
	f.closed++
	return nil
}

func report(bytes ...byte) []byte {
	buf := make([]byte, reportSize)
	copy(buf, bytes)
	return buf
}

func newTestMCP2221(dev *fakeHID) *MCP2221 {
	d := NewMCP2221(WithResponseWait(0))
	d.open = func() (hidDevice, error) { return dev, nil }
	return d
}

func TestMCP2221_Transact(t *testing.T) {
	dev := &fakeHID{responses: [][]byte{
		report(cmdWriteNoStop, 0x00),
		report(cmdReadRepeatedStart, 0x00),
		report(cmdGetI2CData, 0x00, 0x00, 0x02, 0x19, 0x00),
	}}
	d := newTestMCP2221(dev)

	res, err := d.Transact(context.Background(), 0x48, []byte{0x00}, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x19, 0x00}, res)

	require.Len(t, dev.requests, 3)
	assert.Equal(t, []byte{cmdWriteNoStop, 0x01, 0x00, 0x90, 0x00}, dev.requests[0][:5])
	assert.Equal(t, []byte{cmdReadRepeatedStart, 0x02, 0x00, 0x91}, dev.requests[1][:4])
	assert.Equal(t, byte(cmdGetI2CData), dev.requests[2][0])
	assert.Equal(t, 3, dev.closed)
}

func TestMCP2221_TransactErrors(t *testing.T) {
	tests := []struct {
		name      string
		responses [][]byte
		code      tempmon.BusErrorCode
	}{
		{
			name:      "engine busy on write",
			responses: [][]byte{report(cmdWriteNoStop, 0x01)},
			code:      tempmon.CodeBusy,
		},
		{
			name: "engine busy on read",
			responses: [][]byte{
				report(cmdWriteNoStop, 0x00),
				report(cmdReadRepeatedStart, 0x01),
			},
			code: tempmon.CodeBusy,
		},
		{
			name: "target did not respond",
			responses: [][]byte{
				report(cmdWriteNoStop, 0x00),
				report(cmdReadRepeatedStart, 0x00),
				report(cmdGetI2CData, engineError),
			},
			code: tempmon.CodeNoAck,
		},
		{
			name: "read failed marker",
			responses: [][]byte{
				report(cmdWriteNoStop, 0x00),
				report(cmdReadRepeatedStart, 0x00),
				report(cmdGetI2CData, 0x00, 0x00, readFailed),
			},
			code: tempmon.CodeShortRead,
		},
		{
			name: "short read",
			responses: [][]byte{
				report(cmdWriteNoStop, 0x00),
				report(cmdReadRepeatedStart, 0x00),
				report(cmdGetI2CData, 0x00, 0x00, 0x01, 0x19),
			},
			code: tempmon.CodeShortRead,
		},
		{
			name:      "no response",
			responses: nil,
			code:      tempmon.CodeFault,
		},
		{
			name:      "unexpected command echo",
			responses: [][]byte{report(cmdGetI2CData, 0x00)},
			code:      tempmon.CodeFault,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			d := newTestMCP2221(&fakeHID{responses: test.responses})
			res, err := d.Transact(context.Background(), 0x48, []byte{0x00}, 2)
			assert.Nil(t, res)
			var be *tempmon.BusError
			require.True(t, errors.As(err, &be), "expected BusError, got %v", err)
			assert.Equal(t, test.code, be.Code)
			assert.Equal(t, byte(0x48), be.Addr)
		})
	}
}

func TestMCP2221_TransactTooLarge(t *testing.T) {
	dev := &fakeHID{}
	d := newTestMCP2221(dev)
	_, err := d.Transact(context.Background(), 0x48, []byte{0x00}, maxChunk+1)
	var be *tempmon.BusError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, tempmon.CodeFault, be.Code)
	assert.Empty(t, dev.requests)
}

func TestMCP2221_Configure(t *testing.T) {
	dev := &fakeHID{responses: [][]byte{report(cmdStatusSetParams, 0x00, 0x00, setSpeed)}}
	d := newTestMCP2221(dev)

	err := d.Configure(context.Background(), tempmon.ModeController, tempmon.StandardSpeed)
	require.NoError(t, err)
	require.Len(t, dev.requests, 1)
	assert.Equal(t, byte(setSpeed), dev.requests[0][3])
	// 12 MHz / 100 kHz - 3
	assert.Equal(t, byte(117), dev.requests[0][4])
}

func TestMCP2221_ConfigureRejected(t *testing.T) {
	tests := []struct {
		name      string
		mode      tempmon.Mode
		speed     physic.Frequency
		responses [][]byte
	}{
		{"target mode", tempmon.ModeTarget, tempmon.StandardSpeed, nil},
		{"too slow", tempmon.ModeController, tempmon.StandardSpeed / 10, nil},
		{"transfer in progress", tempmon.ModeController, tempmon.StandardSpeed, [][]byte{report(cmdStatusSetParams, 0x00, 0x00, speedNotSet)}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			d := newTestMCP2221(&fakeHID{responses: test.responses})
			err := d.Configure(context.Background(), test.mode, test.speed)
			var ce *tempmon.ConfigurationError
			require.True(t, errors.As(err, &ce), "expected ConfigurationError, got %v", err)
			assert.Equal(t, test.mode, ce.Mode)
		})
	}
}

func TestMCP2221_Status(t *testing.T) {
	resp := report(cmdStatusSetParams, 0x00)
	resp[9], resp[10] = 0x02, 0x00
	resp[11], resp[12] = 0x01, 0x00
	resp[14] = 117
	resp[16], resp[17] = 0x90, 0x00
	dev := &fakeHID{responses: [][]byte{resp}}
	d := newTestMCP2221(dev)

	status, err := d.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 117, status.I2CSpeedDivider)
	assert.Equal(t, uint16(2), status.LastWriteRequestedSize)
	assert.Equal(t, uint16(1), status.LastWriteSentSize)
	assert.Equal(t, "9000", status.CurrentAddress)
}

func TestMCP2221_ReleaseBus(t *testing.T) {
	dev := &fakeHID{responses: [][]byte{report(cmdStatusSetParams, 0x00, cancelTransfer)}}
	d := newTestMCP2221(dev)

	_, err := d.ReleaseBus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, byte(cancelTransfer), dev.requests[0][2])
}

func TestMCP2221_NotReady(t *testing.T) {
	d := NewMCP2221()
	d.open = func() (hidDevice, error) { return nil, ErrDeviceNotFound }
	assert.False(t, d.IsReady(context.Background()))
	assert.ErrorIs(t, d.Init(), ErrDeviceNotFound)
}
