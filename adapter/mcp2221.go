package adapter

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/karalabe/hid"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/tempmon"
	"github.com/mklimuk/tempmon/snsctx"
)

const VendorID = 0x04D8
const ProductID = 0x00DD

// HID command codes, see MCP2221A datasheet section 3.1.
const (
	cmdStatusSetParams   = 0x10
	cmdGetI2CData        = 0x40
	cmdReadRepeatedStart = 0x93
	cmdWriteNoStop       = 0x94
)

const (
	reportSize = 64
	// maximum payload carried by a single HID report
	maxChunk = 60

	cancelTransfer = 0x10
	setSpeed       = 0x20
	speedNotSet    = 0x21

	engineError = 0x41
	readFailed  = 127

	// the I2C clock is derived from a 12 MHz system clock: divider = 12MHz/speed - 3
	systemClock = 12 * physic.MegaHertz
)

var ErrDeviceNotFound = errors.New("MCP2221 device not found")
var ErrAmbiguousDevice = errors.New("ambiguous device identification")
var ErrCommandFailed = errors.New("command failed")

var _ tempmon.Controller = &MCP2221{}

type hidDevice interface {
	Write(b []byte) (int, error)
	Read(b []byte) (int, error)
	Close() error
}

// MCP2221 is a USB-HID to I2C bridge. Every bus operation is a sequence of 64 byte
// HID reports so calls are serialised.
type MCP2221 struct {
	mx           sync.Mutex
	request      []byte
	response     []byte
	responseWait time.Duration
	open         func() (hidDevice, error)
}

type MCP2221Status struct {
	I2CDataBufferCounter   int    `yaml:"i2c_data_buffer_counter"`
	I2CSpeedDivider        int    `yaml:"i2c_speed_divider"`
	I2CTimeout             int    `yaml:"i2c_timeout"`
	CurrentAddress         string `yaml:"current_address"`
	LastWriteRequestedSize uint16 `yaml:"last_write_requested_size"`
	LastWriteSentSize      uint16 `yaml:"last_write_sent_size"`
	ReadPending            int    `yaml:"read_pending"`
}

type MCP2221Option func(*MCP2221)

// WithDeviceIndex selects one adapter when several are plugged in.
func WithDeviceIndex(index int) MCP2221Option {
	return func(d *MCP2221) {
		d.open = openHID(index, true)
	}
}

// WithResponseWait sets the delay between sending a report and reading the reply.
func WithResponseWait(wait time.Duration) MCP2221Option {
	return func(d *MCP2221) {
		d.responseWait = wait
	}
}

func NewMCP2221(opts ...MCP2221Option) *MCP2221 {
	d := &MCP2221{
		request:      make([]byte, reportSize),
		response:     make([]byte, reportSize),
		responseWait: 50 * time.Millisecond,
		open:         openHID(0, false),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func openHID(index int, explicit bool) func() (hidDevice, error) {
	return func() (hidDevice, error) {
		devs := hid.Enumerate(VendorID, ProductID)
		if len(devs) == 0 {
			return nil, ErrDeviceNotFound
		}
		if len(devs) > 1 && !explicit {
			return nil, ErrAmbiguousDevice
		}
		if index < 0 || index >= len(devs) {
			return nil, fmt.Errorf("no device with id %d", index)
		}
		dev, err := devs[index].Open()
		if err != nil {
			return nil, fmt.Errorf("error opening device: %w", err)
		}
		return dev, nil
	}
}

// Init checks that exactly one (or the selected) adapter is reachable.
func (d *MCP2221) Init() error {
	dev, err := d.open()
	if err != nil {
		return err
	}
	return dev.Close()
}

func (d *MCP2221) IsReady(ctx context.Context) bool {
	return d.Init() == nil
}

// Configure sets the I2C clock divider. The bridge can only be a bus controller.
func (d *MCP2221) Configure(ctx context.Context, mode tempmon.Mode, speed physic.Frequency) error {
	if mode != tempmon.ModeController {
		return &tempmon.ConfigurationError{Mode: mode, Speed: speed, Err: fmt.Errorf("MCP2221 supports controller mode only")}
	}
	if speed <= 0 {
		return &tempmon.ConfigurationError{Mode: mode, Speed: speed, Err: fmt.Errorf("invalid speed")}
	}
	divider := int64(systemClock/speed) - 3
	if divider < 1 || divider > 0xFF {
		return &tempmon.ConfigurationError{Mode: mode, Speed: speed, Err: fmt.Errorf("speed out of range (divider %d)", divider)}
	}
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdStatusSetParams
	d.request[3] = setSpeed
	d.request[4] = byte(divider)
	err := d.send(ctx)
	if err != nil {
		return &tempmon.ConfigurationError{Mode: mode, Speed: speed, Err: err}
	}
	if d.response[3] == speedNotSet {
		return &tempmon.ConfigurationError{Mode: mode, Speed: speed, Err: fmt.Errorf("speed not set: I2C transfer in progress")}
	}
	return nil
}

// Transact writes w without a STOP condition, then reads readLen bytes after a
// repeated START and fetches them from the bridge buffer.
func (d *MCP2221) Transact(ctx context.Context, address byte, w []byte, readLen int) ([]byte, error) {
	if len(w) > maxChunk || readLen > maxChunk || readLen <= 0 {
		return nil, &tempmon.BusError{Code: tempmon.CodeFault, Addr: address, Err: fmt.Errorf("transfer size exceeds %d bytes", maxChunk)}
	}
	d.mx.Lock()
	defer d.mx.Unlock()

	d.resetBuffers()
	d.request[0] = cmdWriteNoStop
	binary.LittleEndian.PutUint16(d.request[1:3], uint16(len(w)))
	d.request[3] = address << 1
	copy(d.request[4:], w)
	err := d.send(ctx)
	if err != nil {
		return nil, tempmon.NewBusError(address, fmt.Errorf("write to %x failed: %w", address, err))
	}
	if d.response[1] != 0x00 {
		slog.Debug("adapter busy", "phase", "write")
		return nil, tempmon.NewBusError(address, tempmon.ErrBusBusy)
	}

	d.resetBuffers()
	d.request[0] = cmdReadRepeatedStart
	binary.LittleEndian.PutUint16(d.request[1:3], uint16(readLen))
	d.request[3] = address<<1 | 1
	err = d.send(ctx)
	if err != nil {
		return nil, tempmon.NewBusError(address, fmt.Errorf("bus read from %x failed: %w", address, err))
	}
	if d.response[1] != 0x00 {
		slog.Debug("adapter busy", "phase", "read")
		return nil, tempmon.NewBusError(address, tempmon.ErrBusBusy)
	}

	d.resetBuffers()
	d.request[0] = cmdGetI2CData
	err = d.send(ctx)
	if err != nil {
		return nil, tempmon.NewBusError(address, fmt.Errorf("error getting read data from adapter: %w", err))
	}
	if d.response[1] == engineError {
		return nil, &tempmon.BusError{Code: tempmon.CodeNoAck, Addr: address, Err: fmt.Errorf("error reading the I2C target data from the I2C engine")}
	}
	if d.response[3] == readFailed || int(d.response[3]) != readLen {
		return nil, &tempmon.BusError{Code: tempmon.CodeShortRead, Addr: address, Err: fmt.Errorf("invalid data size byte; expected %d, got %d", readLen, d.response[3])}
	}
	out := make([]byte, readLen)
	copy(out, d.response[4:])
	return out, nil
}

func (d *MCP2221) Status(ctx context.Context) (*MCP2221Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdStatusSetParams
	err := d.send(ctx)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

// ReleaseBus cancels the current I2C transfer and frees the bus.
func (d *MCP2221) ReleaseBus(ctx context.Context) (*MCP2221Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdStatusSetParams
	d.request[2] = cancelTransfer
	err := d.send(ctx)
	if err != nil {
		return nil, fmt.Errorf("cancel request failed: %w", err)
	}
	if d.response[1] != 0x00 {
		return nil, ErrCommandFailed
	}
	return bufferToStatus(d.response), nil
}

func bufferToStatus(buffer []byte) *MCP2221Status {
	/*
		9: Lower byte (16-bit value) of the requested I2C transfer length
		10: Higher byte (16-bit value) of the requested I2C transfer length
		11:	Lower byte (16-bit value) of the already transferred (through I2C) number of bytes
		12:	Higher byte (16-bit value) of the already transferred (through I2C) number of bytes
		13:	Internal I2C data buffer counter
		14: Current I2C communication speed divider value
		15: Current I2C timeout value
		16:	Lower byte (16-bit value) of the I2C address being used
		17:	Higher byte (16-bit value) of the I2C address being used
	*/
	status := &MCP2221Status{
		I2CDataBufferCounter: int(buffer[13]),
		I2CSpeedDivider:      int(buffer[14]),
		I2CTimeout:           int(buffer[15]),
		ReadPending:          int(buffer[25]),
		CurrentAddress:       hex.EncodeToString(buffer[16:18]),
	}
	status.LastWriteRequestedSize = binary.LittleEndian.Uint16(buffer[9:11])
	status.LastWriteSentSize = binary.LittleEndian.Uint16(buffer[11:13])
	return status
}

// send writes the request report and reads the reply into the response buffer.
func (d *MCP2221) send(ctx context.Context) error {
	dev, err := d.open()
	if err != nil {
		return err
	}
	defer func() {
		if err := dev.Close(); err != nil {
			slog.Debug("could not close HID device", "error", err)
		}
	}()
	snsctx.Dump(ctx, "sending message to adapter:", d.request)
	n, err := dev.Write(d.request)
	if err != nil {
		return fmt.Errorf("could not write request: %w", err)
	}
	if n != reportSize {
		return fmt.Errorf("short write: %d", n)
	}
	time.Sleep(d.responseWait)
	n, err = dev.Read(d.response)
	if err != nil {
		return fmt.Errorf("could not read response: %w", err)
	}
	if n != reportSize {
		return fmt.Errorf("short read: %d", n)
	}
	snsctx.Dump(ctx, "read message from adapter:", d.response)
	if d.response[0] != d.request[0] {
		return fmt.Errorf("response to unexpected command %#02x (sent %#02x)", d.response[0], d.request[0])
	}
	return nil
}

func (d *MCP2221) resetBuffers() {
	resetBuffer(d.request)
	resetBuffer(d.response)
}

func resetBuffer(buf []byte) {
	for i := range buf {
		buf[i] = 0x00
	}
}
