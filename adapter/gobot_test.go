package adapter

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gobot.io/x/gobot/v2/drivers/i2c"

	"github.com/mklimuk/tempmon"
)

type fakeAdaptor struct {
	connectErr error
	connects   int
	finalizes  int
}

func (f *fakeAdaptor) GetI2cConnection(address int, busNr int) (i2c.Connection, error) {
	return nil, errors.New("not available in tests")
}

func (f *fakeAdaptor) DefaultI2cBus() int { return 0 }

func (f *fakeAdaptor) Connect() error {
	f.connects++
	return f.connectErr
}

func (f *fakeAdaptor) Finalize() error {
	f.finalizes++
	return nil
}

type fakeBlockConn struct {
	data   []byte
	err    error
	regs   []uint8
	closed bool
}

func (f *fakeBlockConn) ReadBlockData(reg uint8, b []byte) error {
	f.regs = append(f.regs, reg)
	if f.err != nil {
		return f.err
	}
	copy(b, f.data)
	return nil
}

func (f *fakeBlockConn) Close() error {
	f.closed = true
	return nil
}

func newTestGobotBus(conn *fakeBlockConn) (*GobotBus, *fakeAdaptor, *int) {
	ad := &fakeAdaptor{}
	b := NewGobotBus(ad, 1)
	opened := 0
	b.connect = func(address byte) (blockConn, error) {
		opened++
		return conn, nil
	}
	return b, ad, &opened
}

func TestGobotBus_Transact(t *testing.T) {
	conn := &fakeBlockConn{data: []byte{0xE7, 0x00}}
	b, ad, opened := newTestGobotBus(conn)
	ctx := context.Background()

	assert.False(t, b.IsReady(ctx))
	require.NoError(t, b.Open())
	require.NoError(t, b.Open())
	assert.Equal(t, 1, ad.connects)
	assert.True(t, b.IsReady(ctx))

	for i := 0; i < 2; i++ {
		res, err := b.Transact(ctx, 0x48, []byte{0x00}, 2)
		require.NoError(t, err)
		assert.Equal(t, []byte{0xE7, 0x00}, res)
	}
	assert.Equal(t, 1, *opened, "connection should be reused")
	assert.Equal(t, []uint8{0x00, 0x00}, conn.regs)

	require.NoError(t, b.Close())
	assert.True(t, conn.closed)
	assert.Equal(t, 1, ad.finalizes)
	assert.False(t, b.IsReady(ctx))
}

func TestGobotBus_TransactErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("not connected", func(t *testing.T) {
		b, _, _ := newTestGobotBus(&fakeBlockConn{})
		_, err := b.Transact(ctx, 0x48, []byte{0x00}, 2)
		assert.ErrorIs(t, err, ErrNotConnected)
	})
	t.Run("multi byte write", func(t *testing.T) {
		b, _, _ := newTestGobotBus(&fakeBlockConn{})
		require.NoError(t, b.Open())
		_, err := b.Transact(ctx, 0x48, []byte{0x00, 0x01}, 2)
		var be *tempmon.BusError
		require.True(t, errors.As(err, &be))
		assert.Equal(t, tempmon.CodeFault, be.Code)
	})
	t.Run("no ack", func(t *testing.T) {
		b, _, _ := newTestGobotBus(&fakeBlockConn{err: fmt.Errorf("ioctl: %w", syscall.EIO)})
		require.NoError(t, b.Open())
		_, err := b.Transact(ctx, 0x48, []byte{0x00}, 2)
		var be *tempmon.BusError
		require.True(t, errors.As(err, &be))
		assert.Equal(t, tempmon.CodeNoAck, be.Code)
	})
	t.Run("connect failure", func(t *testing.T) {
		ad := &fakeAdaptor{connectErr: errors.New("no i2c")}
		b := NewGobotBus(ad, 0)
		assert.Error(t, b.Open())
		assert.False(t, b.IsReady(ctx))
	})
	t.Run("connection failure", func(t *testing.T) {
		b := NewGobotBus(&fakeAdaptor{}, 0)
		require.NoError(t, b.Open())
		_, err := b.Transact(ctx, 0x48, []byte{0x00}, 2)
		var be *tempmon.BusError
		require.True(t, errors.As(err, &be))
		assert.Equal(t, tempmon.CodeFault, be.Code)
	})
}

func TestGobotBus_Configure(t *testing.T) {
	b := NewGobotBus(&fakeAdaptor{}, 0)
	ctx := context.Background()
	assert.NoError(t, b.Configure(ctx, tempmon.ModeController, tempmon.StandardSpeed))

	var ce *tempmon.ConfigurationError
	assert.True(t, errors.As(b.Configure(ctx, tempmon.ModeController, tempmon.FastSpeed), &ce))
	assert.True(t, errors.As(b.Configure(ctx, tempmon.ModeTarget, tempmon.StandardSpeed), &ce))
}
