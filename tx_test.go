package canhal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInterface(t *testing.T, opts ...Option) (*Interface, *fakeBus) {
	t.Helper()

	bus := &fakeBus{}
	itf := New(bus, opts...)
	require.NoError(t, itf.Start())

	t.Cleanup(func() {
		_ = itf.Close()
	})

	return itf, bus
}

func TestTxSendOneShot(t *testing.T) {
	itf, bus := newTestInterface(t)

	require.NoError(t, itf.TxSend(0x123, 8, SendPeriodNoRepeat))
	require.Equal(t, 1, bus.count())

	frm := bus.frames()[0]
	assert.Equal(t, uint32(0x123), frm.ID)
	assert.Equal(t, uint8(8), frm.Length)

	// One-shot frames transmit once per call.
	require.NoError(t, itf.TxSend(0x123, 8, SendPeriodNoRepeat))
	assert.Equal(t, 2, bus.count())
}

func TestTxSendLengthTooLong(t *testing.T) {
	itf, bus := newTestInterface(t)

	err := itf.TxSend(0x123, 9, SendPeriodNoRepeat)
	require.Error(t, err)
	assert.IsType(t, DataLengthError{}, err)
	assert.Zero(t, bus.count())
}

func TestTxPackUnpackRoundTrip(t *testing.T) {
	itf, bus := newTestInterface(t)

	require.NoError(t, itf.TxSend(0x200, 8, SendPeriodNoRepeat))
	require.NoError(t, itf.TxPackInt8(0x200, 0, 0x5A))
	require.NoError(t, itf.TxPackInt16(0x200, 1, 0xBEEF))
	require.NoError(t, itf.TxPackFXP16(0x200, 3, -1.5))
	require.NoError(t, itf.TxPackInt8(0x200, 5, 7))

	v8, err := itf.TxUnpackInt8(0x200, 0)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x5A), v8)

	v16, err := itf.TxUnpackInt16(0x200, 1)
	require.NoError(t, err)
	assert.Equal(t, uint16(0xBEEF), v16)

	f16, err := itf.TxUnpackFXP16(0x200, 3)
	require.NoError(t, err)
	assert.Equal(t, -1.5, f16)

	// Packing mutates the pending buffer, not the bus.
	assert.Equal(t, 1, bus.count())

	require.NoError(t, itf.TxSend(0x200, 8, SendPeriodNoRepeat))
	frm := bus.frames()[1]
	assert.Equal(t, uint8(0x5A), frm.Data[0])
	// 0xBEEF little endian
	assert.Equal(t, uint8(0xEF), frm.Data[1])
	assert.Equal(t, uint8(0xBE), frm.Data[2])
}

func TestTxPackFXP32(t *testing.T) {
	itf, _ := newTestInterface(t)

	require.NoError(t, itf.TxSend(0x210, 8, SendPeriodNoRepeat))
	require.NoError(t, itf.TxPackFXP32(0x210, 2, 1.5))

	value, err := itf.TxUnpackFXP32(0x210, 2)
	require.NoError(t, err)
	assert.Equal(t, 1.5, value)
}

func TestTxPackImplicitCreate(t *testing.T) {
	itf, bus := newTestInterface(t)

	// Packing before TxSend creates the entry; the dlc grows to cover the
	// packed field until TxSend fixes it.
	require.NoError(t, itf.TxPackInt32(0x300, 2, 0xCAFE))

	value, err := itf.TxUnpackInt32(0x300, 2)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xCAFE), value)
	assert.Zero(t, bus.count())

	require.NoError(t, itf.TxSend(0x300, 6, SendPeriodNoRepeat))
	require.Equal(t, 1, bus.count())
	assert.Equal(t, uint8(6), bus.frames()[0].Length)
}

func TestTxPackOutOfRange(t *testing.T) {
	itf, _ := newTestInterface(t)

	require.NoError(t, itf.TxSend(0x400, 2, SendPeriodNoRepeat))

	err := itf.TxPackInt32(0x400, 1, 1)
	require.Error(t, err)
	assert.IsType(t, ParameterOutOfRangeError{}, err)

	// Past the CAN payload limit regardless of registration.
	err = itf.TxPackInt32(0x401, 6, 1)
	require.Error(t, err)
	assert.IsType(t, ParameterOutOfRangeError{}, err)
}

func TestTxUnpackUnknownID(t *testing.T) {
	itf, _ := newTestInterface(t)

	_, err := itf.TxUnpackInt8(0x999, 0)
	require.Error(t, err)
	assert.IsType(t, MessageNotFoundError{}, err)
}

func TestTxShrinkZeroesTail(t *testing.T) {
	itf, _ := newTestInterface(t)

	require.NoError(t, itf.TxSend(0x500, 8, SendPeriodNoRepeat))
	require.NoError(t, itf.TxPackInt32(0x500, 4, 0xDEADBEEF))

	require.NoError(t, itf.TxSend(0x500, 2, SendPeriodNoRepeat))
	require.NoError(t, itf.TxSend(0x500, 8, SendPeriodNoRepeat))

	value, err := itf.TxUnpackInt32(0x500, 4)
	require.NoError(t, err)
	assert.Zero(t, value)
}

func TestTxPeriodic(t *testing.T) {
	itf, bus := newTestInterface(t, WithTick(time.Millisecond))

	require.NoError(t, itf.TxSend(0x600, 2, 2*time.Millisecond))

	time.Sleep(100 * time.Millisecond)
	require.GreaterOrEqual(t, bus.count(), 5)

	// Packed bytes go out on the next repeat.
	require.NoError(t, itf.TxPackInt16(0x600, 0, 0x1234))
	time.Sleep(50 * time.Millisecond)

	frames := bus.frames()
	last := frames[len(frames)-1]
	assert.Equal(t, uint8(0x34), last.Data[0])
	assert.Equal(t, uint8(0x12), last.Data[1])

	// Stop repeating keeps the buffered data but halts transmission.
	require.NoError(t, itf.TxSend(0x600, 2, SendPeriodStopRepeating))
	time.Sleep(20 * time.Millisecond)

	count := bus.count()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, count, bus.count())

	value, err := itf.TxUnpackInt16(0x600, 0)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), value)
}

func TestTxStop(t *testing.T) {
	itf, bus := newTestInterface(t, WithTick(time.Millisecond))

	require.NoError(t, itf.TxSend(0x700, 1, 2*time.Millisecond))
	time.Sleep(20 * time.Millisecond)
	require.Greater(t, bus.count(), 1)

	require.NoError(t, itf.TxStop(0x700))
	time.Sleep(10 * time.Millisecond)

	count := bus.count()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, count, bus.count())

	err := itf.TxStop(0x999)
	require.Error(t, err)
	assert.IsType(t, MessageNotFoundError{}, err)
}

func TestTxAfterClose(t *testing.T) {
	bus := &fakeBus{}
	itf := New(bus)
	require.NoError(t, itf.Start())
	require.NoError(t, itf.Close())

	assert.IsType(t, NotOpenError{}, itf.TxSend(0x100, 8, SendPeriodNoRepeat))
	assert.IsType(t, NotOpenError{}, itf.TxPackInt8(0x100, 0, 1))

	_, err := itf.TxUnpackInt8(0x100, 0)
	assert.IsType(t, NotOpenError{}, err)
}
