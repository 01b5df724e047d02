package canhal

import (
	"time"

	"github.com/FabianPetersen/canhal/fxp"
	"github.com/avast/retry-go"
)

// txMessage is a tracked transmit frame. Field access requires holding the
// keyed lock for its arbitration id.
type txMessage struct {
	data     [8]byte
	dlc      uint8
	period   time.Duration
	deadline time.Time
	// registered is set once TxSend has fixed the data length. Entries
	// created implicitly by packing grow their dlc to cover packed fields
	// until then.
	registered bool
}

func (msg *txMessage) message(arbID uint32) Message {
	return Message{
		ArbID: arbID,
		DLC:   msg.dlc,
		Data:  msg.data,
	}
}

func (itf *Interface) getOrCreateTx(arbID uint32) *txMessage {
	itf.txMu.Lock()
	defer itf.txMu.Unlock()

	msg, ok := itf.tx[arbID]
	if !ok {
		msg = &txMessage{}
		itf.tx[arbID] = msg
	}

	return msg
}

func (itf *Interface) getTx(arbID uint32) *txMessage {
	itf.txMu.RLock()
	defer itf.txMu.RUnlock()
	return itf.tx[arbID]
}

// TxSend registers the frame for arbID with the given data length and
// transmits it.
//
// A positive period (re)schedules the frame for repeat transmission; the
// bytes packed most recently go out on each repeat. SendPeriodNoRepeat
// transmits once per call. SendPeriodStopRepeating cancels a previous
// schedule without transmitting and keeps the buffered data.
func (itf *Interface) TxSend(arbID uint32, length uint8, period time.Duration) error {
	if itf.isClosed() {
		return NotOpenError{}
	}
	if length > MaxDataLength {
		return DataLengthError{ArbID: arbID, Length: length}
	}

	key := itf.lockKey(arbID)
	Lock.Lock(key)
	defer Lock.Unlock(key)

	msg := itf.getOrCreateTx(arbID)

	// Shrinking the frame zeroes the bytes past the new length.
	for i := length; i < msg.dlc; i++ {
		msg.data[i] = 0
	}
	msg.dlc = length
	msg.registered = true

	if period < 0 {
		msg.period = 0
		return nil
	}

	if period > 0 {
		if period < itf.tick {
			period = itf.tick
		}
		msg.period = period
		msg.deadline = time.Now().Add(period)
	} else {
		msg.period = 0
	}

	return itf.bus.Publish(msg.message(arbID).CANFrame())
}

// TxStop cancels periodic transmission of arbID. The buffered data is kept.
func (itf *Interface) TxStop(arbID uint32) error {
	if itf.isClosed() {
		return NotOpenError{}
	}

	key := itf.lockKey(arbID)
	Lock.Lock(key)
	defer Lock.Unlock(key)

	msg := itf.getTx(arbID)
	if msg == nil {
		return MessageNotFoundError{ArbID: arbID}
	}

	msg.period = 0
	return nil
}

// txPack runs pack against the pending payload for arbID. Packing into an
// unknown id creates the entry implicitly; a later TxSend fixes its length
// and schedule.
func (itf *Interface) txPack(arbID uint32, offset uint8, size uint8, pack func(buf []byte) error) error {
	if itf.isClosed() {
		return NotOpenError{}
	}
	if int(offset)+int(size) > int(MaxDataLength) {
		return ParameterOutOfRangeError{ArbID: arbID, Offset: offset, Size: size, DLC: MaxDataLength}
	}

	key := itf.lockKey(arbID)
	Lock.Lock(key)
	defer Lock.Unlock(key)

	msg := itf.getOrCreateTx(arbID)
	if msg.registered {
		if offset+size > msg.dlc {
			return ParameterOutOfRangeError{ArbID: arbID, Offset: offset, Size: size, DLC: msg.dlc}
		}
	} else if offset+size > msg.dlc {
		msg.dlc = offset + size
	}

	return pack(msg.data[:])
}

func (itf *Interface) txUnpack(arbID uint32, offset uint8, size uint8, unpack func(buf []byte) error) error {
	if itf.isClosed() {
		return NotOpenError{}
	}

	key := itf.lockKey(arbID)
	Lock.Lock(key)
	defer Lock.Unlock(key)

	msg := itf.getTx(arbID)
	if msg == nil {
		return MessageNotFoundError{ArbID: arbID}
	}
	if int(offset)+int(size) > int(msg.dlc) {
		return ParameterOutOfRangeError{ArbID: arbID, Offset: offset, Size: size, DLC: msg.dlc}
	}

	return unpack(msg.data[:])
}

// TxPackInt8 writes an 8-bit field into the pending transmit payload.
func (itf *Interface) TxPackInt8(arbID uint32, offset uint8, value uint8) error {
	return itf.txPack(arbID, offset, 1, func(buf []byte) error {
		return fxp.PackU8(buf, int(offset), value)
	})
}

// TxPackInt16 writes a little-endian 16-bit field into the pending transmit
// payload.
func (itf *Interface) TxPackInt16(arbID uint32, offset uint8, value uint16) error {
	return itf.txPack(arbID, offset, 2, func(buf []byte) error {
		return fxp.PackU16(buf, int(offset), value)
	})
}

// TxPackInt32 writes a little-endian 32-bit field into the pending transmit
// payload.
func (itf *Interface) TxPackInt32(arbID uint32, offset uint8, value uint32) error {
	return itf.txPack(arbID, offset, 4, func(buf []byte) error {
		return fxp.PackU32(buf, int(offset), value)
	})
}

// TxPackFXP16 writes value as signed 8.8 fixed point into the pending
// transmit payload.
func (itf *Interface) TxPackFXP16(arbID uint32, offset uint8, value float64) error {
	return itf.txPack(arbID, offset, 2, func(buf []byte) error {
		return fxp.PackFXP16(buf, int(offset), value)
	})
}

// TxPackFXP32 writes value as signed 16.16 fixed point into the pending
// transmit payload.
func (itf *Interface) TxPackFXP32(arbID uint32, offset uint8, value float64) error {
	return itf.txPack(arbID, offset, 4, func(buf []byte) error {
		return fxp.PackFXP32(buf, int(offset), value)
	})
}

// TxUnpackInt8 reads back an 8-bit field from the pending transmit payload.
func (itf *Interface) TxUnpackInt8(arbID uint32, offset uint8) (uint8, error) {
	var value uint8
	err := itf.txUnpack(arbID, offset, 1, func(buf []byte) error {
		var err error
		value, err = fxp.UnpackU8(buf, int(offset))
		return err
	})
	return value, err
}

// TxUnpackInt16 reads back a 16-bit field from the pending transmit payload.
func (itf *Interface) TxUnpackInt16(arbID uint32, offset uint8) (uint16, error) {
	var value uint16
	err := itf.txUnpack(arbID, offset, 2, func(buf []byte) error {
		var err error
		value, err = fxp.UnpackU16(buf, int(offset))
		return err
	})
	return value, err
}

// TxUnpackInt32 reads back a 32-bit field from the pending transmit payload.
func (itf *Interface) TxUnpackInt32(arbID uint32, offset uint8) (uint32, error) {
	var value uint32
	err := itf.txUnpack(arbID, offset, 4, func(buf []byte) error {
		var err error
		value, err = fxp.UnpackU32(buf, int(offset))
		return err
	})
	return value, err
}

// TxUnpackFXP16 reads back a signed 8.8 fixed-point field from the pending
// transmit payload.
func (itf *Interface) TxUnpackFXP16(arbID uint32, offset uint8) (float64, error) {
	var value float64
	err := itf.txUnpack(arbID, offset, 2, func(buf []byte) error {
		var err error
		value, err = fxp.UnpackFXP16(buf, int(offset))
		return err
	})
	return value, err
}

// TxUnpackFXP32 reads back a signed 16.16 fixed-point field from the pending
// transmit payload.
func (itf *Interface) TxUnpackFXP32(arbID uint32, offset uint8) (float64, error) {
	var value float64
	err := itf.txUnpack(arbID, offset, 4, func(buf []byte) error {
		var err error
		value, err = fxp.UnpackFXP32(buf, int(offset))
		return err
	})
	return value, err
}

func (itf *Interface) runScheduler() {
	defer itf.wg.Done()

	ticker := time.NewTicker(itf.tick)
	defer ticker.Stop()

	for {
		select {
		case <-itf.done:
			return
		case now := <-ticker.C:
			itf.transmitDue(now)
		}
	}
}

func (itf *Interface) transmitDue(now time.Time) {
	itf.txMu.RLock()
	ids := make([]uint32, 0, len(itf.tx))
	for arbID := range itf.tx {
		ids = append(ids, arbID)
	}
	itf.txMu.RUnlock()

	for _, arbID := range ids {
		itf.transmitScheduled(arbID, now)
	}
}

func (itf *Interface) transmitScheduled(arbID uint32, now time.Time) {
	key := itf.lockKey(arbID)
	Lock.Lock(key)
	defer Lock.Unlock(key)

	msg := itf.getTx(arbID)
	if msg == nil || msg.period <= 0 || now.Before(msg.deadline) {
		return
	}

	msg.deadline = now.Add(msg.period)
	frm := msg.message(arbID).CANFrame()

	err := retry.Do(func() error {
		return itf.bus.Publish(frm)
	}, retry.Attempts(10), retry.Delay(1*time.Millisecond))
	if err != nil {
		itf.reportErr(err)
	}
}
