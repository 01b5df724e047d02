package canhal

import (
	"time"

	"github.com/FabianPetersen/can"
	"github.com/FabianPetersen/canhal/fxp"
)

// rxMessage is the cached latest frame for one arbitration id.
type rxMessage struct {
	data    [8]byte
	dlc     uint8
	arrived time.Time
	fresh   bool
}

// handleFrame runs on the bus callback. It must not block.
func (itf *Interface) handleFrame(frm can.Frame) {
	// Only data frames populate the cache.
	if frm.ID&MaskErr != 0 || frm.ID&MaskRtr != 0 {
		return
	}

	arbID := frm.ID & MaskIDEff

	itf.rxMu.Lock()
	defer itf.rxMu.Unlock()

	msg, ok := itf.rx[arbID]
	if !ok {
		msg = &rxMessage{}
		itf.rx[arbID] = msg
	}

	msg.data = [8]byte{}
	dlc := frm.Length
	if dlc > MaxDataLength {
		dlc = MaxDataLength
	}
	copy(msg.data[:dlc], frm.Data[:dlc])
	msg.dlc = dlc
	msg.arrived = time.Now()
	msg.fresh = true
}

// RxReceive reports whether a frame for arbID arrived since the previous
// RxReceive call and is younger than the staleness window. The freshness
// flag is consumed either way; the cached payload stays readable through the
// unpack methods.
func (itf *Interface) RxReceive(arbID uint32) (bool, error) {
	if itf.isClosed() {
		return false, NotOpenError{}
	}

	itf.rxMu.Lock()
	defer itf.rxMu.Unlock()

	msg, ok := itf.rx[arbID]
	if !ok || !msg.fresh {
		return false, nil
	}

	msg.fresh = false
	if time.Since(msg.arrived) > itf.staleness {
		return false, nil
	}

	return true, nil
}

// RxAge returns the age of the cached frame for arbID.
func (itf *Interface) RxAge(arbID uint32) (time.Duration, error) {
	if itf.isClosed() {
		return 0, NotOpenError{}
	}

	itf.rxMu.RLock()
	defer itf.rxMu.RUnlock()

	msg, ok := itf.rx[arbID]
	if !ok {
		return 0, MessageNotFoundError{ArbID: arbID}
	}

	return time.Since(msg.arrived), nil
}

func (itf *Interface) rxUnpack(arbID uint32, offset uint8, size uint8, unpack func(buf []byte) error) error {
	if itf.isClosed() {
		return NotOpenError{}
	}

	itf.rxMu.RLock()
	defer itf.rxMu.RUnlock()

	msg, ok := itf.rx[arbID]
	if !ok {
		return MessageNotFoundError{ArbID: arbID}
	}
	if int(offset)+int(size) > int(msg.dlc) {
		return ParameterOutOfRangeError{ArbID: arbID, Offset: offset, Size: size, DLC: msg.dlc}
	}

	return unpack(msg.data[:])
}

// RxUnpackInt8 decodes an 8-bit field from the most recently received frame
// for arbID.
func (itf *Interface) RxUnpackInt8(arbID uint32, offset uint8) (uint8, error) {
	var value uint8
	err := itf.rxUnpack(arbID, offset, 1, func(buf []byte) error {
		var err error
		value, err = fxp.UnpackU8(buf, int(offset))
		return err
	})
	return value, err
}

// RxUnpackInt16 decodes a little-endian 16-bit field from the most recently
// received frame for arbID.
func (itf *Interface) RxUnpackInt16(arbID uint32, offset uint8) (uint16, error) {
	var value uint16
	err := itf.rxUnpack(arbID, offset, 2, func(buf []byte) error {
		var err error
		value, err = fxp.UnpackU16(buf, int(offset))
		return err
	})
	return value, err
}

// RxUnpackInt32 decodes a little-endian 32-bit field from the most recently
// received frame for arbID.
func (itf *Interface) RxUnpackInt32(arbID uint32, offset uint8) (uint32, error) {
	var value uint32
	err := itf.rxUnpack(arbID, offset, 4, func(buf []byte) error {
		var err error
		value, err = fxp.UnpackU32(buf, int(offset))
		return err
	})
	return value, err
}

// RxUnpackFXP16 decodes a signed 8.8 fixed-point field from the most
// recently received frame for arbID.
func (itf *Interface) RxUnpackFXP16(arbID uint32, offset uint8) (float64, error) {
	var value float64
	err := itf.rxUnpack(arbID, offset, 2, func(buf []byte) error {
		var err error
		value, err = fxp.UnpackFXP16(buf, int(offset))
		return err
	})
	return value, err
}

// RxUnpackFXP32 decodes a signed 16.16 fixed-point field from the most
// recently received frame for arbID.
func (itf *Interface) RxUnpackFXP32(arbID uint32, offset uint8) (float64, error) {
	var value float64
	err := itf.rxUnpack(arbID, offset, 4, func(buf []byte) error {
		var err error
		value, err = fxp.UnpackFXP32(buf, int(offset))
		return err
	})
	return value, err
}
