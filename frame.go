package canhal

import (
	"github.com/FabianPetersen/can"
)

// A Message represents the HAL view of a CAN data frame: the arbitration id,
// the data length code and up to 8 payload bytes.
type Message struct {
	// ArbID is the 11-bit or 29-bit CAN arbitration id without flag bits.
	ArbID uint32
	// DLC is the number of valid bytes in Data.
	DLC uint8
	// Data contains the payload. Bytes past DLC are zero.
	Data [8]byte
}

// HALMessage returns a Message from a CAN frame. Flag bits are masked off
// the arbitration id.
func HALMessage(frm can.Frame) Message {
	msg := Message{}

	msg.ArbID = frm.ID & MaskIDEff
	msg.DLC = frm.Length
	if msg.DLC > MaxDataLength {
		msg.DLC = MaxDataLength
	}
	copy(msg.Data[:], frm.Data[:])

	return msg
}

// Extended reports whether the arbitration id needs the 29-bit extended
// frame format.
func (msg Message) Extended() bool {
	return msg.ArbID > MaskIDSff
}

// CANFrame returns a CAN frame representing the message.
//
//	         ------------------------------------------------------
//	CAN     | ID          | Length | Flags | Res0 | Res1 | Data    |
//	         ------------------------------------------------------
//	HAL     | ArbID + Eff | DLC    |       |      |      | payload |
//	         ------------------------------------------------------
func (msg Message) CANFrame() can.Frame {
	id := msg.ArbID & MaskIDEff
	if msg.Extended() {
		id = id | MaskEff
	}

	return can.Frame{
		ID:     id,
		Length: msg.DLC,
		Data:   msg.Data,
	}
}
