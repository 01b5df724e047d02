package canhal

import "fmt"

// NotOpenError is returned when an operation is invoked on a closed
// interface.
type NotOpenError struct{}

func (e NotOpenError) Error() string {
	return "can interface is not open"
}

// MessageNotFoundError is returned when no frame is known for the requested
// arbitration id.
type MessageNotFoundError struct {
	ArbID uint32
}

func (e MessageNotFoundError) Error() string {
	return fmt.Sprintf("no message for arbitration id 0x%X", e.ArbID)
}

// DataLengthError is returned when a frame length exceeds the CAN payload
// limit.
type DataLengthError struct {
	ArbID  uint32
	Length uint8
}

func (e DataLengthError) Error() string {
	return fmt.Sprintf("data length %d for arbitration id 0x%X exceeds %d bytes", e.Length, e.ArbID, MaxDataLength)
}

// ParameterOutOfRangeError is returned when a packed or unpacked field does
// not fit within the frame data length.
type ParameterOutOfRangeError struct {
	ArbID  uint32
	Offset uint8
	Size   uint8
	DLC    uint8
}

func (e ParameterOutOfRangeError) Error() string {
	return fmt.Sprintf("field [%d, %d) for arbitration id 0x%X exceeds data length %d", e.Offset, int(e.Offset)+int(e.Size), e.ArbID, e.DLC)
}
