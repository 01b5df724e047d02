package canhal

import "time"

// MaxDataLength is the payload limit of a classic CAN data frame.
const MaxDataLength uint8 = 8

const (
	// MaskIDSff is used to extract the valid 11-bit CAN identifier bits from the frame ID of a standard frame format.
	MaskIDSff = 0x000007FF
	// MaskIDEff is used to extract the valid 29-bit CAN identifier bits from the frame ID of an extended frame format.
	MaskIDEff = 0x1FFFFFFF
	// MaskErr is used to extract the error flag (0 = data frame, 1 = error message) from the frame ID.
	MaskErr = 0x20000000
	// MaskRtr is used to extract the rtr flag (1 = rtr frame) from the frame ID
	MaskRtr = 0x40000000
	// MaskEff is used to extract the eff flag (0 = standard frame, 1 = extended frame) from the frame ID
	MaskEff = 0x80000000
)

const (
	// SendPeriodNoRepeat transmits the frame once per TxSend call.
	SendPeriodNoRepeat time.Duration = 0
	// SendPeriodStopRepeating cancels a previous periodic schedule. The
	// buffered frame data is kept.
	SendPeriodStopRepeating time.Duration = -1
)

// DefaultStaleness is how long a received frame counts as fresh.
const DefaultStaleness = 100 * time.Millisecond

// DefaultTick is the resolution of the periodic transmit scheduler. Periods
// shorter than the tick are clamped to it.
const DefaultTick = 5 * time.Millisecond
