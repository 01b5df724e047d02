// Package fxp packs and unpacks integer and fixed-point fields in CAN frame
// payloads. All multi-byte fields are little-endian. Fixed-point values use
// the signed 8.8 (FXP16) and 16.16 (FXP32) encodings common on motor
// controllers and sensor nodes.
package fxp

import (
	"encoding/binary"
	"errors"
	"math"
)

// ErrShortBuffer is returned when a field does not fit in the payload.
var ErrShortBuffer = errors.New("fxp: field exceeds payload bounds")

const (
	// Scale16 converts between float64 and the 8.8 fixed-point encoding.
	Scale16 = 256.0
	// Scale32 converts between float64 and the 16.16 fixed-point encoding.
	Scale32 = 65536.0
)

func checkBounds(buf []byte, offset int, size int) error {
	if offset < 0 || offset+size > len(buf) {
		return ErrShortBuffer
	}
	return nil
}

func PackU8(buf []byte, offset int, value uint8) error {
	if err := checkBounds(buf, offset, 1); err != nil {
		return err
	}

	buf[offset] = value
	return nil
}

func PackU16(buf []byte, offset int, value uint16) error {
	if err := checkBounds(buf, offset, 2); err != nil {
		return err
	}

	binary.LittleEndian.PutUint16(buf[offset:], value)
	return nil
}

func PackU32(buf []byte, offset int, value uint32) error {
	if err := checkBounds(buf, offset, 4); err != nil {
		return err
	}

	binary.LittleEndian.PutUint32(buf[offset:], value)
	return nil
}

func UnpackU8(buf []byte, offset int) (uint8, error) {
	if err := checkBounds(buf, offset, 1); err != nil {
		return 0, err
	}

	return buf[offset], nil
}

func UnpackU16(buf []byte, offset int) (uint16, error) {
	if err := checkBounds(buf, offset, 2); err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint16(buf[offset:]), nil
}

func UnpackU32(buf []byte, offset int) (uint32, error) {
	if err := checkBounds(buf, offset, 4); err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint32(buf[offset:]), nil
}

// saturate converts value to a scaled integer, rounding to nearest and
// clamping to [min, max]. NaN converts to 0.
func saturate(value float64, scale float64, min float64, max float64) int64 {
	if math.IsNaN(value) {
		return 0
	}

	scaled := math.Round(value * scale)
	if scaled > max {
		scaled = max
	} else if scaled < min {
		scaled = min
	}

	return int64(scaled)
}

// PackFXP16 encodes value as signed 8.8 fixed point. Values outside the
// representable range [-128, ~127.996] saturate.
func PackFXP16(buf []byte, offset int, value float64) error {
	if err := checkBounds(buf, offset, 2); err != nil {
		return err
	}

	raw := int16(saturate(value, Scale16, math.MinInt16, math.MaxInt16))
	binary.LittleEndian.PutUint16(buf[offset:], uint16(raw))
	return nil
}

// UnpackFXP16 decodes a signed 8.8 fixed-point field.
func UnpackFXP16(buf []byte, offset int) (float64, error) {
	if err := checkBounds(buf, offset, 2); err != nil {
		return 0, err
	}

	raw := int16(binary.LittleEndian.Uint16(buf[offset:]))
	return float64(raw) / Scale16, nil
}

// PackFXP32 encodes value as signed 16.16 fixed point. Values outside the
// representable range [-32768, ~32767.99998] saturate.
func PackFXP32(buf []byte, offset int, value float64) error {
	if err := checkBounds(buf, offset, 4); err != nil {
		return err
	}

	raw := int32(saturate(value, Scale32, math.MinInt32, math.MaxInt32))
	binary.LittleEndian.PutUint32(buf[offset:], uint32(raw))
	return nil
}

// UnpackFXP32 decodes a signed 16.16 fixed-point field.
func UnpackFXP32(buf []byte, offset int) (float64, error) {
	if err := checkBounds(buf, offset, 4); err != nil {
		return 0, err
	}

	raw := int32(binary.LittleEndian.Uint32(buf[offset:]))
	return float64(raw) / Scale32, nil
}
