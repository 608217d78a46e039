// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

// DecodeWord combines a little-endian register pair into a signed 16-bit value.
func DecodeWord(low, high byte) int16 {
	return int16(uint16(high)<<8 | uint16(low))
}

// Scale converts raw counts to a physical unit.
func Scale(raw int16, factor float64) float64 {
	return float64(raw) * factor
}

// Codec reads scaled 16-bit output registers from one device.
//
// A failed byte read never surfaces as an error: the axis reads as 0.0 for
// that sample and OnError (if set) is told about it. The polling loop above
// must keep running through transient bus glitches.
type Codec struct {
	Bus     Bus
	Addr    uint16
	OnError func(reg byte, err error)
}

// ReadScaled reads base (low byte) and base+1 (high byte) and scales the result.
func (c Codec) ReadScaled(base byte, factor float64) float64 {
	low, err := c.Bus.ReadRegister(c.Addr, base)
	if err != nil {
		c.report(base, err)
		return 0
	}
	high, err := c.Bus.ReadRegister(c.Addr, base+1)
	if err != nil {
		c.report(base+1, err)
		return 0
	}
	return Scale(DecodeWord(low, high), factor)
}

func (c Codec) report(reg byte, err error) {
	if c.OnError != nil {
		c.OnError(reg, err)
	}
}
