// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"errors"
	"math"
	"testing"
)

func TestDecodeWord(t *testing.T) {
	tests := []struct {
		low, high byte
		expected  int16
	}{
		{0x00, 0x00, 0},
		{0xFF, 0x7F, 32767},
		{0x00, 0x80, -32768},
		{0xFF, 0xFF, -1},
		{0xE8, 0x03, 1000},
		{0x18, 0xFC, -1000},
	}

	for _, tt := range tests {
		got := DecodeWord(tt.low, tt.high)
		if got != tt.expected {
			t.Errorf("DecodeWord(0x%02X, 0x%02X) = %d, want %d", tt.low, tt.high, got, tt.expected)
		}
	}
}

func TestDecodeWord_AllHighBytes(t *testing.T) {
	// Exhaustive over the high byte with a fixed low byte: the rule is
	// value = high<<8 | low, minus 65536 when >= 0x8000.
	for h := 0; h < 256; h++ {
		v := h<<8 | 0x5A
		if v >= 0x8000 {
			v -= 65536
		}
		if got := DecodeWord(0x5A, byte(h)); int(got) != v {
			t.Fatalf("DecodeWord(0x5A, 0x%02X) = %d, want %d", h, got, v)
		}
	}
}

func TestScale(t *testing.T) {
	tests := []struct {
		name     string
		raw      int16
		factor   float64
		expected float64
	}{
		{"accel", 1000, 0.000061, 0.061},
		{"gyro", 1000, 0.004375, 4.375},
		{"gyro negative", -2000, 0.004375, -8.75},
		{"zero", 0, 0.004375, 0},
	}

	for _, tt := range tests {
		got := Scale(tt.raw, tt.factor)
		if math.Abs(got-tt.expected) > 1e-12 {
			t.Errorf("%s: Scale(%d, %g) = %g, want %g", tt.name, tt.raw, tt.factor, got, tt.expected)
		}
	}
}

func TestCodec_ReadScaled(t *testing.T) {
	bus := newFakeBus()
	bus.regs[0x28] = 0xE8
	bus.regs[0x29] = 0x03

	c := Codec{Bus: bus, Addr: DefaultAddr}
	got := c.ReadScaled(0x28, 0.000061)
	if math.Abs(got-0.061) > 1e-12 {
		t.Errorf("ReadScaled = %g, want 0.061", got)
	}
}

func TestCodec_ReadFailureIsZero(t *testing.T) {
	for _, failing := range []byte{0x28, 0x29} {
		bus := newFakeBus()
		bus.regs[0x28] = 0xE8
		bus.regs[0x29] = 0x03
		bus.readErr[failing] = errors.New("nack")

		var reported []byte
		c := Codec{Bus: bus, Addr: DefaultAddr, OnError: func(reg byte, err error) {
			reported = append(reported, reg)
		}}

		if got := c.ReadScaled(0x28, 1); got != 0 {
			t.Errorf("failing 0x%02X: ReadScaled = %g, want 0", failing, got)
		}
		if len(reported) != 1 || reported[0] != failing {
			t.Errorf("failing 0x%02X: reported %v", failing, reported)
		}
	}
}

func TestCodec_NilOnError(t *testing.T) {
	bus := newFakeBus()
	bus.readErr[0x22] = errors.New("nack")
	c := Codec{Bus: bus, Addr: DefaultAddr}
	if got := c.ReadScaled(0x22, 1); got != 0 {
		t.Errorf("ReadScaled = %g, want 0", got)
	}
}
