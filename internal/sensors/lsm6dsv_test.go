// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"errors"
	"math"
	"testing"
	"time"

	"periph.io/x/conn/v3/physic"
)

func newTestDevice(bus *fakeBus) (*LSM6DSV, *[]time.Duration) {
	var slept []time.Duration
	dev := NewLSM6DSV(bus, DefaultDeviceConfig(), nil)
	dev.sleep = func(d time.Duration) { slept = append(slept, d) }
	return dev, &slept
}

func TestLSM6DSV_InitSequence(t *testing.T) {
	bus := newFakeBus()
	dev, slept := newTestDevice(bus)

	if dev.State() != StateUninitialized {
		t.Fatalf("initial state = %s", dev.State())
	}
	if err := dev.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if dev.State() != StateReady {
		t.Errorf("state after Init = %s, want ready", dev.State())
	}

	expected := []busWrite{
		{DefaultAddr, RegCtrl3C, 0x01},
		{DefaultAddr, RegCtrl1XL, 0x04},
		{DefaultAddr, RegCtrl2G, 0x04},
		{DefaultAddr, RegCtrl3C, 0x44},
	}
	if len(bus.writes) != len(expected) {
		t.Fatalf("got %d writes, want %d: %+v", len(bus.writes), len(expected), bus.writes)
	}
	for i, w := range expected {
		if bus.writes[i] != w {
			t.Errorf("write %d = %+v, want %+v", i, bus.writes[i], w)
		}
	}

	if len(*slept) != 2 || (*slept)[0] < 100*time.Millisecond || (*slept)[1] <= 0 {
		t.Errorf("settle delays = %v", *slept)
	}
}

func TestLSM6DSV_InitFailure(t *testing.T) {
	for _, reg := range []byte{RegCtrl3C, RegCtrl1XL, RegCtrl2G} {
		bus := newFakeBus()
		boom := errors.New("bus stuck")
		bus.writeErr[reg] = boom
		dev, _ := newTestDevice(bus)

		err := dev.Init()
		if !errors.Is(err, boom) {
			t.Errorf("write 0x%02X failing: Init error = %v, want wrapped %v", reg, err, boom)
		}
		if dev.State() != StateUninitialized {
			t.Errorf("write 0x%02X failing: state = %s, want uninitialized", reg, dev.State())
		}
	}
}

func TestLSM6DSV_NotReadyBeforeInit(t *testing.T) {
	dev, _ := newTestDevice(newFakeBus())

	if _, err := dev.DataReady(); !errors.Is(err, ErrNotReady) {
		t.Errorf("DataReady error = %v, want ErrNotReady", err)
	}
	if _, err := dev.ReadSample(); !errors.Is(err, ErrNotReady) {
		t.Errorf("ReadSample error = %v, want ErrNotReady", err)
	}
}

func TestLSM6DSV_DataReady(t *testing.T) {
	tests := []struct {
		status   byte
		expected bool
	}{
		{0x00, false},
		{0x01, true}, // accel
		{0x02, true}, // gyro
		{0x03, true},
		{0x04, false}, // temperature only
		{0xFC, false},
	}

	bus := newFakeBus()
	dev, _ := newTestDevice(bus)
	if err := dev.Init(); err != nil {
		t.Fatal(err)
	}

	for _, tt := range tests {
		bus.regs[RegStatus] = tt.status
		got, err := dev.DataReady()
		if err != nil {
			t.Fatalf("DataReady: %v", err)
		}
		if got != tt.expected {
			t.Errorf("status 0x%02X: DataReady = %v, want %v", tt.status, got, tt.expected)
		}
	}
}

func TestLSM6DSV_DataReadyBusErrorIsNotReady(t *testing.T) {
	bus := newFakeBus()
	var reported int
	dev := NewLSM6DSV(bus, DefaultDeviceConfig(), func(byte, error) { reported++ })
	dev.sleep = func(time.Duration) {}
	if err := dev.Init(); err != nil {
		t.Fatal(err)
	}
	bus.regs[RegStatus] = 0x03
	bus.readErr[RegStatus] = errors.New("nack")

	ready, err := dev.DataReady()
	if ready || err != nil {
		t.Errorf("DataReady = %v, %v; want false, nil", ready, err)
	}
	if reported != 1 || dev.BusErrors() != 1 {
		t.Errorf("reported=%d BusErrors=%d, want 1", reported, dev.BusErrors())
	}
}

func TestLSM6DSV_ReadSample(t *testing.T) {
	bus := newFakeBus()
	dev, _ := newTestDevice(bus)
	if err := dev.Init(); err != nil {
		t.Fatal(err)
	}

	put := func(base byte, v int16) {
		bus.regs[base] = byte(uint16(v))
		bus.regs[base+1] = byte(uint16(v) >> 8)
	}
	put(RegOutXLA, 1000)
	put(RegOutXLA+2, -1000)
	put(RegOutXLA+4, 16393)
	put(RegOutXLG, 2000)
	put(RegOutXLG+2, -32768)
	put(RegOutXLG+4, 32767)

	s, err := dev.ReadSample()
	if err != nil {
		t.Fatal(err)
	}

	af := 0.061 / 1000.0 * StandardGravity
	gf := 4.375 / 1000.0
	checks := []struct {
		name      string
		got, want float64
	}{
		{"ax", s.Ax, 1000 * af},
		{"ay", s.Ay, -1000 * af},
		{"az", s.Az, 16393 * af},
		{"gx", s.Gx, 2000 * gf},
		{"gy", s.Gy, -32768 * gf},
		{"gz", s.Gz, 32767 * gf},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > 1e-9 {
			t.Errorf("%s = %f, want %f", c.name, c.got, c.want)
		}
	}
}

func TestLSM6DSV_ReadSampleDegradesFailedAxis(t *testing.T) {
	bus := newFakeBus()
	dev, _ := newTestDevice(bus)
	if err := dev.Init(); err != nil {
		t.Fatal(err)
	}
	bus.regs[RegOutXLG+2] = 0xE8
	bus.regs[RegOutXLG+3] = 0x03
	bus.regs[RegOutXLG+4] = 0xE8
	bus.regs[RegOutXLG+5] = 0x03
	bus.readErr[RegOutXLG+3] = errors.New("glitch") // gyro Y high byte

	s, err := dev.ReadSample()
	if err != nil {
		t.Fatalf("ReadSample must not fail on a bus glitch: %v", err)
	}
	if s.Gy != 0 {
		t.Errorf("Gy = %f, want 0 after failed read", s.Gy)
	}
	if math.Abs(s.Gz-4.375) > 1e-9 {
		t.Errorf("Gz = %f, want 4.375", s.Gz)
	}
	if dev.BusErrors() != 1 {
		t.Errorf("BusErrors = %d, want 1", dev.BusErrors())
	}
}

func TestDeviceConfig_AccelFactor(t *testing.T) {
	cfg := DefaultDeviceConfig()
	if math.Abs(cfg.AccelFactor()-0.000061*9.80665) > 1e-15 {
		t.Errorf("AccelFactor = %g", cfg.AccelFactor())
	}
}

func TestODRFrequency(t *testing.T) {
	tests := []struct {
		selector byte
		want     physic.Frequency
		ok       bool
	}{
		{0x00, 0, true},
		{0x01, 1875 * physic.MilliHertz, true},
		{0x04, 30 * physic.Hertz, true},
		{0x06, 120 * physic.Hertz, true},
		{0x16, 120 * physic.Hertz, true}, // scale bits ignored
		{0x0C, 7680 * physic.Hertz, true},
		{0x0D, 0, false},
		{0x0F, 0, false},
	}
	for _, tt := range tests {
		got, ok := ODRFrequency(tt.selector)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ODRFrequency(0x%02X) = %s, %v, want %s, %v", tt.selector, got, ok, tt.want, tt.ok)
		}
	}

	cfg := DefaultDeviceConfig()
	cfg.ODRSelector = 0x08
	if rate, ok := cfg.OutputRate(); !ok || rate != 480*physic.Hertz {
		t.Errorf("OutputRate = %s, %v, want 480Hz", rate, ok)
	}
}

func TestRegisterAddresses(t *testing.T) {
	addrs, err := RegisterAddresses(LSM6DSVRegisterMap())
	if err != nil {
		t.Fatal(err)
	}
	seen := map[byte]bool{}
	for _, a := range addrs {
		if seen[a] {
			t.Errorf("duplicate register 0x%02X in map", a)
		}
		seen[a] = true
	}
	for _, want := range []byte{RegWhoAmI, RegCtrl1XL, RegCtrl2G, RegCtrl3C, RegStatus, RegOutXLG, RegOutXLA} {
		if !seen[want] {
			t.Errorf("register 0x%02X missing from map", want)
		}
	}

	if _, err := RegisterAddresses([]RegisterInfo{{Name: "BAD", Address: "zz"}}); err == nil {
		t.Error("expected error for malformed address")
	}
}
