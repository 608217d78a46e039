// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Bus is the byte-level register access the sensor drivers need.
// Implementations must not retry; a failed transaction is reported as-is.
type Bus interface {
	ReadRegister(addr uint16, reg byte) (byte, error)
	WriteRegister(addr uint16, reg, value byte) error
	Close() error
}

var (
	hostOnce    sync.Once
	hostInitErr error
)

// initHost initializes the periph host drivers once per process.
func initHost() error {
	hostOnce.Do(func() {
		if _, err := host.Init(); err != nil {
			hostInitErr = fmt.Errorf("periph host init: %w", err)
		}
	})
	return hostInitErr
}

// OpenPeriphBus opens a numbered I2C bus ("1" for /dev/i2c-1) as a periph
// bus, for devices driven by periph.io drivers directly. An empty name opens
// the first bus found.
func OpenPeriphBus(name string) (i2c.BusCloser, error) {
	if err := initHost(); err != nil {
		return nil, err
	}
	b, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("i2c open %q: %w", name, err)
	}
	return b, nil
}

// OpenI2CBus opens a numbered I2C bus for register access.
func OpenI2CBus(name string) (Bus, error) {
	b, err := OpenPeriphBus(name)
	if err != nil {
		return nil, err
	}
	return NewI2CBus(b), nil
}

// NewI2CBus wraps an already opened periph bus.
func NewI2CBus(b i2c.BusCloser) Bus {
	return &i2cBus{bus: b}
}

type i2cBus struct {
	bus i2c.BusCloser
}

func (b *i2cBus) ReadRegister(addr uint16, reg byte) (byte, error) {
	var r [1]byte
	if err := b.bus.Tx(addr, []byte{reg}, r[:]); err != nil {
		return 0, err
	}
	return r[0], nil
}

func (b *i2cBus) WriteRegister(addr uint16, reg, value byte) error {
	return b.bus.Tx(addr, []byte{reg, value}, nil)
}

func (b *i2cBus) Close() error {
	return b.bus.Close()
}
