// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import "fmt"

type busWrite struct {
	addr  uint16
	reg   byte
	value byte
}

// fakeBus is an in-memory register file for one or more devices.
type fakeBus struct {
	regs     map[byte]byte
	readErr  map[byte]error
	writeErr map[byte]error
	writes   []busWrite
	reads    int
	closed   bool
	closeErr error
	addr     uint16 // 0 accepts any address
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		regs:     map[byte]byte{},
		readErr:  map[byte]error{},
		writeErr: map[byte]error{},
	}
}

func (b *fakeBus) ReadRegister(addr uint16, reg byte) (byte, error) {
	b.reads++
	if b.addr != 0 && addr != b.addr {
		return 0, fmt.Errorf("no device at 0x%02X", addr)
	}
	if err := b.readErr[reg]; err != nil {
		return 0, err
	}
	return b.regs[reg], nil
}

func (b *fakeBus) WriteRegister(addr uint16, reg, value byte) error {
	if err := b.writeErr[reg]; err != nil {
		return err
	}
	b.writes = append(b.writes, busWrite{addr: addr, reg: reg, value: value})
	b.regs[reg] = value
	return nil
}

func (b *fakeBus) Close() error {
	b.closed = true
	return b.closeErr
}
