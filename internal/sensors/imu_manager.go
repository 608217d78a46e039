// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"
	"sync"

	"github.com/relabs-tech/imu_rover/internal/imu"
)

// IMUManager owns the bus handle and the LSM6DSV driver for the process and
// serializes access to them (the register debug tool serves several
// websocket sessions at once).
type IMUManager struct {
	mu   sync.Mutex
	open func(name string) (Bus, error)

	busName string
	bus     Bus
	dev     *LSM6DSV
}

var (
	globalManager *IMUManager
	managerOnce   sync.Once
)

// GetIMUManager returns the process-wide manager backed by real I2C buses.
func GetIMUManager() *IMUManager {
	managerOnce.Do(func() {
		globalManager = NewIMUManager(OpenI2CBus)
	})
	return globalManager
}

// NewIMUManager creates a manager that opens buses with open.
func NewIMUManager(open func(name string) (Bus, error)) *IMUManager {
	return &IMUManager{open: open}
}

// Init opens the bus and brings the sensor to READY. Calling Init on an
// initialized manager is a no-op.
func (m *IMUManager) Init(busName string, cfg DeviceConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dev != nil {
		return nil
	}

	bus, err := m.open(busName)
	if err != nil {
		return fmt.Errorf("imu: open bus %q: %w", busName, err)
	}

	dev := NewLSM6DSV(bus, cfg, func(reg byte, err error) {
		log.Printf("imu: read 0x%02X failed, axis reads 0: %v", reg, err)
	})

	// Identification is informational only; some clones answer differently.
	if id, err := dev.WhoAmI(); err != nil {
		log.Printf("imu: WARNING: failed to read WHO_AM_I: %v", err)
	} else if id != WhoAmIResponse {
		log.Printf("imu: WARNING: WHO_AM_I = 0x%02X, expected 0x%02X", id, WhoAmIResponse)
	} else {
		log.Printf("imu: WHO_AM_I = 0x%02X", id)
	}

	if err := dev.Init(); err != nil {
		if cerr := bus.Close(); cerr != nil {
			log.Printf("imu: close bus %q after failed init: %v", busName, cerr)
		}
		return err
	}
	if rate, ok := cfg.OutputRate(); ok {
		log.Printf("imu: LSM6DSV ready on bus %q addr 0x%02X (selector 0x%02X, %s)",
			busName, cfg.Addr, cfg.ODRSelector, rate)
	} else {
		log.Printf("imu: LSM6DSV ready on bus %q addr 0x%02X (selector 0x%02X, reserved rate code)",
			busName, cfg.Addr, cfg.ODRSelector)
	}

	m.busName = busName
	m.bus = bus
	m.dev = dev
	return nil
}

// Available reports whether the sensor is initialized.
func (m *IMUManager) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dev != nil && m.dev.State() == StateReady
}

// DataReady implements imu.SampleSource.
func (m *IMUManager) DataReady() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dev == nil {
		return false, ErrNotReady
	}
	return m.dev.DataReady()
}

// ReadSample implements imu.SampleSource.
func (m *IMUManager) ReadSample() (imu.Sample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dev == nil {
		return imu.Sample{}, ErrNotReady
	}
	return m.dev.ReadSample()
}

// BusErrors returns the number of degraded reads since Init.
func (m *IMUManager) BusErrors() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dev == nil {
		return 0
	}
	return m.dev.BusErrors()
}

// ReadRegister reads a single raw register.
func (m *IMUManager) ReadRegister(reg byte) (byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dev == nil {
		return 0, ErrNotReady
	}
	return m.dev.ReadRegister(reg)
}

// WriteRegister writes a single raw register.
func (m *IMUManager) WriteRegister(reg, value byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dev == nil {
		return ErrNotReady
	}
	return m.dev.WriteRegister(reg, value)
}

// ReadAllRegisters reads every register listed in LSM6DSVRegisterMap.
func (m *IMUManager) ReadAllRegisters() (map[byte]byte, error) {
	addrs, err := RegisterAddresses(LSM6DSVRegisterMap())
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dev == nil {
		return nil, ErrNotReady
	}
	out := make(map[byte]byte, len(addrs))
	for _, a := range addrs {
		v, err := m.dev.ReadRegister(a)
		if err != nil {
			return nil, err
		}
		out[a] = v
	}
	return out, nil
}

// Reinitialize runs the reset/configure sequence again on the open bus.
func (m *IMUManager) Reinitialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dev == nil {
		return ErrNotReady
	}
	return m.dev.Init()
}

// Close releases the bus handle.
func (m *IMUManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bus == nil {
		return nil
	}
	err := m.bus.Close()
	m.bus = nil
	m.dev = nil
	return err
}
