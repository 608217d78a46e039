// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"periph.io/x/conn/v3/physic"

	"github.com/relabs-tech/imu_rover/internal/imu"
)

// LSM6DSV register map (subset used by the driver).
const (
	RegWhoAmI  = 0x0F
	RegCtrl1XL = 0x10 // accel: [7:4] scale, [3:0] rate
	RegCtrl2G  = 0x11 // gyro:  [7:4] scale, [3:0] rate
	RegCtrl3C  = 0x12 // BOOT, BDU, IF_INC, SW_RESET
	RegStatus  = 0x1E // bit0 XLDA, bit1 GDA, bit2 TDA
	RegOutTemp = 0x20
	RegOutXLG  = 0x22 // gyro X/Y/Z, little-endian pairs
	RegOutXLA  = 0x28 // accel X/Y/Z, little-endian pairs

	DefaultAddr    = 0x6B
	WhoAmIResponse = 0x70

	statusDataReadyMask = 0x03
)

const (
	// StandardGravity in m/s².
	StandardGravity = 9.80665
	// ctrl3SoftReset sets SW_RESET.
	ctrl3SoftReset = 0x01
	// ctrl3BDU sets BDU and IF_INC so multi-byte reads stay coherent.
	ctrl3BDU = 0x44
	// odrDefault: scale 0 (±2g / ±125 dps), rate code 4.
	odrDefault = 0x04
)

// ErrNotReady is returned when the device is used before Init succeeded.
var ErrNotReady = errors.New("lsm6dsv: device not initialized")

// DeviceConfig holds the fixed wiring and scaling constants of one sensor.
// It is copied into the driver and never changes afterwards.
type DeviceConfig struct {
	Addr uint16

	RegCtrlAccel byte
	RegCtrlGyro  byte
	RegCtrl3     byte
	RegStatus    byte
	RegOutGyro   byte
	RegOutAccel  byte

	ResetCommand byte
	BDUCommand   byte
	ODRSelector  byte // written to both control registers

	AccelSensitivity float64 // g per LSB
	GyroSensitivity  float64 // °/s per LSB
	Gravity          float64 // m/s²
	Deadzone         float64

	ResetSettle  time.Duration
	ConfigSettle time.Duration
}

// DefaultDeviceConfig matches the rover wiring: address 0x6B, ±2g, ±125 dps.
func DefaultDeviceConfig() DeviceConfig {
	return DeviceConfig{
		Addr:             DefaultAddr,
		RegCtrlAccel:     RegCtrl1XL,
		RegCtrlGyro:      RegCtrl2G,
		RegCtrl3:         RegCtrl3C,
		RegStatus:        RegStatus,
		RegOutGyro:       RegOutXLG,
		RegOutAccel:      RegOutXLA,
		ResetCommand:     ctrl3SoftReset,
		BDUCommand:       ctrl3BDU,
		ODRSelector:      odrDefault,
		AccelSensitivity: 0.061 / 1000.0,
		GyroSensitivity:  4.375 / 1000.0,
		Gravity:          StandardGravity,
		Deadzone:         0.01,
		ResetSettle:      100 * time.Millisecond,
		ConfigSettle:     200 * time.Millisecond,
	}
}

// odrRates maps the [3:0] ODR code of CTRL1_XL / CTRL2_G to its rate in
// high-performance mode. Code 0 is power-down.
var odrRates = [...]physic.Frequency{
	0,
	1875 * physic.MilliHertz,
	7500 * physic.MilliHertz,
	15 * physic.Hertz,
	30 * physic.Hertz,
	60 * physic.Hertz,
	120 * physic.Hertz,
	240 * physic.Hertz,
	480 * physic.Hertz,
	960 * physic.Hertz,
	1920 * physic.Hertz,
	3840 * physic.Hertz,
	7680 * physic.Hertz,
}

// ODRFrequency decodes the rate nibble of selector. ok is false for the
// reserved codes above 12.
func ODRFrequency(selector byte) (f physic.Frequency, ok bool) {
	code := int(selector & 0x0F)
	if code >= len(odrRates) {
		return 0, false
	}
	return odrRates[code], true
}

// OutputRate is the data rate selected by ODRSelector.
func (c DeviceConfig) OutputRate() (physic.Frequency, bool) {
	return ODRFrequency(c.ODRSelector)
}

// AccelFactor converts accel counts straight to m/s².
func (c DeviceConfig) AccelFactor() float64 {
	return c.AccelSensitivity * c.Gravity
}

// State of the driver.
type State int

const (
	StateUninitialized State = iota
	StateReset
	StateConfigured
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReset:
		return "reset"
	case StateConfigured:
		return "configured"
	case StateReady:
		return "ready"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// LSM6DSV is a polling driver for the LSM6DSV accel/gyro.
// It is not safe for concurrent use; IMUManager serializes access.
type LSM6DSV struct {
	bus   Bus
	cfg   DeviceConfig
	codec Codec
	state State

	busErrors atomic.Uint64
	onError   func(reg byte, err error)

	// sleep is swapped out in tests.
	sleep func(time.Duration)
}

// NewLSM6DSV creates the driver. It does not touch the device; call Init.
// onError, if non-nil, is told about every failed register read that was
// degraded to a zero value.
func NewLSM6DSV(bus Bus, cfg DeviceConfig, onError func(reg byte, err error)) *LSM6DSV {
	d := &LSM6DSV{
		bus:     bus,
		cfg:     cfg,
		onError: onError,
		sleep:   time.Sleep,
	}
	d.codec = Codec{Bus: bus, Addr: cfg.Addr, OnError: d.readFailed}
	return d
}

func (d *LSM6DSV) readFailed(reg byte, err error) {
	d.busErrors.Add(1)
	if d.onError != nil {
		d.onError(reg, err)
	}
}

// Config returns the device configuration.
func (d *LSM6DSV) Config() DeviceConfig { return d.cfg }

// State returns the current driver state.
func (d *LSM6DSV) State() State { return d.state }

// BusErrors is the number of reads degraded to zero so far.
func (d *LSM6DSV) BusErrors() uint64 { return d.busErrors.Load() }

// Init resets and configures the device. There is no retry: a failure leaves
// the driver uninitialized and must be treated as fatal by the caller.
func (d *LSM6DSV) Init() error {
	d.state = StateUninitialized

	if err := d.bus.WriteRegister(d.cfg.Addr, d.cfg.RegCtrl3, d.cfg.ResetCommand); err != nil {
		return fmt.Errorf("lsm6dsv: software reset: %w", err)
	}
	d.state = StateReset
	d.sleep(d.cfg.ResetSettle)

	if err := d.bus.WriteRegister(d.cfg.Addr, d.cfg.RegCtrlAccel, d.cfg.ODRSelector); err != nil {
		d.state = StateUninitialized
		return fmt.Errorf("lsm6dsv: configure accel: %w", err)
	}
	if err := d.bus.WriteRegister(d.cfg.Addr, d.cfg.RegCtrlGyro, d.cfg.ODRSelector); err != nil {
		d.state = StateUninitialized
		return fmt.Errorf("lsm6dsv: configure gyro: %w", err)
	}
	d.state = StateConfigured

	if err := d.bus.WriteRegister(d.cfg.Addr, d.cfg.RegCtrl3, d.cfg.BDUCommand); err != nil {
		d.state = StateUninitialized
		return fmt.Errorf("lsm6dsv: enable block data update: %w", err)
	}
	d.sleep(d.cfg.ConfigSettle)

	d.state = StateReady
	return nil
}

// DataReady reports whether a new accel or gyro sample is waiting.
// It never blocks. A failed status read counts as "not ready".
func (d *LSM6DSV) DataReady() (bool, error) {
	if d.state != StateReady {
		return false, ErrNotReady
	}
	status, err := d.bus.ReadRegister(d.cfg.Addr, d.cfg.RegStatus)
	if err != nil {
		d.readFailed(d.cfg.RegStatus, err)
		return false, nil
	}
	return status&statusDataReadyMask != 0, nil
}

// ReadSample reads all six axes. Individual axis failures read as 0.0.
func (d *LSM6DSV) ReadSample() (imu.Sample, error) {
	if d.state != StateReady {
		return imu.Sample{}, ErrNotReady
	}
	af := d.cfg.AccelFactor()
	gf := d.cfg.GyroSensitivity
	a := d.cfg.RegOutAccel
	g := d.cfg.RegOutGyro
	return imu.Sample{
		Ax: d.codec.ReadScaled(a, af),
		Ay: d.codec.ReadScaled(a+2, af),
		Az: d.codec.ReadScaled(a+4, af),
		Gx: d.codec.ReadScaled(g, gf),
		Gy: d.codec.ReadScaled(g+2, gf),
		Gz: d.codec.ReadScaled(g+4, gf),
	}, nil
}

// WhoAmI reads the identification register (0x70 expected).
func (d *LSM6DSV) WhoAmI() (byte, error) {
	return d.ReadRegister(RegWhoAmI)
}

// ReadRegister reads one raw register. Unlike sample reads, errors are returned.
func (d *LSM6DSV) ReadRegister(reg byte) (byte, error) {
	v, err := d.bus.ReadRegister(d.cfg.Addr, reg)
	if err != nil {
		return 0, fmt.Errorf("lsm6dsv: read 0x%02X: %w", reg, err)
	}
	return v, nil
}

// WriteRegister writes one raw register.
func (d *LSM6DSV) WriteRegister(reg, value byte) error {
	if err := d.bus.WriteRegister(d.cfg.Addr, reg, value); err != nil {
		return fmt.Errorf("lsm6dsv: write 0x%02X: %w", reg, err)
	}
	return nil
}
