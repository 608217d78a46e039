// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import "fmt"

// RegisterInfo describes one device register for the debug tool.
type RegisterInfo struct {
	Address     string     `json:"address"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Access      string     `json:"access"` // "R", "W", "RW"
	Default     string     `json:"default,omitempty"`
	BitFields   []BitField `json:"bit_fields,omitempty"`
}

// BitField describes a field inside a register.
type BitField struct {
	Bits        string `json:"bits"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Values      string `json:"values,omitempty"`
}

// LSM6DSVRegisterMap returns metadata for the registers this project touches.
func LSM6DSVRegisterMap() []RegisterInfo {
	return []RegisterInfo{
		// Identification
		{Address: "0x0F", Name: "WHO_AM_I", Description: "Device ID (should be 0x70)", Access: "R", Default: "0x70"},

		// Control
		{Address: "0x10", Name: "CTRL1_XL", Description: "Accelerometer control", Access: "RW", Default: "0x00",
			BitFields: []BitField{
				{Bits: "7:4", Name: "FS_XL", Description: "Accelerometer full-scale / mode", Values: "0=±2g"},
				{Bits: "3:0", Name: "ODR_XL", Description: "Accelerometer output data rate", Values: "0=Power-down, 1=1.875Hz, 2=7.5Hz, 3=15Hz, 4=30Hz (rover default), 5=60Hz, 6=120Hz, 7=240Hz, 8=480Hz, 9=960Hz, 10=1.92kHz, 11=3.84kHz, 12=7.68kHz"},
			}},
		{Address: "0x11", Name: "CTRL2_G", Description: "Gyroscope control", Access: "RW", Default: "0x00",
			BitFields: []BitField{
				{Bits: "7:4", Name: "FS_G", Description: "Gyroscope full-scale / mode", Values: "0=±125°/s"},
				{Bits: "3:0", Name: "ODR_G", Description: "Gyroscope output data rate", Values: "0=Power-down, 1=1.875Hz, 2=7.5Hz, 3=15Hz, 4=30Hz (rover default), 5=60Hz, 6=120Hz, 7=240Hz, 8=480Hz, 9=960Hz, 10=1.92kHz, 11=3.84kHz, 12=7.68kHz"},
			}},
		{Address: "0x12", Name: "CTRL3_C", Description: "Control register 3", Access: "RW", Default: "0x44",
			BitFields: []BitField{
				{Bits: "7", Name: "BOOT", Description: "Reboot memory content", Values: "1=Reboot"},
				{Bits: "6", Name: "BDU", Description: "Block data update", Values: "0=Continuous, 1=Not updated until MSB and LSB read"},
				{Bits: "2", Name: "IF_INC", Description: "Register address auto-increment", Values: "0=Disabled, 1=Enabled"},
				{Bits: "0", Name: "SW_RESET", Description: "Software reset", Values: "1=Reset device"},
			}},

		// Status
		{Address: "0x1E", Name: "STATUS_REG", Description: "Data-ready status", Access: "R", Default: "0x00",
			BitFields: []BitField{
				{Bits: "2", Name: "TDA", Description: "New temperature data available", Values: ""},
				{Bits: "1", Name: "GDA", Description: "New gyroscope data available", Values: ""},
				{Bits: "0", Name: "XLDA", Description: "New accelerometer data available", Values: ""},
			}},

		// Output (little-endian pairs, read-only)
		{Address: "0x20", Name: "OUT_TEMP_L", Description: "Temperature Low Byte", Access: "R"},
		{Address: "0x21", Name: "OUT_TEMP_H", Description: "Temperature High Byte", Access: "R"},
		{Address: "0x22", Name: "OUTX_L_G", Description: "Gyroscope X-Axis Low Byte", Access: "R"},
		{Address: "0x23", Name: "OUTX_H_G", Description: "Gyroscope X-Axis High Byte", Access: "R"},
		{Address: "0x24", Name: "OUTY_L_G", Description: "Gyroscope Y-Axis Low Byte", Access: "R"},
		{Address: "0x25", Name: "OUTY_H_G", Description: "Gyroscope Y-Axis High Byte", Access: "R"},
		{Address: "0x26", Name: "OUTZ_L_G", Description: "Gyroscope Z-Axis Low Byte", Access: "R"},
		{Address: "0x27", Name: "OUTZ_H_G", Description: "Gyroscope Z-Axis High Byte", Access: "R"},
		{Address: "0x28", Name: "OUTX_L_A", Description: "Accelerometer X-Axis Low Byte", Access: "R"},
		{Address: "0x29", Name: "OUTX_H_A", Description: "Accelerometer X-Axis High Byte", Access: "R"},
		{Address: "0x2A", Name: "OUTY_L_A", Description: "Accelerometer Y-Axis Low Byte", Access: "R"},
		{Address: "0x2B", Name: "OUTY_H_A", Description: "Accelerometer Y-Axis High Byte", Access: "R"},
		{Address: "0x2C", Name: "OUTZ_L_A", Description: "Accelerometer Z-Axis Low Byte", Access: "R"},
		{Address: "0x2D", Name: "OUTZ_H_A", Description: "Accelerometer Z-Axis High Byte", Access: "R"},
	}
}

// RegisterAddresses parses the addresses of a register map.
func RegisterAddresses(regs []RegisterInfo) ([]byte, error) {
	out := make([]byte, 0, len(regs))
	for _, r := range regs {
		var a byte
		if _, err := fmt.Sscanf(r.Address, "0x%X", &a); err != nil {
			return nil, fmt.Errorf("register %s: bad address %q: %w", r.Name, r.Address, err)
		}
		out = append(out, a)
	}
	return out, nil
}
