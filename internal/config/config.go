// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config holds all application configuration values.
type Config struct {
	// IMU Hardware
	IMUI2CBus       string
	IMUI2CAddr      uint16
	IMUODRSelector  byte    // [7:4] scale, [3:0] rate; written to both control registers
	IMUAccelSens    float64 // g per LSB
	IMUGyroSens     float64 // °/s per LSB
	IMUResetSettle  int     // milliseconds
	IMUConfigSettle int     // milliseconds

	// Calibration
	CalibrationTargetSamples int
	CalibrationStallLimit    int

	// Correction
	DeadzoneThreshold float64
	PollInterval      int // milliseconds

	// MQTT (optional; empty broker disables publishing)
	MQTTBroker          string
	MQTTClientIDReader  string
	MQTTClientIDConsole string
	MQTTClientIDDisplay string
	MQTTClientIDWeb     string

	// Topics
	TopicIMURaw         string
	TopicIMUCorrected   string
	TopicIMUCalibration string

	// Display
	DisplayI2CBus         string
	DisplayI2CAddr        uint16
	DisplayUpdateInterval int // milliseconds

	// Web API
	WebPort int

	// Register debug tool
	RegisterDebugPort          int
	RegisterDebugAllowedRanges []AddrRange
}

// SSD1306Addr is the only address the periph ssd1306 I2C driver uses.
const SSD1306Addr = 0x3C

// AddrRange is an inclusive register address range.
type AddrRange struct {
	Start byte
	End   byte
}

// Contains reports whether addr lies in the range.
func (r AddrRange) Contains(addr byte) bool {
	return addr >= r.Start && addr <= r.End
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through InitGlobal/Get.
//   - configOnce: ensures InitGlobal() only runs once.
//   - configMu: write lock for initialization, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the rover defaults. Load starts from these.
func Default() *Config {
	return &Config{
		IMUI2CBus:       "1",
		IMUI2CAddr:      0x6B,
		IMUODRSelector:  0x04,
		IMUAccelSens:    0.061 / 1000.0,
		IMUGyroSens:     4.375 / 1000.0,
		IMUResetSettle:  100,
		IMUConfigSettle: 200,

		CalibrationTargetSamples: 100,
		CalibrationStallLimit:    1000,

		DeadzoneThreshold: 0.01,
		PollInterval:      50,

		MQTTClientIDReader:  "imu-rover-reader",
		MQTTClientIDConsole: "imu-rover-console",
		MQTTClientIDDisplay: "imu-rover-display",
		MQTTClientIDWeb:     "imu-rover-web",

		TopicIMURaw:         "rover/imu/raw",
		TopicIMUCorrected:   "rover/imu/corrected",
		TopicIMUCalibration: "rover/imu/calibration",

		DisplayI2CBus:         "1",
		DisplayI2CAddr:        SSD1306Addr,
		DisplayUpdateInterval: 200,

		WebPort: 8080,

		RegisterDebugPort:          8081,
		RegisterDebugAllowedRanges: []AddrRange{{Start: 0x10, End: 0x12}},
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// IMU Hardware
	case "IMU_I2C_BUS":
		c.IMUI2CBus = value
	case "IMU_I2C_ADDR":
		addr, err := parseI2CAddr(key, value)
		if err != nil {
			return err
		}
		c.IMUI2CAddr = addr
	case "IMU_ODR_SELECTOR":
		val, err := strconv.ParseUint(value, 0, 8)
		if err != nil {
			return fmt.Errorf("invalid IMU_ODR_SELECTOR %q: %w", value, err)
		}
		c.IMUODRSelector = byte(val)
	case "IMU_ACCEL_SENSITIVITY":
		val, err := parsePositiveFloat(key, value)
		if err != nil {
			return err
		}
		c.IMUAccelSens = val
	case "IMU_GYRO_SENSITIVITY":
		val, err := parsePositiveFloat(key, value)
		if err != nil {
			return err
		}
		c.IMUGyroSens = val
	case "IMU_RESET_SETTLE_MS":
		val, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_RESET_SETTLE_MS %q: %w", value, err)
		}
		if val < 100 {
			return fmt.Errorf("IMU_RESET_SETTLE_MS must be at least 100, got %d", val)
		}
		c.IMUResetSettle = val
	case "IMU_CONFIG_SETTLE_MS":
		val, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_CONFIG_SETTLE_MS %q: %w", value, err)
		}
		if val < 0 {
			return fmt.Errorf("IMU_CONFIG_SETTLE_MS must be >= 0, got %d", val)
		}
		c.IMUConfigSettle = val

	// Calibration
	case "CALIBRATION_TARGET_SAMPLES":
		val, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid CALIBRATION_TARGET_SAMPLES %q: %w", value, err)
		}
		if val < 1 {
			return fmt.Errorf("CALIBRATION_TARGET_SAMPLES must be >= 1, got %d", val)
		}
		c.CalibrationTargetSamples = val
	case "CALIBRATION_STALL_LIMIT":
		val, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid CALIBRATION_STALL_LIMIT %q: %w", value, err)
		}
		if val < 1 {
			return fmt.Errorf("CALIBRATION_STALL_LIMIT must be >= 1, got %d", val)
		}
		c.CalibrationStallLimit = val

	// Correction
	case "DEADZONE_THRESHOLD":
		val, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid DEADZONE_THRESHOLD %q: %w", value, err)
		}
		if val < 0 {
			return fmt.Errorf("DEADZONE_THRESHOLD must be >= 0, got %g", val)
		}
		c.DeadzoneThreshold = val
	case "POLL_INTERVAL_MS":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid POLL_INTERVAL_MS %q: %w", value, err)
		}
		c.PollInterval = interval

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_READER":
		c.MQTTClientIDReader = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value

	// Topics
	case "TOPIC_IMU_RAW":
		c.TopicIMURaw = value
	case "TOPIC_IMU_CORRECTED":
		c.TopicIMUCorrected = value
	case "TOPIC_IMU_CALIBRATION":
		c.TopicIMUCalibration = value

	// Display
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value
	case "DISPLAY_I2C_ADDR":
		addr, err := parseI2CAddr(key, value)
		if err != nil {
			return err
		}
		c.DisplayI2CAddr = addr
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval

	// Web API
	case "WEB_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_PORT %q: %w", value, err)
		}
		c.WebPort = port

	// Register debug
	case "REGISTER_DEBUG_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid REGISTER_DEBUG_PORT %q: %w", value, err)
		}
		c.RegisterDebugPort = port
	case "REGISTER_DEBUG_ALLOWED_RANGES":
		ranges, err := parseAddrRanges(value)
		if err != nil {
			return fmt.Errorf("invalid REGISTER_DEBUG_ALLOWED_RANGES %q: %w", value, err)
		}
		c.RegisterDebugAllowedRanges = ranges

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

func parseI2CAddr(key, value string) (uint16, error) {
	addr, err := strconv.ParseUint(value, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if addr < 0x03 || addr > 0x77 {
		return 0, fmt.Errorf("%s must be a 7-bit address (0x03-0x77), got 0x%X", key, addr)
	}
	return uint16(addr), nil
}

func parsePositiveFloat(key, value string) (float64, error) {
	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if val <= 0 {
		return 0, fmt.Errorf("%s must be > 0, got %g", key, val)
	}
	return val, nil
}

// parseAddrRanges parses "0x10-0x12,0x15" style lists.
func parseAddrRanges(value string) ([]AddrRange, error) {
	var out []AddrRange
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		lo, hi, found := strings.Cut(item, "-")
		start, err := strconv.ParseUint(strings.TrimSpace(lo), 0, 8)
		if err != nil {
			return nil, err
		}
		end := start
		if found {
			end, err = strconv.ParseUint(strings.TrimSpace(hi), 0, 8)
			if err != nil {
				return nil, err
			}
		}
		if end < start {
			return nil, fmt.Errorf("range %q is reversed", item)
		}
		out = append(out, AddrRange{Start: byte(start), End: byte(end)})
	}
	return out, nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.IMUI2CBus == "" {
		return fmt.Errorf("IMU_I2C_BUS is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL_MS must be > 0")
	}
	if c.MQTTBroker != "" && (c.TopicIMURaw == "" || c.TopicIMUCorrected == "" || c.TopicIMUCalibration == "") {
		return fmt.Errorf("TOPIC_IMU_RAW, TOPIC_IMU_CORRECTED and TOPIC_IMU_CALIBRATION are required when MQTT_BROKER is set")
	}
	if c.DisplayUpdateInterval <= 0 {
		return fmt.Errorf("DISPLAY_UPDATE_INTERVAL must be > 0")
	}
	if c.DisplayI2CAddr != SSD1306Addr {
		return fmt.Errorf("DISPLAY_I2C_ADDR must be 0x%02X (ssd1306 driver address), got 0x%02X", SSD1306Addr, c.DisplayI2CAddr)
	}
	return nil
}

// PollPeriod is PollInterval as a duration.
func (c *Config) PollPeriod() time.Duration {
	return time.Duration(c.PollInterval) * time.Millisecond
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
