// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package correction removes calibration bias from live samples and
// suppresses noise around zero.
package correction

import (
	"math"

	"github.com/relabs-tech/imu_rover/internal/imu"
)

// DefaultThreshold is the deadzone half-width in sample units.
const DefaultThreshold = 0.01

// Deadzone returns 0 when |v| < threshold. The comparison is strict, so a
// value exactly at the threshold passes through.
func Deadzone(v, threshold float64) float64 {
	if math.Abs(v) < threshold {
		return 0.0
	}
	return v
}

// Corrector applies fixed offsets and a deadzone. It holds no other state.
type Corrector struct {
	offsets   imu.Offsets
	threshold float64
}

// New returns a Corrector for one session.
func New(offsets imu.Offsets, threshold float64) Corrector {
	return Corrector{offsets: offsets, threshold: threshold}
}

// Offsets returns the offsets being removed.
func (c Corrector) Offsets() imu.Offsets { return c.offsets }

// Threshold returns the deadzone threshold.
func (c Corrector) Threshold() float64 { return c.threshold }

// Apply returns the corrected sample.
func (c Corrector) Apply(s imu.Sample) imu.Sample {
	raw := s.Axes()
	off := c.offsets.Axes()
	var out [6]float64
	for i := range raw {
		out[i] = Deadzone(raw[i]-off[i], c.threshold)
	}
	return imu.SampleFromAxes(out)
}
