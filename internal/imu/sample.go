// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

// Sample is one accel+gyro reading in physical units.
type Sample struct {
	Ax float64 `json:"ax"` // accel, m/s²
	Ay float64 `json:"ay"`
	Az float64 `json:"az"`

	Gx float64 `json:"gx"` // gyro, °/s
	Gy float64 `json:"gy"`
	Gz float64 `json:"gz"`
}

// Offsets holds the stationary bias per axis. Az is relative to standard
// gravity, so a perfectly level sensor has Az == 0.
type Offsets Sample

// Axes returns the sample as {ax, ay, az, gx, gy, gz}.
func (s Sample) Axes() [6]float64 {
	return [6]float64{s.Ax, s.Ay, s.Az, s.Gx, s.Gy, s.Gz}
}

// SampleFromAxes is the inverse of Sample.Axes.
func SampleFromAxes(a [6]float64) Sample {
	return Sample{Ax: a[0], Ay: a[1], Az: a[2], Gx: a[3], Gy: a[4], Gz: a[5]}
}

func (o Offsets) Axes() [6]float64 {
	return Sample(o).Axes()
}

// IsZero reports whether every offset is exactly zero, which is what a
// stalled calibration produces.
func (o Offsets) IsZero() bool {
	return o == Offsets{}
}

// Reading is the telemetry record published for every ready tick.
type Reading struct {
	Source    string `json:"source"`
	Time      string `json:"time"` // RFC3339Nano
	Raw       Sample `json:"raw"`
	Corrected Sample `json:"corrected"`
}

// CalibrationReport is published (retained) once per session.
type CalibrationReport struct {
	Source  string  `json:"source"`
	Time    string  `json:"time"`
	Offsets Offsets `json:"offsets"`
	Samples int     `json:"samples"`
	Stalled bool    `json:"stalled"`
}

// SampleSource is anything that can be polled for fresh samples.
type SampleSource interface {
	DataReady() (bool, error)
	ReadSample() (Sample, error)
}
