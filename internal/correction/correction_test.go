// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package correction

import (
	"math"
	"testing"

	"github.com/relabs-tech/imu_rover/internal/imu"
)

func TestDeadzone(t *testing.T) {
	tests := []struct {
		v        float64
		expected float64
	}{
		{0.0, 0.0},
		{0.005, 0.0},
		{-0.005, 0.0},
		{0.0099999, 0.0},
		{-0.0099999, 0.0},
		{0.01, 0.01},   // exactly at threshold is kept
		{-0.01, -0.01}, // symmetric
		{0.02, 0.02},
		{-9.81, -9.81},
	}

	for _, tt := range tests {
		got := Deadzone(tt.v, DefaultThreshold)
		if got != tt.expected {
			t.Errorf("Deadzone(%g) = %g, want %g", tt.v, got, tt.expected)
		}
	}
}

func TestApply_ZeroOffsetsIsDeadzoneOnly(t *testing.T) {
	c := New(imu.Offsets{}, DefaultThreshold)
	in := imu.Sample{Ax: 1.0, Ay: 0.005, Az: -0.02, Gx: 0.0099999, Gy: 0.01, Gz: -120.5}

	got := c.Apply(in)
	want := imu.Sample{Ax: 1.0, Ay: 0.0, Az: -0.02, Gx: 0.0, Gy: 0.01, Gz: -120.5}
	if got != want {
		t.Errorf("Apply(%+v) = %+v, want %+v", in, got, want)
	}
}

func TestApply_AccelStream(t *testing.T) {
	c := New(imu.Offsets{}, 0.01)
	stream := []float64{1.0, 0.005, -0.02}
	want := []float64{1.0, 0.0, -0.02}

	for i, v := range stream {
		got := c.Apply(imu.Sample{Ax: v}).Ax
		if got != want[i] {
			t.Errorf("sample %d: Ax = %g, want %g", i, got, want[i])
		}
	}
}

func TestApply_SubtractsOffsets(t *testing.T) {
	off := imu.Offsets{Ax: 0.1, Ay: -0.2, Az: 0.05, Gx: 1.5, Gy: -0.5, Gz: 0.25}
	c := New(off, DefaultThreshold)

	in := imu.Sample{Ax: 0.105, Ay: 0.3, Az: 9.85665, Gx: 1.5, Gy: 0.5, Gz: 10.25}
	got := c.Apply(in).Axes()
	want := [6]float64{0.0, 0.5, 9.80665, 0.0, 1.0, 10.0}

	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("axis %d = %.9f, want %.9f", i, got[i], want[i])
		}
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	c := New(imu.Offsets{Ax: 1}, DefaultThreshold)
	in := imu.Sample{Ax: 3}
	_ = c.Apply(in)
	if in.Ax != 3 {
		t.Errorf("input mutated: %+v", in)
	}
	if c.Offsets().Ax != 1 || c.Threshold() != DefaultThreshold {
		t.Errorf("corrector state changed: %+v %g", c.Offsets(), c.Threshold())
	}
}
