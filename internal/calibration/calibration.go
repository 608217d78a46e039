// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package calibration estimates the stationary bias of a 6-axis IMU.
//
// The device must be still and level (Z up) for the whole run; nothing here
// checks that. Offsets are the plain mean of TargetSamples ready samples, with
// standard gravity removed from the Z accelerometer axis.
package calibration

import (
	"context"
	"fmt"

	"github.com/relabs-tech/imu_rover/internal/imu"
)

// Params controls a calibration run.
type Params struct {
	TargetSamples int     // ready samples to average
	StallLimit    int     // consecutive not-ready polls tolerated
	Gravity       float64 // m/s², removed from the Z accel mean
}

// DefaultParams returns 100 samples, 1000 polls of patience, standard gravity.
func DefaultParams() Params {
	return Params{
		TargetSamples: 100,
		StallLimit:    1000,
		Gravity:       9.80665,
	}
}

// Result is the outcome of a run. A stalled run has zero Offsets.
type Result struct {
	Offsets imu.Offsets
	Samples int
	Stalled bool
}

// Run polls src without sleeping until TargetSamples ready samples have been
// read, then returns their per-axis mean.
//
// If src reports not-ready more than StallLimit times in a row the run gives
// up and returns zero offsets with Stalled set; that is not an error. Errors
// are only returned for a cancelled ctx or a source that refuses to be read.
func Run(ctx context.Context, src imu.SampleSource, p Params) (Result, error) {
	if p.TargetSamples <= 0 {
		return Result{}, fmt.Errorf("calibration: target samples must be positive, got %d", p.TargetSamples)
	}

	// Flush a stale data-ready latch left over from before the run.
	if _, err := src.DataReady(); err != nil {
		return Result{}, fmt.Errorf("calibration: data ready: %w", err)
	}

	var sum [6]float64
	samples := 0
	stall := 0

	for samples < p.TargetSamples {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		ready, err := src.DataReady()
		if err != nil {
			return Result{}, fmt.Errorf("calibration: data ready: %w", err)
		}
		if !ready {
			stall++
			if stall > p.StallLimit {
				return Result{Samples: samples, Stalled: true}, nil
			}
			continue
		}

		s, err := src.ReadSample()
		if err != nil {
			return Result{}, fmt.Errorf("calibration: read sample: %w", err)
		}
		axes := s.Axes()
		for i := range sum {
			sum[i] += axes[i]
		}
		samples++
		stall = 0
	}

	var mean [6]float64
	for i := range sum {
		mean[i] = sum[i] / float64(samples)
	}
	off := imu.Offsets(imu.SampleFromAxes(mean))
	off.Az -= p.Gravity

	return Result{Offsets: off, Samples: samples}, nil
}
