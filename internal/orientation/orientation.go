// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"

	"github.com/relabs-tech/imu_rover/internal/imu"
)

// Pose is a roll/pitch estimate in degrees.
type Pose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
}

// ComputePoseFromAccel computes roll and pitch from accelerometer data only.
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
func ComputePoseFromAccel(ax, ay, az float64) Pose {
	rollRad := math.Atan2(ay, az)
	pitchRad := math.Atan2(-ax, math.Sqrt(ay*ay+az*az))

	return Pose{
		Roll:  rollRad * 180.0 / math.Pi,
		Pitch: pitchRad * 180.0 / math.Pi,
	}
}

// TiltFromSample estimates tilt from a corrected sample. Corrected Z keeps
// gravity (only the residual bias is removed), so a level rover reads 0/0.
func TiltFromSample(s imu.Sample) Pose {
	return ComputePoseFromAccel(s.Ax, s.Ay, s.Az)
}
