// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/imu_rover/internal/calibration"
	"github.com/relabs-tech/imu_rover/internal/config"
	"github.com/relabs-tech/imu_rover/internal/correction"
	"github.com/relabs-tech/imu_rover/internal/imu"
	"github.com/relabs-tech/imu_rover/internal/sensors"
)

const readerSource = "lsm6dsv"

// DeviceConfigFrom applies the config file on top of the driver defaults.
func DeviceConfigFrom(cfg *config.Config) sensors.DeviceConfig {
	dc := sensors.DefaultDeviceConfig()
	dc.Addr = cfg.IMUI2CAddr
	dc.ODRSelector = cfg.IMUODRSelector
	dc.AccelSensitivity = cfg.IMUAccelSens
	dc.GyroSensitivity = cfg.IMUGyroSens
	dc.Deadzone = cfg.DeadzoneThreshold
	dc.ResetSettle = time.Duration(cfg.IMUResetSettle) * time.Millisecond
	dc.ConfigSettle = time.Duration(cfg.IMUConfigSettle) * time.Millisecond
	return dc
}

func calibrationParamsFrom(cfg *config.Config, dc sensors.DeviceConfig) calibration.Params {
	return calibration.Params{
		TargetSamples: cfg.CalibrationTargetSamples,
		StallLimit:    cfg.CalibrationStallLimit,
		Gravity:       dc.Gravity,
	}
}

// RunIMUReader brings up the sensor, calibrates it and streams corrected
// samples until ctx is cancelled. An init failure is returned as-is; the
// caller treats it as fatal.
func RunIMUReader(ctx context.Context) error {
	cfg := config.Get()
	dc := DeviceConfigFrom(cfg)

	mgr := sensors.GetIMUManager()
	if err := mgr.Init(cfg.IMUI2CBus, dc); err != nil {
		return fmt.Errorf("imu_reader: sensor init: %w", err)
	}
	defer mgr.Close()

	sinks := multiSink{newConsoleSink(os.Stdout)}

	if cfg.MQTTBroker != "" {
		opts := mqtt.NewClientOptions().
			AddBroker(cfg.MQTTBroker).
			SetClientID(cfg.MQTTClientIDReader)

		client := mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			return fmt.Errorf("imu_reader: MQTT connect: %w", token.Error())
		}
		log.Printf("imu_reader: connected to MQTT broker at %s", cfg.MQTTBroker)

		sinks = append(sinks, newMQTTSink(client, mqttTopics{
			Raw:         cfg.TopicIMURaw,
			Corrected:   cfg.TopicIMUCorrected,
			Calibration: cfg.TopicIMUCalibration,
		}, func() { client.Disconnect(250) }))
	} else {
		log.Println("imu_reader: MQTT_BROKER empty, console output only")
	}
	defer sinks.Close()

	err := runReader(ctx, mgr, dc, calibrationParamsFrom(cfg, dc), cfg.PollPeriod(), sinks)
	if n := mgr.BusErrors(); n > 0 {
		log.Printf("imu_reader: %d register reads failed and were read as 0", n)
	}
	return err
}

// runReader calibrates once and then runs the live loop with the device
// deadzone.
func runReader(ctx context.Context, src imu.SampleSource, dc sensors.DeviceConfig, p calibration.Params, interval time.Duration, sink Sink) error {
	if err := sink.CalibrationStarted(p.TargetSamples); err != nil {
		log.Printf("imu_reader: sink error: %v", err)
	}

	res, err := calibration.Run(ctx, src, p)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			log.Println("imu_reader: cancelled during calibration")
			return nil
		}
		return err
	}
	if res.Stalled {
		log.Printf("imu_reader: WARNING: calibration stalled after %d samples, running uncorrected", res.Samples)
	} else {
		log.Printf("imu_reader: calibrated over %d samples, offsets %+v", res.Samples, res.Offsets)
	}

	report := imu.CalibrationReport{
		Source:  readerSource,
		Time:    time.Now().Format(time.RFC3339),
		Offsets: res.Offsets,
		Samples: res.Samples,
		Stalled: res.Stalled,
	}
	if err := sink.CalibrationDone(report); err != nil {
		log.Printf("imu_reader: sink error: %v", err)
	}

	return runLive(ctx, src, correction.New(res.Offsets, dc.Deadzone), interval, sink)
}

// runLive polls src, corrects every ready sample and hands it to sink. It
// sleeps interval after every poll, ready or not, and returns nil once ctx
// is cancelled.
func runLive(ctx context.Context, src imu.SampleSource, corr correction.Corrector, interval time.Duration, sink Sink) error {
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		if ctx.Err() != nil {
			return nil
		}

		ready, err := src.DataReady()
		if err != nil {
			return fmt.Errorf("imu_reader: data ready: %w", err)
		}
		if ready {
			raw, err := src.ReadSample()
			if err != nil {
				return fmt.Errorf("imu_reader: read sample: %w", err)
			}
			reading := imu.Reading{
				Source:    readerSource,
				Time:      time.Now().Format(time.RFC3339Nano),
				Raw:       raw,
				Corrected: corr.Apply(raw),
			}
			if err := sink.Emit(reading); err != nil {
				log.Printf("imu_reader: sink error: %v", err)
			}
		}

		timer.Reset(interval)
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
	}
}
