// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/imu_rover/internal/config"
	"github.com/relabs-tech/imu_rover/internal/imu"
)

// printCorrected prints a corrected reading from its MQTT payload.
func printCorrected(w io.Writer, payload []byte) error {
	var r imu.Reading
	if err := json.Unmarshal(payload, &r); err != nil {
		return fmt.Errorf("corrected unmarshal: %w", err)
	}
	_, err := fmt.Fprintf(w, "[%s] %s\n", r.Source, FormatCorrected(r.Corrected))
	return err
}

// printCalibration prints a calibration report from its MQTT payload.
func printCalibration(w io.Writer, payload []byte) error {
	var rep imu.CalibrationReport
	if err := json.Unmarshal(payload, &rep); err != nil {
		return fmt.Errorf("calibration unmarshal: %w", err)
	}
	status := "ok"
	if rep.Stalled {
		status = "STALLED, offsets zeroed"
	}
	_, err := fmt.Fprintf(w, "[CAL ] %s samples=%d %s | offsets %s\n",
		rep.Source, rep.Samples, status, FormatCorrected(imu.Sample(rep.Offsets)))
	return err
}

func RunConsoleMQTT(ctx context.Context) error {
	cfg := config.Get()
	if cfg.MQTTBroker == "" {
		return fmt.Errorf("console: MQTT_BROKER is not set")
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	subs := []struct {
		topic string
		print func(io.Writer, []byte) error
	}{
		{cfg.TopicIMUCalibration, printCalibration},
		{cfg.TopicIMUCorrected, printCorrected},
	}
	for _, s := range subs {
		s := s
		token := client.Subscribe(s.topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			if err := s.print(os.Stdout, msg.Payload()); err != nil {
				log.Printf("console: %s: %v", msg.Topic(), err)
			}
		})
		token.Wait()
		if token.Error() != nil {
			return token.Error()
		}
		log.Printf("console: subscribed to %s", s.topic)
	}

	<-ctx.Done()
	log.Println("console: shutting down")
	return nil
}
