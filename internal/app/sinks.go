// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/imu_rover/internal/imu"
)

// Sink receives everything the reader produces.
type Sink interface {
	CalibrationStarted(target int) error
	CalibrationDone(report imu.CalibrationReport) error
	Emit(r imu.Reading) error
	Close() error
}

// FormatCorrected renders one corrected sample as a console row.
func FormatCorrected(s imu.Sample) string {
	return fmt.Sprintf("Acc: %6.2f %6.2f %6.2f | Gyr: %6.2f %6.2f %6.2f",
		s.Ax, s.Ay, s.Az, s.Gx, s.Gy, s.Gz)
}

// consoleSink prints the operator view to w (stdout in production).
type consoleSink struct {
	w io.Writer
}

func newConsoleSink(w io.Writer) *consoleSink {
	return &consoleSink{w: w}
}

func (c *consoleSink) CalibrationStarted(target int) error {
	_, err := fmt.Fprintf(c.w, "--- CALIBRATION (%d Samples) ---", target)
	return err
}

func (c *consoleSink) CalibrationDone(report imu.CalibrationReport) error {
	status := " Done."
	if report.Stalled {
		status = " Error: Timeout."
	}
	_, err := fmt.Fprintf(c.w, "%s\n\nReading CORRECTED data... (Ctrl+C to stop)\n", status)
	return err
}

func (c *consoleSink) Emit(r imu.Reading) error {
	_, err := fmt.Fprintln(c.w, FormatCorrected(r.Corrected))
	return err
}

func (c *consoleSink) Close() error {
	_, err := fmt.Fprintln(c.w, "\nStopped.")
	return err
}

// publisher is the part of mqtt.Client the sink needs.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// mqttTopics names where each record goes.
type mqttTopics struct {
	Raw         string
	Corrected   string
	Calibration string
}

// mqttSink publishes JSON records. Raw samples go to Raw, the full reading
// (raw and corrected) to Corrected, and the calibration report, retained,
// to Calibration.
type mqttSink struct {
	pub        publisher
	topics     mqttTopics
	disconnect func()
}

func newMQTTSink(pub publisher, topics mqttTopics, disconnect func()) *mqttSink {
	return &mqttSink{pub: pub, topics: topics, disconnect: disconnect}
}

func (m *mqttSink) publish(topic string, retained bool, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("mqtt: marshal for %s: %w", topic, err)
	}
	if token := m.pub.Publish(topic, 0, retained, payload); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt: publish %s: %w", topic, token.Error())
	}
	return nil
}

func (m *mqttSink) CalibrationStarted(int) error { return nil }

func (m *mqttSink) CalibrationDone(report imu.CalibrationReport) error {
	return m.publish(m.topics.Calibration, true, report)
}

func (m *mqttSink) Emit(r imu.Reading) error {
	if err := m.publish(m.topics.Raw, false, r.Raw); err != nil {
		return err
	}
	return m.publish(m.topics.Corrected, false, r)
}

func (m *mqttSink) Close() error {
	if m.disconnect != nil {
		m.disconnect()
	}
	return nil
}

// multiSink fans out to every sink; one failing sink does not starve the rest.
type multiSink []Sink

func (ms multiSink) CalibrationStarted(target int) error {
	var errs []error
	for _, s := range ms {
		errs = append(errs, s.CalibrationStarted(target))
	}
	return errors.Join(errs...)
}

func (ms multiSink) CalibrationDone(report imu.CalibrationReport) error {
	var errs []error
	for _, s := range ms {
		errs = append(errs, s.CalibrationDone(report))
	}
	return errors.Join(errs...)
}

func (ms multiSink) Emit(r imu.Reading) error {
	var errs []error
	for _, s := range ms {
		errs = append(errs, s.Emit(r))
	}
	return errors.Join(errs...)
}

func (ms multiSink) Close() error {
	var errs []error
	for _, s := range ms {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
