// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/imu_rover/internal/config"
	"github.com/relabs-tech/imu_rover/internal/imu"
	"github.com/relabs-tech/imu_rover/internal/orientation"
	"github.com/relabs-tech/imu_rover/internal/sensors"
)

// DisplayData holds the latest data for display
type DisplayData struct {
	mu sync.RWMutex

	reading     imu.Reading
	haveReading bool

	report     imu.CalibrationReport
	haveReport bool
}

func (d *DisplayData) setReading(r imu.Reading) {
	d.mu.Lock()
	d.reading = r
	d.haveReading = true
	d.mu.Unlock()
}

func (d *DisplayData) setReport(r imu.CalibrationReport) {
	d.mu.Lock()
	d.report = r
	d.haveReport = true
	d.mu.Unlock()
}

// lines renders the current state as at most four 18-column text rows.
func (d *DisplayData) lines() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.haveReading {
		return []string{"", "IMU Rover", "Waiting..."}
	}

	c := d.reading.Corrected
	tilt := orientation.TiltFromSample(c)

	cal := "Cal: ?"
	if d.haveReport {
		if d.report.Stalled {
			cal = "Cal: STALLED"
		} else {
			cal = fmt.Sprintf("Cal: ok (%d)", d.report.Samples)
		}
	}

	return []string{
		"A:" + col(c.Ax) + col(c.Ay) + col(c.Az),
		"G:" + col(c.Gx) + col(c.Gy) + col(c.Gz),
		fmt.Sprintf("R:%6.1f P:%6.1f", tilt.Roll, tilt.Pitch),
		cal,
	}
}

// col formats v in five columns, dropping the decimal when it would not fit.
func col(v float64) string {
	s := fmt.Sprintf("%5.1f", v)
	if len(s) > 5 {
		s = fmt.Sprintf("%5.0f", v)
	}
	return s
}

// renderLines draws text rows onto a blank 128x64 frame.
func renderLines(lines []string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, l := range lines {
		drawer.Dot = fixed.P(0, 13*(i+1))
		drawer.DrawString(l)
	}
	return img
}

func RunDisplay(ctx context.Context) error {
	cfg := config.Get()
	if cfg.MQTTBroker == "" {
		return fmt.Errorf("display: MQTT_BROKER is not set")
	}

	bus, err := sensors.OpenPeriphBus(cfg.DisplayI2CBus)
	if err != nil {
		return fmt.Errorf("display: %w", err)
	}
	defer bus.Close()

	// The ssd1306 driver always talks to 0x3C; config.validate enforces it.
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized at 0x%02X", cfg.DisplayI2CAddr)

	splash := renderLines([]string{"", "IMU Rover", "LSM6DSV", "Calibrating"})
	if err := dev.Draw(dev.Bounds(), splash, image.Point{}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	data := &DisplayData{}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDDisplay)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Printf("display: connected to MQTT broker at %s", cfg.MQTTBroker)

	token := client.Subscribe(cfg.TopicIMUCorrected, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var r imu.Reading
		if err := json.Unmarshal(msg.Payload(), &r); err != nil {
			log.Printf("display: reading unmarshal error: %v", err)
			return
		}
		data.setReading(r)
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}

	token = client.Subscribe(cfg.TopicIMUCalibration, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var rep imu.CalibrationReport
		if err := json.Unmarshal(msg.Payload(), &rep); err != nil {
			log.Printf("display: calibration unmarshal error: %v", err)
			return
		}
		data.setReport(rep)
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("display: subscribed to %s and %s", cfg.TopicIMUCorrected, cfg.TopicIMUCalibration)

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")
	for {
		select {
		case <-ctx.Done():
			if err := dev.Halt(); err != nil {
				log.Printf("display: halt: %v", err)
			}
			return nil
		case <-ticker.C:
			img := renderLines(data.lines())
			if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
				log.Printf("display: error updating display: %v", err)
			}
		}
	}
}
