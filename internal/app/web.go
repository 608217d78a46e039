// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/imu_rover/internal/config"
	"github.com/relabs-tech/imu_rover/internal/imu"
	"github.com/relabs-tech/imu_rover/internal/orientation"
)

// webState is the last reading and calibration report seen on MQTT.
type webState struct {
	mu          sync.RWMutex
	reading     imu.Reading
	haveReading bool
	report      imu.CalibrationReport
	haveReport  bool
}

func (s *webState) onReading(payload []byte) error {
	var r imu.Reading
	if err := json.Unmarshal(payload, &r); err != nil {
		return err
	}
	s.mu.Lock()
	s.reading = r
	s.haveReading = true
	s.mu.Unlock()
	return nil
}

func (s *webState) onReport(payload []byte) error {
	var rep imu.CalibrationReport
	if err := json.Unmarshal(payload, &rep); err != nil {
		return err
	}
	s.mu.Lock()
	s.report = rep
	s.haveReport = true
	s.mu.Unlock()
	return nil
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

// mux serves /api/reading, /api/tilt and /api/calibration.
func (s *webState) mux() *http.ServeMux {
	m := http.NewServeMux()

	m.HandleFunc("/api/reading", func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		if !s.haveReading {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, s.reading)
	})

	m.HandleFunc("/api/tilt", func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		if !s.haveReading {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, orientation.TiltFromSample(s.reading.Corrected))
	})

	m.HandleFunc("/api/calibration", func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		if !s.haveReport {
			http.Error(w, "no calibration yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, s.report)
	})

	return m
}

func shutdownServer(srv *http.Server, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("web: shutdown: %v", err)
	}
}

func RunWeb(ctx context.Context) error {
	cfg := config.Get()
	if cfg.MQTTBroker == "" {
		return fmt.Errorf("web: MQTT_BROKER is not set")
	}

	state := &webState{}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDWeb)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Printf("web: connected to MQTT broker at %s", cfg.MQTTBroker)

	subs := map[string]func([]byte) error{
		cfg.TopicIMUCorrected:   state.onReading,
		cfg.TopicIMUCalibration: state.onReport,
	}
	for topic, handle := range subs {
		handle := handle
		token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			if err := handle(msg.Payload()); err != nil {
				log.Printf("web: %s unmarshal error: %v", msg.Topic(), err)
			}
		})
		token.Wait()
		if token.Error() != nil {
			return token.Error()
		}
		log.Printf("web: subscribed to %s", topic)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebPort),
		Handler:           state.mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownServer(srv, 2*time.Second)
	}()

	log.Printf("web: listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
