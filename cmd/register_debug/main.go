// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"

	"github.com/relabs-tech/imu_rover/internal/app"
	"github.com/relabs-tech/imu_rover/internal/config"
	"github.com/relabs-tech/imu_rover/internal/sensors"
)

func main() {
	configPath := flag.String("config", "./imu_config.txt", "path to configuration file")
	flag.Parse()

	log.Println("starting LSM6DSV register debug tool (standalone)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()

	log.Println("Initializing IMU manager...")
	imuManager := sensors.GetIMUManager()
	if err := imuManager.Init(cfg.IMUI2CBus, app.DeviceConfigFrom(cfg)); err != nil {
		log.Printf("Warning: IMU initialization failed: %v", err)
		log.Println("Continuing anyway - register access will report errors")
	}
	defer imuManager.Close()

	if len(cfg.RegisterDebugAllowedRanges) == 0 {
		log.Println("No REGISTER_DEBUG_ALLOWED_RANGES set, writes are disabled")
	}

	http.Handle("/ws", app.NewRegisterDebugHandler(imuManager, cfg.RegisterDebugAllowedRanges))

	// API endpoint for live IMU data
	http.Handle("/api/imu", app.NewIMUDataHandler(imuManager))

	addr := fmt.Sprintf(":%d", cfg.RegisterDebugPort)
	log.Printf("Register debug tool listening on %s", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
