// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/imu_rover/internal/config"
	"github.com/relabs-tech/imu_rover/internal/imu"
	"github.com/relabs-tech/imu_rover/internal/sensors"
)

// RegisterAccess is what the debug tool needs from the sensor.
// *sensors.IMUManager implements it.
type RegisterAccess interface {
	ReadRegister(reg byte) (byte, error)
	WriteRegister(reg, value byte) error
	ReadAllRegisters() (map[byte]byte, error)
	Reinitialize() error
	ReadSample() (imu.Sample, error)
}

// RegisterCmd is a websocket request.
type RegisterCmd struct {
	Action  string `json:"action"` // "get_map", "read", "read_all", "write", "init"
	Address string `json:"addr,omitempty"`
	Value   string `json:"value,omitempty"`
}

// RegisterResponse is a websocket reply.
type RegisterResponse struct {
	Type        string                 `json:"type"` // "register_data", "register_map", "status", "error"
	Device      string                 `json:"device,omitempty"`
	Address     string                 `json:"addr,omitempty"`
	Value       string                 `json:"value,omitempty"`
	Registers   map[string]string      `json:"registers,omitempty"` // for bulk read
	Timestamp   string                 `json:"timestamp,omitempty"`
	Message     string                 `json:"message,omitempty"`
	Status      string                 `json:"status,omitempty"`
	RegisterMap []sensors.RegisterInfo `json:"register_map,omitempty"`
}

const debugDevice = "lsm6dsv"

// RegisterDebugHandler serves the register inspector over a websocket.
type RegisterDebugHandler struct {
	regs     RegisterAccess
	allowed  []config.AddrRange
	upgrader websocket.Upgrader
}

// NewRegisterDebugHandler creates the handler. Writes are refused outside
// allowed; an empty list makes the tool read-only.
func NewRegisterDebugHandler(regs RegisterAccess, allowed []config.AddrRange) *RegisterDebugHandler {
	return &RegisterDebugHandler{
		regs:    regs,
		allowed: allowed,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// isRegisterWritable checks if a register address is in the allowed write ranges
func (h *RegisterDebugHandler) isRegisterWritable(addr byte) bool {
	for _, r := range h.allowed {
		if r.Contains(addr) {
			return true
		}
	}
	return false
}

// ServeHTTP handles the WebSocket connection for register debugging
func (h *RegisterDebugHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("register_debug: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	s := &registerDebugSession{h: h, conn: conn}

	// Send register map on connection
	if err := s.sendRegisterMap(); err != nil {
		log.Printf("register_debug: error sending register map: %v", err)
		return
	}

	for {
		var cmd RegisterCmd
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("register_debug: websocket error: %v", err)
			}
			return
		}

		var werr error
		switch cmd.Action {
		case "get_map":
			werr = s.sendRegisterMap()
		case "read":
			werr = s.handleRead(cmd)
		case "read_all":
			werr = s.handleReadAll()
		case "write":
			werr = s.handleWrite(cmd)
		case "init":
			werr = s.handleInit()
		case "":
			werr = s.sendError("missing or invalid action field")
		default:
			werr = s.sendError(fmt.Sprintf("unknown action: %s", cmd.Action))
		}
		if werr != nil {
			log.Printf("register_debug: write error: %v", werr)
			return
		}
	}
}

type registerDebugSession struct {
	h    *RegisterDebugHandler
	conn *websocket.Conn
}

func parseHexByte(s string) (byte, error) {
	var b byte
	if _, err := fmt.Sscanf(s, "0x%X", &b); err != nil {
		return 0, err
	}
	return b, nil
}

func (s *registerDebugSession) handleRead(cmd RegisterCmd) error {
	if cmd.Address == "" {
		return s.sendError("missing addr field")
	}
	addr, err := parseHexByte(cmd.Address)
	if err != nil {
		return s.sendError(fmt.Sprintf("invalid address format: %s", cmd.Address))
	}

	value, err := s.h.regs.ReadRegister(addr)
	if err != nil {
		return s.sendError(fmt.Sprintf("read error: %v", err))
	}

	return s.conn.WriteJSON(RegisterResponse{
		Type:      "register_data",
		Device:    debugDevice,
		Address:   fmt.Sprintf("0x%02X", addr),
		Value:     fmt.Sprintf("0x%02X", value),
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func (s *registerDebugSession) handleReadAll() error {
	registers, err := s.h.regs.ReadAllRegisters()
	if err != nil {
		return s.sendError(fmt.Sprintf("read all error: %v", err))
	}

	regMap := make(map[string]string, len(registers))
	for addr, value := range registers {
		regMap[fmt.Sprintf("0x%02X", addr)] = fmt.Sprintf("0x%02X", value)
	}

	return s.conn.WriteJSON(RegisterResponse{
		Type:      "register_data",
		Device:    debugDevice,
		Registers: regMap,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func (s *registerDebugSession) handleWrite(cmd RegisterCmd) error {
	if cmd.Address == "" || cmd.Value == "" {
		return s.sendError("missing addr or value field")
	}
	addr, err := parseHexByte(cmd.Address)
	if err != nil {
		return s.sendError(fmt.Sprintf("invalid address format: %s", cmd.Address))
	}
	value, err := parseHexByte(cmd.Value)
	if err != nil {
		return s.sendError(fmt.Sprintf("invalid value format: %s", cmd.Value))
	}

	if !s.h.isRegisterWritable(addr) {
		return s.sendError(fmt.Sprintf("register 0x%02X not in allowed write ranges", addr))
	}
	if err := s.h.regs.WriteRegister(addr, value); err != nil {
		return s.sendError(fmt.Sprintf("write error: %v", err))
	}
	log.Printf("register_debug: wrote 0x%02X = 0x%02X", addr, value)

	return s.conn.WriteJSON(RegisterResponse{
		Type:      "register_data",
		Device:    debugDevice,
		Address:   fmt.Sprintf("0x%02X", addr),
		Value:     fmt.Sprintf("0x%02X", value),
		Timestamp: time.Now().Format(time.RFC3339),
		Message:   "write successful",
	})
}

func (s *registerDebugSession) handleInit() error {
	if err := s.h.regs.Reinitialize(); err != nil {
		return s.sendError(fmt.Sprintf("reinit error: %v", err))
	}
	return s.conn.WriteJSON(RegisterResponse{
		Type:    "status",
		Device:  debugDevice,
		Status:  "initialized",
		Message: "IMU reinitialized successfully",
	})
}

func (s *registerDebugSession) sendRegisterMap() error {
	return s.conn.WriteJSON(RegisterResponse{
		Type:        "register_map",
		Device:      debugDevice,
		RegisterMap: sensors.LSM6DSVRegisterMap(),
	})
}

func (s *registerDebugSession) sendError(message string) error {
	return s.conn.WriteJSON(RegisterResponse{
		Type:    "error",
		Message: message,
	})
}

// NewIMUDataHandler serves the latest raw sample as JSON.
func NewIMUDataHandler(regs RegisterAccess) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")

		s, err := regs.ReadSample()
		if err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		if err := json.NewEncoder(w).Encode(s); err != nil {
			log.Printf("register_debug: json encode error: %v", err)
		}
	}
}
