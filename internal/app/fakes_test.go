// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"errors"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/imu_rover/internal/imu"
)

// scriptedSource is ready according to ready(poll) and always returns sample.
type scriptedSource struct {
	mu      sync.Mutex
	sample  imu.Sample
	ready   func(poll int) bool
	onPoll  func(poll int)
	readyEr error
	polls   int
	reads   int
}

func (s *scriptedSource) DataReady() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls++
	if s.onPoll != nil {
		s.onPoll(s.polls)
	}
	if s.readyEr != nil {
		return false, s.readyEr
	}
	return s.ready(s.polls), nil
}

func (s *scriptedSource) ReadSample() (imu.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	return s.sample, nil
}

func alwaysReady(int) bool { return true }
func neverReady(int) bool  { return false }

// recordingSink keeps everything and optionally cancels after n emits.
type recordingSink struct {
	mu          sync.Mutex
	started     []int
	reports     []imu.CalibrationReport
	readings    []imu.Reading
	closed      bool
	cancelAfter int
	cancel      func()
	err         error
}

func (r *recordingSink) CalibrationStarted(target int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, target)
	return r.err
}

func (r *recordingSink) CalibrationDone(report imu.CalibrationReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
	return r.err
}

func (r *recordingSink) Emit(reading imu.Reading) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readings = append(r.readings, reading)
	if r.cancel != nil && len(r.readings) >= r.cancelAfter {
		r.cancel()
	}
	return r.err
}

func (r *recordingSink) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return r.err
}

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Error() error                   { return t.err }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type publishedMsg struct {
	topic    string
	retained bool
	payload  []byte
}

type fakePublisher struct {
	msgs []publishedMsg
	fail map[string]error
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	p.msgs = append(p.msgs, publishedMsg{topic: topic, retained: retained, payload: payload.([]byte)})
	return &fakeToken{err: p.fail[topic]}
}

// fakeRegisters stands in for the IMU manager behind the debug tool.
type fakeRegisters struct {
	mu      sync.Mutex
	regs    map[byte]byte
	writes  [][2]byte
	reinits int
	sample  imu.Sample
	notInit bool
}

var errFakeNotInit = errors.New("fake: not initialized")

func (f *fakeRegisters) ReadRegister(reg byte) (byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.notInit {
		return 0, errFakeNotInit
	}
	return f.regs[reg], nil
}

func (f *fakeRegisters) WriteRegister(reg, value byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.notInit {
		return errFakeNotInit
	}
	f.regs[reg] = value
	f.writes = append(f.writes, [2]byte{reg, value})
	return nil
}

func (f *fakeRegisters) ReadAllRegisters() (map[byte]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.notInit {
		return nil, errFakeNotInit
	}
	out := make(map[byte]byte, len(f.regs))
	for k, v := range f.regs {
		out[k] = v
	}
	return out, nil
}

func (f *fakeRegisters) Reinitialize() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.notInit {
		return errFakeNotInit
	}
	f.reinits++
	return nil
}

func (f *fakeRegisters) ReadSample() (imu.Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.notInit {
		return imu.Sample{}, errFakeNotInit
	}
	return f.sample, nil
}
