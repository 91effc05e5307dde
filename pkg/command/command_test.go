/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package command

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/cansat-ground/go-relay/pkg/config"
	"github.com/cansat-ground/go-relay/pkg/layers"
	"github.com/cansat-ground/go-relay/pkg/relay"
	"github.com/cansat-ground/go-relay/pkg/srv"
	"github.com/cansat-ground/go-relay/pkg/store"
)

type recordingSource struct {
	mu      sync.Mutex
	written bytes.Buffer
}

func (s *recordingSource) Subscribe(string) *relay.Buffer { return relay.NewBuffer(0) }
func (s *recordingSource) Unsubscribe(string)             {}

func (s *recordingSource) Write(data []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written.Write(data)
}

func (s *recordingSource) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.written.Bytes()...)
}

func newClient(t *testing.T) (*ApiClient, *recordingSource) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	cfg := config.NewDefaultConfig()
	src := &recordingSource{}
	server := httptest.NewServer(srv.NewRelayServer(ctx, cfg, src).Handler())
	t.Cleanup(server.Close)
	c := NewApiClient(cfg)
	c.ApiPrefix = server.URL + "/api"
	return c, src
}

func TestNewApiClient(t *testing.T) {
	tests := []struct {
		address string
		want    string
	}{
		{"0.0.0.0", "http://127.0.0.1:8080/api"},
		{"", "http://127.0.0.1:8080/api"},
		{"10.0.0.5", "http://10.0.0.5:8080/api"},
		{"::1", "http://[::1]:8080/api"},
	}
	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			cfg := config.NewDefaultConfig()
			cfg.Server.Address = tt.address
			cfg.Server.Port = 8080
			if got := NewApiClient(cfg).ApiPrefix; got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSensors(t *testing.T) {
	c, src := newClient(t)
	state, err := c.SetSensor("Sound", false)
	if err != nil {
		t.Fatal(err)
	}
	if state.Enabled || state.Code != 6 {
		t.Fatalf("state %+v", state)
	}
	if got := src.Bytes(); !bytes.Equal(got, []byte{'0', '1', 6, 0}) {
		t.Fatalf("payload got % x", got)
	}
	states, err := c.Sensors()
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range states {
		if s.Name == "Sound" && s.Enabled {
			t.Error("sound still enabled")
		}
	}

	_, err = c.SetSensor("Radar", true)
	var apiErr ErrApi
	if !errors.As(err, &apiErr) {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestTransmissionAndCapture(t *testing.T) {
	c, src := newClient(t)
	if err := c.Transmission(true); err != nil {
		t.Fatal(err)
	}
	if err := c.Transmission(false); err != nil {
		t.Fatal(err)
	}
	if got := src.Bytes(); !bytes.Equal(got, []byte{'0', '1', 8, 1, '0', '1', 8, 0}) {
		t.Fatalf("payload got % x", got)
	}
	if _, err := c.Flush(); err == nil {
		t.Fatal("flush without capture must fail")
	}
	if _, err := c.Sessions(); err == nil {
		t.Fatal("sessions without store must fail")
	}
	active, err := c.ActiveSessions()
	if err != nil || len(active) != 0 {
		t.Fatalf("active %v %v", active, err)
	}
}

func frames(t *testing.T, times ...uint32) []byte {
	t.Helper()
	var data []byte
	for _, ts := range times {
		frame, err := layers.EncodeFrame(layers.MessageTypeDropTelemetry, &layers.DropTelemetryLayer{
			Motion: layers.Motion{Acceleration: [3]int16{0, 0, 1000}, Time: ts},
		})
		if err != nil {
			t.Fatal(err)
		}
		data = append(data, frame...)
	}
	return data
}

func TestReplay(t *testing.T) {
	st, err := store.OpenBoltStore(filepath.Join(t.TempDir(), "replay.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	// noise, a text line and frames larger than one read chunk in total
	data := append([]byte("xx01"), []byte("1hello\n")...)
	var times []uint32
	for i := uint32(0); i < 300; i++ {
		times = append(times, 1000+i*100)
	}
	data = append(data, frames(t, times...)...)

	var out bytes.Buffer
	info, err := Replay(config.NewDefaultConfig(), "flight.data", bytes.NewReader(data), &out, st)
	if err != nil {
		t.Fatal(err)
	}
	if info.Samples != 300 || info.Source != "flight.data" {
		t.Fatalf("info %+v", info)
	}
	lines := 0
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		lines++
	}
	// one record every 500ms of flight time
	if lines != 60 {
		t.Errorf("forwarded %d records, want 60", lines)
	}
	samples, err := st.Samples(info.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 300 {
		t.Errorf("stored %d samples", len(samples))
	}
}
