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

package store

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cansat-ground/go-relay/pkg/config"
	"github.com/cansat-ground/go-relay/pkg/session"
	"github.com/cansat-ground/go-relay/pkg/telemetry"
)

func testSamples() []telemetry.Sample {
	received := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return []telemetry.Sample{
		{
			Record: &telemetry.Record{
				Time:               0,
				Acceleration:       &telemetry.Vector{X: 0.1, Y: -0.2, Z: 9.82},
				Gyroscope:          &telemetry.Vector{X: 1, Y: 2, Z: 3},
				TemperatureOutside: telemetry.Float(21.5),
				HumidityInside:     telemetry.Float(40),
			},
			ReceivedAt: received,
		},
		{
			Record: &telemetry.Record{
				Time:         120,
				Acceleration: &telemetry.Vector{X: 50},
			},
			Strange:    true,
			ReceivedAt: received.Add(120 * time.Millisecond),
		},
	}
}

func testInfo() session.Info {
	return session.Info{
		ID:        "7c1d5a0e-4a7b-4f59-9a4e-1f0f3b1b2c3d",
		StartedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Source:    "/dev/ttyUSB0",
	}
}

func writeSamples(t *testing.T, s Store) {
	t.Helper()
	w, err := s.OpenSession(testInfo())
	if err != nil {
		t.Fatal(err)
	}
	for _, sample := range testSamples() {
		if err := w.Write(sample); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

func checkQueries(t *testing.T, s Store) {
	t.Helper()
	sessions, err := s.Sessions()
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 || sessions[0].ID != testInfo().ID || sessions[0].Samples != 2 {
		t.Fatalf("sessions %+v", sessions)
	}
	if !sessions[0].StartedAt.Equal(testInfo().StartedAt) {
		t.Errorf("started at %v", sessions[0].StartedAt)
	}
	samples, err := s.Samples(testInfo().ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 2 {
		t.Fatalf("got %d samples, want 2", len(samples))
	}
	first := samples[0].Record
	if *first.Acceleration != (telemetry.Vector{X: 0.1, Y: -0.2, Z: 9.82}) || *first.TemperatureOutside != 21.5 {
		t.Errorf("first sample %+v", first)
	}
	if first.Distance != nil || first.HumidityOutside != nil {
		t.Error("absent channels must stay absent")
	}
	if !samples[1].Strange || samples[1].Record.Time != 120 || samples[1].Record.Gyroscope != nil {
		t.Errorf("second sample %+v", samples[1])
	}
	var notFound ErrSessionNotFound
	if _, err := s.Samples("missing"); !errors.As(err, &notFound) {
		t.Errorf("got %v, want ErrSessionNotFound", err)
	}
}

func TestBoltStore(t *testing.T) {
	s, err := OpenBoltStore(filepath.Join(t.TempDir(), "relay.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	writeSamples(t, s)
	checkQueries(t, s)
}

func TestSqliteStore(t *testing.T) {
	s, err := OpenSqliteStore(filepath.Join(t.TempDir(), "relay.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	writeSamples(t, s)
	checkQueries(t, s)
}

func TestDirectory(t *testing.T) {
	root := t.TempDir()
	d, err := NewDirectory(root)
	if err != nil {
		t.Fatal(err)
	}
	writeSamples(t, d)

	dir := filepath.Join(root, "2024-05-01_12.00.00")
	rows := readCSV(t, filepath.Join(dir, "acceleration.csv"))
	want := [][]string{{"time", "x", "y", "z"}, {"0", "0.1", "-0.2", "9.82"}, {"120", "50", "0", "0"}}
	if len(rows) != len(want) {
		t.Fatalf("acceleration rows %v", rows)
	}
	for i := range want {
		for j := range want[i] {
			if rows[i][j] != want[i][j] {
				t.Fatalf("acceleration rows %v, want %v", rows, want)
			}
		}
	}
	rows = readCSV(t, filepath.Join(dir, "temperature_outside.csv"))
	if len(rows) != 3 || rows[1][1] != "21.5" || rows[2][1] != "" {
		t.Fatalf("temperature rows %v", rows)
	}
	rows = readCSV(t, filepath.Join(dir, "gyroscope.csv"))
	if rows[2][1] != "" {
		t.Fatalf("absent gyroscope must be empty: %v", rows)
	}

	// a second session started in the same second gets its own directory
	writeSamples(t, d)
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d session directories, want 2", len(entries))
	}

	var unsupported ErrNotSupported
	if _, err := d.Sessions(); !errors.As(err, &unsupported) {
		t.Fatalf("got %v, want ErrNotSupported", err)
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return rows
}

func TestOpenMulti(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.StoreConfig{
		Backends:   []string{config.StoreBackendBolt, config.StoreBackendSqlite, config.StoreBackendCSV},
		BoltPath:   filepath.Join(dir, "relay.db"),
		SqlitePath: filepath.Join(dir, "relay.sqlite"),
		CSVDir:     filepath.Join(dir, "data"),
	}
	s, err := Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, ok := s.(Multi); !ok {
		t.Fatalf("got %T, want Multi", s)
	}
	writeSamples(t, s)
	checkQueries(t, s)
}

func TestOpenErrors(t *testing.T) {
	var none ErrNoBackend
	if _, err := Open(&config.StoreConfig{}); !errors.As(err, &none) {
		t.Fatalf("got %v, want ErrNoBackend", err)
	}
	var unknown ErrUnknownBackend
	if _, err := Open(&config.StoreConfig{Backends: []string{"tape"}}); !errors.As(err, &unknown) {
		t.Fatalf("got %v, want ErrUnknownBackend", err)
	}
}
