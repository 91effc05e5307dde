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

package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/cansat-ground/go-relay/pkg/telemetry"
)

// Info describes a session for listings and storage
type Info struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"startedAt"`
	Source    string    `json:"source,omitempty"`
	Samples   int       `json:"samples"`
}

// State is the per viewer connection ordering history and sensor map.
// It is owned by exactly one goroutine.
type State struct {
	ID        string
	StartedAt time.Time
	Sensors   telemetry.SensorSet

	history []int64
	seen    map[int64]struct{}
	first   int64
	latest  int64

	broadcasted   bool
	lastBroadcast int64
}

func New(sensors telemetry.SensorSet) *State {
	if sensors == nil {
		sensors = telemetry.SensorSet{}
	}
	return &State{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Sensors:   sensors,
		seen:      map[int64]struct{}{},
	}
}

// Empty reports whether no timestamp was accepted yet
func (s *State) Empty() bool {
	return len(s.history) == 0
}

// Seen reports whether ts was accepted before
func (s *State) Seen(ts int64) bool {
	_, ok := s.seen[ts]
	return ok
}

// First returns the first accepted timestamp, the zero of the session time base
func (s *State) First() int64 {
	return s.first
}

// Latest returns the most advanced accepted timestamp
func (s *State) Latest() int64 {
	return s.latest
}

// Accept records ts as accepted
func (s *State) Accept(ts int64) {
	if s.Empty() {
		s.first = ts
		s.latest = ts
	}
	if ts > s.latest {
		s.latest = ts
	}
	s.history = append(s.history, ts)
	s.seen[ts] = struct{}{}
}

// History returns the accepted timestamps in arrival order
func (s *State) History() []int64 {
	return s.history
}

// LastBroadcast returns the session relative time of the last forwarded record
func (s *State) LastBroadcast() (int64, bool) {
	return s.lastBroadcast, s.broadcasted
}

func (s *State) MarkBroadcast(ts int64) {
	s.broadcasted = true
	s.lastBroadcast = ts
}

func (s *State) Info() Info {
	return Info{
		ID:        s.ID,
		StartedAt: s.StartedAt,
		Samples:   len(s.history),
	}
}
