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

package srv

import (
	"sort"
	"sync"

	"github.com/cansat-ground/go-relay/pkg/log"
	"github.com/cansat-ground/go-relay/pkg/pipeline"
	"github.com/cansat-ground/go-relay/pkg/session"
	"github.com/cansat-ground/go-relay/pkg/telemetry"
)

type sessionHandle struct {
	info     session.Info
	commands chan pipeline.Command
}

// Hub keeps the active sessions and the sensor state new sessions start with
type Hub struct {
	mu       sync.Mutex
	sessions map[string]*sessionHandle
	sensors  telemetry.SensorSet
}

func NewHub(sensors telemetry.SensorSet) *Hub {
	return &Hub{
		sessions: map[string]*sessionHandle{},
		sensors:  sensors.Clone(),
	}
}

func (h *Hub) add(info session.Info, commands chan pipeline.Command) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[info.ID] = &sessionHandle{info: info, commands: commands}
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, id)
}

// Sensors returns a copy of the sensor state for a new session
func (h *Hub) Sensors() telemetry.SensorSet {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sensors.Clone()
}

// SensorStates lists all sensors ordered by command code
func (h *Hub) SensorStates() []SensorState {
	h.mu.Lock()
	defer h.mu.Unlock()
	var states []SensorState
	for _, s := range telemetry.Sensors() {
		states = append(states, SensorState{Name: string(s), Code: s.Code(), Enabled: h.sensors.Enabled(s)})
	}
	return states
}

// Active returns the active sessions ordered by start time
func (h *Hub) Active() []session.Info {
	h.mu.Lock()
	defer h.mu.Unlock()
	infos := make([]session.Info, 0, len(h.sessions))
	for _, handle := range h.sessions {
		infos = append(infos, handle.info)
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].StartedAt.Before(infos[j].StartedAt)
	})
	return infos
}

// SetSensor changes the default state and pushes the change to every active session.
// It returns the number of sessions the command was delivered to.
func (h *Hub) SetSensor(sensor telemetry.Sensor, enabled bool) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sensors.Set(sensor, enabled)
	cmd := pipeline.SensorCommand(sensor, enabled)
	cmd.LocalOnly = true
	delivered := 0
	for id, handle := range h.sessions {
		select {
		case handle.commands <- cmd:
			delivered++
		default:
			log.Warning("Session %s command queue is full, dropped %s", id, cmd)
		}
	}
	return delivered
}
