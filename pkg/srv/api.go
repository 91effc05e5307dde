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
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cansat-ground/go-relay/pkg/log"
	"github.com/cansat-ground/go-relay/pkg/pipeline"
	"github.com/cansat-ground/go-relay/pkg/serialport"
	"github.com/cansat-ground/go-relay/pkg/store"
	"github.com/cansat-ground/go-relay/pkg/telemetry"
)

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to write response: %s", err)
	}
}

// relayCommand sends a command frame straight to the payload
func (s *RelayServer) relayCommand(cmd pipeline.Command) error {
	frame, err := cmd.Frame()
	if err != nil {
		return err
	}
	_, err = s.source.Write(frame)
	return err
}

func (s *RelayServer) handleSensorList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Handling sensor list request")
		writeJSON(w, s.hub.SensorStates())
	}
}

func (s *RelayServer) handleSensorSet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		sensor, ok := telemetry.LookupSensor(vars["sensor"])
		if !ok {
			http.Error(w, ErrUnknownSensor{Name: vars["sensor"]}.Error(), http.StatusNotFound)
			return
		}
		enabled := vars["action"] == "enable"
		log.Debug("Handling sensor request: %s enabled=%t", sensor, enabled)

		delivered := s.hub.SetSensor(sensor, enabled)
		log.Info("Sensor %s enabled=%t applied to %d sessions", sensor, enabled, delivered)
		if err := s.relayCommand(pipeline.SensorCommand(sensor, enabled)); err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, SensorState{Name: string(sensor), Code: sensor.Code(), Enabled: enabled})
	}
}

func (s *RelayServer) handleTransmission() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cmd := pipeline.ParseCommand(pipeline.CommandStop)
		if mux.Vars(r)["action"] == "start" {
			cmd = pipeline.ParseCommand(pipeline.CommandStart)
		}
		log.Debug("Handling transmission request: %s", cmd)
		if err := s.relayCommand(cmd); err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
		}
	}
}

func (s *RelayServer) handleSessionList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Handling session list request")
		if s.store == nil {
			http.Error(w, "No store configured", http.StatusNotImplemented)
			return
		}
		sessions, err := s.store.Sessions()
		if err != nil {
			http.Error(w, err.Error(), storeStatus(err))
			return
		}
		writeJSON(w, sessions)
	}
}

func (s *RelayServer) handleActiveSessions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, s.hub.Active())
	}
}

func (s *RelayServer) handleSamples() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		log.Debug("Handling samples request: session %s", id)
		if s.store == nil {
			http.Error(w, "No store configured", http.StatusNotImplemented)
			return
		}
		samples, err := s.store.Samples(id)
		if err != nil {
			http.Error(w, err.Error(), storeStatus(err))
			return
		}
		writeJSON(w, samples)
	}
}

func storeStatus(err error) int {
	var notFound store.ErrSessionNotFound
	var unsupported store.ErrNotSupported
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &unsupported):
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

func (s *RelayServer) handlePersist() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.capture == nil {
			http.Error(w, ErrNoCapture{}.Error(), http.StatusNotImplemented)
			return
		}
		persist := &Persist{}
		err := json.NewDecoder(r.Body).Decode(persist)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		log.Debug("Handling persist request: dir: %s filePrefix: %s", persist.Dir, persist.FilePrefix)

		filename, err := s.capture.Persist(persist.Dir, persist.FilePrefix)
		if err != nil {
			status := http.StatusBadGateway
			if errors.As(err, &serialport.ErrCaptureActive{}) {
				status = http.StatusConflict
			}
			http.Error(w, err.Error(), status)
			return
		}
		writeJSON(w, Capture{Filename: filename})
	}
}

func (s *RelayServer) handleFlush() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Handling flush request")
		if s.capture == nil {
			http.Error(w, ErrNoCapture{}.Error(), http.StatusNotImplemented)
			return
		}
		filename, size, err := s.capture.Flush()
		if err != nil {
			status := http.StatusBadGateway
			if errors.As(err, &serialport.ErrNoCapture{}) {
				status = http.StatusConflict
			}
			http.Error(w, err.Error(), status)
			return
		}
		writeJSON(w, Capture{Filename: filename, Bytes: size})
	}
}
