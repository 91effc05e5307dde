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
	"github.com/cansat-ground/go-relay/pkg/relay"
)

const (
	// CommandChSize is the command queue size of a session
	CommandChSize = 16
	// WebSocketPath is where viewers connect
	WebSocketPath = "/ws"
)

// Source is the payload link shared by all sessions
type Source interface {
	Subscribe(id string) *relay.Buffer
	Unsubscribe(id string)
	Write(data []byte) (int, error)
}

// Capturer records the raw byte stream of the link
type Capturer interface {
	Persist(dir, prefix string) (string, error)
	Flush() (string, uint64, error)
}

// Persist is the body of a capture start request
type Persist struct {
	Dir        string `json:"dir"`
	FilePrefix string `json:"filePrefix"`
}

// Capture describes a finished or started capture
type Capture struct {
	Filename string `json:"filename"`
	Bytes    uint64 `json:"bytes"`
}

// SensorState is the enable state of a sensor
type SensorState struct {
	Name    string `json:"name"`
	Code    uint8  `json:"code"`
	Enabled bool   `json:"enabled"`
}
