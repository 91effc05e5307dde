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

package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/cansat-ground/go-relay/pkg/telemetry"
)

// Persister accepts every admitted sample in arrival order
type Persister interface {
	Write(sample telemetry.Sample) error
}

// Broadcaster accepts records approved for viewers
type Broadcaster interface {
	Name() string
	Broadcast(sessionID string, rec *telemetry.Record) error
}

// MultiBroadcaster forwards to every sink and joins the errors
type MultiBroadcaster []Broadcaster

func (m MultiBroadcaster) Name() string {
	return "multi"
}

func (m MultiBroadcaster) Broadcast(sessionID string, rec *telemetry.Record) error {
	var failed []string
	for _, b := range m {
		if err := b.Broadcast(sessionID, rec); err != nil {
			failed = append(failed, fmt.Sprintf("%s: %s", b.Name(), err))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("broadcast failed: %v", failed)
	}
	return nil
}

// WriterBroadcaster writes one JSON object per line
type WriterBroadcaster struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewWriterBroadcaster(w io.Writer) *WriterBroadcaster {
	return &WriterBroadcaster{enc: json.NewEncoder(w)}
}

func (w *WriterBroadcaster) Name() string {
	return "writer"
}

func (w *WriterBroadcaster) Broadcast(sessionID string, rec *telemetry.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Encode(rec)
}

type discard struct{}

func (discard) Write(telemetry.Sample) error { return nil }
