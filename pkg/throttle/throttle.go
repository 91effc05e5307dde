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

package throttle

import (
	"time"

	"github.com/cansat-ground/go-relay/pkg/config"
	"github.com/cansat-ground/go-relay/pkg/session"
	"github.com/cansat-ground/go-relay/pkg/telemetry"
)

// Throttle limits how often motion only records are forwarded to viewers
type Throttle struct {
	Interval time.Duration
}

func New(cfg *config.PipelineConfig) *Throttle {
	return &Throttle{Interval: cfg.BroadcastInterval}
}

// Allow decides whether the record is forwarded and marks the session when it is.
// Strange records are never forwarded.
func (t *Throttle) Allow(rec *telemetry.Record, strange bool, s *session.State) bool {
	if strange {
		return false
	}
	last, ok := s.LastBroadcast()
	if ok && !rec.Environmental() && rec.Time-last < t.Interval.Milliseconds() {
		return false
	}
	s.MarkBroadcast(rec.Time)
	return true
}
