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

package admission

import (
	"time"

	"github.com/cansat-ground/go-relay/pkg/config"
	"github.com/cansat-ground/go-relay/pkg/session"
	"github.com/cansat-ground/go-relay/pkg/telemetry"
)

// Gate decides whether a decoded record enters the session
type Gate struct {
	// MaxSkew is the largest distance from the latest accepted timestamp
	MaxSkew time.Duration
}

func NewGate(cfg *config.PipelineConfig) *Gate {
	return &Gate{MaxSkew: cfg.MaxSkew}
}

// Admit checks the record against the session history. The first failing rule wins.
// On success the timestamp is recorded and the record time is rebased to the session start.
func (g *Gate) Admit(rec *telemetry.Record, s *session.State) error {
	ts := rec.Time
	if ts < 0 {
		return ErrRejected{Reason: ReasonNegative, Time: ts}
	}
	if s.Seen(ts) {
		return ErrRejected{Reason: ReasonDuplicate, Time: ts, Reference: ts}
	}
	if !s.Empty() {
		if ts < s.First() {
			return ErrRejected{Reason: ReasonBeforeFirst, Time: ts, Reference: s.First()}
		}
		skew := ts - s.Latest()
		if skew < 0 {
			skew = -skew
		}
		if skew > g.MaxSkew.Milliseconds() {
			return ErrRejected{Reason: ReasonSkew, Time: ts, Reference: s.Latest()}
		}
	}
	s.Accept(ts)
	rec.Time = ts - s.First()
	return nil
}
