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
	"testing"

	"github.com/cansat-ground/go-relay/pkg/config"
	"github.com/cansat-ground/go-relay/pkg/session"
	"github.com/cansat-ground/go-relay/pkg/telemetry"
)

func TestAllow(t *testing.T) {
	th := New(&config.PipelineConfig{BroadcastInterval: config.DefaultBroadcastInterval})
	s := session.New(nil)
	motion := func(ts int64) *telemetry.Record {
		return &telemetry.Record{Time: ts, Acceleration: &telemetry.Vector{Z: 9.82}}
	}
	steps := []struct {
		name    string
		rec     *telemetry.Record
		strange bool
		want    bool
	}{
		{"first record", motion(0), false, true},
		{"10 ms later", motion(10), false, false},
		{"environmental", &telemetry.Record{Time: 20, HumidityOutside: telemetry.Float(30)}, false, true},
		{"strange", &telemetry.Record{Time: 5000, TemperatureInside: telemetry.Float(20)}, true, false},
		{"600 ms later", motion(620), false, true},
		{"interval measured from last forward", motion(1000), false, false},
		{"exactly one interval", motion(1120), false, true},
	}
	for _, step := range steps {
		if got := th.Allow(step.rec, step.strange, s); got != step.want {
			t.Fatalf("%s: allow %v, want %v", step.name, got, step.want)
		}
	}
	if last, _ := s.LastBroadcast(); last != 1120 {
		t.Fatalf("last broadcast %d, want 1120", last)
	}
}

func TestStrangeFirstRecord(t *testing.T) {
	th := New(&config.PipelineConfig{BroadcastInterval: config.DefaultBroadcastInterval})
	s := session.New(nil)
	if th.Allow(&telemetry.Record{}, true, s) {
		t.Fatal("strange record forwarded")
	}
	if _, ok := s.LastBroadcast(); ok {
		t.Fatal("suppressed record must not count as broadcast")
	}
}
