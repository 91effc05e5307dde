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
	"errors"
	"testing"

	"github.com/cansat-ground/go-relay/pkg/config"
	"github.com/cansat-ground/go-relay/pkg/session"
	"github.com/cansat-ground/go-relay/pkg/telemetry"
)

const tenMinutes = int64(10 * 60 * 1000)

func newGate() *Gate {
	return NewGate(&config.PipelineConfig{MaxSkew: config.DefaultMaxSkew})
}

func TestAdmit(t *testing.T) {
	tests := []struct {
		name    string
		history []int64
		ts      int64
		reason  Reason
	}{
		{"first record", nil, 5000, ""},
		{"negative", nil, -1, ReasonNegative},
		{"new timestamp", []int64{1000, 2000}, 2500, ""},
		{"duplicate", []int64{1000, 2000}, 2000, ReasonDuplicate},
		{"duplicate of first", []int64{1000, 2000}, 1000, ReasonDuplicate},
		{"before first", []int64{1000, 2000}, 999, ReasonBeforeFirst},
		{"out of order within tolerance", []int64{1000, 5000}, 3000, ""},
		{"future skew", []int64{1000}, 1000 + tenMinutes + 1, ReasonSkew},
		{"future at boundary", []int64{1000}, 1000 + tenMinutes, ""},
		{"behind beyond tolerance", []int64{1000, 1000 + tenMinutes*2}, 1000 + tenMinutes - 1, ReasonSkew},
		{"behind at boundary minus one", []int64{1000, 1000 + tenMinutes*2}, 1000 + tenMinutes + 1, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGate()
			s := session.New(nil)
			for _, ts := range tt.history {
				s.Accept(ts)
			}
			err := g.Admit(&telemetry.Record{Time: tt.ts}, s)
			if tt.reason == "" {
				if err != nil {
					t.Fatalf("unexpected rejection: %v", err)
				}
				return
			}
			var rejected ErrRejected
			if !errors.As(err, &rejected) {
				t.Fatalf("got %v, want rejection", err)
			}
			if rejected.Reason != tt.reason {
				t.Fatalf("reason %q, want %q", rejected.Reason, tt.reason)
			}
		})
	}
}

func TestAdmitRebases(t *testing.T) {
	g := newGate()
	s := session.New(nil)
	first := &telemetry.Record{Time: 40000}
	second := &telemetry.Record{Time: 40250}
	if err := g.Admit(first, s); err != nil {
		t.Fatal(err)
	}
	if err := g.Admit(second, s); err != nil {
		t.Fatal(err)
	}
	if first.Time != 0 || second.Time != 250 {
		t.Fatalf("rebased times %d %d, want 0 250", first.Time, second.Time)
	}
	// duplicates are checked against the raw wire timestamps
	if err := g.Admit(&telemetry.Record{Time: 40250}, s); err == nil {
		t.Fatal("duplicate admitted")
	}
	if got := s.History(); len(got) != 2 || got[1] != 40250 {
		t.Fatalf("history %v", got)
	}
}

func TestSkewMeasuredFromMostAdvanced(t *testing.T) {
	g := newGate()
	s := session.New(nil)
	for _, ts := range []int64{1000, 500000, 200000} {
		if err := g.Admit(&telemetry.Record{Time: ts}, s); err != nil {
			t.Fatalf("admit %d: %v", ts, err)
		}
	}
	// the out of order record does not pull latest back
	if s.Latest() != 500000 {
		t.Fatalf("latest %d, want 500000", s.Latest())
	}
	// more than ten minutes after the out of order record, within ten minutes of latest
	if err := g.Admit(&telemetry.Record{Time: 500000 + tenMinutes}, s); err != nil {
		t.Fatalf("unexpected rejection: %v", err)
	}
	var rejected ErrRejected
	err := g.Admit(&telemetry.Record{Time: 500000 + tenMinutes*2 + 1}, s)
	if !errors.As(err, &rejected) || rejected.Reason != ReasonSkew {
		t.Fatalf("got %v, want skew rejection", err)
	}
}
