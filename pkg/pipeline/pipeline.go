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
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/cansat-ground/go-relay/pkg/admission"
	"github.com/cansat-ground/go-relay/pkg/calibration"
	"github.com/cansat-ground/go-relay/pkg/config"
	"github.com/cansat-ground/go-relay/pkg/layers"
	"github.com/cansat-ground/go-relay/pkg/log"
	"github.com/cansat-ground/go-relay/pkg/metrics"
	"github.com/cansat-ground/go-relay/pkg/relay"
	"github.com/cansat-ground/go-relay/pkg/session"
	"github.com/cansat-ground/go-relay/pkg/telemetry"
	"github.com/cansat-ground/go-relay/pkg/throttle"
)


// Sinks are the collaborators of a pipeline. Nil sinks are skipped.
type Sinks struct {
	Persister   Persister
	Broadcaster Broadcaster
	// Payload receives viewer commands
	Payload io.Writer
	Metrics *metrics.Metrics
}

// Outcome tells what happened to a telemetry record
type Outcome struct {
	Admitted  bool
	Strange   bool
	Persisted bool
	Forwarded bool
}

// Pipeline processes the messages of one session. It is owned by a single goroutine.
type Pipeline struct {
	session  *session.State
	gate     *admission.Gate
	engine   *calibration.Engine
	throttle *throttle.Throttle
	sinks    Sinks
	interval time.Duration
	now      func() time.Time
}

func New(cfg *config.Config, s *session.State, sinks Sinks) *Pipeline {
	if sinks.Persister == nil {
		sinks.Persister = discard{}
	}
	return &Pipeline{
		session:  s,
		gate:     admission.NewGate(cfg.Pipeline),
		engine:   calibration.NewEngine(cfg.Calibration),
		throttle: throttle.New(cfg.Pipeline),
		sinks:    sinks,
		interval: cfg.Relay.PollInterval,
		now:      time.Now,
	}
}

func (p *Pipeline) Session() *session.State {
	return p.session
}

// HandleMessage processes a completed relay message
func (p *Pipeline) HandleMessage(msg *relay.Message) {
	p.sinks.Metrics.RecordFrame(msg.Type.String())
	if msg.Type == layers.MessageTypeText {
		log.Info("Payload: %s", msg.Text)
		return
	}
	p.Process(msg.Record)
}

// Process runs a decoded record through admission, calibration, persistence and the throttle
func (p *Pipeline) Process(rec *telemetry.Record) Outcome {
	var out Outcome
	if err := p.gate.Admit(rec, p.session); err != nil {
		var rejected admission.ErrRejected
		if errors.As(err, &rejected) {
			p.sinks.Metrics.RecordRejected(string(rejected.Reason))
		}
		if log.Enabled(log.DebugLevel) {
			data, _ := json.Marshal(rec)
			log.Debug("Session %s: %s: %s", p.session.ID, err, data)
		}
		return out
	}
	out.Admitted = true

	p.engine.Apply(rec, p.session.Sensors)
	if err := p.engine.Check(rec); err != nil {
		out.Strange = true
		var strange calibration.ErrImplausible
		if errors.As(err, &strange) {
			p.sinks.Metrics.RecordStrange(string(strange.Channel))
		}
		log.Debug("Session %s: %s", p.session.ID, err)
	}

	sample := telemetry.Sample{Record: rec, Strange: out.Strange, ReceivedAt: p.now()}
	err := p.sinks.Persister.Write(sample)
	p.sinks.Metrics.RecordPersisted(err)
	if err != nil {
		log.Error("Session %s: failed to persist sample %d: %s", p.session.ID, rec.Time, err)
	} else {
		out.Persisted = true
	}

	if !p.throttle.Allow(rec, out.Strange, p.session) {
		return out
	}
	out.Forwarded = true
	if p.sinks.Broadcaster == nil {
		return out
	}
	err = p.sinks.Broadcaster.Broadcast(p.session.ID, rec)
	p.sinks.Metrics.RecordBroadcast(p.sinks.Broadcaster.Name(), err)
	if err != nil {
		log.Warning("Session %s: broadcast failed: %s", p.session.ID, err)
	}
	return out
}

// HandleCommand applies a viewer command to the session and relays it to the payload
func (p *Pipeline) HandleCommand(cmd Command) {
	p.sinks.Metrics.RecordCommand(cmd.Kind.String())
	switch cmd.Kind {
	case CommandText:
		log.Info("Session %s: viewer says %q", p.session.ID, cmd.Text)
		return
	case CommandSensor:
		p.session.Sensors.Set(cmd.Sensor, cmd.Enabled())
		log.Info("Session %s: sensor %s enabled=%t", p.session.ID, cmd.Sensor, cmd.Enabled())
	case CommandTransmission:
		log.Info("Session %s: transmission %s", p.session.ID, cmd)
	}
	if cmd.LocalOnly {
		return
	}
	frame, err := cmd.Frame()
	if err != nil {
		log.Error("Session %s: %s", p.session.ID, err)
		return
	}
	p.writePayload(frame)
}

func (p *Pipeline) writePayload(data []byte) {
	if p.sinks.Payload == nil {
		return
	}
	if _, err := p.sinks.Payload.Write(data); err != nil {
		log.Error("Session %s: failed to write to payload: %s", p.session.ID, err)
	}
}

// Drain polls the relay until it is not ready and returns the number of completed messages
func (p *Pipeline) Drain(r *relay.Relay) int {
	count := 0
	for {
		msg, err := r.Poll()
		if errors.Is(err, relay.ErrNotReady) {
			return count
		}
		if err != nil {
			p.diagnostic(err)
			continue
		}
		if msg != nil {
			count++
			p.HandleMessage(msg)
		}
	}
}

func (p *Pipeline) diagnostic(err error) {
	var framing relay.FramingError
	var unknown relay.UnknownTypeError
	var timeout relay.TimeoutError
	switch {
	case errors.As(err, &framing):
		p.sinks.Metrics.RecordDiagnostic("framing")
		log.Debug("Session %s: %s", p.session.ID, err)
	case errors.As(err, &unknown):
		p.sinks.Metrics.RecordDiagnostic("unknown_type")
		log.Warning("Session %s: %s", p.session.ID, err)
	case errors.As(err, &timeout):
		p.sinks.Metrics.RecordDiagnostic("timeout")
		log.Warning("Session %s: %s", p.session.ID, err)
	default:
		p.sinks.Metrics.RecordDiagnostic("decode")
		log.Error("Session %s: %s", p.session.ID, err)
	}
}

// pending applies queued commands so they take effect before buffered data is decoded.
func (p *Pipeline) pending(commands <-chan Command) <-chan Command {
	for {
		select {
		case cmd, ok := <-commands:
			if !ok {
				return nil
			}
			p.HandleCommand(cmd)
		default:
			return commands
		}
	}
}

// Run drives the relay until the context is done. Between drains it waits for new bytes,
// the poll ticker that lets timeouts fire, or a viewer command.
func (p *Pipeline) Run(ctx context.Context, r *relay.Relay, wake <-chan struct{}, commands <-chan Command) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		commands = p.pending(commands)
		p.Drain(r)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-wake:
		case <-ticker.C:
		case cmd, ok := <-commands:
			if !ok {
				commands = nil
				continue
			}
			p.HandleCommand(cmd)
		}
	}
}
