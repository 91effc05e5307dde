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

package command

import (
	"context"
	"errors"
	"io"

	"github.com/cansat-ground/go-relay/pkg/config"
	"github.com/cansat-ground/go-relay/pkg/log"
	"github.com/cansat-ground/go-relay/pkg/metrics"
	"github.com/cansat-ground/go-relay/pkg/mqtt"
	"github.com/cansat-ground/go-relay/pkg/pipeline"
	"github.com/cansat-ground/go-relay/pkg/relay"
	"github.com/cansat-ground/go-relay/pkg/serialport"
	"github.com/cansat-ground/go-relay/pkg/session"
	"github.com/cansat-ground/go-relay/pkg/srv"
	"github.com/cansat-ground/go-relay/pkg/store"
	"github.com/cansat-ground/go-relay/pkg/telemetry"
)

const replayChunk = 4096

// StartRelayServer opens the serial link and serves viewers until ctx is done
func StartRelayServer(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := metrics.New()
	opts := []srv.Option{srv.WithMetrics(m)}

	st, err := store.Open(cfg.Store)
	switch {
	case errors.As(err, &store.ErrNoBackend{}):
		log.Warning("No store backend configured, samples will not be persisted")
	case err != nil:
		return err
	default:
		defer st.Close()
		opts = append(opts, srv.WithStore(st))
	}

	if cfg.MQTT.Enabled {
		pub, err := mqtt.Connect(cfg.MQTT, m)
		if err != nil {
			return err
		}
		defer pub.Close()
		opts = append(opts, srv.WithBroadcaster(pub))
	}

	port, err := serialport.Open(ctx, cfg.Serial, m)
	if err != nil {
		return err
	}
	defer port.Close()
	opts = append(opts, srv.WithCapture(port))
	if cfg.Serial.Acknowledge {
		port.Acknowledge(cfg.Relay)
	}

	go func() {
		if err := port.Run(); err != nil {
			log.Error("Serial link %s failed: %s", port.Name, err)
		}
		cancel()
	}()

	return srv.NewRelayServer(ctx, cfg, port, opts...).Run()
}

// Replay runs a captured byte stream through a fresh session.
// Forwarded records are written to out as JSON lines and all samples go to st when it is not nil.
func Replay(cfg *config.Config, name string, in io.Reader, out io.Writer, st store.Store) (*session.Info, error) {
	state := session.New(telemetry.NewSensorSet(cfg.Pipeline.Sensors))
	info := state.Info()
	info.Source = name

	sinks := pipeline.Sinks{Broadcaster: pipeline.NewWriterBroadcaster(out)}
	if st != nil {
		w, err := st.OpenSession(info)
		if err != nil {
			return nil, err
		}
		defer w.Close()
		sinks.Persister = w
	}

	p := pipeline.New(cfg, state, sinks)
	buf := relay.NewBuffer(0)
	r := relay.NewRelay(buf, cfg.Relay, nil)
	chunk := make([]byte, replayChunk)
	frames := 0
	for {
		n, err := in.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			frames += p.Drain(r)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	info = state.Info()
	info.Source = name
	log.Info("Replayed %d messages from %s, %d samples admitted", frames, name, info.Samples)
	return &info, nil
}
