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

package serialport

import (
	"errors"
	"time"

	"github.com/cansat-ground/go-relay/pkg/config"
	"github.com/cansat-ground/go-relay/pkg/layers"
	"github.com/cansat-ground/go-relay/pkg/log"
	"github.com/cansat-ground/go-relay/pkg/relay"
)

// AckSubscriber is the buffer id the acknowledger subscribes with
const AckSubscriber = "acknowledger"

// Acknowledge answers every telemetry frame read from the link with exactly one
// acknowledgment line, independent of how many viewers are connected.
// The subscription is made before it returns, the frames are handled in a goroutine
// that stops with the port context.
func (p *Port) Acknowledge(cfg *config.RelayConfig) {
	buf := p.Subscribe(AckSubscriber)
	r := relay.NewRelay(buf, cfg, nil)
	go func() {
		defer p.Unsubscribe(AckSubscriber)
		ticker := time.NewTicker(cfg.PollInterval)
		defer ticker.Stop()
		for {
			p.acknowledge(r)
			select {
			case <-p.Done():
				return
			case <-buf.Notify():
			case <-ticker.C:
			}
		}
	}()
}

// acknowledge drains r and returns the number of acknowledged frames
func (p *Port) acknowledge(r *relay.Relay) int {
	count := 0
	for {
		msg, err := r.Poll()
		if errors.Is(err, relay.ErrNotReady) {
			return count
		}
		if err != nil || msg == nil || msg.Type == layers.MessageTypeText {
			continue
		}
		if _, err := p.Write([]byte(layers.Acknowledgment)); err != nil {
			log.Error("Failed to acknowledge %s frame: %s", msg.Type, err)
			continue
		}
		count++
	}
}
