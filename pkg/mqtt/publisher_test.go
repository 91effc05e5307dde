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

package mqtt

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/cansat-ground/go-relay/pkg/config"
	"github.com/cansat-ground/go-relay/pkg/metrics"
	"github.com/cansat-ground/go-relay/pkg/pipeline"
	"github.com/cansat-ground/go-relay/pkg/session"
	"github.com/cansat-ground/go-relay/pkg/telemetry"
)

// fakeToken completes when release is closed, or at once when release is nil
type fakeToken struct {
	err     error
	release chan struct{}
}

func (t fakeToken) Wait() bool {
	return t.WaitTimeout(time.Hour)
}

func (t fakeToken) WaitTimeout(d time.Duration) bool {
	if t.release == nil {
		return true
	}
	select {
	case <-t.release:
		return true
	case <-time.After(d):
		return false
	}
}

func (t fakeToken) Done() <-chan struct{} {
	if t.release != nil {
		return t.release
	}
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (t fakeToken) Error() error { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeClient struct {
	mu           sync.Mutex
	messages     []published
	token        fakeToken
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, published{topic, qos, retained, payload.([]byte)})
	return c.token
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
}

func (c *fakeClient) Published() []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]published(nil), c.messages...)
}

func TestTopic(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"cansat", "cansat/abc/telemetry"},
		{"ground/cansat/", "ground/cansat/abc/telemetry"},
	}
	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			p := &Publisher{cfg: &config.MQTTConfig{TopicPrefix: tt.prefix}}
			if got := p.Topic("abc"); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBroadcast(t *testing.T) {
	c := &fakeClient{}
	p := newPublisher(c, &config.MQTTConfig{TopicPrefix: "cansat", QoS: 1, Retain: true}, nil)
	rec := &telemetry.Record{Time: 42, Sound: telemetry.Float(300)}
	if err := p.Broadcast("s1", rec); err != nil {
		t.Fatal(err)
	}
	p.Close()

	messages := c.Published()
	if len(messages) != 1 {
		t.Fatalf("published %d messages", len(messages))
	}
	msg := messages[0]
	if msg.topic != "cansat/s1/telemetry" || msg.qos != 1 || !msg.retained {
		t.Fatalf("message %+v", msg)
	}
	var got map[string]interface{}
	if err := json.Unmarshal(msg.payload, &got); err != nil {
		t.Fatal(err)
	}
	if got["time"] != float64(42) || got["sound"] != float64(300) {
		t.Errorf("payload %s", msg.payload)
	}
	if _, ok := got["distance"]; ok {
		t.Errorf("absent channel published: %s", msg.payload)
	}
	if !c.disconnected {
		t.Error("client not disconnected")
	}
	if err := p.Broadcast("s1", rec); !errors.As(err, &ErrClosed{}) {
		t.Errorf("broadcast after close returned %v", err)
	}
}

func TestSlowBrokerDoesNotBlockSession(t *testing.T) {
	release := make(chan struct{})
	c := &fakeClient{token: fakeToken{release: release}}
	p := newPublisher(c, &config.MQTTConfig{TopicPrefix: "cansat", QoS: 1}, nil)

	cfg := config.NewDefaultConfig()
	pl := pipeline.New(cfg, session.New(nil), pipeline.Sinks{Broadcaster: p})
	start := time.Now()
	forwarded := 0
	for i := 0; i < QueueSize+10; i++ {
		// environmental records are never throttled
		rec := &telemetry.Record{Time: int64(1000 + i), Sound: telemetry.Float(100)}
		if pl.Process(rec).Forwarded {
			forwarded++
		}
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("processing took %s with a stalled broker", elapsed)
	}
	if forwarded != QueueSize+10 {
		t.Fatalf("forwarded %d records", forwarded)
	}

	err := p.Broadcast("s1", &telemetry.Record{})
	if !errors.As(err, &ErrQueueFull{}) {
		t.Fatalf("got %v, want ErrQueueFull", err)
	}
	close(release)
	p.Close()
}

func TestPublishErrorsAreCounted(t *testing.T) {
	tests := []struct {
		name  string
		token fakeToken
	}{
		{"rejected", fakeToken{err: errors.New("not authorized")}},
		{"timeout", fakeToken{release: make(chan struct{})}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.name == "timeout" && testing.Short() {
				t.Skip("waits for the publish timeout")
			}
			m := metrics.New()
			p := newPublisher(&fakeClient{token: tt.token}, &config.MQTTConfig{TopicPrefix: "cansat"}, m)
			if err := p.Broadcast("s1", &telemetry.Record{}); err != nil {
				t.Fatal(err)
			}
			p.Close()

			rec := httptest.NewRecorder()
			m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
			if !strings.Contains(rec.Body.String(), `relay_broadcast_errors_total{sink="mqtt"} 1`) {
				t.Errorf("publish error not counted:\n%s", rec.Body.String())
			}
		})
	}
}
