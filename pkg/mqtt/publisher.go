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
	"fmt"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/cansat-ground/go-relay/pkg/config"
	"github.com/cansat-ground/go-relay/pkg/log"
	"github.com/cansat-ground/go-relay/pkg/metrics"
	"github.com/cansat-ground/go-relay/pkg/telemetry"
)

const (
	PublishTimeout    = 5 * time.Second
	DisconnectQuiesce = 250
	// QueueSize bounds the records waiting for the broker
	QueueSize = 256
	// SinkName labels the publisher in logs and metrics
	SinkName = "mqtt"
)

// ErrPublishTimeout returned when the broker does not confirm a publish in time
type ErrPublishTimeout struct {
	Topic string
}

func (e ErrPublishTimeout) Error() string {
	return fmt.Sprintf("MQTT publish to %s timed out", e.Topic)
}

// ErrQueueFull returned when records arrive faster than the broker takes them
type ErrQueueFull struct{}

func (e ErrQueueFull) Error() string {
	return "MQTT publish queue is full, record dropped"
}

// ErrClosed returned by Broadcast after Close
type ErrClosed struct{}

func (e ErrClosed) Error() string {
	return "MQTT publisher is closed"
}

type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

type message struct {
	topic   string
	payload []byte
}

// Publisher forwards records to an MQTT broker, one topic per session.
// Broadcast only enqueues; a single goroutine waits for the broker.
type Publisher struct {
	client  client
	cfg     *config.MQTTConfig
	metrics *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	queue  chan message
	done   chan struct{}
}

func clientOptions(cfg *config.MQTTConfig) *paho.ClientOptions {
	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID("go-relay-" + uuid.New().String()[:8])
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(paho.Client) {
		log.Info("MQTT: connected to broker %s", cfg.Broker)
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		log.Warning("MQTT: connection lost: %s", err)
	})
	return opts
}

// Connect dials the broker from cfg and starts the publishing goroutine
func Connect(cfg *config.MQTTConfig, m *metrics.Metrics) (*Publisher, error) {
	c := paho.NewClient(clientOptions(cfg))
	token := c.Connect()
	if !token.WaitTimeout(PublishTimeout) {
		log.Warning("MQTT: broker %s not reachable yet, retrying in background", cfg.Broker)
	} else if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	return newPublisher(c, cfg, m), nil
}

func newPublisher(c client, cfg *config.MQTTConfig, m *metrics.Metrics) *Publisher {
	p := &Publisher{
		client:  c,
		cfg:     cfg,
		metrics: m,
		queue:   make(chan message, QueueSize),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *Publisher) run() {
	defer close(p.done)
	for msg := range p.queue {
		token := p.client.Publish(msg.topic, p.cfg.QoS, p.cfg.Retain, msg.payload)
		var err error
		if !token.WaitTimeout(PublishTimeout) {
			err = ErrPublishTimeout{Topic: msg.topic}
		} else {
			err = token.Error()
		}
		if err != nil {
			p.metrics.RecordPublishError(SinkName)
			log.Warning("MQTT: %s", err)
		}
	}
}

func (p *Publisher) Topic(sessionID string) string {
	return strings.TrimSuffix(p.cfg.TopicPrefix, "/") + "/" + sessionID + "/telemetry"
}

func (p *Publisher) Name() string {
	return SinkName
}

// Broadcast enqueues the record without waiting for the broker
func (p *Publisher) Broadcast(sessionID string, rec *telemetry.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed{}
	}
	select {
	case p.queue <- message{topic: p.Topic(sessionID), payload: payload}:
		return nil
	default:
		return ErrQueueFull{}
	}
}

// Close publishes what is queued and disconnects
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()
	<-p.done
	p.client.Disconnect(DisconnectQuiesce)
}
