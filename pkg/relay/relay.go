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

package relay

import (
	"time"

	"github.com/cansat-ground/go-relay/pkg/config"
	"github.com/cansat-ground/go-relay/pkg/layers"
	"github.com/cansat-ground/go-relay/pkg/telemetry"
)

type State uint8

const (
	AwaitingHeader State = iota
	AwaitingType
	ReceivingPayload
	ReceivingText
)

func (s State) String() string {
	switch s {
	case AwaitingHeader:
		return "AwaitingHeader"
	case AwaitingType:
		return "AwaitingType"
	case ReceivingPayload:
		return "ReceivingPayload"
	case ReceivingText:
		return "ReceivingText"
	}
	return "Unknown"
}

// Message is a completed frame: a telemetry record or a text line
type Message struct {
	Type   layers.MessageType
	Record *telemetry.Record
	Text   string
}

// Relay recovers frames from a byte stream with no flow control.
// It is not safe for concurrent use.
type Relay struct {
	source      Source
	clock       Clock
	dataTimeout time.Duration
	textTimeout time.Duration

	state       State
	headerIndex int
	msgType     layers.MessageType
	started     time.Time
	text        []byte
}

func NewRelay(source Source, cfg *config.RelayConfig, clock Clock) *Relay {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Relay{
		source:      source,
		clock:       clock,
		dataTimeout: cfg.DataTimeout,
		textTimeout: cfg.TextTimeout,
	}
}

func (r *Relay) State() State {
	return r.state
}

// Reset drops any partially received frame
func (r *Relay) Reset() {
	r.state = AwaitingHeader
	r.headerIndex = 0
	r.text = r.text[:0]
}

// Poll performs one non-blocking step of the frame state machine.
// It returns a message when one is completed, (nil, nil) when it made progress,
// ErrNotReady when nothing could be done, or a recoverable diagnostic error.
func (r *Relay) Poll() (*Message, error) {
	switch r.state {
	case AwaitingType:
		return r.pollType()
	case ReceivingPayload:
		return r.pollPayload()
	case ReceivingText:
		return r.pollText()
	}
	return r.pollHeader()
}

func (r *Relay) next() (byte, bool) {
	if r.source.Available() == 0 {
		return 0, false
	}
	b, err := r.source.Consume(1)
	if err != nil {
		return 0, false
	}
	return b[0], true
}

func (r *Relay) pollHeader() (*Message, error) {
	b, ok := r.next()
	if !ok {
		return nil, ErrNotReady
	}
	if b != layers.Header[r.headerIndex] {
		index := r.headerIndex
		r.headerIndex = 0
		return nil, FramingError{Byte: b, Index: index}
	}
	r.headerIndex++
	if r.headerIndex == layers.HeaderSize {
		r.headerIndex = 0
		r.state = AwaitingType
	}
	return nil, nil
}

func (r *Relay) pollType() (*Message, error) {
	b, ok := r.next()
	if !ok {
		return nil, ErrNotReady
	}
	msgType := layers.MessageType(b)
	if !msgType.Known() {
		r.state = AwaitingHeader
		return nil, UnknownTypeError{Type: b}
	}
	r.msgType = msgType
	r.started = r.clock.Now()
	if msgType == layers.MessageTypeText {
		r.text = r.text[:0]
		r.state = ReceivingText
	} else {
		r.state = ReceivingPayload
	}
	return nil, nil
}

func (r *Relay) timedOut(limit time.Duration) error {
	elapsed := r.clock.Now().Sub(r.started)
	if elapsed > limit {
		r.Reset()
		return TimeoutError{Type: r.msgType, Elapsed: elapsed, Limit: limit}
	}
	return nil
}

func (r *Relay) pollPayload() (*Message, error) {
	if err := r.timedOut(r.dataTimeout); err != nil {
		return nil, err
	}
	size, _ := r.msgType.PayloadSize()
	if r.source.Available() < size {
		return nil, ErrNotReady
	}
	payload, err := r.source.Consume(size)
	r.state = AwaitingHeader
	if err != nil {
		return nil, err
	}
	rec, err := telemetry.Decode(r.msgType, payload)
	if err != nil {
		return nil, err
	}
	return &Message{Type: r.msgType, Record: rec}, nil
}

func (r *Relay) pollText() (*Message, error) {
	if err := r.timedOut(r.textTimeout); err != nil {
		return nil, err
	}
	b, ok := r.next()
	if !ok {
		return nil, ErrNotReady
	}
	if b == layers.Terminator {
		r.state = AwaitingHeader
		return &Message{Type: layers.MessageTypeText, Text: string(r.text)}, nil
	}
	if b >= 0x20 && b < 0x7f {
		r.text = append(r.text, b)
	}
	return nil, nil
}
