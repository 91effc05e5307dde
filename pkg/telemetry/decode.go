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

package telemetry

import (
	"github.com/google/gopacket"

	"github.com/cansat-ground/go-relay/pkg/layers"
)

// scale is the fixed point factor the payload multiplies floats with
const scale = 1000

func fixed(v int16) float64 {
	return float64(v) / scale
}

func vector(v [3]int16) *Vector {
	return &Vector{X: fixed(v[0]), Y: fixed(v[1]), Z: fixed(v[2])}
}

// negativeAbsent maps the negative sentinel to an absent value
func negativeAbsent(v float64) *float64 {
	if v < 0 {
		return nil
	}
	return &v
}

func missingAbsent(v uint8) *float64 {
	if v == layers.Missing {
		return nil
	}
	f := float64(v)
	return &f
}

func fromMotion(m *layers.Motion, kind Kind) *Record {
	return &Record{
		Acceleration: vector(m.Acceleration),
		Gyroscope:    vector(m.Gyroscope),
		Time:         int64(m.Time),
		Kind:         kind,
	}
}

// FromTelemetry converts a decoded full telemetry layer to a record
func FromTelemetry(t *layers.TelemetryLayer) *Record {
	r := fromMotion(&t.Motion, KindFull)
	r.TemperatureOutside = negativeAbsent(fixed(t.TemperatureOutside))
	r.Distance = negativeAbsent(float64(t.Distance))
	r.AirQuality = negativeAbsent(float64(t.AirQuality))
	r.Sound = negativeAbsent(float64(t.Sound))
	r.TemperatureInside = missingAbsent(t.TemperatureInside)
	r.HumidityInside = missingAbsent(t.HumidityInside)
	r.HumidityOutside = missingAbsent(t.HumidityOutside)
	return r
}

// FromDropTelemetry converts a decoded drop telemetry layer to a record
func FromDropTelemetry(t *layers.DropTelemetryLayer) *Record {
	return fromMotion(&t.Motion, KindDrop)
}

// Decode decodes a fixed size telemetry payload of the given message type.
// The payload is expected to be exactly as long as the message type requires.
func Decode(msgType layers.MessageType, payload []byte) (*Record, error) {
	switch msgType {
	case layers.MessageTypeTelemetry:
		t := &layers.TelemetryLayer{}
		if err := t.DecodeFromBytes(payload, gopacket.NilDecodeFeedback); err != nil {
			return nil, err
		}
		return FromTelemetry(t), nil
	case layers.MessageTypeDropTelemetry:
		t := &layers.DropTelemetryLayer{}
		if err := t.DecodeFromBytes(payload, gopacket.NilDecodeFeedback); err != nil {
			return nil, err
		}
		return FromDropTelemetry(t), nil
	}
	return nil, ErrNotTelemetry{Type: msgType}
}
