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
	"fmt"
	"math"
	"time"
)

type Kind uint8

const (
	KindFull Kind = iota
	KindDrop
)

func (k Kind) String() string {
	switch k {
	case KindFull:
		return "full"
	case KindDrop:
		return "drop"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Magnitude returns the euclidean norm of the vector
func (v Vector) Magnitude() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Record is one decoded telemetry message.
// A nil channel means the reading is absent, absent channels are omitted from JSON.
type Record struct {
	Acceleration       *Vector  `json:"acceleration,omitempty"`
	Gyroscope          *Vector  `json:"gyroscope,omitempty"`
	Time               int64    `json:"time"`
	TemperatureOutside *float64 `json:"temperature_outside,omitempty"`
	Distance           *float64 `json:"distance,omitempty"`
	AirQuality         *float64 `json:"air_quality,omitempty"`
	Sound              *float64 `json:"sound,omitempty"`
	TemperatureInside  *float64 `json:"temperature_inside,omitempty"`
	HumidityInside     *float64 `json:"humidity_inside,omitempty"`
	HumidityOutside    *float64 `json:"humidity_outside,omitempty"`
	Kind               Kind     `json:"-"`
}

// Has reports whether the channel carries a value
func (r *Record) Has(ch Channel) bool {
	switch ch {
	case ChannelAcceleration:
		return r.Acceleration != nil
	case ChannelGyroscope:
		return r.Gyroscope != nil
	}
	p := r.scalar(ch)
	return p != nil && *p != nil
}

// Clear makes the channel absent
func (r *Record) Clear(ch Channel) {
	switch ch {
	case ChannelAcceleration:
		r.Acceleration = nil
		return
	case ChannelGyroscope:
		r.Gyroscope = nil
		return
	}
	if p := r.scalar(ch); p != nil {
		*p = nil
	}
}

// Scalar returns the value of a scalar channel, ok is false when it is absent
func (r *Record) Scalar(ch Channel) (v float64, ok bool) {
	p := r.scalar(ch)
	if p == nil || *p == nil {
		return 0, false
	}
	return **p, true
}

func (r *Record) scalar(ch Channel) **float64 {
	switch ch {
	case ChannelTemperatureOutside:
		return &r.TemperatureOutside
	case ChannelDistance:
		return &r.Distance
	case ChannelAirQuality:
		return &r.AirQuality
	case ChannelSound:
		return &r.Sound
	case ChannelTemperatureInside:
		return &r.TemperatureInside
	case ChannelHumidityInside:
		return &r.HumidityInside
	case ChannelHumidityOutside:
		return &r.HumidityOutside
	}
	return nil
}

// Environmental reports whether any of the slow environmental channels is present
func (r *Record) Environmental() bool {
	for _, ch := range EnvironmentalChannels {
		if r.Has(ch) {
			return true
		}
	}
	return false
}

// Sample is what gets persisted: a calibrated record with its plausibility flag
type Sample struct {
	Record     *Record   `json:"record"`
	Strange    bool      `json:"strange"`
	ReceivedAt time.Time `json:"received_at"`
}

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}
