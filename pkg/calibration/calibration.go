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

package calibration

import (
	"math"

	"github.com/cansat-ground/go-relay/pkg/config"
	"github.com/cansat-ground/go-relay/pkg/telemetry"
)

const (
	// MaxAccelerationG is the accelerometer range in g
	MaxAccelerationG = 2
	MaxAngularRate   = 250
	MaxDistance      = 300
	MaxAnalog        = 1023
	MaxPercent       = 100
)

type bounds struct {
	min float64
	max float64
}

var scalarBounds = map[telemetry.Channel]bounds{
	telemetry.ChannelTemperatureOutside: {0, MaxPercent},
	telemetry.ChannelDistance:           {0, MaxDistance},
	telemetry.ChannelAirQuality:         {0, MaxAnalog},
	telemetry.ChannelSound:              {0, MaxAnalog},
	telemetry.ChannelTemperatureInside:  {0, MaxPercent},
	telemetry.ChannelHumidityInside:     {0, MaxPercent},
	telemetry.ChannelHumidityOutside:    {0, MaxPercent},
}

// Engine converts raw decoded values into physical units.
// The model is read only after construction.
type Engine struct {
	model config.CalibrationConfig
}

func NewEngine(cfg *config.CalibrationConfig) *Engine {
	return &Engine{model: *cfg}
}

func affine(a config.Affine, v float64) float64 {
	return a.K*v + a.M
}

func affinePtr(a config.Affine, v *float64) {
	if v != nil {
		*v = affine(a, *v)
	}
}

// Mask forces the channels of every disabled sensor to absent
func Mask(rec *telemetry.Record, sensors telemetry.SensorSet) {
	for _, sensor := range sensors.Disabled() {
		for _, ch := range sensor.Channels() {
			rec.Clear(ch)
		}
	}
}

// Calibrate applies the calibration model to every present channel in place
func (e *Engine) Calibrate(rec *telemetry.Record) {
	if a := rec.Acceleration; a != nil {
		acc := e.model.Acceleration
		a.X = affine(acc.X, a.X) * acc.Gravity
		a.Y = affine(acc.Y, a.Y) * acc.Gravity
		a.Z = affine(acc.Z, a.Z) * acc.Gravity
	}
	if g := rec.Gyroscope; g != nil {
		off := e.model.GyroscopeOffset
		g.X -= off.X
		g.Y -= off.Y
		g.Z -= off.Z
	}
	affinePtr(e.model.TemperatureInside, rec.TemperatureInside)
	affinePtr(e.model.HumidityInside, rec.HumidityInside)
	affinePtr(e.model.HumidityOutside, rec.HumidityOutside)
}

// Apply masks disabled sensors and calibrates what is left
func (e *Engine) Apply(rec *telemetry.Record, sensors telemetry.SensorSet) {
	Mask(rec, sensors)
	e.Calibrate(rec)
}

// Check returns ErrImplausible for the first present value outside its physical range.
// The result is advisory, a strange record is still valid.
func (e *Engine) Check(rec *telemetry.Record) error {
	if a := rec.Acceleration; a != nil {
		limit := MaxAccelerationG * math.Abs(e.model.Acceleration.Gravity)
		for _, v := range []float64{a.X, a.Y, a.Z} {
			if math.Abs(v) > limit {
				return ErrImplausible{Channel: telemetry.ChannelAcceleration, Value: v, Min: -limit, Max: limit}
			}
		}
	}
	if g := rec.Gyroscope; g != nil {
		if m := g.Magnitude(); m > MaxAngularRate {
			return ErrImplausible{Channel: telemetry.ChannelGyroscope, Value: m, Min: 0, Max: MaxAngularRate}
		}
	}
	for _, ch := range telemetry.Channels {
		b, ok := scalarBounds[ch]
		if !ok {
			continue
		}
		if v, present := rec.Scalar(ch); present && (v < b.min || v > b.max) {
			return ErrImplausible{Channel: ch, Value: v, Min: b.min, Max: b.max}
		}
	}
	return nil
}
