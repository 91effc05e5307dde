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
	"sort"
)

// Channel is a named value of a telemetry record
type Channel string

const (
	ChannelAcceleration       Channel = "acceleration"
	ChannelGyroscope          Channel = "gyroscope"
	ChannelTemperatureOutside Channel = "temperature_outside"
	ChannelDistance           Channel = "distance"
	ChannelAirQuality         Channel = "air_quality"
	ChannelSound              Channel = "sound"
	ChannelTemperatureInside  Channel = "temperature_inside"
	ChannelHumidityInside     Channel = "humidity_inside"
	ChannelHumidityOutside    Channel = "humidity_outside"
)

// Channels lists every channel in wire order
var Channels = []Channel{
	ChannelAcceleration,
	ChannelGyroscope,
	ChannelTemperatureOutside,
	ChannelDistance,
	ChannelAirQuality,
	ChannelSound,
	ChannelTemperatureInside,
	ChannelHumidityInside,
	ChannelHumidityOutside,
}

var EnvironmentalChannels = []Channel{
	ChannelTemperatureOutside,
	ChannelTemperatureInside,
	ChannelHumidityInside,
	ChannelHumidityOutside,
}

// IsVector reports whether the channel holds a three axis value
func (c Channel) IsVector() bool {
	return c == ChannelAcceleration || c == ChannelGyroscope
}

// Sensor is a physical sensor of the payload that can be switched on and off
type Sensor string

const (
	SensorAccelerometer Sensor = "Accelerometer"
	SensorGyroscope     Sensor = "Gyroscope"
	SensorThermometer   Sensor = "Thermometer"
	SensorDistance      Sensor = "Distance"
	SensorAirQuality    Sensor = "AirQuality"
	SensorSound         Sensor = "Sound"
	SensorInsideDHT     Sensor = "InsideDHT"
	SensorOutsideDHT    Sensor = "OutsideDHT"
)

type sensorInfo struct {
	code     uint8
	channels []Channel
}

var sensors = map[Sensor]sensorInfo{
	SensorAccelerometer: {1, []Channel{ChannelAcceleration}},
	SensorGyroscope:     {2, []Channel{ChannelGyroscope}},
	SensorThermometer:   {3, []Channel{ChannelTemperatureOutside}},
	SensorDistance:      {4, []Channel{ChannelDistance}},
	SensorAirQuality:    {5, []Channel{ChannelAirQuality}},
	SensorSound:         {6, []Channel{ChannelSound}},
	SensorInsideDHT:     {7, []Channel{ChannelTemperatureInside, ChannelHumidityInside}},
	SensorOutsideDHT:    {9, []Channel{ChannelHumidityOutside}},
}

// LookupSensor returns the sensor with the given name
func LookupSensor(name string) (Sensor, bool) {
	s := Sensor(name)
	_, ok := sensors[s]
	return s, ok
}

// Sensors returns all known sensors ordered by command code
func Sensors() []Sensor {
	all := make([]Sensor, 0, len(sensors))
	for s := range sensors {
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool {
		return sensors[all[i]].code < sensors[all[j]].code
	})
	return all
}

// Code is the command code the payload uses for the sensor
func (s Sensor) Code() uint8 {
	return sensors[s].code
}

// Channels returns the record channels the sensor produces
func (s Sensor) Channels() []Channel {
	return sensors[s].channels
}

// SensorSet holds the enabled state of sensors. Sensors missing from the set are enabled.
type SensorSet map[Sensor]bool

// NewSensorSet builds a set from a name to state map, unknown names are ignored
func NewSensorSet(states map[string]bool) SensorSet {
	set := SensorSet{}
	for name, enabled := range states {
		if s, ok := LookupSensor(name); ok {
			set[s] = enabled
		}
	}
	return set
}

func (s SensorSet) Enabled(sensor Sensor) bool {
	enabled, ok := s[sensor]
	return !ok || enabled
}

func (s SensorSet) Set(sensor Sensor, enabled bool) {
	s[sensor] = enabled
}

// Clone returns a copy that can be changed independently
func (s SensorSet) Clone() SensorSet {
	c := make(SensorSet, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}

// Disabled returns the sensors switched off, ordered by command code
func (s SensorSet) Disabled() []Sensor {
	var disabled []Sensor
	for _, sensor := range Sensors() {
		if !s.Enabled(sensor) {
			disabled = append(disabled, sensor)
		}
	}
	return disabled
}
