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

package layers

import (
	"encoding/binary"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const (
	TelemetryLayerNum     = 2002
	DropTelemetryLayerNum = 2003

	// MotionSize is the size of the motion block shared by both telemetry payloads
	// ax ay az gx gy gz (int16 each) + time (uint32)
	MotionSize = 6*2 + 4
	// TelemetrySize is the motion block plus
	// temperature_outside distance air_quality sound (int16 each) +
	// temperature_inside humidity_inside humidity_outside (uint8 each)
	TelemetrySize = MotionSize + 4*2 + 3

	// Missing is the value the payload sends for an absent one byte reading
	Missing uint8 = 255
)

// Motion is the inertial part of every telemetry payload.
// Acceleration is in units of 1/1000 g, Gyroscope in 1/1000 deg/s,
// Time in milliseconds since the payload booted.
type Motion struct {
	Acceleration [3]int16
	Gyroscope    [3]int16
	Time         uint32
}

func (m *Motion) decode(data []byte) {
	for i := 0; i < 3; i++ {
		m.Acceleration[i] = int16(binary.LittleEndian.Uint16(data[i*2 : i*2+2]))
		m.Gyroscope[i] = int16(binary.LittleEndian.Uint16(data[6+i*2 : 6+i*2+2]))
	}
	m.Time = binary.LittleEndian.Uint32(data[12:16])
}

func (m *Motion) encode(data []byte) {
	for i := 0; i < 3; i++ {
		binary.LittleEndian.PutUint16(data[i*2:i*2+2], uint16(m.Acceleration[i]))
		binary.LittleEndian.PutUint16(data[6+i*2:6+i*2+2], uint16(m.Gyroscope[i]))
	}
	binary.LittleEndian.PutUint32(data[12:16], m.Time)
}

// TelemetryLayer is the full telemetry payload sent while the can is on the ground or descending
type TelemetryLayer struct {
	layers.BaseLayer
	Motion
	// TemperatureOutside is in 1/1000 deg C, negative means absent
	TemperatureOutside int16
	Distance           int16
	AirQuality         int16
	Sound              int16
	TemperatureInside  uint8
	HumidityInside     uint8
	HumidityOutside    uint8
}

var TelemetryLayerType = gopacket.RegisterLayerType(TelemetryLayerNum,
	gopacket.LayerTypeMetadata{Name: "TelemetryLayerType", Decoder: gopacket.DecodeFunc(DecodeTelemetryLayer)})

func (t *TelemetryLayer) LayerType() gopacket.LayerType {
	return TelemetryLayerType
}

func (t *TelemetryLayer) CanDecode() gopacket.LayerClass {
	return TelemetryLayerType
}

func (t *TelemetryLayer) NextLayerType() gopacket.LayerType {
	return gopacket.LayerTypeZero
}

func (t *TelemetryLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	bytes, err := b.AppendBytes(TelemetrySize)
	if err != nil {
		return err
	}
	t.Motion.encode(bytes[0:MotionSize])
	binary.LittleEndian.PutUint16(bytes[16:18], uint16(t.TemperatureOutside))
	binary.LittleEndian.PutUint16(bytes[18:20], uint16(t.Distance))
	binary.LittleEndian.PutUint16(bytes[20:22], uint16(t.AirQuality))
	binary.LittleEndian.PutUint16(bytes[22:24], uint16(t.Sound))
	bytes[24] = t.TemperatureInside
	bytes[25] = t.HumidityInside
	bytes[26] = t.HumidityOutside
	return nil
}

func (t *TelemetryLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < TelemetrySize {
		df.SetTruncated()
		return ErrTruncated{Layer: "telemetry", Want: TelemetrySize, Got: len(data)}
	}
	t.BaseLayer = layers.BaseLayer{
		Contents: data[:TelemetrySize],
		Payload:  data[TelemetrySize:],
	}
	t.Motion.decode(data[0:MotionSize])
	t.TemperatureOutside = int16(binary.LittleEndian.Uint16(data[16:18]))
	t.Distance = int16(binary.LittleEndian.Uint16(data[18:20]))
	t.AirQuality = int16(binary.LittleEndian.Uint16(data[20:22]))
	t.Sound = int16(binary.LittleEndian.Uint16(data[22:24]))
	t.TemperatureInside = data[24]
	t.HumidityInside = data[25]
	t.HumidityOutside = data[26]
	return nil
}

func DecodeTelemetryLayer(data []byte, p gopacket.PacketBuilder) error {
	t := &TelemetryLayer{}
	err := t.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(t)
	return nil
}

// DropTelemetryLayer is the reduced payload sent during the drop, only the motion block
type DropTelemetryLayer struct {
	layers.BaseLayer
	Motion
}

var DropTelemetryLayerType = gopacket.RegisterLayerType(DropTelemetryLayerNum,
	gopacket.LayerTypeMetadata{Name: "DropTelemetryLayerType", Decoder: gopacket.DecodeFunc(DecodeDropTelemetryLayer)})

func (t *DropTelemetryLayer) LayerType() gopacket.LayerType {
	return DropTelemetryLayerType
}

func (t *DropTelemetryLayer) CanDecode() gopacket.LayerClass {
	return DropTelemetryLayerType
}

func (t *DropTelemetryLayer) NextLayerType() gopacket.LayerType {
	return gopacket.LayerTypeZero
}

func (t *DropTelemetryLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	bytes, err := b.AppendBytes(MotionSize)
	if err != nil {
		return err
	}
	t.Motion.encode(bytes)
	return nil
}

func (t *DropTelemetryLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < MotionSize {
		df.SetTruncated()
		return ErrTruncated{Layer: "drop telemetry", Want: MotionSize, Got: len(data)}
	}
	t.BaseLayer = layers.BaseLayer{
		Contents: data[:MotionSize],
		Payload:  data[MotionSize:],
	}
	t.Motion.decode(data[0:MotionSize])
	return nil
}

func DecodeDropTelemetryLayer(data []byte, p gopacket.PacketBuilder) error {
	t := &DropTelemetryLayer{}
	err := t.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(t)
	return nil
}
