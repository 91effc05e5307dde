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
	"bytes"
	"errors"
	"testing"

	"github.com/google/gopacket"
)

func sampleTelemetry() *TelemetryLayer {
	return &TelemetryLayer{
		Motion: Motion{
			Acceleration: [3]int16{1000, -250, 9810},
			Gyroscope:    [3]int16{12, -34, 56},
			Time:         123456,
		},
		TemperatureOutside: 21500,
		Distance:           120,
		AirQuality:         -1,
		Sound:              512,
		TemperatureInside:  23,
		HumidityInside:     Missing,
		HumidityOutside:    40,
	}
}

func TestTelemetryWireLayout(t *testing.T) {
	data, err := EncodeFrame(MessageTypeTelemetry, sampleTelemetry())
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != FrameHeaderSize+TelemetrySize {
		t.Fatalf("frame size %d, want %d", len(data), FrameHeaderSize+TelemetrySize)
	}
	want := []byte{
		'0', '1', '0',
		0xe8, 0x03, 0x06, 0xff, 0x52, 0x26, // ax ay az
		0x0c, 0x00, 0xde, 0xff, 0x38, 0x00, // gx gy gz
		0x40, 0xe2, 0x01, 0x00, // time
		0xfc, 0x53, // temperature_outside
		0x78, 0x00, // distance
		0xff, 0xff, // air_quality
		0x00, 0x02, // sound
		23, 0xff, 40,
	}
	if !bytes.Equal(data, want) {
		t.Fatalf("wire bytes\n got % x\nwant % x", data, want)
	}
}

func TestDecodePacket(t *testing.T) {
	tests := []struct {
		name    string
		msgType MessageType
		payload gopacket.SerializableLayer
		layer   gopacket.LayerType
	}{
		{"telemetry", MessageTypeTelemetry, sampleTelemetry(), TelemetryLayerType},
		{"drop telemetry", MessageTypeDropTelemetry, &DropTelemetryLayer{Motion: Motion{Time: 7}}, DropTelemetryLayerType},
		{"text", MessageTypeText, &TextLayer{Text: "parachute deployed"}, TextLayerType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeFrame(tt.msgType, tt.payload)
			if err != nil {
				t.Fatal(err)
			}
			packet := gopacket.NewPacket(data, FrameLayerType, gopacket.Default)
			if el := packet.ErrorLayer(); el != nil {
				t.Fatalf("decode error: %v", el.Error())
			}
			frame, ok := packet.Layer(FrameLayerType).(*FrameLayer)
			if !ok {
				t.Fatal("no frame layer")
			}
			if frame.Type != tt.msgType {
				t.Errorf("type %v, want %v", frame.Type, tt.msgType)
			}
			if packet.Layer(tt.layer) == nil {
				t.Errorf("no %v layer", tt.layer)
			}
		})
	}
}

func TestTelemetryRoundTrip(t *testing.T) {
	in := sampleTelemetry()
	data, err := EncodeFrame(MessageTypeTelemetry, in)
	if err != nil {
		t.Fatal(err)
	}
	out := &TelemetryLayer{}
	if err := out.DecodeFromBytes(data[FrameHeaderSize:], gopacket.NilDecodeFeedback); err != nil {
		t.Fatal(err)
	}
	if out.Motion != in.Motion || out.TemperatureOutside != in.TemperatureOutside ||
		out.AirQuality != in.AirQuality || out.HumidityInside != in.HumidityInside {
		t.Fatalf("decoded %+v, want %+v", out, in)
	}
}

func TestFrameErrors(t *testing.T) {
	f := &FrameLayer{}
	err := f.DecodeFromBytes([]byte{'0', '2', '0'}, gopacket.NilDecodeFeedback)
	var wrong ErrWrongHeader
	if !errors.As(err, &wrong) {
		t.Fatalf("got %v, want ErrWrongHeader", err)
	}
	err = f.DecodeFromBytes([]byte{'0'}, gopacket.NilDecodeFeedback)
	var short ErrTruncated
	if !errors.As(err, &short) {
		t.Fatalf("got %v, want ErrTruncated", err)
	}
}

func TestMessageTypes(t *testing.T) {
	tests := []struct {
		msgType MessageType
		known   bool
		size    int
	}{
		{MessageTypeTelemetry, true, TelemetrySize},
		{MessageTypeDropTelemetry, true, MotionSize},
		{MessageTypeText, true, 0},
		{MessageType('7'), false, 0},
	}
	for _, tt := range tests {
		if got := tt.msgType.Known(); got != tt.known {
			t.Errorf("%q known %v, want %v", byte(tt.msgType), got, tt.known)
		}
		size, ok := tt.msgType.PayloadSize()
		if size != tt.size || ok != (tt.size > 0) {
			t.Errorf("%q payload size %d %v, want %d", byte(tt.msgType), size, ok, tt.size)
		}
	}
}

func TestEncodeCommand(t *testing.T) {
	data, err := EncodeCommand(CommandCodeTransmission, 1)
	if err != nil {
		t.Fatal(err)
	}
	if want := []byte{'0', '1', 8, 1}; !bytes.Equal(data, want) {
		t.Fatalf("command bytes % x, want % x", data, want)
	}
	c := &CommandLayer{}
	if err := c.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
		t.Fatal(err)
	}
	if c.Code != CommandCodeTransmission || c.Value != 1 {
		t.Fatalf("decoded %d:%d", c.Code, c.Value)
	}
}
