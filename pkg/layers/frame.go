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
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

func init() {
	initUnknownMessageTypes()
	initActualMessageTypes()
}

const (
	// FrameLayerNum identifies the layer
	FrameLayerNum = 2001
	// HeaderSize is the size of the sync sequence in the beginning of each frame
	HeaderSize = 2
	// FrameHeaderSize is the sync sequence plus the message type byte
	FrameHeaderSize = HeaderSize + 1
)

// Header is the sync sequence that starts every frame in both directions
var Header = [HeaderSize]byte{'0', '1'}

type MessageType uint8

const (
	MessageTypeTelemetry     MessageType = '0'
	MessageTypeText          MessageType = '1'
	MessageTypeDropTelemetry MessageType = '2'
)

type errorDecoderForMessageType int

func (e *errorDecoderForMessageType) Decode(data []byte, p gopacket.PacketBuilder) error {
	return e
}

func (e *errorDecoderForMessageType) Error() string {
	return fmt.Sprintf("Unable to decode message type %d", int(*e))
}

var errorDecodersForMessageType [256]errorDecoderForMessageType
var MessageTypeMetadata [256]layers.EnumMetadata

// payloadSizes holds the fixed payload size per message type, 0 means variable size
var payloadSizes [256]int

func initUnknownMessageTypes() {
	for i := 0; i < 256; i++ {
		errorDecodersForMessageType[i] = errorDecoderForMessageType(i)
		MessageTypeMetadata[i] = layers.EnumMetadata{
			DecodeWith: &errorDecodersForMessageType[i],
			Name:       "UnknownMessageType",
		}
	}
}

func initActualMessageTypes() {
	MessageTypeMetadata[MessageTypeTelemetry] = layers.EnumMetadata{DecodeWith: gopacket.DecodeFunc(DecodeTelemetryLayer), Name: "Telemetry", LayerType: TelemetryLayerType}
	MessageTypeMetadata[MessageTypeDropTelemetry] = layers.EnumMetadata{DecodeWith: gopacket.DecodeFunc(DecodeDropTelemetryLayer), Name: "DropTelemetry", LayerType: DropTelemetryLayerType}
	MessageTypeMetadata[MessageTypeText] = layers.EnumMetadata{DecodeWith: gopacket.DecodeFunc(DecodeTextLayer), Name: "Text", LayerType: TextLayerType}
	payloadSizes[MessageTypeTelemetry] = TelemetrySize
	payloadSizes[MessageTypeDropTelemetry] = MotionSize
}

// Known reports whether the message type is part of the protocol
func (t MessageType) Known() bool {
	return MessageTypeMetadata[t].LayerType != gopacket.LayerTypeZero
}

// PayloadSize returns the fixed payload size of the message type.
// ok is false for variable size (text) and unknown message types.
func (t MessageType) PayloadSize() (size int, ok bool) {
	size = payloadSizes[t]
	return size, size > 0
}

// LayerType returns MessageTypeMetadata.LayerType
func (t MessageType) LayerType() gopacket.LayerType {
	return MessageTypeMetadata[t].LayerType
}

// Decode calls MessageTypeMetadata.DecodeWith's decoder
func (t MessageType) Decode(data []byte, p gopacket.PacketBuilder) error {
	return MessageTypeMetadata[t].DecodeWith.Decode(data, p)
}

// String returns MessageTypeMetadata.Name
func (t MessageType) String() string {
	return MessageTypeMetadata[t].Name
}

// FrameLayer is the sync header and the message type of a frame sent by the payload
type FrameLayer struct {
	layers.BaseLayer
	Header [HeaderSize]byte
	Type   MessageType
}

var FrameLayerType = gopacket.RegisterLayerType(FrameLayerNum,
	gopacket.LayerTypeMetadata{Name: "FrameLayerType", Decoder: gopacket.DecodeFunc(decodeFrameLayer)})

func (f *FrameLayer) LayerType() gopacket.LayerType {
	return FrameLayerType
}

func (f *FrameLayer) CanDecode() gopacket.LayerClass {
	return FrameLayerType
}

func (f *FrameLayer) NextLayerType() gopacket.LayerType {
	return f.Type.LayerType()
}

// SerializeTo serializes the frame header into bytes and prepends them to the SerializeBuffer
func (f *FrameLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	bytes, err := b.PrependBytes(FrameHeaderSize)
	if err != nil {
		return err
	}
	copy(bytes[0:HeaderSize], Header[:])
	bytes[HeaderSize] = uint8(f.Type)
	return nil
}

// DecodeFromBytes attempts to decode the byte slice as a frame header
func (f *FrameLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < FrameHeaderSize {
		df.SetTruncated()
		return ErrTruncated{Layer: "frame", Want: FrameHeaderSize, Got: len(data)}
	}
	if data[0] != Header[0] || data[1] != Header[1] {
		return ErrWrongHeader{Got: [HeaderSize]byte{data[0], data[1]}}
	}
	f.BaseLayer = layers.BaseLayer{
		Contents: data[:FrameHeaderSize],
		Payload:  data[FrameHeaderSize:],
	}
	f.Header = Header
	f.Type = MessageType(data[HeaderSize])
	return nil
}

func decodeFrameLayer(data []byte, p gopacket.PacketBuilder) error {
	f := &FrameLayer{}
	err := f.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(f)
	return p.NextDecoder(f.Type)
}

// EncodeFrame serializes a complete frame as the payload would put it on the wire
func EncodeFrame(msgType MessageType, payload gopacket.SerializableLayer) ([]byte, error) {
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{}
	err := gopacket.SerializeLayers(buf, opts, &FrameLayer{Type: msgType}, payload)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
