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

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const (
	TextLayerNum    = 2004
	CommandLayerNum = 2005

	// Terminator ends every text message
	Terminator = '\n'
	// CommandSize is the size of a command frame sent to the payload
	CommandSize = HeaderSize + 2

	// CommandCodeTransmission is the command code that starts and stops transmission
	CommandCodeTransmission uint8 = 8

	// Acknowledgment is written back to the payload once per telemetry frame
	Acknowledgment = "Thank you for the data\n"
)

// TextLayer is a free form diagnostic line sent by the payload
type TextLayer struct {
	layers.BaseLayer
	Text string
}

var TextLayerType = gopacket.RegisterLayerType(TextLayerNum,
	gopacket.LayerTypeMetadata{Name: "TextLayerType", Decoder: gopacket.DecodeFunc(DecodeTextLayer)})

func (t *TextLayer) LayerType() gopacket.LayerType {
	return TextLayerType
}

func (t *TextLayer) CanDecode() gopacket.LayerClass {
	return TextLayerType
}

func (t *TextLayer) NextLayerType() gopacket.LayerType {
	return gopacket.LayerTypeZero
}

// SerializeTo appends the text and the terminator
func (t *TextLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	bytes, err := b.AppendBytes(len(t.Text) + 1)
	if err != nil {
		return err
	}
	copy(bytes, t.Text)
	bytes[len(t.Text)] = Terminator
	return nil
}

// DecodeFromBytes decodes the text up to the first terminator, the terminator is not included
func (t *TextLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	i := bytes.IndexByte(data, Terminator)
	if i < 0 {
		df.SetTruncated()
		return ErrTruncated{Layer: "text", Want: len(data) + 1, Got: len(data)}
	}
	t.BaseLayer = layers.BaseLayer{
		Contents: data[:i+1],
		Payload:  data[i+1:],
	}
	t.Text = string(data[:i])
	return nil
}

func DecodeTextLayer(data []byte, p gopacket.PacketBuilder) error {
	t := &TextLayer{}
	err := t.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(t)
	return nil
}

// CommandLayer is a command sent from the ground station to the payload.
// Unlike frames sent by the payload it carries no message type byte.
type CommandLayer struct {
	layers.BaseLayer
	Code  uint8
	Value uint8
}

var CommandLayerType = gopacket.RegisterLayerType(CommandLayerNum,
	gopacket.LayerTypeMetadata{Name: "CommandLayerType", Decoder: gopacket.DecodeFunc(decodeCommandLayer)})

func (c *CommandLayer) LayerType() gopacket.LayerType {
	return CommandLayerType
}

func (c *CommandLayer) CanDecode() gopacket.LayerClass {
	return CommandLayerType
}

func (c *CommandLayer) NextLayerType() gopacket.LayerType {
	return gopacket.LayerTypeZero
}

func (c *CommandLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	bytes, err := b.PrependBytes(CommandSize)
	if err != nil {
		return err
	}
	copy(bytes[0:HeaderSize], Header[:])
	bytes[HeaderSize] = c.Code
	bytes[HeaderSize+1] = c.Value
	return nil
}

func (c *CommandLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < CommandSize {
		df.SetTruncated()
		return ErrTruncated{Layer: "command", Want: CommandSize, Got: len(data)}
	}
	if data[0] != Header[0] || data[1] != Header[1] {
		return ErrWrongHeader{Got: [HeaderSize]byte{data[0], data[1]}}
	}
	c.BaseLayer = layers.BaseLayer{
		Contents: data[:CommandSize],
		Payload:  data[CommandSize:],
	}
	c.Code = data[HeaderSize]
	c.Value = data[HeaderSize+1]
	return nil
}

func decodeCommandLayer(data []byte, p gopacket.PacketBuilder) error {
	c := &CommandLayer{}
	err := c.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(c)
	return nil
}

// EncodeCommand returns the bytes of the command frame
func EncodeCommand(code, value uint8) ([]byte, error) {
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{}
	err := gopacket.SerializeLayers(buf, opts, &CommandLayer{Code: code, Value: value})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
