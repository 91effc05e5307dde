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

package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cansat-ground/go-relay/pkg/layers"
	"github.com/cansat-ground/go-relay/pkg/telemetry"
)

type CommandKind uint8

const (
	// CommandText is free form text, it is only logged
	CommandText CommandKind = iota
	// CommandSensor switches a sensor and is relayed to the payload
	CommandSensor
	// CommandTransmission starts or stops the payload transmission
	CommandTransmission
)

func (k CommandKind) String() string {
	switch k {
	case CommandSensor:
		return "sensor"
	case CommandTransmission:
		return "transmission"
	}
	return "text"
}

const (
	CommandStart = "Start"
	CommandStop  = "Stop"
)

// Command is a parsed viewer command
type Command struct {
	Kind   CommandKind
	Sensor telemetry.Sensor
	Value  uint8
	Text   string
	// LocalOnly commands change the session but are not relayed to the payload
	LocalOnly bool
}

// Enabled is the sensor state a sensor command sets
func (c Command) Enabled() bool {
	return c.Value != 0
}

// Code returns the payload command code
func (c Command) Code() uint8 {
	if c.Kind == CommandTransmission {
		return layers.CommandCodeTransmission
	}
	return c.Sensor.Code()
}

// Frame encodes the command as it is sent to the payload
func (c Command) Frame() ([]byte, error) {
	if c.Kind == CommandText {
		return nil, fmt.Errorf("text command %q is not sent to the payload", c.Text)
	}
	return layers.EncodeCommand(c.Code(), c.Value)
}

func (c Command) String() string {
	switch c.Kind {
	case CommandSensor:
		return fmt.Sprintf("%s:%d", c.Sensor, c.Value)
	case CommandTransmission:
		if c.Value == 0 {
			return CommandStop
		}
		return CommandStart
	}
	return c.Text
}

// SensorCommand builds the command that switches a sensor
func SensorCommand(sensor telemetry.Sensor, enabled bool) Command {
	c := Command{Kind: CommandSensor, Sensor: sensor}
	if enabled {
		c.Value = 1
	}
	return c
}

// ParseCommand parses "<sensor>:<value>", "Start" and "Stop".
// Anything else, including unknown sensors and out of range values, is a text command.
func ParseCommand(text string) Command {
	text = strings.TrimSpace(text)
	switch text {
	case CommandStart:
		return Command{Kind: CommandTransmission, Value: 1}
	case CommandStop:
		return Command{Kind: CommandTransmission, Value: 0}
	}
	name, value, found := strings.Cut(text, ":")
	if !found {
		return Command{Kind: CommandText, Text: text}
	}
	sensor, ok := telemetry.LookupSensor(strings.TrimSpace(name))
	if !ok {
		return Command{Kind: CommandText, Text: text}
	}
	v, err := strconv.ParseUint(strings.TrimSpace(value), 10, 8)
	if err != nil {
		return Command{Kind: CommandText, Text: text}
	}
	return Command{Kind: CommandSensor, Sensor: sensor, Value: uint8(v)}
}
