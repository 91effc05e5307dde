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
	"errors"
	"fmt"
	"time"

	"github.com/cansat-ground/go-relay/pkg/layers"
)

// ErrNotReady returned by Poll when no byte could be consumed and no timer fired
var ErrNotReady = errors.New("relay not ready")

// FramingError returned when a byte does not match the expected header byte
type FramingError struct {
	Byte  byte
	Index int
}

func (e FramingError) Error() string {
	return fmt.Sprintf("Incorrect start byte: %q = %d (header position %d)", e.Byte, e.Byte, e.Index)
}

// UnknownTypeError returned when the message type byte is not recognized
type UnknownTypeError struct {
	Type byte
}

func (e UnknownTypeError) Error() string {
	return fmt.Sprintf("Incorrect message type: %q = %d", e.Type, e.Type)
}

// TimeoutError returned when a message was not completed in time
type TimeoutError struct {
	Type    layers.MessageType
	Elapsed time.Duration
	Limit   time.Duration
}

func (e TimeoutError) Error() string {
	return fmt.Sprintf("Timeout reached receiving %s message: %s > %s", e.Type, e.Elapsed, e.Limit)
}

// ErrShortBuffer returned by Buffer.Consume when fewer bytes are available than requested
type ErrShortBuffer struct {
	Want      int
	Available int
}

func (e ErrShortBuffer) Error() string {
	return fmt.Sprintf("Cannot consume %d bytes, only %d available", e.Want, e.Available)
}

// IsDiagnostic reports whether err is a recoverable framing diagnostic
func IsDiagnostic(err error) bool {
	var f FramingError
	var u UnknownTypeError
	var t TimeoutError
	return errors.As(err, &f) || errors.As(err, &u) || errors.As(err, &t)
}
