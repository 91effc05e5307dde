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
)

// ErrTruncated returned when there are not enough bytes to decode a layer
type ErrTruncated struct {
	Layer string
	Want  int
	Got   int
}

func (e ErrTruncated) Error() string {
	return fmt.Sprintf("%s layer too short: want %d bytes, got %d", e.Layer, e.Want, e.Got)
}

// ErrWrongHeader returned when a frame does not start with the sync sequence
type ErrWrongHeader struct {
	Got [HeaderSize]byte
}

func (e ErrWrongHeader) Error() string {
	return fmt.Sprintf("Wrong frame header %q. Must be %q", e.Got[:], Header[:])
}
