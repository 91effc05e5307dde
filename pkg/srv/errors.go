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

package srv

import (
	"fmt"
)

// ErrUnknownSensor returned when a request names a sensor the payload does not have
type ErrUnknownSensor struct {
	Name string
}

func (e ErrUnknownSensor) Error() string {
	return fmt.Sprintf("Unknown sensor: %s", e.Name)
}

// ErrNoCapture returned when the link does not support capturing
type ErrNoCapture struct{}

func (e ErrNoCapture) Error() string {
	return "Raw capture is not available"
}
