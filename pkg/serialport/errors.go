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

package serialport

import (
	"fmt"
)

type ErrCaptureActive struct {
	Filename string
}

func (e ErrCaptureActive) Error() string {
	return fmt.Sprintf("Capture already active: %s", e.Filename)
}

type ErrNoCapture struct{}

func (e ErrNoCapture) Error() string {
	return "No capture active"
}

type ErrOpenPort struct {
	Port  string
	Err   error
	Ports []string
}

func (e ErrOpenPort) Error() string {
	return fmt.Sprintf("Can not open serial port %s: %s. Available ports: %v", e.Port, e.Err, e.Ports)
}

func (e ErrOpenPort) Unwrap() error {
	return e.Err
}
