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

package command

import (
	"fmt"
	"strings"
)

// ErrApi returned when the relay server answers with a non 200 status
type ErrApi struct {
	Status  string
	Message string
}

func (e ErrApi) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		return e.Status
	}
	return fmt.Sprintf("%s: %s", e.Status, msg)
}
