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

package admission

import (
	"fmt"
)

type Reason string

const (
	ReasonNegative    Reason = "negative timestamp"
	ReasonDuplicate   Reason = "duplicate timestamp"
	ReasonBeforeFirst Reason = "older than session start"
	ReasonSkew        Reason = "too far from latest timestamp"
)

// ErrRejected returned when a record is not admitted into the session
type ErrRejected struct {
	Reason    Reason
	Time      int64
	Reference int64
}

func (e ErrRejected) Error() string {
	return fmt.Sprintf("Record rejected: %s (time %d, reference %d)", e.Reason, e.Time, e.Reference)
}
