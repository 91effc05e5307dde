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

package calibration

import (
	"fmt"

	"github.com/cansat-ground/go-relay/pkg/telemetry"
)

// ErrImplausible returned when a calibrated value is outside its physical range
type ErrImplausible struct {
	Channel telemetry.Channel
	Value   float64
	Min     float64
	Max     float64
}

func (e ErrImplausible) Error() string {
	return fmt.Sprintf("Strange %s value %.3f, expected range [%g, %g]", e.Channel, e.Value, e.Min, e.Max)
}
