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

package store

import (
	"fmt"
)

type ErrNoBackend struct{}

func (e ErrNoBackend) Error() string {
	return "No store backend configured"
}

type ErrUnknownBackend struct {
	Backend string
}

func (e ErrUnknownBackend) Error() string {
	return fmt.Sprintf("Unknown store backend: %s", e.Backend)
}

type ErrSessionNotFound struct {
	ID string
}

func (e ErrSessionNotFound) Error() string {
	return fmt.Sprintf("Session not found: %s", e.ID)
}

// ErrNotSupported returned by backends that can only write
type ErrNotSupported struct {
	Backend   string
	Operation string
}

func (e ErrNotSupported) Error() string {
	return fmt.Sprintf("%s store does not support %s", e.Backend, e.Operation)
}
