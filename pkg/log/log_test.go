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

package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevels(t *testing.T) {
	var out bytes.Buffer
	Init(&out, "warning")
	defer Init(&bytes.Buffer{}, "info")

	if Enabled(DebugLevel) || Enabled(InfoLevel) || !Enabled(WarningLevel) {
		t.Fatal("warning level enables warnings and errors only")
	}
	Info("hidden")
	Warning("shown %d", 1)
	if strings.Contains(out.String(), "hidden") || !strings.Contains(out.String(), WarningPrefix+"shown 1") {
		t.Fatalf("log output %q", out.String())
	}
	if Writer() != &out {
		t.Fatal("Writer must return the configured output")
	}
	if err := SetLevel("loud"); err == nil {
		t.Fatal("unknown level accepted")
	}
}
