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
	"os"

	"github.com/dustin/go-humanize"

	"github.com/cansat-ground/go-relay/pkg/log"
)

// Writer captures the raw byte stream into a file so it can be replayed later
type Writer struct {
	file    *os.File
	written uint64
}

func NewWriter(filename string) (*Writer, error) {
	file, err := os.Create(filename)
	if err != nil {
		log.Error("Error while creating file: %s", filename)
		return nil, err
	}
	return &Writer{
		file: file,
	}, nil
}

func (w *Writer) Write(buf []byte) (int, error) {
	n, err := w.file.Write(buf)
	w.written += uint64(n)
	return n, err
}

func (w *Writer) Name() string {
	return w.file.Name()
}

func (w *Writer) Written() uint64 {
	return w.written
}

func (w *Writer) Flush() error {
	log.Info("Flush capture %s: %s", w.file.Name(), humanize.Bytes(w.written))
	if err := w.file.Sync(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
