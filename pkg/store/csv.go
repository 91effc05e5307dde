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
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cansat-ground/go-relay/pkg/log"
	"github.com/cansat-ground/go-relay/pkg/session"
	"github.com/cansat-ground/go-relay/pkg/telemetry"
)

const (
	// DirectoryTimeFormat names the directory of a session after its start time
	DirectoryTimeFormat = "2006-01-02_15.04.05"
	BackendCSV          = "csv"
)

var (
	vectorHeader = []string{"time", "x", "y", "z"}
	numberHeader = []string{"time", "data"}
)

// Directory writes every session into its own directory with one CSV file per channel.
// Absent values are written as empty fields.
type Directory struct {
	root string
}

func NewDirectory(root string) (*Directory, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, err
	}
	return &Directory{root: root}, nil
}

func (d *Directory) sessionDir(info session.Info) (string, error) {
	dir := filepath.Join(d.root, info.StartedAt.Format(DirectoryTimeFormat))
	err := os.Mkdir(dir, 0755)
	if errors.Is(err, os.ErrExist) {
		dir = fmt.Sprintf("%s_%.8s", dir, info.ID)
		err = os.Mkdir(dir, 0755)
	}
	return dir, err
}

func (d *Directory) OpenSession(info session.Info) (SessionWriter, error) {
	dir, err := d.sessionDir(info)
	if err != nil {
		return nil, err
	}
	log.Info("Writing session %s to %s", info.ID, dir)
	w := &csvWriter{dir: dir, files: map[telemetry.Channel]*csvFile{}}
	for _, ch := range telemetry.Channels {
		header := numberHeader
		if ch.IsVector() {
			header = vectorHeader
		}
		f, err := newCSVFile(filepath.Join(dir, string(ch)+".csv"), header)
		if err != nil {
			w.Close()
			return nil, err
		}
		w.files[ch] = f
	}
	return w, nil
}

func (d *Directory) Sessions() ([]session.Info, error) {
	return nil, ErrNotSupported{Backend: BackendCSV, Operation: "listing sessions"}
}

func (d *Directory) Samples(id string) ([]telemetry.Sample, error) {
	return nil, ErrNotSupported{Backend: BackendCSV, Operation: "reading samples"}
}

func (d *Directory) Close() error {
	return nil
}

type csvFile struct {
	file   *os.File
	writer *csv.Writer
}

func newCSVFile(path string, header []string) (*csvFile, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	f := &csvFile{file: file, writer: csv.NewWriter(file)}
	if err := f.write(header); err != nil {
		file.Close()
		return nil, err
	}
	return f, nil
}

func (f *csvFile) write(record []string) error {
	if err := f.writer.Write(record); err != nil {
		return err
	}
	f.writer.Flush()
	return f.writer.Error()
}

type csvWriter struct {
	dir   string
	files map[telemetry.Channel]*csvFile
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (w *csvWriter) Write(sample telemetry.Sample) error {
	rec := sample.Record
	ts := strconv.FormatInt(rec.Time, 10)
	var errs []error
	for _, ch := range telemetry.Channels {
		var row []string
		switch ch {
		case telemetry.ChannelAcceleration, telemetry.ChannelGyroscope:
			v := rec.Acceleration
			if ch == telemetry.ChannelGyroscope {
				v = rec.Gyroscope
			}
			row = []string{ts, "", "", ""}
			if v != nil {
				row = []string{ts, formatFloat(v.X), formatFloat(v.Y), formatFloat(v.Z)}
			}
		default:
			row = []string{ts, ""}
			if v, ok := rec.Scalar(ch); ok {
				row[1] = formatFloat(v)
			}
		}
		if err := w.files[ch].write(row); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ch, err))
		}
	}
	return errors.Join(errs...)
}

func (w *csvWriter) Close() error {
	var errs []error
	for _, f := range w.files {
		errs = append(errs, f.file.Close())
	}
	return errors.Join(errs...)
}
