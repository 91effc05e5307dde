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
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/cansat-ground/go-relay/pkg/session"
	"github.com/cansat-ground/go-relay/pkg/telemetry"
)

// SqliteStore keeps one row per sample with a nullable column per channel
type SqliteStore struct {
	dbPath string

	writeDB *sql.DB

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// OpenSqliteStore opens the write connection and initializes the schema
func OpenSqliteStore(dbPath string) (*SqliteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", dbPath, "_journal_mode=WAL&_synchronous=NORMAL"))
	if err != nil {
		return nil, fmt.Errorf("opening write connection: %w", err)
	}
	// one writer avoids SQLITE_BUSY between sessions
	db.SetMaxOpenConns(1)
	if _, err = db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return &SqliteStore{dbPath: dbPath, writeDB: db}, nil
}

func (s *SqliteStore) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})
	return s.readDB, s.readDBErr
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func (s *SqliteStore) OpenSession(info session.Info) (SessionWriter, error) {
	var source sql.NullString
	if info.Source != "" {
		source = sql.NullString{String: info.Source, Valid: true}
	}
	if _, err := s.writeDB.Exec(insertSessionSQL, info.ID, info.StartedAt.UnixNano(), source); err != nil {
		return nil, fmt.Errorf("inserting session: %w", err)
	}
	stmt, err := s.writeDB.Prepare(insertSampleSQL)
	if err != nil {
		return nil, fmt.Errorf("preparing statement: %w", err)
	}
	return &sqliteWriter{db: s.writeDB, stmt: stmt, id: info.ID}, nil
}

func (s *SqliteStore) Sessions() (sessions []session.Info, err error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}
	rows, err := db.Query(selectSessionsSQL)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var info session.Info
		var started int64
		var source sql.NullString
		if err = rows.Scan(&info.ID, &started, &source, &info.Samples); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		info.StartedAt = time.Unix(0, started)
		info.Source = source.String
		sessions = append(sessions, info)
	}
	return sessions, rows.Err()
}

func (s *SqliteStore) Samples(id string) (samples []telemetry.Sample, err error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}
	var count int
	if err = db.QueryRow(selectSessionExistsSQL, id).Scan(&count); err != nil {
		return nil, fmt.Errorf("looking up session: %w", err)
	}
	if count == 0 {
		return nil, ErrSessionNotFound{ID: id}
	}
	rows, err := db.Query(selectSamplesSQL, id)
	if err != nil {
		return nil, fmt.Errorf("querying samples: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var r sampleRow
		if err = rows.Scan(r.targets()...); err != nil {
			return nil, fmt.Errorf("scanning sample: %w", err)
		}
		samples = append(samples, r.sample())
	}
	return samples, rows.Err()
}

func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.readDB != nil {
			errs = append(errs, s.readDB.Close())
		}
		errs = append(errs, s.writeDB.Close())
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

type sqliteWriter struct {
	db   *sql.DB
	stmt *sql.Stmt
	id   string
}

func (w *sqliteWriter) Write(sample telemetry.Sample) (err error) {
	r := newSampleRow(sample)
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	if _, err = tx.Stmt(w.stmt).Exec(append([]interface{}{w.id}, r.values()...)...); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("inserting sample: %w", err)
	}
	if _, err = tx.Exec(updateSessionSamplesSQL, w.id); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("updating session: %w", err)
	}
	return tx.Commit()
}

func (w *sqliteWriter) Close() error {
	return w.stmt.Close()
}

// sampleRow mirrors the columns of the samples table
type sampleRow struct {
	time       int64
	receivedAt int64
	strange    bool
	accel      [3]sql.NullFloat64
	gyro       [3]sql.NullFloat64
	scalars    [7]sql.NullFloat64
}

// scalarColumns is the column order of the scalar channels
var scalarColumns = [7]telemetry.Channel{
	telemetry.ChannelTemperatureOutside,
	telemetry.ChannelDistance,
	telemetry.ChannelAirQuality,
	telemetry.ChannelSound,
	telemetry.ChannelTemperatureInside,
	telemetry.ChannelHumidityInside,
	telemetry.ChannelHumidityOutside,
}

func vectorColumns(v *telemetry.Vector) [3]sql.NullFloat64 {
	if v == nil {
		return [3]sql.NullFloat64{}
	}
	return [3]sql.NullFloat64{{Float64: v.X, Valid: true}, {Float64: v.Y, Valid: true}, {Float64: v.Z, Valid: true}}
}

func columnsVector(c [3]sql.NullFloat64) *telemetry.Vector {
	if !c[0].Valid {
		return nil
	}
	return &telemetry.Vector{X: c[0].Float64, Y: c[1].Float64, Z: c[2].Float64}
}

func newSampleRow(sample telemetry.Sample) *sampleRow {
	rec := sample.Record
	r := &sampleRow{
		time:       rec.Time,
		receivedAt: sample.ReceivedAt.UnixNano(),
		strange:    sample.Strange,
		accel:      vectorColumns(rec.Acceleration),
		gyro:       vectorColumns(rec.Gyroscope),
	}
	for i, ch := range scalarColumns {
		v, ok := rec.Scalar(ch)
		r.scalars[i] = sql.NullFloat64{Float64: v, Valid: ok}
	}
	return r
}

func (r *sampleRow) values() []interface{} {
	values := []interface{}{r.time, r.receivedAt, r.strange}
	for _, c := range r.accel {
		values = append(values, c)
	}
	for _, c := range r.gyro {
		values = append(values, c)
	}
	for _, c := range r.scalars {
		values = append(values, c)
	}
	return values
}

func (r *sampleRow) targets() []interface{} {
	targets := []interface{}{&r.time, &r.receivedAt, &r.strange}
	for i := range r.accel {
		targets = append(targets, &r.accel[i])
	}
	for i := range r.gyro {
		targets = append(targets, &r.gyro[i])
	}
	for i := range r.scalars {
		targets = append(targets, &r.scalars[i])
	}
	return targets
}

func (r *sampleRow) sample() telemetry.Sample {
	rec := &telemetry.Record{
		Time:         r.time,
		Acceleration: columnsVector(r.accel),
		Gyroscope:    columnsVector(r.gyro),
	}
	ptrs := []**float64{
		&rec.TemperatureOutside,
		&rec.Distance,
		&rec.AirQuality,
		&rec.Sound,
		&rec.TemperatureInside,
		&rec.HumidityInside,
		&rec.HumidityOutside,
	}
	for i, c := range r.scalars {
		if c.Valid {
			*ptrs[i] = telemetry.Float(c.Float64)
		}
	}
	return telemetry.Sample{
		Record:     rec,
		Strange:    r.strange,
		ReceivedAt: time.Unix(0, r.receivedAt),
	}
}
