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
	"errors"
	"fmt"

	"github.com/cansat-ground/go-relay/pkg/config"
	"github.com/cansat-ground/go-relay/pkg/log"
	"github.com/cansat-ground/go-relay/pkg/session"
	"github.com/cansat-ground/go-relay/pkg/telemetry"
)

// SessionWriter persists the samples of one session in arrival order
type SessionWriter interface {
	Write(sample telemetry.Sample) error
	Close() error
}

type Store interface {
	OpenSession(info session.Info) (SessionWriter, error)
	Sessions() ([]session.Info, error)
	Samples(id string) ([]telemetry.Sample, error)
	Close() error
}

// Open opens every configured backend. Queries are served by the first one.
func Open(cfg *config.StoreConfig) (Store, error) {
	if len(cfg.Backends) == 0 {
		return nil, ErrNoBackend{}
	}
	var stores Multi
	for _, backend := range cfg.Backends {
		var s Store
		var err error
		switch backend {
		case config.StoreBackendBolt:
			s, err = OpenBoltStore(cfg.BoltPath)
		case config.StoreBackendSqlite:
			s, err = OpenSqliteStore(cfg.SqlitePath)
		case config.StoreBackendCSV:
			s, err = NewDirectory(cfg.CSVDir)
		default:
			err = ErrUnknownBackend{Backend: backend}
		}
		if err != nil {
			stores.Close()
			return nil, fmt.Errorf("opening %s store: %w", backend, err)
		}
		log.Info("Persisting samples to %s store", backend)
		stores = append(stores, s)
	}
	if len(stores) == 1 {
		return stores[0], nil
	}
	return stores, nil
}

// Multi writes to every store and reads from the first one
type Multi []Store

func (m Multi) OpenSession(info session.Info) (SessionWriter, error) {
	var writers multiWriter
	for _, s := range m {
		w, err := s.OpenSession(info)
		if err != nil {
			writers.Close()
			return nil, err
		}
		writers = append(writers, w)
	}
	return writers, nil
}

func (m Multi) Sessions() ([]session.Info, error) {
	if len(m) == 0 {
		return nil, ErrNoBackend{}
	}
	return m[0].Sessions()
}

func (m Multi) Samples(id string) ([]telemetry.Sample, error) {
	if len(m) == 0 {
		return nil, ErrNoBackend{}
	}
	return m[0].Samples(id)
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}

type multiWriter []SessionWriter

func (m multiWriter) Write(sample telemetry.Sample) error {
	var errs []error
	for _, w := range m {
		errs = append(errs, w.Write(sample))
	}
	return errors.Join(errs...)
}

func (m multiWriter) Close() error {
	var errs []error
	for _, w := range m {
		errs = append(errs, w.Close())
	}
	return errors.Join(errs...)
}
