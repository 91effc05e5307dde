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
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.etcd.io/bbolt"
	"sigs.k8s.io/yaml"

	"github.com/cansat-ground/go-relay/pkg/log"
	"github.com/cansat-ground/go-relay/pkg/session"
	"github.com/cansat-ground/go-relay/pkg/telemetry"
)

const (
	BucketSessions = "sessions"
	BucketSamples  = "samples"
)

// BoltStore keeps session descriptions as YAML and samples as JSON,
// one nested bucket of samples per session keyed by arrival sequence.
type BoltStore struct {
	DB *bbolt.DB
}

func OpenBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	if err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{BucketSessions, BucketSamples} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{DB: db}, nil
}

func uint64ToByte(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func (s *BoltStore) putInfo(tx *bbolt.Tx, info session.Info) error {
	data, err := yaml.Marshal(info)
	if err != nil {
		return err
	}
	return tx.Bucket([]byte(BucketSessions)).Put([]byte(info.ID), data)
}

func (s *BoltStore) OpenSession(info session.Info) (SessionWriter, error) {
	log.Debug("Opening bolt session %s", info.ID)
	if err := s.DB.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.Bucket([]byte(BucketSamples)).CreateBucketIfNotExists([]byte(info.ID)); err != nil {
			return err
		}
		return s.putInfo(tx, info)
	}); err != nil {
		return nil, err
	}
	return &boltWriter{store: s, info: info}, nil
}

func (s *BoltStore) Sessions() ([]session.Info, error) {
	var sessions []session.Info
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(BucketSessions)).ForEach(func(k, v []byte) error {
			var info session.Info
			if err := yaml.Unmarshal(v, &info); err != nil {
				return fmt.Errorf("decoding session %s: %w", k, err)
			}
			sessions = append(sessions, info)
			return nil
		})
	}); err != nil {
		return nil, err
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartedAt.Before(sessions[j].StartedAt)
	})
	return sessions, nil
}

func (s *BoltStore) Samples(id string) ([]telemetry.Sample, error) {
	var samples []telemetry.Sample
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketSamples)).Bucket([]byte(id))
		if b == nil {
			return ErrSessionNotFound{ID: id}
		}
		return b.ForEach(func(k, v []byte) error {
			var sample telemetry.Sample
			if err := json.Unmarshal(v, &sample); err != nil {
				return fmt.Errorf("decoding sample %d: %w", binary.BigEndian.Uint64(k), err)
			}
			samples = append(samples, sample)
			return nil
		})
	}); err != nil {
		return nil, err
	}
	return samples, nil
}

func (s *BoltStore) Close() error {
	return s.DB.Close()
}

type boltWriter struct {
	store *BoltStore
	info  session.Info
}

func (w *boltWriter) Write(sample telemetry.Sample) error {
	data, err := json.Marshal(sample)
	if err != nil {
		return err
	}
	info := w.info
	info.Samples++
	if err := w.store.DB.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketSamples)).Bucket([]byte(w.info.ID))
		if b == nil {
			return ErrSessionNotFound{ID: w.info.ID}
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		if err := b.Put(uint64ToByte(seq), data); err != nil {
			return err
		}
		return w.store.putInfo(tx, info)
	}); err != nil {
		return err
	}
	w.info = info
	return nil
}

func (w *boltWriter) Close() error {
	return nil
}
