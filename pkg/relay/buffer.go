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

package relay

import (
	"sync"
)

// DefaultBufferLimit is how many unconsumed bytes a Buffer keeps
const DefaultBufferLimit = 1 << 16

// Source is the byte source the relay reads from. Both methods must not block.
type Source interface {
	Available() int
	Consume(n int) ([]byte, error)
}

// Buffer is an in-memory Source filled by a writer running in another goroutine.
// When the limit is exceeded the oldest bytes are dropped.
type Buffer struct {
	mu      sync.Mutex
	data    []byte
	limit   int
	dropped uint64
	notify  chan struct{}
}

func NewBuffer(limit int) *Buffer {
	if limit <= 0 {
		limit = DefaultBufferLimit
	}
	return &Buffer{
		limit:  limit,
		notify: make(chan struct{}, 1),
	}
}

// Write appends p to the buffer and wakes up the reader. It never blocks on the reader.
func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	b.data = append(b.data, p...)
	if over := len(b.data) - b.limit; over > 0 {
		b.data = append(b.data[:0], b.data[over:]...)
		b.dropped += uint64(over)
	}
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
	return len(p), nil
}

func (b *Buffer) Available() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Consume returns exactly n already available bytes
func (b *Buffer) Consume(n int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n > len(b.data) {
		return nil, ErrShortBuffer{Want: n, Available: len(b.data)}
	}
	out := make([]byte, n)
	copy(out, b.data[:n])
	b.data = b.data[n:]
	return out, nil
}

// Notify returns a channel that receives a value after new bytes were written
func (b *Buffer) Notify() <-chan struct{} {
	return b.notify
}

// Dropped returns how many bytes were discarded because the reader fell behind
func (b *Buffer) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
