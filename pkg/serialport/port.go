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
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/cansat-ground/go-relay/pkg/config"
	"github.com/cansat-ground/go-relay/pkg/log"
	"github.com/cansat-ground/go-relay/pkg/metrics"
	"github.com/cansat-ground/go-relay/pkg/relay"
)

const (
	ReadBufferSize = 4096
	// CaptureTimeFormat is the timestamp suffix of capture file names
	CaptureTimeFormat = "20060102_150405"
)

// Port reads the payload link and fans the bytes out to every subscribed session.
// Writes to the payload are serialized.
type Port struct {
	context.Context
	Name    string
	conn    io.ReadWriteCloser
	metrics *metrics.Metrics

	mu          sync.Mutex
	subscribers map[string]*relay.Buffer
	capture     *Writer

	writeMu sync.Mutex
}

// Ports lists the serial ports of the host
func Ports() ([]string, error) {
	return serial.GetPortsList()
}

// Open opens the serial port from the config
func Open(ctx context.Context, cfg *config.SerialConfig, m *metrics.Metrics) (*Port, error) {
	log.Info("Opening serial port %s at %d baud", cfg.Port, cfg.BaudRate)
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	conn, err := serial.Open(cfg.Port, mode)
	if err != nil {
		ports, _ := Ports()
		return nil, ErrOpenPort{Port: cfg.Port, Err: err, Ports: ports}
	}
	if err := conn.SetReadTimeout(cfg.ReadTimeout); err != nil {
		conn.Close()
		return nil, err
	}
	return NewPort(ctx, cfg.Port, conn, m), nil
}

// NewPort wraps an already open connection
func NewPort(ctx context.Context, name string, conn io.ReadWriteCloser, m *metrics.Metrics) *Port {
	return &Port{
		Context:     ctx,
		Name:        name,
		conn:        conn,
		metrics:     m,
		subscribers: map[string]*relay.Buffer{},
	}
}

// Subscribe returns a fresh buffer that receives every byte read from now on
func (p *Port) Subscribe(id string) *relay.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	b := relay.NewBuffer(relay.DefaultBufferLimit)
	p.subscribers[id] = b
	log.Debug("Session %s subscribed to %s", id, p.Name)
	return b
}

func (p *Port) Unsubscribe(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.subscribers, id)
	log.Debug("Session %s unsubscribed from %s", id, p.Name)
}

// Write sends bytes to the payload
func (p *Port) Write(data []byte) (int, error) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.conn.Write(data)
}

func (p *Port) dispatch(data []byte) {
	p.metrics.RecordSerialBytes(len(data))
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, b := range p.subscribers {
		before := b.Dropped()
		b.Write(data)
		if dropped := b.Dropped() - before; dropped > 0 {
			p.metrics.RecordDroppedBytes(int(dropped))
			log.Warning("Session %s is behind, dropped %d bytes", id, dropped)
		}
	}
	if p.capture != nil {
		if _, err := p.capture.Write(data); err != nil {
			log.Error("Capture write failed, stopping capture: %s", err)
			p.capture.Flush()
			p.capture = nil
		}
	}
}

// Run reads the port until the context is done or the read fails
func (p *Port) Run() error {
	defer p.Flush()
	buffer := make([]byte, ReadBufferSize)
	for {
		n, err := p.conn.Read(buffer)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buffer[:n])
			p.dispatch(data)
		}
		select {
		case <-p.Done():
			return nil
		default:
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", p.Name, err)
		}
	}
}

// Persist starts capturing the raw byte stream into dir
func (p *Port) Persist(dir, prefix string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.capture != nil {
		return "", ErrCaptureActive{Filename: p.capture.Name()}
	}
	filename := fmt.Sprintf("%s.data", time.Now().UTC().Format(CaptureTimeFormat))
	if prefix != "" {
		filename = fmt.Sprintf("%s_%s", prefix, filename)
	}
	w, err := NewWriter(filepath.Join(dir, filename))
	if err != nil {
		return "", err
	}
	log.Info("Persist capture: %s", w.Name())
	p.capture = w
	return w.Name(), nil
}

// Flush stops the active capture and returns its file name and size
func (p *Port) Flush() (string, uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.capture == nil {
		return "", 0, ErrNoCapture{}
	}
	w := p.capture
	p.capture = nil
	return w.Name(), w.Written(), w.Flush()
}

func (p *Port) Close() error {
	return p.conn.Close()
}
