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
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cansat-ground/go-relay/pkg/config"
	"github.com/cansat-ground/go-relay/pkg/layers"
)

// pipeConn is the payload side of an in-memory serial link
type pipeConn struct {
	io.Reader
	mu      sync.Mutex
	written bytes.Buffer
	closer  io.Closer
}

func (c *pipeConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.written.Write(p)
}

func (c *pipeConn) Written() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.written.String()
}

func (c *pipeConn) Close() error {
	return c.closer.Close()
}

func newPipePort(ctx context.Context) (*Port, *io.PipeWriter, *pipeConn) {
	r, w := io.Pipe()
	conn := &pipeConn{Reader: r, closer: r}
	return NewPort(ctx, "test", conn, nil), w, conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestFanOut(t *testing.T) {
	p, w, _ := newPipePort(context.Background())
	a := p.Subscribe("a")
	b := p.Subscribe("b")
	done := make(chan error)
	go func() { done <- p.Run() }()

	w.Write([]byte("01"))
	waitFor(t, func() bool { return a.Available() == 2 && b.Available() == 2 })

	p.Unsubscribe("b")
	w.Write([]byte("0"))
	waitFor(t, func() bool { return a.Available() == 3 })
	if b.Available() != 2 {
		t.Fatalf("unsubscribed buffer got %d bytes", b.Available())
	}

	w.Close()
	if err := <-done; !errors.Is(err, io.EOF) {
		t.Fatalf("run returned %v, want EOF", err)
	}
}

func TestWrite(t *testing.T) {
	p, _, conn := newPipePort(context.Background())
	if _, err := p.Write([]byte{'0', '1', 8, 1}); err != nil {
		t.Fatal(err)
	}
	if got := conn.Written(); got != string([]byte{'0', '1', 8, 1}) {
		t.Fatalf("written % x", got)
	}
}

func TestCapture(t *testing.T) {
	dir := t.TempDir()
	p, w, _ := newPipePort(context.Background())
	a := p.Subscribe("a")
	go p.Run()

	if _, _, err := p.Flush(); !errors.As(err, &ErrNoCapture{}) {
		t.Fatalf("got %v, want ErrNoCapture", err)
	}
	name, err := p.Persist(dir, "flight")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Persist(dir, "flight"); !errors.As(err, &ErrCaptureActive{}) {
		t.Fatalf("got %v, want ErrCaptureActive", err)
	}
	w.Write([]byte("raw bytes"))
	waitFor(t, func() bool { return a.Available() == 9 })

	flushed, size, err := p.Flush()
	if err != nil {
		t.Fatal(err)
	}
	if flushed != name || size != 9 {
		t.Fatalf("flushed %s %d", flushed, size)
	}
	data, err := os.ReadFile(name)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "raw bytes" {
		t.Fatalf("captured %q", data)
	}
	w.Close()
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p, w, _ := newPipePort(ctx)
	done := make(chan error)
	go func() { done <- p.Run() }()
	cancel()
	w.Write([]byte("x"))
	if err := <-done; err != nil {
		t.Fatalf("run returned %v after cancel", err)
	}
}

func TestAcknowledge(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p, w, conn := newPipePort(ctx)
	viewer := p.Subscribe("viewer")
	p.Acknowledge(config.NewDefaultConfig().Relay)
	go p.Run()

	full, err := layers.EncodeFrame(layers.MessageTypeTelemetry, &layers.TelemetryLayer{
		Motion: layers.Motion{Time: 10},
	})
	if err != nil {
		t.Fatal(err)
	}
	drop, err := layers.EncodeFrame(layers.MessageTypeDropTelemetry, &layers.DropTelemetryLayer{
		Motion: layers.Motion{Time: 20},
	})
	if err != nil {
		t.Fatal(err)
	}
	text, err := layers.EncodeFrame(layers.MessageTypeText, &layers.TextLayer{Text: "boot"})
	if err != nil {
		t.Fatal(err)
	}
	var stream []byte
	for _, part := range [][]byte{[]byte("noise"), full, text, drop} {
		stream = append(stream, part...)
	}
	w.Write(stream)

	waitFor(t, func() bool { return viewer.Available() == len(stream) })
	waitFor(t, func() bool { return strings.Count(conn.Written(), layers.Acknowledgment) == 2 })
	time.Sleep(20 * time.Millisecond)
	if got := conn.Written(); got != layers.Acknowledgment+layers.Acknowledgment {
		t.Fatalf("payload got %q, want two acknowledgments", got)
	}
	if viewer.Available() != len(stream) {
		t.Fatal("acknowledger consumed viewer bytes")
	}
	w.Close()
}
