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

package srv

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cansat-ground/go-relay/pkg/config"
	"github.com/cansat-ground/go-relay/pkg/layers"
	"github.com/cansat-ground/go-relay/pkg/serialport"
)

// linkConn is the payload end of an in-memory serial link
type linkConn struct {
	*io.PipeReader
	mu      sync.Mutex
	written bytes.Buffer
}

func (c *linkConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.written.Write(p)
}

func (c *linkConn) Written() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.written.String()
}

func TestOneAcknowledgmentPerFrame(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r, w := io.Pipe()
	conn := &linkConn{PipeReader: r}
	port := serialport.NewPort(ctx, "test", conn, nil)
	defer port.Close()

	cfg := config.NewDefaultConfig()
	cfg.Serial.Acknowledge = true
	port.Acknowledge(cfg.Relay)
	go port.Run()

	server := NewRelayServer(ctx, cfg, port)
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + WebSocketPath
	var viewers []*websocket.Conn
	for i := 0; i < 2; i++ {
		c, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatal(err)
		}
		defer c.Close()
		viewers = append(viewers, c)
	}
	waitFor(t, "two sessions", func() bool { return len(server.Hub().Active()) == 2 })

	w.Write(frame(t, 1000))
	for i, c := range viewers {
		c.SetReadDeadline(time.Now().Add(3 * time.Second))
		if _, _, err := c.ReadMessage(); err != nil {
			t.Fatalf("viewer %d: %v", i, err)
		}
	}
	waitFor(t, "acknowledgment", func() bool { return conn.Written() != "" })
	time.Sleep(20 * time.Millisecond)
	if got := strings.Count(conn.Written(), layers.Acknowledgment); got != 1 {
		t.Fatalf("%d acknowledgments for one frame with two viewers, want 1", got)
	}
}
