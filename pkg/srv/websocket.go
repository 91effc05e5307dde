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
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cansat-ground/go-relay/pkg/log"
	"github.com/cansat-ground/go-relay/pkg/pipeline"
	"github.com/cansat-ground/go-relay/pkg/relay"
	"github.com/cansat-ground/go-relay/pkg/session"
	"github.com/cansat-ground/go-relay/pkg/store"
	"github.com/cansat-ground/go-relay/pkg/telemetry"
)

const WriteTimeout = 10 * time.Second

// wsConn wraps a WebSocket connection with a write mutex to prevent concurrent writes
type wsConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (wc *wsConn) Name() string {
	return "websocket"
}

func (wc *wsConn) Broadcast(sessionID string, rec *telemetry.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	wc.writeMu.Lock()
	defer wc.writeMu.Unlock()
	wc.conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
	return wc.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *RelayServer) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.Config.Server.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (s *RelayServer) openWriter(info session.Info) store.SessionWriter {
	if s.store == nil {
		return nil
	}
	w, err := s.store.OpenSession(info)
	if err != nil {
		log.Error("Session %s: can not open store, samples will not be persisted: %s", info.ID, err)
		return nil
	}
	return w
}

// handleWebSocket runs one viewer session for the lifetime of the connection
func (s *RelayServer) handleWebSocket() http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error("WebSocket upgrade failed: %s", err)
			return
		}
		ws := &wsConn{conn: conn}
		defer conn.Close()

		state := session.New(s.hub.Sensors())
		info := state.Info()
		info.Source = s.Config.Serial.Port
		log.Info("Session %s: viewer connected from %s", state.ID, r.RemoteAddr)

		sinks := pipeline.Sinks{
			Broadcaster: append(pipeline.MultiBroadcaster{ws}, s.broadcasters...),
			Payload:     s.source,
			Metrics:     s.metrics,
		}
		if writer := s.openWriter(info); writer != nil {
			defer writer.Close()
			sinks.Persister = writer
		}

		ctx, cancel := context.WithCancel(s.Context)
		defer cancel()

		buf := s.source.Subscribe(state.ID)
		defer s.source.Unsubscribe(state.ID)
		commands := make(chan pipeline.Command, CommandChSize)
		s.hub.add(info, commands)
		defer s.hub.remove(state.ID)
		s.metrics.SessionOpened()
		defer s.metrics.SessionClosed()

		go func() {
			defer cancel()
			for {
				_, msg, err := conn.ReadMessage()
				if err != nil {
					if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
						log.Warning("Session %s: read error: %s", state.ID, err)
					}
					return
				}
				select {
				case commands <- pipeline.ParseCommand(string(msg)):
				case <-ctx.Done():
					return
				}
			}
		}()

		p := pipeline.New(s.Config, state, sinks)
		rl := relay.NewRelay(buf, s.Config.Relay, nil)
		p.Run(ctx, rl, buf.Notify(), commands)
		log.Info("Session %s: viewer disconnected after %d samples", state.ID, len(state.History()))
	}
}
