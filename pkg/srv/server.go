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
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/cansat-ground/go-relay/pkg/config"
	"github.com/cansat-ground/go-relay/pkg/log"
	"github.com/cansat-ground/go-relay/pkg/metrics"
	"github.com/cansat-ground/go-relay/pkg/pipeline"
	"github.com/cansat-ground/go-relay/pkg/store"
	"github.com/cansat-ground/go-relay/pkg/telemetry"
)

const ShutdownTimeout = 5 * time.Second

// RelayServer serves viewer sessions over WebSocket and the management API
type RelayServer struct {
	context.Context
	*config.Config
	*mux.Router
	source       Source
	capture      Capturer
	store        store.Store
	broadcasters []pipeline.Broadcaster
	metrics      *metrics.Metrics
	hub          *Hub
}

type Option func(*RelayServer)

// WithCapture enables the capture endpoints
func WithCapture(c Capturer) Option {
	return func(s *RelayServer) {
		s.capture = c
	}
}

// WithStore persists the samples of every session
func WithStore(st store.Store) Option {
	return func(s *RelayServer) {
		s.store = st
	}
}

// WithBroadcaster adds a sink that receives every forwarded record next to the viewer
func WithBroadcaster(b pipeline.Broadcaster) Option {
	return func(s *RelayServer) {
		s.broadcasters = append(s.broadcasters, b)
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *RelayServer) {
		s.metrics = m
	}
}

func NewRelayServer(ctx context.Context, cfg *config.Config, source Source, opts ...Option) *RelayServer {
	log.Info("Initializing relay server with address: %s port: %d", cfg.Server.Address, cfg.Server.Port)
	s := &RelayServer{
		Context: ctx,
		Config:  cfg,
		source:  source,
		hub:     NewHub(telemetry.NewSensorSet(cfg.Pipeline.Sensors)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.configureRouter()
	return s
}

func (s *RelayServer) Hub() *Hub {
	return s.hub
}

func (s *RelayServer) configureRouter() {
	s.Router = mux.NewRouter()
	s.Router.HandleFunc(WebSocketPath, s.handleWebSocket())
	s.Router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	subRouter := s.Router.PathPrefix("/api").Subrouter()
	subRouter.HandleFunc("/sensors", s.handleSensorList()).Methods("GET")
	subRouter.HandleFunc("/sensors/{sensor}/{action:enable|disable}", s.handleSensorSet()).Methods("POST")
	subRouter.HandleFunc("/transmission/{action:start|stop}", s.handleTransmission()).Methods("POST")
	subRouter.HandleFunc("/sessions", s.handleSessionList()).Methods("GET")
	subRouter.HandleFunc("/sessions/active", s.handleActiveSessions()).Methods("GET")
	subRouter.HandleFunc("/sessions/{id}/samples", s.handleSamples()).Methods("GET")
	subRouter.HandleFunc("/persist", s.handlePersist()).Methods("POST")
	subRouter.HandleFunc("/flush", s.handleFlush()).Methods("GET")
}

// Handler returns the router wrapped with access logging and CORS
func (s *RelayServer) Handler() http.Handler {
	cors := handlers.CORS(
		handlers.AllowedOrigins(s.Config.Server.AllowedOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
	return handlers.CombinedLoggingHandler(log.Writer(), cors(s.Router))
}

// Run serves until the context is done
func (s *RelayServer) Run() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Server.Address, s.Config.Server.Port)
	log.Debug("Starting relay server: %s", addr)
	httpServer := &http.Server{
		Handler:           s.Handler(),
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return s.Context },
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-s.Done():
	}
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
