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

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "relay"

// Metrics holds the Prometheus collectors of the relay.
// All Record methods are safe to call on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	framesTotal       *prometheus.CounterVec // by message type
	diagnosticsTotal  *prometheus.CounterVec // framing errors and timeouts by kind
	rejectedTotal     *prometheus.CounterVec // admission rejections by reason
	strangeTotal      *prometheus.CounterVec // implausible records by channel
	persistedTotal    prometheus.Counter
	persistErrors     prometheus.Counter
	broadcastTotal    *prometheus.CounterVec // by sink
	broadcastErrors   *prometheus.CounterVec // by sink
	commandsTotal     *prometheus.CounterVec // by kind
	serialBytesTotal  prometheus.Counter
	droppedBytesTotal prometheus.Counter
	activeSessions    prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		framesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Frames received from the payload by message type",
		}, []string{"type"}),
		diagnosticsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagnostics_total",
			Help:      "Framing errors and timeouts by kind",
		}, []string{"kind"}),
		rejectedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_total",
			Help:      "Records rejected by the admission gate by reason",
		}, []string{"reason"}),
		strangeTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "strange_total",
			Help:      "Records with a physically implausible value by channel",
		}, []string{"channel"}),
		persistedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persisted_total",
			Help:      "Samples written to the store",
		}),
		persistErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_errors_total",
			Help:      "Samples the store failed to write",
		}),
		broadcastTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_total",
			Help:      "Records forwarded to viewers by sink",
		}, []string{"sink"}),
		broadcastErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_errors_total",
			Help:      "Records a sink failed to forward",
		}, []string{"sink"}),
		commandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Viewer commands by kind",
		}, []string{"kind"}),
		serialBytesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "serial_bytes_total",
			Help:      "Bytes read from the serial port",
		}),
		droppedBytesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_bytes_total",
			Help:      "Bytes dropped because a session fell behind",
		}),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Viewer sessions currently connected",
		}),
	}
}

// Handler serves the metrics in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is used by tests to gather values
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RecordFrame(msgType string) {
	if m == nil {
		return
	}
	m.framesTotal.WithLabelValues(msgType).Inc()
}

func (m *Metrics) RecordDiagnostic(kind string) {
	if m == nil {
		return
	}
	m.diagnosticsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordRejected(reason string) {
	if m == nil {
		return
	}
	m.rejectedTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordStrange(channel string) {
	if m == nil {
		return
	}
	m.strangeTotal.WithLabelValues(channel).Inc()
}

func (m *Metrics) RecordPersisted(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.persistErrors.Inc()
		return
	}
	m.persistedTotal.Inc()
}

func (m *Metrics) RecordBroadcast(sink string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.broadcastErrors.WithLabelValues(sink).Inc()
		return
	}
	m.broadcastTotal.WithLabelValues(sink).Inc()
}

// RecordPublishError counts a delivery the sink gave up on after accepting the record
func (m *Metrics) RecordPublishError(sink string) {
	if m == nil {
		return
	}
	m.broadcastErrors.WithLabelValues(sink).Inc()
}

func (m *Metrics) RecordCommand(kind string) {
	if m == nil {
		return
	}
	m.commandsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordSerialBytes(n int) {
	if m == nil {
		return
	}
	m.serialBytesTotal.Add(float64(n))
}

func (m *Metrics) RecordDroppedBytes(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.droppedBytesTotal.Add(float64(n))
}

func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}
