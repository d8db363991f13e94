// Copyright (c) 2025, WSO2 LLC. (https://www.wso2.com).
//
// WSO2 LLC. licenses this file to you under the Apache License,
// Version 2.0 (the "License"); you may not use this file except
// in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied. See the License for the
// specific language governing permissions and limitations
// under the License.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/core"
)

var (
	MessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doorbell_messages_received_total",
			Help: "Messages delivered by the listener, matching or not",
		},
		[]string{"listener"},
	)

	Triggers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doorbell_triggers_total",
			Help: "Finished triggers by outcome",
		},
		[]string{"outcome"},
	)

	CaptureDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "doorbell_capture_duration_seconds",
			Help:    "Time to open the video source, read one frame and encode it",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 3, 5, 10},
		},
	)

	DispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "doorbell_dispatch_duration_seconds",
			Help:    "Time spent on the notification request",
			Buckets: prometheus.DefBuckets,
		},
	)

	ImageBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "doorbell_image_bytes",
			Help:    "Size of encoded frames",
			Buckets: prometheus.ExponentialBuckets(4096, 2, 10),
		},
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "doorbell_trigger_queue_depth",
			Help: "Triggers waiting for the controller worker",
		},
	)

	ListenerReconnects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doorbell_listener_reconnects_total",
			Help: "Listener sessions re-established after a failure",
		},
		[]string{"listener"},
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "doorbell_dispatch_breaker_state",
			Help: "Circuit breaker state in front of the notifier (0 closed, 1 half-open, 2 open)",
		},
		[]string{"notifier"},
	)
)

func ObserveTrigger(rec core.TriggerRecord) {
	Triggers.WithLabelValues(string(rec.Outcome)).Inc()
	if rec.ImageBytes > 0 {
		ImageBytes.Observe(float64(rec.ImageBytes))
	}
}

func ObserveCapture(d time.Duration) {
	CaptureDuration.Observe(d.Seconds())
}

func ObserveDispatch(d time.Duration) {
	DispatchDuration.Observe(d.Seconds())
}

// RegisterListenerGauge exposes the listener's connection state. It is
// registered once per process; a second call for the same name is ignored.
func RegisterListenerGauge(name string, connected func() bool) {
	g := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name:        "doorbell_listener_connected",
			Help:        "1 while the listener holds a live broker session",
			ConstLabels: prometheus.Labels{"listener": name},
		},
		func() float64 {
			if connected() {
				return 1
			}
			return 0
		},
	)
	_ = prometheus.Register(g)
}
