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

package controller

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/wso2/api-platform/gateway/doorbell-bridge/internal/logging"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/internal/metrics"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/internal/trigger"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/core"
)

type State int32

const (
	StateIdle State = iota
	StateHandling
)

func (s State) String() string {
	if s == StateHandling {
		return "handling"
	}
	return "idle"
}

type Config struct {
	QueueSize       int
	CaptureTimeout  time.Duration
	DispatchTimeout time.Duration
}

// Settings is the notification content. It can be swapped while the worker
// runs; each trigger reads it once.
type Settings struct {
	Recipient      string
	Token          string
	Title          string
	Message        string
	AttachmentName string
}

type Option func(*Controller)

func WithHistory(h core.HistoryStore) Option {
	return func(c *Controller) { c.history = h }
}

func WithIndicator(i core.Indicator) Option {
	return func(c *Controller) { c.indicator = i }
}

// WithObserver registers a callback invoked with every finished trigger,
// dropped ones included.
func WithObserver(fn func(core.TriggerRecord)) Option {
	return func(c *Controller) { c.observer = fn }
}

type Controller struct {
	predicate  *trigger.Predicate
	capturer   core.Capturer
	dispatcher core.Dispatcher
	history    core.HistoryStore
	indicator  core.Indicator
	observer   func(core.TriggerRecord)

	cfg        Config
	settings   atomic.Pointer[Settings]
	queue      chan core.RingEvent
	state      atomic.Int32
	logger     *slog.Logger
	triggerLog *logging.TriggerLogger
}

func New(
	predicate *trigger.Predicate,
	capturer core.Capturer,
	dispatcher core.Dispatcher,
	settings Settings,
	cfg Config,
	logger *slog.Logger,
	opts ...Option,
) *Controller {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 8
	}
	if cfg.CaptureTimeout <= 0 {
		cfg.CaptureTimeout = 5 * time.Second
	}
	if cfg.DispatchTimeout <= 0 {
		cfg.DispatchTimeout = 11 * time.Second
	}

	c := &Controller{
		predicate:  predicate,
		capturer:   capturer,
		dispatcher: dispatcher,
		cfg:        cfg,
		queue:      make(chan core.RingEvent, cfg.QueueSize),
		logger:     logger,
		triggerLog: logging.NewTriggerLogger(logger),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.UpdateSettings(settings)
	return c
}

func (c *Controller) UpdateSettings(s Settings) {
	if s.Title == "" {
		s.Title = "Doorbell"
	}
	if s.Message == "" {
		s.Message = "Doorbell (Image)"
	}
	if s.AttachmentName == "" {
		s.AttachmentName = "doorbell.jpg"
	}
	c.settings.Store(&s)
}

func (c *Controller) Settings() Settings {
	return *c.settings.Load()
}

func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) Pending() int {
	return len(c.queue)
}

// Handler returns the callback handed to the named listener.
func (c *Controller) Handler(listener string) core.MessageHandler {
	return func(topic string, payload []byte) {
		metrics.MessagesReceived.WithLabelValues(listener).Inc()
		c.Submit(listener, topic, payload)
	}
}

// Submit queues a trigger when topic and payload match. It never blocks;
// it reports whether the message was accepted.
func (c *Controller) Submit(listener, topic string, payload []byte) bool {
	if !c.predicate.Match(topic, payload) {
		c.logger.Debug("ignoring message", "listener", listener, "topic", topic, "payload_bytes", len(payload))
		return false
	}

	ev := core.RingEvent{
		ID:         uuid.New().String(),
		Listener:   listener,
		Topic:      topic,
		Payload:    append([]byte(nil), payload...),
		ReceivedAt: time.Now(),
	}

	select {
	case c.queue <- ev:
		metrics.QueueDepth.Set(float64(len(c.queue)))
		c.logger.Info("trigger accepted", "trigger_id", ev.ID, "listener", listener, "topic", topic)
		return true
	default:
		c.finish(core.TriggerRecord{
			ID:         ev.ID,
			Listener:   listener,
			Topic:      topic,
			ReceivedAt: ev.ReceivedAt,
			Outcome:    core.OutcomeDropped,
			Error:      "trigger queue full",
		})
		return false
	}
}

// Serve is the single worker draining the trigger queue.
func (c *Controller) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-c.queue:
			metrics.QueueDepth.Set(float64(len(c.queue)))
			c.handle(ctx, ev)
		}
	}
}

func (c *Controller) String() string { return "doorbell-controller" }

func (c *Controller) handle(ctx context.Context, ev core.RingEvent) {
	c.state.Store(int32(StateHandling))
	c.setIndicator(true)
	defer func() {
		c.setIndicator(false)
		c.state.Store(int32(StateIdle))
	}()
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("trigger panic recovered", "trigger_id", ev.ID, "error", r)
		}
	}()

	rec := core.TriggerRecord{
		ID:         ev.ID,
		Listener:   ev.Listener,
		Topic:      ev.Topic,
		ReceivedAt: ev.ReceivedAt,
	}

	frame, err := c.capture(ctx)
	if err == nil {
		rec.ImageBytes = len(frame.Data)
		err = c.dispatch(ctx, frame)
	}
	if err != nil {
		rec.Error = err.Error()
	}
	rec.Outcome = core.OutcomeFor(err)
	c.finish(rec)
}

func (c *Controller) capture(ctx context.Context) (*core.Frame, error) {
	captureCtx, cancel := context.WithTimeout(ctx, c.cfg.CaptureTimeout)
	defer cancel()

	start := time.Now()
	frame, err := c.capturer.Capture(captureCtx)
	metrics.ObserveCapture(time.Since(start))
	return frame, err
}

func (c *Controller) dispatch(ctx context.Context, frame *core.Frame) error {
	s := c.settings.Load()
	contentType := frame.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}
	n := core.Notification{
		Recipient: s.Recipient,
		Token:     s.Token,
		Title:     s.Title,
		Message:   s.Message,
		Attachment: &core.Attachment{
			Name:        s.AttachmentName,
			ContentType: contentType,
			Data:        frame.Data,
		},
	}

	dispatchCtx, cancel := context.WithTimeout(ctx, c.cfg.DispatchTimeout)
	defer cancel()

	start := time.Now()
	err := c.dispatcher.Dispatch(dispatchCtx, n)
	metrics.ObserveDispatch(time.Since(start))
	return err
}

func (c *Controller) finish(rec core.TriggerRecord) {
	rec.FinishedAt = time.Now()

	if c.history != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := c.history.Record(ctx, rec); err != nil {
			c.logger.Warn("history record failed", "trigger_id", rec.ID, "error", err)
		}
		cancel()
	}
	metrics.ObserveTrigger(rec)
	c.triggerLog.Log(rec)
	if c.observer != nil {
		c.observer(rec)
	}
}

func (c *Controller) setIndicator(on bool) {
	if c.indicator == nil {
		return
	}
	if err := c.indicator.Set(on); err != nil {
		c.logger.Warn("ring indicator update failed", "on", on, "error", err)
	}
}
