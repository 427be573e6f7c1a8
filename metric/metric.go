// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package metric implements routines for generating and saving metrics
// associated with RPC servers and clients.
package metric // import "miniapi.io/metric"

import (
	"bytes"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"miniapi.io/errors"
	"miniapi.io/log"
)

// Metric is a named collection of spans. A span measures time from the beginning of an event
// (for example, an RPC call) until its completion.
type Metric struct {
	name errors.Op

	mu    sync.Mutex // protects all fields below
	spans []*Span
}

// A Span measures time from the beginning of an event (for example, an RPC call) until its completion.
type Span struct {
	name       errors.Op
	startTime  time.Time
	endTime    time.Time
	kind       Kind
	parent     *Metric
	parentSpan *Span  // may be nil.
	annotation string // optional.
}

// Saver is the common interface that all implementation-specific backends must implement
// for saving a Metric. A Saver must continuously process Metrics sent over a channel, set
// during registration. A nil Metric on the channel asks the Saver to stop.
type Saver interface {
	// Register informs the Saver that new Metrics will be added to queue.
	Register(queue chan *Metric)

	// NumProcessed returns the number of Metrics processed so far.
	NumProcessed() int32
}

// Kind represents where the trace was taken: Server, Client or Other.
type Kind int

// Kinds of metrics.
const (
	Server Kind = iota
	Client
	Other
)

func (k Kind) String() string {
	switch k {
	case Server:
		return "server"
	case Client:
		return "client"
	}
	return "other"
}

// saveQueueLength is the size of the queue of metrics to be saved.
// Too large a queue might be wasteful and too little means metrics start to
// take time in the critical path of instrumented services.
const saveQueueLength = 1024

// saveQueue buffers metrics to be saved to the backend.
var saveQueue = make(chan *Metric, saveQueueLength)

var registered int32 // read/written atomically

// RegisterSaver registers a Saver for storing Metrics onto a backend.
// Only one Saver may exist or it panics.
func RegisterSaver(saver Saver) {
	if !atomic.CompareAndSwapInt32(&registered, 0, 1) {
		panic("metric: saver already registered")
	}
	saver.Register(saveQueue)
}

// New creates a new named metric.
func New(name errors.Op) *Metric {
	return &Metric{
		name: name,
	}
}

// NewSpan creates a new metric with a newly-started span of the same name.
func NewSpan(name errors.Op) (*Metric, *Span) {
	m := New(name)
	return m, m.StartSpan(name)
}

// Name returns the name of the metric.
func (m *Metric) Name() errors.Op {
	return m.name
}

// Spans returns a copy of the spans recorded under this Metric.
func (m *Metric) Spans() []*Span {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Span(nil), m.spans...)
}

// StartSpan starts a new span of the metric with implicit start time being the current time and Kind being Server.
// Spans need not be contiguous and may or may not overlap.
func (m *Metric) StartSpan(name errors.Op) *Span {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.spans == nil {
		m.spans = make([]*Span, 0, 8)
	}
	s := &Span{
		name:      name,
		startTime: time.Now(),
		parent:    m,
		kind:      Server,
	}
	m.spans = append(m.spans, s)
	return s
}

// Done ends the metric and any not-yet-ended span and queues it for saving.
// Further use of the metric or any of its spans is invalid and may produce
// erroneous results or be silently dropped.
func (m *Metric) Done() {
	m.mu.Lock()
	for _, s := range m.spans {
		if s.endTime.IsZero() {
			s.End()
		}
	}
	m.mu.Unlock()

	if atomic.LoadInt32(&registered) == 0 {
		return
	}

	select {
	case saveQueue <- m:
	default:
		log.Error.Printf("metric: channel is full. Dropping metric %q.", m.name)
	}
}

// String formats the metric as its name followed by one
// "name kind duration" entry per span.
func (m *Metric) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var b bytes.Buffer
	fmt.Fprintf(&b, "metric %s:", m.name)
	for _, s := range m.spans {
		fmt.Fprintf(&b, " [%s %s %v", s.name, s.kind, s.Duration())
		if s.annotation != "" {
			fmt.Fprintf(&b, " %q", s.annotation)
		}
		b.WriteByte(']')
	}
	return b.String()
}

// End marks the end time of the span as the current time. It returns the parent metric for convenience.
func (s *Span) End() *Metric {
	s.endTime = time.Now()
	return s.parent
}

// StartSpan starts a new span as a child of s with start time set to the current time.
func (s *Span) StartSpan(name errors.Op) *Span {
	sub := s.parent.StartSpan(name)
	sub.parentSpan = s
	sub.kind = s.kind
	return sub
}

// Name returns the name of the span.
func (s *Span) Name() errors.Op {
	return s.name
}

// Duration returns the time between the start and end of the span,
// or zero if the span has not ended.
func (s *Span) Duration() time.Duration {
	if s.endTime.IsZero() {
		return 0
	}
	return s.endTime.Sub(s.startTime)
}

// Metric returns the parent metric of the span.
func (s *Span) Metric() *Metric {
	return s.parent
}

// SetKind sets the kind of the span s and returns it.
func (s *Span) SetKind(kind Kind) *Span {
	s.kind = kind
	return s
}

// SetAnnotation sets a custom annotation to the span s and returns it.
// If multiple annotations are set, the last one wins.
func (s *Span) SetAnnotation(annotation string) *Span {
	s.annotation = annotation
	return s
}
