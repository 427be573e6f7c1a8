// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpc

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"miniapi.io/errors"
)

// Strategy decides how an Engine is driven through its transport call.
// Run must take the engine to Done exactly once and report the outcome
// through the returned Pending.
type Strategy interface {
	Run(ctx context.Context, e *Engine, t Transport) *Pending
}

// Pending is a call that may still be in flight.
type Pending struct {
	// Slot is the name the call was started with, if any.
	Slot string

	done chan struct{}
	resp *Response
	err  error
}

func newPending(slot string) *Pending {
	return &Pending{Slot: slot, done: make(chan struct{})}
}

func (p *Pending) finish(resp *Response, err error) {
	p.resp, p.err = resp, err
	close(p.done)
}

// Done returns a channel that is closed when the call has completed.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the call completes and returns its result. The
// Response is returned even when the error reports an HTTP failure.
func (p *Pending) Wait() (*Response, error) {
	<-p.done
	return p.resp, p.err
}

// Sync is the default Strategy. It runs the call to completion before
// Run returns.
type Sync struct{}

// Run implements Strategy.
func (Sync) Run(ctx context.Context, e *Engine, t Transport) *Pending {
	p := newPending(e.Slot())
	p.finish(run(ctx, e, t))
	return p
}

// Slots is a Strategy that runs each call in its own goroutine and
// returns at once. Calls started with a slot name can be retrieved by
// that name until the next call with the same name.
// The zero value runs calls without a limit.
type Slots struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup

	mu    sync.Mutex
	slots map[string]*Pending
}

var _ Strategy = (*Slots)(nil)

// NewSlots returns a Slots strategy running at most limit calls at once.
// A limit of zero or less means no limit.
func NewSlots(limit int64) *Slots {
	s := &Slots{slots: make(map[string]*Pending)}
	if limit > 0 {
		s.sem = semaphore.NewWeighted(limit)
	}
	return s
}

// Run implements Strategy.
func (s *Slots) Run(ctx context.Context, e *Engine, t Transport) *Pending {
	p := newPending(e.Slot())
	if p.Slot != "" {
		s.mu.Lock()
		if s.slots == nil {
			s.slots = make(map[string]*Pending)
		}
		s.slots[p.Slot] = p
		s.mu.Unlock()
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if s.sem != nil {
			if err := s.sem.Acquire(ctx, 1); err != nil {
				e.Close()
				p.finish(nil, errors.E(errors.Op("rpc.Slots"), errors.IO, err))
				return
			}
			defer s.sem.Release(1)
		}
		p.finish(run(ctx, e, t))
	}()
	return p
}

// Get returns the most recent call started with the named slot.
func (s *Slots) Get(name string) (*Pending, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.slots[name]
	return p, ok
}

// Wait blocks until every call started so far has completed.
func (s *Slots) Wait() {
	s.wg.Wait()
}
