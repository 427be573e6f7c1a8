// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package serverutil

import (
	"container/list"
	"sync"
	"time"
)

// The maximum number of callers that a RateLimiter can track.
const rateMaxCallers = 100000

// RateLimiter implements a per-key rate limiter with exponential backoff,
// up to a specified maximum. The zero RateLimiter is ready to use.
type RateLimiter struct {
	// Backoff specifies an initial backoff duration for a key.
	// After the first request for a given key the key will be denied until
	// the backoff has passed. If another request arrives after the backoff
	// but before Max, the backoff duration is doubled.
	Backoff time.Duration

	// Max specifies a maximum backoff duration.
	Max time.Duration

	mu    sync.Mutex // Guards the fields below.
	m     map[string]*list.Element
	order *list.List // Of *caller, least recently seen first.
}

type caller struct {
	key     string
	seen    time.Time
	backoff time.Duration
}

// Pass attempts to pass key through the rate limiter, returning true if key is
// within the rate limit. If it returns false it also returns the duration that
// must elapse before the key will be allowed to pass again.
func (r *RateLimiter) Pass(key string) (bool, time.Duration) {
	return r.pass(time.Now(), key)
}

func (r *RateLimiter) pass(now time.Time, key string) (bool, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.m == nil {
		r.m = map[string]*list.Element{}
		r.order = list.New()
	}

	e, ok := r.m[key]
	if !ok {
		r.m[key] = r.order.PushBack(&caller{
			key:     key,
			seen:    now,
			backoff: r.Backoff,
		})
		r.prune(now)
		return true, 0
	}

	// A caller quiet for Max starts over at the initial backoff.
	// Otherwise it is denied until its backoff has passed, and
	// the backoff doubles each time it gets through.
	c := e.Value.(*caller)
	if now.After(c.seen.Add(r.Max)) {
		c.backoff = r.Backoff
	} else {
		passTime := c.seen.Add(c.backoff)
		if !now.After(passTime) {
			return false, passTime.Sub(now)
		}
		c.backoff *= 2
		if c.backoff > r.Max {
			c.backoff = r.Max
		}
	}
	c.seen = now
	r.order.MoveToBack(e)
	r.prune(now)
	return true, 0
}

// prune drops callers not seen for Max, and the oldest callers
// beyond rateMaxCallers.
func (r *RateLimiter) prune(now time.Time) {
	drop := r.order.Len() - rateMaxCallers
	for e := r.order.Front(); e != nil; {
		c := e.Value.(*caller)
		if !now.After(c.seen.Add(r.Max)) && drop <= 0 {
			break
		}
		next := e.Next()
		r.order.Remove(e)
		delete(r.m, c.key)
		drop--
		e = next
	}
}
