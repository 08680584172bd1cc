// Copyright 2022 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package eventq

import (
	"container/list"
	"context"
	"sync"
)

// Event is a callback posted to a Queue. An event sits in at most one
// queue at a time.
type Event struct {
	Fn  func(*Event)
	Arg any

	mu     sync.Mutex
	queued *Queue
	elem   *list.Element
}

// Queued reports whether e is waiting in a queue.
func (e *Event) Queued() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queued != nil
}

// Queue is an unbounded FIFO of events safe for concurrent use.
type Queue struct {
	mu     sync.Mutex
	events *list.List
	// notify is signalled whenever an event is put.
	notify chan struct{}
}

func New() *Queue {
	return &Queue{
		events: list.New(),
		notify: make(chan struct{}, 1),
	}
}

// Put appends e. An event already queued is left where it is.
func (q *Queue) Put(e *Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.queued != nil {
		return
	}
	q.mu.Lock()
	e.elem = q.events.PushBack(e)
	e.queued = q
	q.mu.Unlock()
	q.wake()
}

func (q *Queue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Poll removes and returns the first event, or nil when q is empty.
func (q *Queue) Poll() *Event {
	for {
		q.mu.Lock()
		front := q.events.Front()
		q.mu.Unlock()
		if front == nil {
			return nil
		}
		e := front.Value.(*Event)
		if q.take(e) {
			return e
		}
	}
}

// take unlinks e if it is still queued in q.
func (q *Queue) take(e *Event) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.queued != q {
		return false
	}
	q.mu.Lock()
	q.events.Remove(e.elem)
	q.mu.Unlock()
	e.queued, e.elem = nil, nil
	return true
}

// Get blocks until an event is available or ctx is done.
func (q *Queue) Get(ctx context.Context) (*Event, error) {
	for {
		if e := q.Poll(); e != nil {
			if q.Len() > 0 {
				q.wake()
			}
			return e, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.notify:
		}
	}
}

// Remove drops e from q if it is queued there.
func (q *Queue) Remove(e *Event) {
	q.take(e)
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.events.Len()
}

// Run waits for one event and calls its Fn.
func (q *Queue) Run(ctx context.Context) error {
	e, err := q.Get(ctx)
	if err != nil {
		return err
	}
	if e.Fn != nil {
		e.Fn(e)
	}
	return nil
}
