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

package mqueue

import (
	"sync"

	"github.com/matrixorigin/mosbuf/pkg/common/moerr"
	"github.com/matrixorigin/mosbuf/pkg/eventq"
	"github.com/matrixorigin/mosbuf/pkg/mbuf"
)

// Queue holds packets waiting to be processed. Putting a packet posts the
// queue's event so that a task draining an event queue picks it up.
type Queue struct {
	ev *eventq.Event

	mu   sync.Mutex
	pkts []*mbuf.Mbuf
}

// New creates a queue whose event calls fn with arg as its Arg.
func New(fn func(*eventq.Event), arg any) *Queue {
	return &Queue{
		ev: &eventq.Event{Fn: fn, Arg: arg},
	}
}

// Event returns the event posted on every Put.
func (q *Queue) Event() *eventq.Event {
	return q.ev
}

// Put appends the packet m and posts the queue's event to evq when evq is
// not nil. m must be a chain head carrying a packet header.
func (q *Queue) Put(evq *eventq.Queue, m *mbuf.Mbuf) error {
	if !m.IsPkthdr() {
		return moerr.NewInvalidArgNoCtx("packet without header", m.Len())
	}
	q.mu.Lock()
	q.pkts = append(q.pkts, m)
	q.mu.Unlock()
	if evq != nil {
		evq.Put(q.ev)
	}
	return nil
}

// Get removes and returns the oldest packet, nil when empty.
func (q *Queue) Get() *mbuf.Mbuf {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pkts) == 0 {
		return nil
	}
	m := q.pkts[0]
	q.pkts[0] = nil
	q.pkts = q.pkts[1:]
	return m
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pkts)
}
