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
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/mosbuf/pkg/common/moerr"
	"github.com/matrixorigin/mosbuf/pkg/eventq"
	"github.com/matrixorigin/mosbuf/pkg/mbuf"
	"github.com/matrixorigin/mosbuf/pkg/mempool"
)

func newPool(t *testing.T) *mbuf.Pool {
	bp, err := mempool.New("mqueue", 128, 8)
	require.NoError(t, err)
	p, err := mbuf.NewPool(bp)
	require.NoError(t, err)
	return p
}

func TestPutGet(t *testing.T) {
	p := newPool(t)
	q := New(nil, nil)
	require.Nil(t, q.Get())

	var pkts []*mbuf.Mbuf
	for i := 0; i < 3; i++ {
		m, err := p.GetPkthdr(0)
		require.NoError(t, err)
		require.NoError(t, m.Append([]byte{byte(i)}))
		require.NoError(t, q.Put(nil, m))
		pkts = append(pkts, m)
	}
	require.Equal(t, 3, q.Len())
	for _, want := range pkts {
		got := q.Get()
		require.Same(t, want, got)
		require.NoError(t, got.FreeChain())
	}
	require.Equal(t, 0, q.Len())
	require.Equal(t, 8, p.NumFree())
}

func TestPutRequiresPkthdr(t *testing.T) {
	p := newPool(t)
	q := New(nil, nil)
	m, err := p.Get(0)
	require.NoError(t, err)
	defer m.Free()

	err = q.Put(nil, m)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidArg))
	err = q.Put(nil, nil)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidArg))
	require.Equal(t, 0, q.Len())
}

func TestPutPostsEvent(t *testing.T) {
	p := newPool(t)
	evq := eventq.New()

	var drained [][]byte
	var q *Queue
	q = New(func(e *eventq.Event) {
		require.Equal(t, "rx", e.Arg)
		for m := q.Get(); m != nil; m = q.Get() {
			drained = append(drained, m.Bytes())
			require.NoError(t, m.FreeChain())
		}
	}, "rx")

	for _, s := range []string{"one", "two"} {
		m, err := p.GetPkthdr(0)
		require.NoError(t, err)
		require.NoError(t, m.Append([]byte(s)))
		require.NoError(t, q.Put(evq, m))
	}
	// the event is queued once for both packets
	require.Equal(t, 1, evq.Len())
	require.True(t, q.Event().Queued())

	require.NoError(t, evq.Run(context.Background()))
	require.Equal(t, [][]byte{[]byte("one"), []byte("two")}, drained)
	require.Equal(t, 0, evq.Len())
	require.Equal(t, 8, p.NumFree())
}
