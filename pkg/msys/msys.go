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

package msys

import (
	"context"
	"sync"

	"github.com/google/btree"
	"go.uber.org/zap"

	"github.com/matrixorigin/mosbuf/pkg/common/moerr"
	"github.com/matrixorigin/mosbuf/pkg/logutil"
	"github.com/matrixorigin/mosbuf/pkg/mbuf"
	"github.com/matrixorigin/mosbuf/pkg/mempool"
)

const (
	// DefaultMaxPools is the capacity of the default registry.
	DefaultMaxPools = 8

	btreeDegree = 8
)

// Registry keeps buffer pools ordered by data buffer length and serves
// requests from the smallest pool that fits.
type Registry struct {
	maxPools int

	mu    sync.RWMutex
	pools *btree.BTree
	seq   uint64
}

type poolItem struct {
	databufLen int
	seq        uint64
	pool       *mbuf.Pool
}

// Less orders by data buffer length, then by registration order.
func (i *poolItem) Less(than btree.Item) bool {
	o := than.(*poolItem)
	if i.databufLen != o.databufLen {
		return i.databufLen < o.databufLen
	}
	return i.seq < o.seq
}

func NewRegistry(maxPools int) *Registry {
	return &Registry{
		maxPools: maxPools,
		pools:    btree.New(btreeDegree),
	}
}

// Register adds p to the registry.
func (r *Registry) Register(p *mbuf.Pool) error {
	if p == nil {
		return moerr.NewInvalidArg(context.TODO(), "pool", nil)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pools.Len() >= r.maxPools {
		return moerr.NewRegistryFull(context.TODO(), r.maxPools)
	}
	// pool metrics are keyed by name
	dup := false
	r.pools.Ascend(func(item btree.Item) bool {
		dup = item.(*poolItem).pool.Name() == p.Name()
		return !dup
	})
	if dup {
		return moerr.NewInvalidArg(context.TODO(), "pool already registered", p.Name())
	}
	r.seq++
	r.pools.ReplaceOrInsert(&poolItem{
		databufLen: p.DatabufLen(),
		seq:        r.seq,
		pool:       p,
	})
	logutil.Info("msys register pool",
		zap.String("pool", p.Name()),
		zap.Int("databuf-len", p.DatabufLen()),
		zap.Int("count", p.Count()),
		zap.Int("registered", r.pools.Len()),
	)
	return nil
}

// Reset forgets every pool. Buffers already handed out stay valid.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pools.Clear(false)
	logutil.Info("msys reset")
}

// candidates lists pools in the order a request of dsize bytes tries
// them: pools that fit from smallest up, or every pool from the largest
// down when none fits.
func (r *Registry) candidates(dsize int) []*mbuf.Pool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*mbuf.Pool, 0, r.pools.Len())
	r.pools.AscendGreaterOrEqual(&poolItem{databufLen: dsize}, func(item btree.Item) bool {
		out = append(out, item.(*poolItem).pool)
		return true
	})
	if len(out) == 0 {
		r.pools.Descend(func(item btree.Item) bool {
			out = append(out, item.(*poolItem).pool)
			return true
		})
	}
	return out
}

// FindPool returns the pool a request of dsize bytes is served from
// first, nil when the registry is empty.
func (r *Registry) FindPool(dsize int) *mbuf.Pool {
	c := r.candidates(dsize)
	if len(c) == 0 {
		return nil
	}
	return c[0]
}

func (r *Registry) get(dsize int, fn func(*mbuf.Pool) (*mbuf.Mbuf, error)) (*mbuf.Mbuf, error) {
	pools := r.candidates(dsize)
	if len(pools) == 0 {
		return nil, moerr.NewNoBufferNoCtx("msys")
	}
	var err, noBuffer error
	for _, p := range pools {
		var m *mbuf.Mbuf
		if m, err = fn(p); err == nil {
			return m, nil
		}
		switch {
		case moerr.IsMoErrCode(err, moerr.ErrNoBuffer):
			noBuffer = err
		case moerr.IsMoErrCode(err, moerr.ErrInvalidArg):
			// a pool too small for the leading space or header is skipped
		default:
			return nil, err
		}
	}
	// exhaustion wins over pools that could never serve the request
	if noBuffer != nil {
		return nil, noBuffer
	}
	return nil, err
}

// Get allocates a buffer able to hold dsize bytes.
func (r *Registry) Get(dsize, leadingSpace int) (*mbuf.Mbuf, error) {
	return r.get(dsize, func(p *mbuf.Pool) (*mbuf.Mbuf, error) {
		return p.Get(leadingSpace)
	})
}

// GetPkthdr allocates a chain head able to hold dsize bytes after a
// packet header with userHdrLen bytes of user header.
func (r *Registry) GetPkthdr(dsize, userHdrLen int) (*mbuf.Mbuf, error) {
	return r.get(dsize+mbuf.PkthdrSize+userHdrLen, func(p *mbuf.Pool) (*mbuf.Mbuf, error) {
		return p.GetPkthdr(userHdrLen)
	})
}

// Count is the total number of buffers across registered pools.
func (r *Registry) Count() int {
	n := 0
	for _, p := range r.Pools() {
		n += p.Count()
	}
	return n
}

// NumFree is the number of free buffers across registered pools.
func (r *Registry) NumFree() int {
	n := 0
	for _, p := range r.Pools() {
		n += p.NumFree()
	}
	return n
}

// Pools returns the registered pools in selection order.
func (r *Registry) Pools() []*mbuf.Pool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*mbuf.Pool, 0, r.pools.Len())
	r.pools.Ascend(func(item btree.Item) bool {
		out = append(out, item.(*poolItem).pool)
		return true
	})
	return out
}

// Stats snapshots the block pools behind the registered pools.
func (r *Registry) Stats() []mempool.Info {
	pools := r.Pools()
	out := make([]mempool.Info, 0, len(pools))
	for _, p := range pools {
		bp := p.BlockPool()
		info := mempool.Info{
			Name:      bp.Name(),
			BlockSize: bp.BlockSize(),
			NumBlocks: bp.NumBlocks(),
			NumFree:   bp.NumFree(),
			MinFree:   -1,
		}
		if mp, ok := bp.(*mempool.Pool); ok {
			info = mp.Info()
		}
		out = append(out, info)
	}
	return out
}
