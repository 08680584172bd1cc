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

package mbuf

import (
	"context"

	"go.uber.org/zap"

	"github.com/matrixorigin/mosbuf/pkg/common/moerr"
	"github.com/matrixorigin/mosbuf/pkg/logutil"
	v2 "github.com/matrixorigin/mosbuf/pkg/util/metric/v2"
)

// NewPool creates a buffer pool over bp. Each block yields a data buffer
// of BlockSize()-HeaderSize bytes. Pool metrics are keyed by the block
// pool name, so live pools need distinct names.
func NewPool(bp BlockPool) (*Pool, error) {
	if bp == nil {
		return nil, moerr.NewInvalidArg(context.TODO(), "block pool", nil)
	}
	databufLen := bp.BlockSize() - HeaderSize
	if databufLen <= 0 {
		return nil, moerr.NewInvalidArg(context.TODO(), "block size", bp.BlockSize())
	}
	p := &Pool{
		name:       bp.Name(),
		bp:         bp,
		databufLen: databufLen,
		slots:      make([]Mbuf, bp.NumBlocks()),
		metrics:    v2.GetPoolMetrics(bp.Name()),
	}
	p.metrics.FreeBlocks.Set(float64(bp.NumFree()))
	logutil.Info("mbuf pool created",
		zap.String("pool", p.name),
		zap.Int("databuf-len", databufLen),
		zap.Int("count", len(p.slots)),
	)
	return p, nil
}

func (p *Pool) Name() string {
	return p.name
}

// DatabufLen is the usable data capacity of every buffer of the pool.
func (p *Pool) DatabufLen() int {
	return p.databufLen
}

// Count is the total number of buffers the pool was created with.
func (p *Pool) Count() int {
	return len(p.slots)
}

func (p *Pool) NumFree() int {
	return p.bp.NumFree()
}

// BlockPool returns the allocator backing p.
func (p *Pool) BlockPool() BlockPool {
	return p.bp
}

// Get allocates a buffer whose data starts leadingSpace bytes into its
// data buffer.
func (p *Pool) Get(leadingSpace int) (*Mbuf, error) {
	if leadingSpace < 0 || leadingSpace > p.databufLen {
		return nil, moerr.NewInvalidArgNoCtx("leading space", leadingSpace)
	}
	m, err := p.alloc()
	if err != nil {
		return nil, err
	}
	m.data = leadingSpace
	return m, nil
}

// GetPkthdr allocates a chain head carrying a packet header with
// userHdrLen bytes of user header. The user header is zeroed.
func (p *Pool) GetPkthdr(userHdrLen int) (*Mbuf, error) {
	pkthdrLen := PkthdrSize + userHdrLen
	if userHdrLen < 0 || pkthdrLen > MaxPkthdrLen || pkthdrLen > p.databufLen {
		return nil, moerr.NewInvalidArgNoCtx("user header length", userHdrLen)
	}
	m, err := p.alloc()
	if err != nil {
		return nil, err
	}
	clear(m.databuf[:pkthdrLen])
	m.pkthdrLen = pkthdrLen
	m.data = pkthdrLen
	return m, nil
}

func (p *Pool) alloc() (*Mbuf, error) {
	idx, ok := p.bp.Alloc()
	if !ok {
		p.metrics.AllocFail.Inc()
		logutil.Debug("mbuf pool exhausted", zap.String("pool", p.name))
		return nil, moerr.NewNoBufferNoCtx(p.name)
	}
	if idx < 0 || idx >= len(p.slots) {
		panic(moerr.NewInternalErrorNoCtx("pool %s: block index %d out of %d", p.name, idx, len(p.slots)))
	}
	m := &p.slots[idx]
	*m = Mbuf{
		pool:    p,
		idx:     idx,
		databuf: p.bp.Block(idx)[HeaderSize:],
	}
	p.metrics.Alloc.Inc()
	p.metrics.FreeBlocks.Set(float64(p.bp.NumFree()))
	return m, nil
}

// release must be the last access to m: once the block is back in bp
// another caller may own the slot.
func (p *Pool) release(m *Mbuf) error {
	if m.pool != p || &p.slots[m.idx] != m {
		return moerr.NewInvalidArgNoCtx("buffer", p.name)
	}
	if err := p.bp.Free(m.idx); err != nil {
		return err
	}
	p.metrics.FreeBlocks.Set(float64(p.bp.NumFree()))
	return nil
}
