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

package mempool

import (
	"context"

	"github.com/RoaringBitmap/roaring"
	"go.uber.org/zap"

	"github.com/matrixorigin/mosbuf/pkg/common/moerr"
	"github.com/matrixorigin/mosbuf/pkg/logutil"
)

func New(name string, blockSize, numBlocks int, opts ...Option) (*Pool, error) {
	if blockSize <= 0 {
		return nil, moerr.NewInvalidArg(context.TODO(), "block size", blockSize)
	}
	if numBlocks <= 0 {
		return nil, moerr.NewInvalidArg(context.TODO(), "block count", numBlocks)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	p := &Pool{
		name:      name,
		blockSize: blockSize,
		numBlocks: numBlocks,
		free:      make([]int32, numBlocks),
		inuse:     roaring.New(),
		minFree:   numBlocks,
	}
	size := blockSize * numBlocks
	if o.mmap {
		arena, release, err := mmapArena(size)
		if err != nil {
			return nil, err
		}
		p.arena, p.release = arena, release
	} else {
		p.arena = make([]byte, size)
	}
	// lowest index on top
	for i := range p.free {
		p.free[i] = int32(numBlocks - 1 - i)
	}

	logutil.Debug("mempool created",
		zap.String("pool", name),
		zap.Int("block-size", blockSize),
		zap.Int("block-count", numBlocks),
		zap.Bool("mmap", p.release != nil),
	)
	return p, nil
}

// Alloc takes a block off the free list.
func (p *Pool) Alloc() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.free)
	if n == 0 {
		return -1, false
	}
	idx := p.free[n-1]
	p.free = p.free[:n-1]
	if !p.inuse.CheckedAdd(uint32(idx)) {
		panic(moerr.NewInternalErrorNoCtx("mempool %s: free block %d already outstanding", p.name, idx))
	}
	if n-1 < p.minFree {
		p.minFree = n - 1
	}
	return int(idx), true
}

// Free returns a block to the pool. Freeing a block that is not
// outstanding is reported, never silently absorbed.
func (p *Pool) Free(idx int) error {
	if idx < 0 || idx >= p.numBlocks {
		return moerr.NewInvalidArgNoCtx("block index", idx)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.inuse.CheckedRemove(uint32(idx)) {
		return moerr.NewDoubleFreeNoCtx(idx, p.name)
	}
	p.free = append(p.free, int32(idx))
	return nil
}

// Block returns the storage of block idx, capped at the block size.
func (p *Pool) Block(idx int) []byte {
	off := idx * p.blockSize
	return p.arena[off : off+p.blockSize : off+p.blockSize]
}

func (p *Pool) Name() string {
	return p.name
}

func (p *Pool) BlockSize() int {
	return p.blockSize
}

func (p *Pool) NumBlocks() int {
	return p.numBlocks
}

func (p *Pool) NumFree() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

// MinFree is the lowest free count observed since creation.
func (p *Pool) MinFree() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.minFree
}

// Outstanding reports whether block idx is currently allocated.
func (p *Pool) Outstanding(idx int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inuse.Contains(uint32(idx))
}

func (p *Pool) Info() Info {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Info{
		Name:      p.name,
		BlockSize: p.blockSize,
		NumBlocks: p.numBlocks,
		NumFree:   len(p.free),
		MinFree:   p.minFree,
	}
}

// Close releases an mmap arena. The pool must not be used afterwards.
func (p *Pool) Close() error {
	if p.release == nil {
		return nil
	}
	release := p.release
	p.release = nil
	p.arena = nil
	return release()
}
