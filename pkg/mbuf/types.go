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
	v2 "github.com/matrixorigin/mosbuf/pkg/util/metric/v2"
)

const (
	// HeaderSize is the part of every block reserved for buffer bookkeeping.
	// The data buffer of a block is what remains after it.
	HeaderSize = 16
	// PkthdrSize is the fixed part of a packet header, stored at the start
	// of the head buffer's data buffer ahead of the user header.
	PkthdrSize = 8
	// MaxPkthdrLen bounds packet header plus user header.
	MaxPkthdrLen = 255
)

// BlockPool is the fixed-size block allocator a buffer pool is carved
// from. *mempool.Pool implements it.
//go:generate mockgen -source=types.go -destination=test/types_mock.go -package=mock_mbuf BlockPool
type BlockPool interface {
	Name() string
	BlockSize() int
	NumBlocks() int
	NumFree() int
	Alloc() (int, bool)
	Free(idx int) error
	Block(idx int) []byte
}

// Pool hands out buffers, one per block of the underlying BlockPool.
// Buffer objects live in a slot table indexed by block, so a buffer
// handle stays valid for the lifetime of the pool.
type Pool struct {
	name       string
	bp         BlockPool
	databufLen int
	slots      []Mbuf
	metrics    v2.PoolMetrics
}

// Mbuf is one buffer of a chain. A chain is addressed by its head.
//
// Only a head may carry a packet header. Its storage occupies the first
// pkthdrLen bytes of the head's data buffer: PkthdrSize bytes of fixed
// header followed by the user header. The total chain length is kept in
// pktLen.
type Mbuf struct {
	pool *Pool
	idx  int

	databuf []byte
	data    int
	len     int

	pkthdrLen int
	pktLen    int

	next *Mbuf
}
