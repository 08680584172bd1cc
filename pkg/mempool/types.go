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
	"sync"

	"github.com/RoaringBitmap/roaring"
)

// Pool is a fixed-size block allocator over one contiguous arena.
// Blocks are addressed by index and handed out LIFO.
type Pool struct {
	name      string
	blockSize int
	numBlocks int

	arena   []byte
	release func() error

	mu      sync.Mutex
	free    []int32
	inuse   *roaring.Bitmap
	minFree int
}

// Info is a point-in-time snapshot of a pool.
type Info struct {
	Name      string
	BlockSize int
	NumBlocks int
	NumFree   int
	MinFree   int
}

type options struct {
	mmap bool
}

type Option func(*options)

// WithMmap backs the arena with an anonymous private mapping where the
// platform supports it.
func WithMmap() Option {
	return func(o *options) {
		o.mmap = true
	}
}
