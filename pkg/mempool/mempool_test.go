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
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/mosbuf/pkg/common/moerr"
)

func TestNewInvalid(t *testing.T) {
	_, err := New("bad", 0, 10)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidArg))
	_, err = New("bad", 64, 0)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidArg))
}

func TestPool(t *testing.T) {
	convey.Convey("fixed block pool", t, func() {
		p, err := New("test", 64, 4)
		convey.So(err, convey.ShouldBeNil)
		defer p.Close()

		convey.So(p.Name(), convey.ShouldEqual, "test")
		convey.So(p.BlockSize(), convey.ShouldEqual, 64)
		convey.So(p.NumBlocks(), convey.ShouldEqual, 4)
		convey.So(p.NumFree(), convey.ShouldEqual, 4)

		convey.Convey("blocks are handed out until exhausted", func() {
			var got []int
			for i := 0; i < 4; i++ {
				idx, ok := p.Alloc()
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(p.Outstanding(idx), convey.ShouldBeTrue)
				got = append(got, idx)
			}
			convey.So(got, convey.ShouldResemble, []int{0, 1, 2, 3})
			_, ok := p.Alloc()
			convey.So(ok, convey.ShouldBeFalse)
			convey.So(p.NumFree(), convey.ShouldEqual, 0)
			convey.So(p.MinFree(), convey.ShouldEqual, 0)

			for _, idx := range got {
				convey.So(p.Free(idx), convey.ShouldBeNil)
			}
			convey.So(p.NumFree(), convey.ShouldEqual, 4)
			convey.So(p.MinFree(), convey.ShouldEqual, 0)
		})

		convey.Convey("freed block is reused first", func() {
			a, _ := p.Alloc()
			b, _ := p.Alloc()
			convey.So(p.Free(a), convey.ShouldBeNil)
			c, _ := p.Alloc()
			convey.So(c, convey.ShouldEqual, a)
			convey.So(p.Free(b), convey.ShouldBeNil)
			convey.So(p.Free(c), convey.ShouldBeNil)
		})

		convey.Convey("double free and bad index are rejected", func() {
			idx, _ := p.Alloc()
			convey.So(p.Free(idx), convey.ShouldBeNil)
			err := p.Free(idx)
			convey.So(moerr.IsMoErrCode(err, moerr.ErrDoubleFree), convey.ShouldBeTrue)
			err = p.Free(4)
			convey.So(moerr.IsMoErrCode(err, moerr.ErrInvalidArg), convey.ShouldBeTrue)
			err = p.Free(-1)
			convey.So(moerr.IsMoErrCode(err, moerr.ErrInvalidArg), convey.ShouldBeTrue)
			convey.So(p.NumFree(), convey.ShouldEqual, 4)
		})

		convey.Convey("blocks do not overlap", func() {
			a, _ := p.Alloc()
			b, _ := p.Alloc()
			ba, bb := p.Block(a), p.Block(b)
			convey.So(len(ba), convey.ShouldEqual, 64)
			convey.So(cap(ba), convey.ShouldEqual, 64)
			for i := range ba {
				ba[i] = 0xaa
			}
			for i := range bb {
				bb[i] = 0x55
			}
			convey.So(ba[63], convey.ShouldEqual, byte(0xaa))
			convey.So(bb[0], convey.ShouldEqual, byte(0x55))
		})
	})
}

func TestMmapPool(t *testing.T) {
	p, err := New("mmap", 128, 16, WithMmap())
	require.NoError(t, err)
	idx, ok := p.Alloc()
	require.True(t, ok)
	blk := p.Block(idx)
	copy(blk, "mbuf")
	require.Equal(t, "mbuf", string(p.Block(idx)[:4]))
	require.NoError(t, p.Free(idx))

	info := p.Info()
	require.Equal(t, Info{Name: "mmap", BlockSize: 128, NumBlocks: 16, NumFree: 16, MinFree: 15}, info)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
}

func TestPoolConcurrent(t *testing.T) {
	p, err := New("race", 32, 64)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				idx, ok := p.Alloc()
				if !ok {
					continue
				}
				p.Block(idx)[0] = byte(j)
				require.NoError(t, p.Free(idx))
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 64, p.NumFree())
}

func BenchmarkAllocFree(b *testing.B) {
	p, err := New("bench", 256, 1024)
	require.NoError(b, err)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		idx, _ := p.Alloc()
		_ = p.Free(idx)
	}
}
