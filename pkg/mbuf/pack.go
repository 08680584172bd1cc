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
	"bytes"

	"go.uber.org/zap"

	"github.com/matrixorigin/mosbuf/pkg/common/moerr"
	"github.com/matrixorigin/mosbuf/pkg/logutil"
	v2 "github.com/matrixorigin/mosbuf/pkg/util/metric/v2"
)

// PackChains appends b to a and compacts the result in place: data of
// every buffer starts at the front of its data buffer, every buffer but
// the last is full, and buffers left empty are returned to their pool.
// The result keeps a's head buffer, unless b's packet header is promoted
// and a's data buffer cannot hold it along with any data; b's head then
// leads the chain. Packing never allocates.
//
// The head carries a packet header when either input did; a's header wins,
// and the header length is set to the packed total. A nil a packs b alone.
// A packet header on any buffer other than a or b is a corrupted chain and
// panics.
func PackChains(a, b *Mbuf) *Mbuf {
	if a == nil {
		a, b = b, nil
	}
	if a == nil {
		return nil
	}
	checkChain(a)
	checkChain(b)

	var hdr []byte
	if b != nil {
		if !a.IsPkthdr() && b.IsPkthdr() {
			if b.pkthdrLen >= len(a.databuf) {
				return packBehindHeader(a, b)
			}
			hdr = bytes.Clone(b.databuf[:b.pkthdrLen])
		}
		a.Concat(b)
	}
	total := a.ChainLen()
	if hdr != nil {
		a.pkthdrLen = len(hdr)
	}

	var pk packer
	for cur := a; cur != nil; cur = pk.advance(cur) {
		pk.settle(cur)
		if cur == a && hdr != nil {
			copy(a.databuf, hdr)
		}
		pk.fill(cur)
	}
	if a.IsPkthdr() {
		a.pktLen = total
	}

	v2.MbufPackCounter.Inc()
	v2.MbufPackReleasedCounter.Add(float64(pk.released))
	return a
}

// packBehindHeader packs a then b behind b's head, which keeps its packet
// header. Used when a's head is too small to take the header.
func packBehindHeader(a, b *Mbuf) *Mbuf {
	var pk packer
	total := 0
	for _, m := range []*Mbuf{a, b} {
		for cur := m; cur != nil; cur = cur.next {
			pk.carry.Write(cur.Data())
			total += cur.len
		}
	}
	last, rest := a.last(), b.next
	b.next = a
	last.next = rest

	prev := b
	for cur := b; cur != nil; {
		next := cur.next
		cur.data, cur.len = cur.start(), 0
		if cur != b && pk.carry.Len() == 0 {
			prev.next = next
			pk.free(cur)
		} else {
			cur.len, _ = pk.carry.Read(cur.databuf[cur.data:])
			prev = cur
		}
		cur = next
	}
	if pk.carry.Len() > 0 {
		panic(moerr.NewInternalErrorNoCtx("pack: %d bytes left without a buffer", pk.carry.Len()))
	}
	b.pktLen = total

	v2.MbufPackCounter.Inc()
	v2.MbufPackReleasedCounter.Add(float64(pk.released))
	return b
}

func checkChain(m *Mbuf) {
	if m == nil {
		return
	}
	for cur := m.next; cur != nil; cur = cur.next {
		if cur.pkthdrLen != 0 {
			logutil.Error("packet header on a non-head buffer",
				zap.String("pool", cur.pool.Name()),
				zap.Int("pkthdr-len", cur.pkthdrLen),
			)
			panic(moerr.NewInternalErrorNoCtx("packet header on a non-head buffer of pool %s", cur.pool.Name()))
		}
	}
}

// packer moves bytes forward through a chain. Bytes a buffer holds beyond
// the room it has once the packet header is in place wait in carry until
// a later buffer takes them. While carry holds bytes, each buffer's own
// data is queued behind them before the buffer is rewritten.
type packer struct {
	carry    bytes.Buffer
	released int
}

// settle moves cur's own data to the front of its data buffer.
func (pk *packer) settle(cur *Mbuf) {
	start := cur.start()
	own := cur.databuf[cur.data : cur.data+cur.len]
	if pk.carry.Len() > 0 {
		pk.carry.Write(own)
		cur.data, cur.len = start, 0
		return
	}
	if room := len(cur.databuf) - start; len(own) > room {
		pk.carry.Write(own[room:])
		own = own[:room]
	}
	cur.len = copy(cur.databuf[start:], own)
	cur.data = start
}

// fill tops cur up from carry, then from the buffers after it.
func (pk *packer) fill(cur *Mbuf) {
	if pk.carry.Len() > 0 {
		n, _ := pk.carry.Read(cur.databuf[cur.data+cur.len:])
		cur.len += n
	}
	for pk.carry.Len() == 0 && cur.TrailingSpace() > 0 && cur.next != nil {
		next := cur.next
		n := copy(cur.databuf[cur.data+cur.len:], next.databuf[next.data:next.data+next.len])
		cur.len += n
		next.data += n
		next.len -= n
		if next.len == 0 {
			cur.next = next.next
			pk.free(next)
		}
	}
}

// advance returns the next buffer to write, nil when the chain is done.
func (pk *packer) advance(cur *Mbuf) *Mbuf {
	for {
		next := cur.next
		if next == nil {
			if pk.carry.Len() == 0 {
				return nil
			}
			// every buffer but the last is full, so the chain always has room
			panic(moerr.NewInternalErrorNoCtx("pack: %d bytes left without a buffer", pk.carry.Len()))
		}
		if next.len == 0 && pk.carry.Len() == 0 {
			cur.next = next.next
			pk.free(next)
			continue
		}
		return next
	}
}

func (pk *packer) free(m *Mbuf) {
	if err := m.Free(); err != nil {
		panic(err)
	}
	pk.released++
}
