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
	"math"

	"github.com/matrixorigin/mosbuf/pkg/common/moerr"
)

// Append copies data onto the end of the chain, allocating buffers from
// m's pool as needed. When the pool runs dry the bytes that fit stay
// appended and ErrNoBuffer is returned.
func (m *Mbuf) Append(data []byte) error {
	if m == nil {
		return moerr.NewInvalidArgNoCtx("buffer", nil)
	}
	last := m.last()
	total := len(data)

	n := copy(last.databuf[last.data+last.len:], data)
	last.len += n
	data = data[n:]

	var err error
	for len(data) > 0 {
		var nm *Mbuf
		if nm, err = m.pool.Get(0); err != nil {
			break
		}
		n = copy(nm.databuf, data)
		nm.len = n
		data = data[n:]
		last.next = nm
		last = nm
	}

	if m.IsPkthdr() {
		m.pktLen += total - len(data)
	}
	return err
}

// AppendFrom appends n bytes of src starting at offset off.
func (m *Mbuf) AppendFrom(src *Mbuf, off, n int) error {
	if m == nil {
		return moerr.NewInvalidArgNoCtx("buffer", nil)
	}
	cur, curOff := src.Off(off)
	for n > 0 {
		if cur == nil {
			return moerr.NewOutOfRangeNoCtx("mbuf chain", "offset %d length %d", off, n)
		}
		chunk := min(n, cur.len-curOff)
		if err := m.Append(cur.databuf[cur.data+curOff : cur.data+curOff+chunk]); err != nil {
			return err
		}
		n -= chunk
		cur = cur.next
		curOff = 0
	}
	return nil
}

// Dup deep-copies the chain, buffer by buffer. Each copy comes from the
// pool of the buffer it copies, keeping leading space and the packet header.
func (m *Mbuf) Dup() (*Mbuf, error) {
	if m == nil {
		return nil, nil
	}
	var head, copied *Mbuf
	for om := m; om != nil; om = om.next {
		c, err := om.pool.Get(om.LeadingSpace())
		if err != nil {
			_ = head.FreeChain()
			return nil, err
		}
		if head == nil {
			if om.IsPkthdr() {
				c.copyPkthdr(om)
				c.data = om.data
			}
			head = c
		} else {
			copied.next = c
		}
		copied = c
		c.len = copy(c.databuf[c.data:], om.Data())
	}
	return head, nil
}

// Off locates an absolute offset in the chain. The offset may be one past
// the last byte of the chain but no further. It returns the buffer holding
// the offset and the offset relative to that buffer's data, or nil when
// off is out of range.
func (m *Mbuf) Off(off int) (*Mbuf, int) {
	if off < 0 {
		return nil, 0
	}
	for cur := m; cur != nil; cur = cur.next {
		if cur.len > off || (cur.len == off && cur.next == nil) {
			return cur, off
		}
		off -= cur.len
	}
	return nil, 0
}

// CopyData copies len(dst) bytes starting at chain offset off into dst.
func (m *Mbuf) CopyData(off int, dst []byte) error {
	if len(dst) == 0 {
		return nil
	}
	cur := m
	for off > 0 {
		if cur == nil {
			return moerr.NewOutOfRangeNoCtx("mbuf chain", "offset %d", off)
		}
		if off < cur.len {
			break
		}
		off -= cur.len
		cur = cur.next
	}
	for len(dst) > 0 {
		if cur == nil {
			return moerr.NewOutOfRangeNoCtx("mbuf chain", "%d bytes short", len(dst))
		}
		n := copy(dst, cur.databuf[cur.data+off:cur.data+cur.len])
		dst = dst[n:]
		off = 0
		cur = cur.next
	}
	return nil
}

// Adj trims n bytes from the head of the chain, or -n bytes from the tail
// when n is negative. Buffers emptied at the head stay in the chain;
// buffers past the new end of the chain are freed.
func (m *Mbuf) Adj(n int) {
	if m == nil || n == 0 {
		return
	}
	if n > 0 {
		left := n
		for cur := m; cur != nil && left > 0; cur = cur.next {
			if cur.len <= left {
				left -= cur.len
				cur.len = 0
			} else {
				cur.len -= left
				cur.data += left
				left = 0
			}
		}
		if m.IsPkthdr() {
			m.pktLen -= n - left
		}
		return
	}

	n = -n
	count := 0
	cur := m
	for {
		count += cur.len
		if cur.next == nil {
			break
		}
		cur = cur.next
	}
	if cur.len >= n {
		cur.len -= n
		if m.IsPkthdr() {
			m.pktLen -= n
		}
		return
	}

	count = max(count-n, 0)
	if m.IsPkthdr() {
		m.pktLen = count
	}
	for cur = m; cur != nil; cur = cur.next {
		if cur.len >= count {
			cur.len = count
			if cur.next != nil {
				_ = cur.next.FreeChain()
				cur.next = nil
			}
			break
		}
		count -= cur.len
	}
}

// Cmpf compares data with the chain bytes starting at off. A chain too
// short to cover data compares as math.MaxInt.
func (m *Mbuf) Cmpf(off int, data []byte) int {
	cur, curOff := m.Off(off)
	for pos := 0; pos < len(data); {
		if cur == nil {
			return math.MaxInt
		}
		chunk := min(cur.len-curOff, len(data)-pos)
		if chunk > 0 {
			if rc := bytes.Compare(cur.databuf[cur.data+curOff:cur.data+curOff+chunk], data[pos:pos+chunk]); rc != 0 {
				return rc
			}
		}
		pos += chunk
		cur = cur.next
		curOff = 0
	}
	return 0
}

// Cmpm compares n bytes of two chains at their respective offsets.
func (m *Mbuf) Cmpm(off1 int, other *Mbuf, off2 int, n int) int {
	a, aOff := m.Off(off1)
	b, bOff := other.Off(off2)
	for n > 0 {
		if a == nil || b == nil {
			return math.MaxInt
		}
		for a != nil && aOff == a.len {
			a, aOff = a.next, 0
		}
		for b != nil && bOff == b.len {
			b, bOff = b.next, 0
		}
		if a == nil || b == nil {
			return math.MaxInt
		}
		chunk := min(a.len-aOff, b.len-bOff, n)
		if rc := bytes.Compare(
			a.databuf[a.data+aOff:a.data+aOff+chunk],
			b.databuf[b.data+bOff:b.data+bOff+chunk],
		); rc != 0 {
			return rc
		}
		aOff += chunk
		bOff += chunk
		n -= chunk
	}
	return 0
}

// Prepend grows the chain by n bytes at the front, taking leading space
// first and new buffers from the pool after that. The packet header moves
// to the new head. On allocation failure the whole chain is freed.
func (m *Mbuf) Prepend(n int) (*Mbuf, error) {
	if m == nil {
		return nil, moerr.NewInvalidArgNoCtx("buffer", nil)
	}
	om := m
	for {
		leading := min(n, om.LeadingSpace())
		om.data -= leading
		om.len += leading
		if om.IsPkthdr() {
			om.pktLen += leading
		}
		n -= leading
		if n == 0 {
			return om, nil
		}

		var p *Mbuf
		var err error
		if om.IsPkthdr() {
			p, err = om.pool.GetPkthdr(om.pkthdrLen - PkthdrSize)
		} else {
			p, err = om.pool.Get(0)
		}
		if err != nil {
			_ = om.FreeChain()
			return nil, err
		}
		if om.IsPkthdr() {
			p.copyPkthdr(om)
			om.pkthdrLen = 0
		}
		p.data += p.TrailingSpace()
		p.next = om
		om = p
	}
}

// PrependPullup prepends n bytes and makes them contiguous in the head.
func (m *Mbuf) PrependPullup(n int) (*Mbuf, error) {
	om, err := m.Prepend(n)
	if err != nil {
		return nil, err
	}
	return om.Pullup(n)
}

// CopyInto writes src over the chain starting at off, appending whatever
// runs past the end of the chain. It returns ErrBufferFull when the pool
// cannot supply room for the remainder.
func (m *Mbuf) CopyInto(off int, src []byte) error {
	cur, curOff := m.Off(off)
	if cur == nil {
		return moerr.NewOutOfRangeNoCtx("mbuf chain", "offset %d", off)
	}
	total := len(src)
	for {
		n := copy(cur.databuf[cur.data+curOff:cur.data+cur.len], src)
		src = src[n:]
		if len(src) == 0 {
			return nil
		}
		if cur.next == nil {
			break
		}
		cur = cur.next
		curOff = 0
	}

	before := cur.len
	err := cur.Append(src)
	appended := cur.ChainLen() - before
	if cur != m && m.IsPkthdr() {
		m.pktLen += appended
	}
	if err != nil {
		return moerr.NewBufferFullNoCtx("%d of %d bytes not stored", len(src)-appended, total)
	}
	if m.IsPkthdr() {
		m.pktLen = max(m.pktLen, off+total)
	}
	return nil
}

// Concat links second after the last buffer of m. When m carries a packet
// header its total grows by second's length; a header on second is
// dropped since only a head may carry one.
func (m *Mbuf) Concat(second *Mbuf) {
	if m == nil || second == nil {
		return
	}
	m.last().next = second
	if m.IsPkthdr() {
		if second.IsPkthdr() {
			m.pktLen += second.pktLen
		} else {
			m.pktLen += second.ChainLen()
		}
	}
	second.pkthdrLen = 0
	second.pktLen = 0
}

// Extend grows the chain by n bytes and returns the new region, which is
// contiguous. A buffer is added when the last one lacks room, so n may not
// exceed the data buffer length.
func (m *Mbuf) Extend(n int) ([]byte, error) {
	if m == nil || n < 0 || n > m.pool.databufLen {
		return nil, moerr.NewInvalidArgNoCtx("extend length", n)
	}
	last := m.last()
	if last.TrailingSpace() < n {
		nm, err := m.pool.Get(0)
		if err != nil {
			return nil, err
		}
		last.next = nm
		last = nm
	}
	region := last.databuf[last.data+last.len : last.data+last.len+n]
	last.len += n
	if m.IsPkthdr() {
		m.pktLen += n
	}
	return region, nil
}

// Pullup makes the first n bytes of the chain contiguous in its head
// buffer. On failure the chain is freed.
func (m *Mbuf) Pullup(n int) (*Mbuf, error) {
	if m == nil {
		return nil, moerr.NewInvalidArgNoCtx("buffer", nil)
	}
	if m.len >= n {
		return m, nil
	}

	om := m
	var head *Mbuf
	if om.len+om.TrailingSpace() >= n && om.next != nil {
		head = om
		om = om.next
		n -= head.len
	} else {
		if n > om.pool.databufLen-om.pkthdrLen {
			_ = om.FreeChain()
			return nil, moerr.NewInvalidArgNoCtx("pullup length", n)
		}
		nm, err := om.pool.Get(0)
		if err != nil {
			_ = om.FreeChain()
			return nil, err
		}
		if om.IsPkthdr() {
			nm.copyPkthdr(om)
			om.pkthdrLen = 0
		}
		head = nm
	}

	space := head.TrailingSpace()
	for n > 0 && om != nil {
		count := min(n, space, om.len)
		copy(head.databuf[head.data+head.len:], om.databuf[om.data:om.data+count])
		n -= count
		head.len += count
		om.len -= count
		space -= count
		if om.len > 0 {
			om.data += count
		} else {
			next := om.next
			_ = om.Free()
			om = next
		}
	}
	if n > 0 {
		_ = head.Free()
		_ = om.FreeChain()
		return nil, moerr.NewOutOfRangeNoCtx("mbuf chain", "%d bytes short of pullup", n)
	}
	head.next = om
	return head, nil
}

// TrimFront frees empty buffers at the front of the chain. The packet
// header moves to the first non-empty buffer when that buffer has room
// for it.
func (m *Mbuf) TrimFront() *Mbuf {
	if m == nil || m.len != 0 {
		return m
	}
	cur := m.next
	for cur != nil && cur.len == 0 {
		next := cur.next
		m.next = next
		_ = cur.Free()
		cur = next
	}
	if cur == nil {
		return m
	}
	if cur.data >= m.pkthdrLen {
		copy(cur.databuf[:m.pkthdrLen], m.databuf[:m.pkthdrLen])
		cur.pkthdrLen = m.pkthdrLen
		cur.pktLen = m.pktLen
		_ = m.Free()
		return cur
	}
	return m
}
