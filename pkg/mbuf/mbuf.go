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
	"github.com/matrixorigin/mosbuf/pkg/common/moerr"
)

// Pool returns the pool m was allocated from.
func (m *Mbuf) Pool() *Pool {
	if m == nil {
		return nil
	}
	return m.pool
}

// Len is the number of data bytes held by this buffer alone.
func (m *Mbuf) Len() int {
	if m == nil {
		return 0
	}
	return m.len
}

// Data returns the data bytes of this buffer. The slice aliases the
// buffer and is only valid until the next operation on the chain.
func (m *Mbuf) Data() []byte {
	if m == nil {
		return nil
	}
	return m.databuf[m.data : m.data+m.len]
}

func (m *Mbuf) Next() *Mbuf {
	if m == nil {
		return nil
	}
	return m.next
}

func (m *Mbuf) IsPkthdr() bool {
	return m != nil && m.pkthdrLen > 0
}

// PkthdrLen is the packet header length including the user header, zero
// when m carries none.
func (m *Mbuf) PkthdrLen() int {
	if m == nil {
		return 0
	}
	return m.pkthdrLen
}

// PktLen is the recorded total length of the chain headed by m.
func (m *Mbuf) PktLen() int {
	if !m.IsPkthdr() {
		return 0
	}
	return m.pktLen
}

// UserHeader returns the user header area of a packet header.
func (m *Mbuf) UserHeader() []byte {
	if !m.IsPkthdr() {
		return nil
	}
	return m.databuf[PkthdrSize:m.pkthdrLen]
}

// start is the lowest offset data may occupy.
func (m *Mbuf) start() int {
	return m.pkthdrLen
}

func (m *Mbuf) LeadingSpace() int {
	if m == nil {
		return 0
	}
	return m.data - m.start()
}

func (m *Mbuf) TrailingSpace() int {
	if m == nil {
		return 0
	}
	return len(m.databuf) - (m.data + m.len)
}

// SetLeadingSpace moves the data offset of an empty buffer.
func (m *Mbuf) SetLeadingSpace(n int) error {
	if m == nil || m.len != 0 {
		return moerr.NewInvalidStateNoCtx("cannot change leading space of a non-empty buffer")
	}
	if n < 0 || m.start()+n > len(m.databuf) {
		return moerr.NewInvalidArgNoCtx("leading space", n)
	}
	m.data = m.start() + n
	return nil
}

// Free returns this single buffer to its pool. Freeing nil is a no-op.
func (m *Mbuf) Free() error {
	if m == nil || m.pool == nil {
		return nil
	}
	return m.pool.release(m)
}

// FreeChain frees m and every buffer after it, stopping at the first
// failure.
func (m *Mbuf) FreeChain() error {
	for m != nil {
		next := m.next
		if err := m.Free(); err != nil {
			return err
		}
		m = next
	}
	return nil
}

func (m *Mbuf) last() *Mbuf {
	for m.next != nil {
		m = m.next
	}
	return m
}

// ChainLen sums the data lengths of every buffer in the chain.
func (m *Mbuf) ChainLen() int {
	n := 0
	for ; m != nil; m = m.next {
		n += m.len
	}
	return n
}

// Count is the number of buffers in the chain.
func (m *Mbuf) Count() int {
	n := 0
	for ; m != nil; m = m.next {
		n++
	}
	return n
}

// Bytes copies the chain's data into a new slice.
func (m *Mbuf) Bytes() []byte {
	out := make([]byte, 0, m.ChainLen())
	for ; m != nil; m = m.next {
		out = append(out, m.Data()...)
	}
	return out
}

func (m *Mbuf) copyPkthdr(from *Mbuf) {
	if m.len != 0 {
		panic(moerr.NewInternalErrorNoCtx("copy packet header into non-empty buffer"))
	}
	copy(m.databuf[:from.pkthdrLen], from.databuf[:from.pkthdrLen])
	m.pkthdrLen = from.pkthdrLen
	m.pktLen = from.pktLen
	m.data = from.pkthdrLen
}
