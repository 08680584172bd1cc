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
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

type chainDesc struct {
	mlen    int
	leading int
}

func packTestData() []byte {
	r := rand.New(rand.NewSource(1001))
	data := make([]byte, 2048)
	r.Read(data)
	return data
}

func createChain(t *testing.T, p *Pool, src []byte, pkthdr bool, userHdrLen int, descs ...chainDesc) *Mbuf {
	var m *Mbuf
	var err error
	if pkthdr {
		m, err = p.GetPkthdr(userHdrLen)
		require.NoError(t, err)
		require.NoError(t, m.SetLeadingSpace(descs[0].leading))
	} else {
		m, err = p.Get(descs[0].leading)
		require.NoError(t, err)
	}
	require.NoError(t, m.CopyInto(0, src[:descs[0].mlen]))
	src = src[descs[0].mlen:]

	for _, d := range descs[1:] {
		tmp, err := p.Get(d.leading)
		require.NoError(t, err)
		require.NoError(t, tmp.CopyInto(0, src[:d.mlen]))
		src = src[d.mlen:]
		m.Concat(tmp)
	}
	require.Equal(t, len(descs), m.Count())
	return m
}

// calcTotalMbufs is the number of buffers a packed chain of n bytes needs
// when the head reserves pkthdrLen bytes.
func calcTotalMbufs(n, pkthdrLen, dbuflen int) int {
	total := 1
	if n > dbuflen-pkthdrLen {
		rem := n - (dbuflen - pkthdrLen)
		total += (rem + dbuflen - 1) / dbuflen
	}
	return total
}

func ensureFull(t *testing.T, m *Mbuf) {
	for cur := m; cur != nil; cur = cur.Next() {
		if cur.Len() == 0 {
			// only an empty chain keeps an empty buffer
			require.Same(t, m, cur, "empty buffer left in chain")
			require.Nil(t, cur.Next(), "empty buffer left in chain")
		}
		require.Equal(t, cur.PkthdrLen(), cur.data, "data not at the front")
		require.Zero(t, cur.LeadingSpace())
		if cur.Next() != nil {
			require.Zero(t, cur.TrailingSpace(), "buffer not full")
		}
	}
}

func assertSane(t *testing.T, m *Mbuf, src []byte, headLen, pktLen, pkthdrLen int) {
	require.Equal(t, headLen, m.Len())
	require.Equal(t, pkthdrLen, m.PkthdrLen())
	if pkthdrLen > 0 {
		require.Equal(t, pktLen, m.PktLen())
	}
	require.Equal(t, pktLen, m.ChainLen())
	require.Equal(t, src[:pktLen], m.Bytes())
	for cur := m.Next(); cur != nil; cur = cur.Next() {
		require.False(t, cur.IsPkthdr())
	}
}

func TestPackChains(t *testing.T) {
	p := newTestPool(t, "pack", testDatabufLen, testBufCount)
	src := packTestData()
	dl := p.DatabufLen()

	// single buffer with data at the front: nothing moves
	m1, err := p.Get(0)
	require.NoError(t, err)
	require.NoError(t, m1.CopyInto(0, src[:50]))
	require.Same(t, m1, PackChains(m1, nil))
	ensureFull(t, m1)
	assertSane(t, m1, src, 50, 50, 0)
	require.NoError(t, m1.Free())
	require.Equal(t, testBufCount, p.NumFree())

	// single packet header buffer with leading space: data moves up
	m1, err = p.GetPkthdr(16)
	require.NoError(t, err)
	require.NoError(t, m1.SetLeadingSpace(13))
	require.NoError(t, m1.CopyInto(0, src[:77]))
	require.Same(t, m1, PackChains(m1, nil))
	ensureFull(t, m1)
	assertSane(t, m1, src, 77, 77, PkthdrSize+16)
	require.NoError(t, m1.FreeChain())
	require.Equal(t, testBufCount, p.NumFree())

	// two chains, both with packet headers
	start := p.NumFree()
	m1 = createChain(t, p, src, true, 0,
		chainDesc{99, 0}, chainDesc{43, 10}, chainDesc{67, 0})
	first := chainDesc{dl - PkthdrSize, 0}
	m2 := createChain(t, p, src[99+43+67:], true, 0,
		first, chainDesc{dl, 0})
	m1 = PackChains(m1, m2)
	require.NotNil(t, m1)
	ensureFull(t, m1)
	total := 99 + 43 + 67 + first.mlen + dl
	assertSane(t, m1, src, dl-PkthdrSize, total, PkthdrSize)
	require.Equal(t, start-calcTotalMbufs(total, PkthdrSize, dl), p.NumFree())
	require.NoError(t, m1.FreeChain())
	require.Equal(t, testBufCount, p.NumFree())

	// zero length buffers in the middle and at the end
	start = p.NumFree()
	m1 = createChain(t, p, src, true, 0,
		chainDesc{24, 0}, chainDesc{0, 50}, chainDesc{33, 0})
	m2 = createChain(t, p, src[24+33:], false, 0,
		chainDesc{100, 0}, chainDesc{0, 0})
	m1 = PackChains(m1, m2)
	require.NotNil(t, m1)
	ensureFull(t, m1)
	total = 24 + 33 + 100
	assertSane(t, m1, src, 157, total, PkthdrSize)
	require.Equal(t, start-calcTotalMbufs(total, PkthdrSize, dl), p.NumFree())
	require.NoError(t, m1.FreeChain())
	require.Equal(t, testBufCount, p.NumFree())

	// every buffer already full
	start = p.NumFree()
	m1 = createChain(t, p, src, true, 0,
		chainDesc{dl - PkthdrSize, 0}, chainDesc{dl, 0}, chainDesc{dl, 0}, chainDesc{dl, 0})
	total = 4*dl - PkthdrSize
	m2 = createChain(t, p, src[total:], false, 0,
		chainDesc{dl, 0}, chainDesc{dl, 0}, chainDesc{dl, 0})
	m1 = PackChains(m1, m2)
	require.NotNil(t, m1)
	ensureFull(t, m1)
	total += 3 * dl
	assertSane(t, m1, src, dl-PkthdrSize, total, PkthdrSize)
	require.Equal(t, start-calcTotalMbufs(total, PkthdrSize, dl), p.NumFree())
	require.Equal(t, 7, m1.Count())
	require.NoError(t, m1.FreeChain())
	require.Equal(t, testBufCount, p.NumFree())

	// consecutive zero length buffers
	start = p.NumFree()
	m1 = createChain(t, p, src, true, 0,
		chainDesc{dl - PkthdrSize, 0}, chainDesc{0, 8}, chainDesc{0, 11}, chainDesc{44, 20})
	total = dl - PkthdrSize + 44
	m2 = createChain(t, p, src[total:], true, 0,
		chainDesc{dl - PkthdrSize, 0})
	m1 = PackChains(m1, m2)
	require.NotNil(t, m1)
	ensureFull(t, m1)
	total += dl - PkthdrSize
	assertSane(t, m1, src, dl-PkthdrSize, total, PkthdrSize)
	require.Equal(t, start-calcTotalMbufs(total, PkthdrSize, dl), p.NumFree())
	require.NoError(t, m1.FreeChain())
	require.Equal(t, testBufCount, p.NumFree())
}

func TestPackChainsNil(t *testing.T) {
	p := newTestPool(t, "packnil", testDatabufLen, testBufCount)
	src := packTestData()

	require.Nil(t, PackChains(nil, nil))

	b := createChain(t, p, src, false, 0, chainDesc{10, 5}, chainDesc{20, 3})
	out := PackChains(nil, b)
	require.Same(t, b, out)
	ensureFull(t, out)
	assertSane(t, out, src, 30, 30, 0)
	require.Equal(t, testBufCount-1, p.NumFree())
	require.NoError(t, out.FreeChain())
}

func TestPackChainsPromotesHeader(t *testing.T) {
	p := newTestPool(t, "packhdr", testDatabufLen, testBufCount)
	src := packTestData()
	dl := p.DatabufLen()

	a := createChain(t, p, src, false, 0, chainDesc{dl, 0})
	b := createChain(t, p, src[dl:], true, 4, chainDesc{10, 0})
	copy(b.UserHeader(), "ABCD")
	start := p.NumFree()

	out := PackChains(a, b)
	require.Same(t, a, out)
	ensureFull(t, out)
	total := dl + 10
	assertSane(t, out, src, dl-PkthdrSize-4, total, PkthdrSize+4)
	require.Equal(t, []byte("ABCD"), out.UserHeader())
	require.Equal(t, 2, out.Count())
	require.Equal(t, start, p.NumFree())
	require.NoError(t, out.FreeChain())
	require.Equal(t, testBufCount, p.NumFree())
}

func TestPackChainsEmptyHeads(t *testing.T) {
	p := newTestPool(t, "packempty", testDatabufLen, testBufCount)
	src := packTestData()

	a := createChain(t, p, src, false, 0, chainDesc{0, 20}, chainDesc{50, 0})
	b := createChain(t, p, src[50:], true, 4, chainDesc{0, 10}, chainDesc{30, 0})
	copy(b.UserHeader(), "WXYZ")

	out := PackChains(a, b)
	require.Same(t, a, out)
	ensureFull(t, out)
	assertSane(t, out, src, 80, 80, PkthdrSize+4)
	require.Equal(t, []byte("WXYZ"), out.UserHeader())
	require.Equal(t, testBufCount-1, p.NumFree())
	require.NoError(t, out.FreeChain())

	// nothing but empty buffers
	a = createChain(t, p, src, false, 0, chainDesc{0, 5}, chainDesc{0, 0})
	b = createChain(t, p, src, true, 0, chainDesc{0, 3})
	out = PackChains(a, b)
	require.Same(t, a, out)
	ensureFull(t, out)
	assertSane(t, out, src, 0, 0, PkthdrSize)
	require.Equal(t, 1, out.Count())
	require.Equal(t, testBufCount-1, p.NumFree())
	require.NoError(t, out.FreeChain())
	require.Equal(t, testBufCount, p.NumFree())
}

func TestPackChainsHeaderOutgrowsHead(t *testing.T) {
	src := packTestData()

	// a's head is smaller than b's packet header
	small := newTestPool(t, "packtiny", 4, 4)
	large := newTestPool(t, "packwide", 64, 4)
	a := createChain(t, small, src, false, 0, chainDesc{4, 0})
	b := createChain(t, large, src[4:], true, 10, chainDesc{36, 0})
	copy(b.UserHeader(), "0123456789")

	out := PackChains(a, b)
	require.Same(t, b, out)
	ensureFull(t, out)
	assertSane(t, out, src, 40, 40, PkthdrSize+10)
	require.Equal(t, []byte("0123456789"), out.UserHeader())
	require.Equal(t, 4, small.NumFree())
	require.Equal(t, 3, large.NumFree())
	require.NoError(t, out.FreeChain())
	require.Equal(t, 4, large.NumFree())

	// b's header fills a data buffer as large as a's
	p := newTestPool(t, "packfullhdr", 32, 8)
	a = createChain(t, p, src, false, 0, chainDesc{30, 2}, chainDesc{32, 0})
	b = createChain(t, p, src[62:], true, 32-PkthdrSize, chainDesc{0, 0}, chainDesc{20, 0})
	start := p.NumFree()

	out = PackChains(a, b)
	require.Same(t, b, out)
	require.Equal(t, 32, out.PkthdrLen())
	assertSane(t, out, src, 0, 82, 32)
	require.Equal(t, 4, out.Count())
	for cur := out; cur.Next() != nil; cur = cur.Next() {
		require.Zero(t, cur.TrailingSpace())
	}
	require.Equal(t, start, p.NumFree())
	require.NoError(t, out.FreeChain())
	require.Equal(t, 8, p.NumFree())
}

func TestPackChainsIdempotent(t *testing.T) {
	p := newTestPool(t, "packtwice", testDatabufLen, testBufCount)
	src := packTestData()

	m := createChain(t, p, src, true, 2,
		chainDesc{30, 7}, chainDesc{200, 40}, chainDesc{100, 0})
	m = PackChains(m, nil)
	ensureFull(t, m)
	count, free, data := m.Count(), p.NumFree(), m.Bytes()

	require.Same(t, m, PackChains(m, nil))
	require.Equal(t, count, m.Count())
	require.Equal(t, free, p.NumFree())
	require.Equal(t, data, m.Bytes())
	require.NoError(t, m.FreeChain())
}

func TestPackChainsMalformed(t *testing.T) {
	p := newTestPool(t, "packbad", testDatabufLen, testBufCount)

	m1, err := p.GetPkthdr(0)
	require.NoError(t, err)
	require.NoError(t, m1.Append([]byte("head")))
	m2, err := p.GetPkthdr(0)
	require.NoError(t, err)
	require.NoError(t, m2.Append([]byte("second head")))
	m1.next = m2

	require.Panics(t, func() {
		PackChains(m1, nil)
	})
	require.Panics(t, func() {
		m3, _ := p.Get(0)
		PackChains(m3, m1)
	})
}

func TestPackChainsRandom(t *testing.T) {
	const count = 64
	p := newTestPool(t, "packrand", testDatabufLen, count)
	src := make([]byte, 4*count*testDatabufLen)
	r := rand.New(rand.NewSource(7))
	r.Read(src)
	dl := p.DatabufLen()

	randChain := func(data []byte, pkthdr bool) (*Mbuf, int) {
		n := 1 + r.Intn(6)
		userHdr := 0
		if pkthdr {
			userHdr = r.Intn(20)
		}
		descs := make([]chainDesc, n)
		used := 0
		for i := range descs {
			capacity := dl
			if i == 0 && pkthdr {
				capacity -= PkthdrSize + userHdr
			}
			leading := r.Intn(capacity / 2)
			mlen := r.Intn(capacity - leading + 1)
			if r.Intn(8) == 0 {
				mlen = 0
			}
			descs[i] = chainDesc{mlen, leading}
			used += mlen
		}
		return createChain(t, p, data, pkthdr, userHdr, descs...), used
	}

	for iter := 0; iter < 200; iter++ {
		aHdr, bHdr := r.Intn(2) == 0, r.Intn(2) == 0
		a, na := randChain(src, aHdr)
		var b *Mbuf
		nb := 0
		if r.Intn(4) != 0 {
			b, nb = randChain(src[na:], bHdr)
		}

		hdrLen := a.PkthdrLen()
		if hdrLen == 0 && b != nil {
			hdrLen = b.PkthdrLen()
		}
		inUse := count - p.NumFree()
		want := calcTotalMbufs(na+nb, hdrLen, dl)

		out := PackChains(a, b)
		require.Same(t, a, out)
		ensureFull(t, out)
		require.Equal(t, hdrLen, out.PkthdrLen())
		require.Equal(t, src[:na+nb], out.Bytes())
		if hdrLen > 0 {
			require.Equal(t, na+nb, out.PktLen())
		}
		require.Equal(t, want, out.Count())
		require.LessOrEqual(t, want, inUse, "packing must not allocate")
		require.Equal(t, want, count-p.NumFree())

		require.NoError(t, out.FreeChain())
		require.Equal(t, count, p.NumFree())
	}
}

func TestPackChainsMixedPools(t *testing.T) {
	small := newTestPool(t, "packsmall", 32, 8)
	large := newTestPool(t, "packlarge", 128, 8)
	src := packTestData()

	a := createChain(t, small, src, false, 0, chainDesc{32, 0})
	b := createChain(t, large, src[32:], true, 0, chainDesc{100, 0}, chainDesc{50, 20})

	out := PackChains(a, b)
	require.Equal(t, PkthdrSize, out.PkthdrLen())
	require.Equal(t, 182, out.PktLen())
	require.Equal(t, src[:182], out.Bytes())
	for cur := out; cur != nil; cur = cur.Next() {
		if cur.Next() != nil {
			require.Zero(t, cur.TrailingSpace())
		}
	}
	require.NoError(t, out.FreeChain())
	require.Equal(t, 8, small.NumFree())
	require.Equal(t, 8, large.NumFree())
}
