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
	"github.com/matrixorigin/mosbuf/pkg/mbuf"
	"github.com/matrixorigin/mosbuf/pkg/mempool"
)

var defaultRegistry = NewRegistry(DefaultMaxPools)

// Default returns the process-wide registry.
func Default() *Registry {
	return defaultRegistry
}

func Register(p *mbuf.Pool) error {
	return defaultRegistry.Register(p)
}

func Reset() {
	defaultRegistry.Reset()
}

func Get(dsize, leadingSpace int) (*mbuf.Mbuf, error) {
	return defaultRegistry.Get(dsize, leadingSpace)
}

func GetPkthdr(dsize, userHdrLen int) (*mbuf.Mbuf, error) {
	return defaultRegistry.GetPkthdr(dsize, userHdrLen)
}

func Count() int {
	return defaultRegistry.Count()
}

func NumFree() int {
	return defaultRegistry.NumFree()
}

func Pools() []*mbuf.Pool {
	return defaultRegistry.Pools()
}

func Stats() []mempool.Info {
	return defaultRegistry.Stats()
}
