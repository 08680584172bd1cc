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
	"golang.org/x/sys/unix"

	"github.com/matrixorigin/mosbuf/pkg/common/moerr"
)

func mmapArena(size int) ([]byte, func() error, error) {
	data, err := unix.Mmap(
		-1, 0,
		size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS,
	)
	if err == unix.ENOMEM {
		return nil, nil, moerr.NewOOMNoCtx()
	}
	if err != nil {
		return nil, nil, moerr.NewInternalErrorNoCtx("mmap arena of %d bytes: %v", size, err)
	}
	return data, func() error {
		return unix.Munmap(data)
	}, nil
}
