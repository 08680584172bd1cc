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

package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/matrixorigin/mosbuf/pkg/common/moerr"
	"github.com/matrixorigin/mosbuf/pkg/mbuf"
	"github.com/matrixorigin/mosbuf/pkg/msys"
)

type packOptions struct {
	first        []int
	second       []int
	firstPkthdr  bool
	secondPkthdr bool
	leading      int
}

func packCommand(e *env) *cobra.Command {
	opts := packOptions{}
	cmd := &cobra.Command{
		Use:   "pack",
		Short: "Pack two chains and print their layout before and after",
		Example: `  mbuf-tool pack --first 10,0,30 --second 50 --second-pkthdr
  mbuf-tool --cfg mbuf.toml pack --first 100,100 --second 1,1,1 --leading 4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPack(cmd.OutOrStdout(), e.registry, opts)
		},
	}
	cmd.Flags().IntSliceVar(&opts.first, "first", []int{16, 0, 16}, "segment lengths of the first chain")
	cmd.Flags().IntSliceVar(&opts.second, "second", []int{32}, "segment lengths of the second chain")
	cmd.Flags().BoolVar(&opts.firstPkthdr, "first-pkthdr", true, "first chain carries a packet header")
	cmd.Flags().BoolVar(&opts.secondPkthdr, "second-pkthdr", false, "second chain carries a packet header")
	cmd.Flags().IntVar(&opts.leading, "leading", 0, "leading space of every segment")
	return cmd
}

func runPack(w io.Writer, r *msys.Registry, opts packOptions) error {
	a, err := buildChain(r, opts.first, opts.firstPkthdr, opts.leading)
	if err != nil {
		return err
	}
	b, err := buildChain(r, opts.second, opts.secondPkthdr, opts.leading)
	if err != nil {
		_ = a.FreeChain()
		return err
	}
	fmt.Fprintln(w, "first:")
	writeChainTable(w, a)
	fmt.Fprintln(w, "second:")
	writeChainTable(w, b)

	packed := mbuf.PackChains(a, b)
	fmt.Fprintln(w, "packed:")
	writeChainTable(w, packed)
	return packed.FreeChain()
}

// buildChain puts each segment in its own buffer, filled with its
// segment number.
func buildChain(r *msys.Registry, segments []int, pkthdr bool, leading int) (*mbuf.Mbuf, error) {
	if len(segments) == 0 {
		return nil, nil
	}
	var head *mbuf.Mbuf
	for i, n := range segments {
		if n < 0 {
			_ = head.FreeChain()
			return nil, moerr.NewInvalidInputNoCtx("negative segment length %d", n)
		}
		var (
			m   *mbuf.Mbuf
			err error
		)
		if i == 0 && pkthdr {
			m, err = r.GetPkthdr(leading+n, 0)
			if err == nil {
				err = m.SetLeadingSpace(leading)
			}
		} else {
			m, err = r.Get(leading+n, leading)
		}
		if err == nil {
			data := make([]byte, n)
			for j := range data {
				data[j] = byte(i)
			}
			err = m.Append(data)
		}
		if err != nil {
			_ = m.FreeChain()
			_ = head.FreeChain()
			return nil, err
		}
		if head == nil {
			head = m
		} else {
			head.Concat(m)
		}
	}
	return head, nil
}

func writeChainTable(w io.Writer, m *mbuf.Mbuf) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "pool", "leading", "len", "trailing", "pkthdr"})
	for i := 0; m != nil; i, m = i+1, m.Next() {
		hdr := ""
		if m.IsPkthdr() {
			hdr = "pkt len " + strconv.Itoa(m.PktLen())
		}
		table.Append([]string{
			strconv.Itoa(i),
			m.Pool().Name(),
			strconv.Itoa(m.LeadingSpace()),
			strconv.Itoa(m.Len()),
			strconv.Itoa(m.TrailingSpace()),
			hdr,
		})
	}
	table.Render()
}
