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
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/matrixorigin/mosbuf/pkg/msys"
)

func infoCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print the registered pools in selection order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			writePoolTable(cmd.OutOrStdout(), e.registry)
			return nil
		},
	}
}

func writePoolTable(w io.Writer, r *msys.Registry) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"pool", "block size", "databuf", "blocks", "free", "min free"})
	pools := r.Pools()
	for i, info := range r.Stats() {
		table.Append([]string{
			info.Name,
			strconv.Itoa(info.BlockSize),
			strconv.Itoa(pools[i].DatabufLen()),
			strconv.Itoa(info.NumBlocks),
			strconv.Itoa(info.NumFree),
			strconv.Itoa(info.MinFree),
		})
	}
	table.SetFooter([]string{"total", "", "", strconv.Itoa(r.Count()), strconv.Itoa(r.NumFree()), ""})
	table.Render()
}
