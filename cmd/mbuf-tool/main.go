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
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matrixorigin/mosbuf/pkg/config"
	"github.com/matrixorigin/mosbuf/pkg/logutil"
	"github.com/matrixorigin/mosbuf/pkg/msys"
)

// pools used when no --cfg is given
const defaultConfig = `
[[msys.pools]]
name = "msys-1"
block-size = 128
block-count = 256

[[msys.pools]]
name = "msys-2"
block-size = 528
block-count = 64
`

type env struct {
	cfgFile  string
	cfg      *config.Config
	registry *msys.Registry
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:          "mbuf-tool",
		Short:        "Inspect and exercise mbuf pools",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.load()
		},
	}
	root.PersistentFlags().StringVar(&e.cfgFile, "cfg", "", "toml configuration file")
	root.AddCommand(
		infoCommand(e),
		stressCommand(e),
		packCommand(e),
	)
	return root
}

func (e *env) load() error {
	var err error
	if e.cfgFile == "" {
		e.cfg, err = config.Decode(defaultConfig)
	} else {
		e.cfg, err = config.LoadFile(e.cfgFile)
	}
	if err != nil {
		return err
	}
	setupLogger(&e.cfg.Log)
	e.registry, err = e.cfg.BuildRegistry()
	return err
}

func setupLogger(cfg *logutil.LogConfig) {
	logutil.SetupMOLogger(cfg)
}
