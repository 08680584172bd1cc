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
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matrixorigin/mosbuf/pkg/common/moerr"
	"github.com/matrixorigin/mosbuf/pkg/logutil"
	"github.com/matrixorigin/mosbuf/pkg/logutil/logutil2"
	"github.com/matrixorigin/mosbuf/pkg/mbuf"
	"github.com/matrixorigin/mosbuf/pkg/msys"
	v2 "github.com/matrixorigin/mosbuf/pkg/util/metric/v2"
)

type stressOptions struct {
	workers    int
	iterations int
	// most bytes in one segment of a generated chain
	maxSegment int
	seed       int64
}

type stressResult struct {
	packed   atomic.Int64
	released atomic.Int64
	noBuffer atomic.Int64
}

func stressCommand(e *env) *cobra.Command {
	opts := stressOptions{}
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Pack random chains concurrently and verify their contents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if e.cfg.Metrics.Enable {
				srv := serveMetrics(e.cfg.Metrics.ListenAddress)
				defer srv.Close()
			}
			res, err := runStress(cmd.Context(), e.registry, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "packed %d chains, released %d buffers, %d requests without buffer\n",
				res.packed.Load(), res.released.Load(), res.noBuffer.Load())
			writePoolTable(cmd.OutOrStdout(), e.registry)
			return nil
		},
	}
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", runtime.NumCPU(), "number of concurrent workers")
	cmd.Flags().IntVarP(&opts.iterations, "iterations", "n", 1000, "chains packed by each worker")
	cmd.Flags().IntVar(&opts.maxSegment, "max-segment", 300, "most bytes in one chain segment")
	cmd.Flags().Int64Var(&opts.seed, "seed", 1, "random seed")
	return cmd
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(v2.GetPrometheusGatherer(), promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logutil.Error("metrics server stopped", zap.Error(err))
		}
	}()
	logutil.Info("serving metrics", zap.String("address", addr))
	return srv
}

func runStress(ctx context.Context, r *msys.Registry, opts stressOptions) (*stressResult, error) {
	if opts.workers <= 0 || opts.iterations < 0 || opts.maxSegment < 0 {
		return nil, moerr.NewInvalidInput(ctx, "workers %d, iterations %d, max segment %d",
			opts.workers, opts.iterations, opts.maxSegment)
	}

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	setErr := func(err error) {
		errOnce.Do(func() {
			firstErr = err
		})
	}
	pool, err := ants.NewPool(opts.workers, ants.WithPanicHandler(func(v interface{}) {
		setErr(moerr.ConvertPanicError(ctx, v))
	}))
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	res := &stressResult{}
	for w := 0; w < opts.workers; w++ {
		wctx := logutil2.WithFields(ctx, zap.Int("worker", w))
		rnd := rand.New(rand.NewSource(opts.seed + int64(w)))
		wg.Add(1)
		if err = pool.Submit(func() {
			defer wg.Done()
			if err := stressWorker(wctx, r, rnd, opts, res); err != nil {
				setErr(err)
			}
		}); err != nil {
			wg.Done()
			setErr(err)
		}
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	logutil2.Info(ctx, "stress done",
		zap.Int64("packed", res.packed.Load()),
		zap.Int64("released", res.released.Load()),
		zap.Int64("no-buffer", res.noBuffer.Load()),
	)
	return res, nil
}

func stressWorker(ctx context.Context, r *msys.Registry, rnd *rand.Rand, opts stressOptions, res *stressResult) error {
	for i := 0; i < opts.iterations; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		a, err := randomChain(r, rnd, opts.maxSegment, true)
		if err != nil {
			if moerr.IsMoErrCode(err, moerr.ErrNoBuffer) {
				res.noBuffer.Add(1)
				continue
			}
			return err
		}
		b, err := randomChain(r, rnd, opts.maxSegment, rnd.Intn(2) == 0)
		if err != nil {
			_ = a.FreeChain()
			if moerr.IsMoErrCode(err, moerr.ErrNoBuffer) {
				res.noBuffer.Add(1)
				continue
			}
			return err
		}

		want := append(a.Bytes(), b.Bytes()...)
		before := a.Count() + b.Count()
		packed := mbuf.PackChains(a, b)
		got := packed.Bytes()
		after := packed.Count()
		pktLen := packed.PktLen()
		if err = packed.FreeChain(); err != nil {
			return err
		}
		if !bytes.Equal(want, got) {
			logutil2.Error(ctx, "packed chain differs",
				zap.Int("want", len(want)),
				zap.Int("got", len(got)),
			)
			return moerr.NewInternalError(ctx, "packed chain differs at iteration %d", i)
		}
		if pktLen != len(want) {
			return moerr.NewInternalError(ctx, "packet length %d, chain holds %d", pktLen, len(want))
		}
		res.packed.Add(1)
		res.released.Add(int64(before - after))
	}
	logutil2.Debug(ctx, "stress worker done", zap.Int("iterations", opts.iterations))
	return nil
}

// randomChain builds a chain of up to four segments of random length and
// leading space, each starting in a fresh buffer.
func randomChain(r *msys.Registry, rnd *rand.Rand, maxSegment int, pkthdr bool) (*mbuf.Mbuf, error) {
	var head *mbuf.Mbuf
	segments := 1 + rnd.Intn(4)
	for i := 0; i < segments; i++ {
		n := rnd.Intn(maxSegment + 1)
		var (
			m   *mbuf.Mbuf
			err error
		)
		if i == 0 && pkthdr {
			m, err = r.GetPkthdr(n, rnd.Intn(8))
		} else {
			m, err = r.Get(n, rnd.Intn(8))
		}
		if err != nil {
			_ = head.FreeChain()
			return nil, err
		}
		data := make([]byte, n)
		rnd.Read(data)
		if err = m.Append(data); err != nil {
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
