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

package v2

import "github.com/prometheus/client_golang/prometheus"

var (
	mbufFreeBlocksGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "mo",
			Subsystem: "mbuf",
			Name:      "free_blocks",
			Help:      "Number of free blocks of a buffer pool.",
		}, []string{"pool"})

	mbufAllocCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mo",
			Subsystem: "mbuf",
			Name:      "alloc_total",
			Help:      "Total number of buffers handed out by a buffer pool.",
		}, []string{"pool"})

	mbufAllocFailCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mo",
			Subsystem: "mbuf",
			Name:      "alloc_fail_total",
			Help:      "Total number of buffer requests a pool could not serve.",
		}, []string{"pool"})
)

var (
	MbufPackCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mo",
			Subsystem: "mbuf",
			Name:      "pack_total",
			Help:      "Total number of packed chains.",
		})

	MbufPackReleasedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mo",
			Subsystem: "mbuf",
			Name:      "pack_released_total",
			Help:      "Total number of buffers returned to their pool by packing.",
		})
)

// PoolMetrics groups the per-pool collectors.
type PoolMetrics struct {
	FreeBlocks prometheus.Gauge
	Alloc      prometheus.Counter
	AllocFail  prometheus.Counter
}

func GetPoolMetrics(pool string) PoolMetrics {
	return PoolMetrics{
		FreeBlocks: mbufFreeBlocksGauge.WithLabelValues(pool),
		Alloc:      mbufAllocCounter.WithLabelValues(pool),
		AllocFail:  mbufAllocFailCounter.WithLabelValues(pool),
	}
}

func DeletePoolMetrics(pool string) {
	mbufFreeBlocksGauge.DeleteLabelValues(pool)
	mbufAllocCounter.DeleteLabelValues(pool)
	mbufAllocFailCounter.DeleteLabelValues(pool)
}
