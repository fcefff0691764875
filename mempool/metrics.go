package mempool

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	sourceLabel = "source"
)

var (
	poolUsedBlocks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voxterrain_pool_used_blocks",
		Help: "The number of voxel buffers checked out of memory pools.",
	})

	poolAllocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxterrain_pool_allocations_total",
		Help: "The number of voxel buffer allocations by source.",
	}, []string{sourceLabel})

	poolRecycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voxterrain_pool_recycles_total",
		Help: "The number of voxel buffers returned to memory pools.",
	})
)

func instrumentAllocate(fresh bool) {
	source := "recycled"
	if fresh {
		source = "fresh"
	}
	poolAllocations.With(prometheus.Labels{sourceLabel: source}).Inc()
	poolUsedBlocks.Inc()
}

func instrumentRecycle() {
	poolRecycles.Inc()
	poolUsedBlocks.Dec()
}
