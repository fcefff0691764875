package meshing

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	mesherLabel = "mesher"
	resultLabel = "result"
)

var (
	buildSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "voxterrain_mesh_build_seconds",
		Help:    "The time spent building one mesh.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
	}, []string{mesherLabel})

	buildTriangles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxterrain_mesh_triangles_total",
		Help: "The number of triangles produced by mesh builds.",
	}, []string{mesherLabel})

	cacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxterrain_mesh_cache_requests_total",
		Help: "The number of mesh cache lookups by result.",
	}, []string{resultLabel})
)

// MesherName returns a short label for a mesher.
func MesherName(m Mesher) string {
	switch m.(type) {
	case *Blocky:
		return "blocky"
	case *Cubes:
		return "cubes"
	default:
		return "other"
	}
}

func instrumentBuild(name string, start time.Time, out *Output) {
	buildSeconds.With(prometheus.Labels{mesherLabel: name}).Observe(time.Since(start).Seconds())
	buildTriangles.With(prometheus.Labels{mesherLabel: name}).Add(float64(out.NumTriangles()))
}

func instrumentCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheRequests.With(prometheus.Labels{resultLabel: result}).Inc()
}
