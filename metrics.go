package bandalign

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

const metricsNamespace = "bandalign"

var tracer = otel.Tracer("github.com/LynnColeArt/bandalign")

var (
	chunksLaunchedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "chunks_launched_total",
		Help:      "The total number of chunks launched on the device.",
	})

	pairsComputedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "pairs_computed_total",
		Help:      "The total number of banded kernel invocations, retries included.",
	})

	bandRetryCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "band_retries_total",
		Help:      "The total number of requests re-queued with a wider band.",
	})

	alignmentsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "alignments_total",
		Help:      "The total number of finished requests by final status.",
	}, []string{"status"})

	scratchReallocationCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "scratch_reallocations_total",
		Help:      "The total number of wholesale device scratch reallocations.",
	})

	chunkBytesHistogram = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "chunk_bytes",
		Help:      "Estimated device footprint of launched chunks.",
		Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
	})
)
