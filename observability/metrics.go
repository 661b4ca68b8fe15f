// Package observability registers the Prometheus metrics and OpenTelemetry
// tracer used by the chain's out-of-scope collator worker (core/collator)
// to instrument calls into the CORE's trie and EVM
// packages. The CORE packages themselves never import this package, so
// tracing concerns stay out of the trie/EVM/RLP/keccak algorithms.
package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type coreMetrics struct {
	trieCommitSeconds prometheus.Histogram
	evmSteps          prometheus.Counter
	evmGasUsed        prometheus.Counter
}

var (
	coreMetricsOnce sync.Once
	coreRegistry    *coreMetrics
)

// CoreMetrics returns the lazily-initialised, process-wide metrics registry
// for trie commits and EVM execution.
func CoreMetrics() *coreMetrics {
	coreMetricsOnce.Do(func() {
		coreRegistry = &coreMetrics{
			trieCommitSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "chaincore",
				Subsystem: "trie",
				Name:      "commit_seconds",
				Help:      "Latency distribution of Trie.Commit calls.",
				Buckets:   prometheus.DefBuckets,
			}),
			evmSteps: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "chaincore",
				Subsystem: "evm",
				Name:      "steps_total",
				Help:      "Total EVM instructions executed across all Interpreter.Exec calls.",
			}),
			evmGasUsed: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "chaincore",
				Subsystem: "evm",
				Name:      "gas_used_total",
				Help:      "Total gas consumed across all Interpreter.Exec calls.",
			}),
		}
		prometheus.MustRegister(
			coreRegistry.trieCommitSeconds,
			coreRegistry.evmSteps,
			coreRegistry.evmGasUsed,
		)
	})
	return coreRegistry
}

// ObserveTrieCommit records how long a single Trie.Commit call took.
func (m *coreMetrics) ObserveTrieCommit(d time.Duration) {
	if m == nil {
		return
	}
	m.trieCommitSeconds.Observe(d.Seconds())
}

// ObserveExec records one Interpreter.Exec call's step count and gas spent.
func (m *coreMetrics) ObserveExec(steps, gasUsed uint64) {
	if m == nil {
		return
	}
	m.evmSteps.Add(float64(steps))
	m.evmGasUsed.Add(float64(gasUsed))
}
