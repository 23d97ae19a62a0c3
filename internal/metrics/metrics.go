// Package metrics exposes Prometheus counters for training, encoding and the HTTP service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wordpiece"

var (
	trainingRounds = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "training_rounds_total",
			Help:      "Count of completed merge rounds.",
		},
	)
	trainingMerges = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "training_merges_total",
			Help:      "Count of accepted merge rules.",
		},
	)
	encodeRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "encode_requests_total",
			Help:      "Count of encoded texts.",
		},
	)
	encodedTokens = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "encoded_tokens_total",
			Help:      "Count of emitted token ids.",
		},
	)
	unknownFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unknown_fallbacks_total",
			Help:      "Count of words that fell back to <unk> because no prefix matched.",
		},
	)
	decodeErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Count of decode calls rejected for an out-of-range index.",
		},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latency of HTTP requests by route and status code.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		},
		[]string{"route", "code"},
	)
)

// Registry holds every wordpiece collector. It is separate from the global
// default registry so tests and embedders control what is exported.
var Registry = prometheus.NewRegistry()

var registerMetrics sync.Once

// Register all metrics.
func Register() {
	registerMetrics.Do(func() {
		Registry.MustRegister(trainingRounds)
		Registry.MustRegister(trainingMerges)
		Registry.MustRegister(encodeRequests)
		Registry.MustRegister(encodedTokens)
		Registry.MustRegister(unknownFallbacks)
		Registry.MustRegister(decodeErrors)
		Registry.MustRegister(httpRequestDuration)
	})
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	Register()
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordTrainingRound records one merge round and the merges it accepted.
func RecordTrainingRound(merges int) {
	trainingRounds.Inc()
	trainingMerges.Add(float64(merges))
}

// RecordEncode records one encoded text, its token count and its <unk> fallbacks.
func RecordEncode(tokens, fallbacks int) {
	encodeRequests.Inc()
	encodedTokens.Add(float64(tokens))
	unknownFallbacks.Add(float64(fallbacks))
}

// RecordDecodeError records a rejected decode call.
func RecordDecodeError() {
	decodeErrors.Inc()
}

// ObserveHTTPRequest records the latency of one HTTP request.
func ObserveHTTPRequest(route string, code int, d time.Duration) {
	httpRequestDuration.WithLabelValues(route, strconv.Itoa(code)).Observe(d.Seconds())
}
