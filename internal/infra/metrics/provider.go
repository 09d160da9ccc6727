package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		providerCallsLatencyMs,
		chatTokensIn,
		chatTokensOut,
	)
}

var (
	providerCallsLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_calls_latency_ms",
			Help:    "Provider API call latency distribution in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000},
		},
		[]string{"op", "success"},
	)

	chatTokensIn = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_tokens_in",
			Help: "Sum of prompt (input) tokens per model.",
		},
		[]string{"model"},
	)

	chatTokensOut = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_tokens_out",
			Help: "Sum of completion (output) tokens per model.",
		},
		[]string{"model"},
	)
)

func ObserveProviderCall(op string, latencyMs int, success bool) {
	providerCallsLatencyMs.WithLabelValues(norm(op), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}

func ObserveChatTokens(model string, tokensIn, tokensOut int) {
	chatTokensIn.WithLabelValues(norm(model)).Add(float64(tokensIn))
	chatTokensOut.WithLabelValues(norm(model)).Add(float64(tokensOut))
}
