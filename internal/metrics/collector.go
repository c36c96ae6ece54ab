package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Forbidden-access metrics
	ForbiddenEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forbidlog_events_total",
			Help: "Forbidden responses written to the log sink",
		},
		[]string{"entry"},
	)
	ForbiddenIgnored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "forbidlog_ignored_total",
			Help: "Forbidden responses suppressed by an ignore rule",
		},
	)
	SinkErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "forbidlog_sink_errors_total",
			Help: "Failed writes to the log sink",
		},
	)

	// Proxy metrics
	UpstreamErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "forbidlog_upstream_errors_total",
			Help: "Requests that failed to reach the upstream",
		},
	)
	ResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forbidlog_responses_total",
			Help: "Responses seen by the middleware by status class",
		},
		[]string{"class"},
	)
)

// StatusClass maps a status code to "1xx".."5xx".
// StatusClass 将状态码映射为 "1xx".."5xx"。
func StatusClass(code int) string {
	switch {
	case code >= 100 && code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	case code < 600:
		return "5xx"
	default:
		return "other"
	}
}
