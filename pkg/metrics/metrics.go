package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus collectors. The frontier gauge and
// oldest-open-session age exist so a stalled source (which blocks closure for
// every pending session) is observable from the outside.
type Metrics struct {
	Frontier          prometheus.Gauge
	OpenSessions      *prometheus.GaugeVec
	OldestOpenAge     *prometheus.GaugeVec
	ClosedSessions    *prometheus.CounterVec
	LateArrivals      prometheus.Counter
	InvalidSpanIds    prometheus.Counter
	ForcedClosures    prometheus.Counter
	MessagesIngested  prometheus.Counter
	EpochsEvaluated   prometheus.Counter
	SessionsFragments prometheus.Counter
}

func NewMetrics(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		Frontier: factory.NewGauge(prometheus.GaugeOpts{
			Name: "weft_frontier_timestamp",
			Help: "Current frontier: lower bound below which no future message timestamp can arrive",
		}),
		OpenSessions: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "weft_open_sessions",
			Help: "Number of currently open sessions per shard",
		}, []string{"shard"}),
		OldestOpenAge: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "weft_oldest_open_session_age",
			Help: "Age of the longest quiescent open session per shard, relative to the frontier",
		}, []string{"shard"}),
		ClosedSessions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "weft_closed_sessions_total",
			Help: "Total sessions closed and emitted downstream",
		}, []string{"complete"}),
		LateArrivals: factory.NewCounter(prometheus.CounterOpts{
			Name: "weft_late_arrivals_total",
			Help: "Messages dropped because their session had already closed",
		}),
		InvalidSpanIds: factory.NewCounter(prometheus.CounterOpts{
			Name: "weft_invalid_span_ids_total",
			Help: "Messages excluded from tree building due to undecodable span ids",
		}),
		ForcedClosures: factory.NewCounter(prometheus.CounterOpts{
			Name: "weft_forced_closures_total",
			Help: "Sessions closed by the message cap or a shutdown drain",
		}),
		MessagesIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "weft_messages_ingested_total",
			Help: "Messages accepted into session state",
		}),
		EpochsEvaluated: factory.NewCounter(prometheus.CounterOpts{
			Name: "weft_epochs_evaluated_total",
			Help: "Closure evaluation passes performed",
		}),
		SessionsFragments: factory.NewCounter(prometheus.CounterOpts{
			Name: "weft_session_fragments_total",
			Help: "Emissions for session ids that had already been emitted before",
		}),
	}
}

func ShardLabel(shard int) string {
	return strconv.Itoa(shard)
}
