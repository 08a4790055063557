package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion metrics
	PacketsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airtrace_telemetry_packets_total",
			Help: "Total number of telemetry packets received",
		},
		[]string{"protocol", "status"},
	)

	PacketBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airtrace_telemetry_packet_bytes_total",
			Help: "Total bytes of telemetry payload received",
		},
		[]string{"protocol"},
	)

	DuplicatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airtrace_telemetry_duplicates_total",
			Help: "Total number of packets suppressed as duplicates",
		},
		[]string{"protocol"},
	)

	// Fanout metrics
	FanoutErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airtrace_telemetry_fanout_errors_total",
			Help: "Total number of delivery failures per sink",
		},
		[]string{"sink"},
	)

	FanoutDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "airtrace_telemetry_fanout_duration_seconds",
			Help:    "Duration of sink deliveries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"sink"},
	)

	// Buffer metrics
	InFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "airtrace_telemetry_in_flight",
			Help: "Number of payloads currently admitted to the pipeline",
		},
	)

	RingDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "airtrace_telemetry_ring_depth",
			Help: "Current depth of the delivery rings",
		},
		[]string{"ring"},
	)

	RingDropsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airtrace_telemetry_ring_drops_total",
			Help: "Total number of records dropped from full delivery rings",
		},
		[]string{"ring"},
	)

	BatchSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "airtrace_telemetry_batch_size",
			Help:    "Records per delivery batch",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
		},
		[]string{"ring"},
	)
)
