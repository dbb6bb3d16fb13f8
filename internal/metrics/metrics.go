package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Citation pipeline metrics
	CitationsExtracted = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "skateai_citations_extracted_per_message",
			Help:    "Number of validated citations per assistant message",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
	)

	CitationsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "skateai_citations_dropped_total",
			Help: "Total citation markers dropped because the named document was not in the retrieved set",
		},
	)

	CitationMapsInvalid = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "skateai_citation_maps_invalid_total",
			Help: "Total persisted citation maps rejected by the structural validator",
		},
	)

	CitationEnrichments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skateai_citation_enrichments_total",
			Help: "Total citation map enrichment derivations",
		},
		[]string{"result"}, // computed, memoized
	)

	StaleCitationsDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "skateai_stale_citations_total",
			Help: "Total citations pointing at documents no longer present in their study",
		},
	)

	// Tool-call replay metrics
	ReplaysStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "skateai_search_replays_total",
			Help: "Total persisted search tool calls replayed",
		},
	)

	ReplaysSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skateai_search_replays_skipped_total",
			Help: "Total persisted tool calls skipped during replay",
		},
		[]string{"reason"}, // not_search, missing_input, missing_query
	)

	ReplaysFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "skateai_search_replays_failed_total",
			Help: "Total replayed searches that returned an error",
		},
	)

	ReplayDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "skateai_search_replay_duration_seconds",
			Help:    "Wall time for a full replay batch",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Similarity search metrics
	SearchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skateai_search_requests_total",
			Help: "Total similarity search requests",
		},
		[]string{"status"}, // ok, error
	)

	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "skateai_search_duration_seconds",
			Help:    "Similarity search request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Document source metrics
	DocumentListRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skateai_document_list_refreshes_total",
			Help: "Total live document list refreshes",
		},
		[]string{"source"}, // cache, postgres, error
	)

	// Streaming metrics
	StreamEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skateai_stream_events_published_total",
			Help: "Total generation events published to subscribers",
		},
		[]string{"type"},
	)

	StreamSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "skateai_stream_subscribers",
			Help: "Current number of live stream subscribers",
		},
	)

	// Persistence metrics
	MessageWritesQueued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "skateai_message_writes_queued_total",
			Help: "Total chat message writes queued for async persistence",
		},
	)

	MessageWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "skateai_message_write_failures_total",
			Help: "Total chat message writes that failed",
		},
	)
)
