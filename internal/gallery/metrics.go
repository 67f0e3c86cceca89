package gallery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	catalogItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_items",
			Help: "Number of items currently in the catalog",
		},
	)

	catalogMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_mutations_total",
			Help: "Total number of catalog mutations by event type",
		},
		[]string{"event"},
	)

	pageCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_page_cache_lookups_total",
			Help: "Rendered gallery page cache lookups by result",
		},
		[]string{"result"},
	)
)
