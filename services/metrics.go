package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	postViewsCounted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bbsforum_post_views_counted_total",
		Help: "Post views that incremented a view counter.",
	})
	postViewsDeduped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bbsforum_post_views_deduplicated_total",
		Help: "Post views skipped because the same session and address viewed the post within the window.",
	})
)
