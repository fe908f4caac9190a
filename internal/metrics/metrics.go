// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "autoblog_network_request_duration_seconds",
		Help:    "Duration of outbound requests.",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30, 45, 60, 90},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "autoblog_network_request_total",
		Help: "Number of outbound requests.",
	}, []string{"component", "operation", "target", "status"})

	LLMGenerationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "autoblog_llm_generation_duration_seconds",
		Help:    "Duration of text generation calls.",
		Buckets: []float64{1, 2.5, 5, 10, 20, 30, 45, 60, 90},
	}, []string{"provider"})

	LLMTokensTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "autoblog_llm_tokens_total",
		Help: "Tokens reported by the text generation provider.",
	}, []string{"provider"})

	ArticlesGenerated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "autoblog_articles_generated_total",
		Help: "Articles generated, by template.",
	}, []string{"template"})

	ArticlesPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "autoblog_articles_published_total",
		Help: "Publish attempts, by transport and status.",
	}, []string{"transport", "status"})

	CatalogFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "autoblog_catalog_fallback_total",
		Help: "Catalog lookups answered with placeholder products.",
	})
)

// MustRegister registers every collector on registerer.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		NetworkRequestDuration,
		NetworkRequestTotal,
		LLMGenerationDuration,
		LLMTokensTotal,
		ArticlesGenerated,
		ArticlesPublished,
		CatalogFallbacks,
	)
}

// Handler serves the default gatherer.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveNetworkRequest records duration and outcome of an outbound request.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(time.Since(start).Seconds())
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// ObserveGeneration records one text generation call.
func ObserveGeneration(provider string, d time.Duration, tokens int64) {
	if provider == "" {
		provider = "unknown"
	}
	LLMGenerationDuration.WithLabelValues(provider).Observe(d.Seconds())
	if tokens > 0 {
		LLMTokensTotal.WithLabelValues(provider).Add(float64(tokens))
	}
}

// ObservePublish counts a publish attempt.
func ObservePublish(transport string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	ArticlesPublished.WithLabelValues(transport, status).Inc()
}
