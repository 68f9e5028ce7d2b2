// Package metrics defines and registers all custom Prometheus metrics for
// the studio AI backend. It is the single source of truth for metric names,
// labels, and help strings.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "studio_ai"

// GenerationsTotal counts finished generation attempts.
// Labels:
//   - kind: "text" or "image"
//   - status: "completed" or "failed"
var GenerationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "generations_total",
		Help:      "Total number of generation attempts reaching a terminal status.",
	},
	[]string{"kind", "status"},
)

// GenerationDuration measures end-to-end generation latency, including all
// fallback tiers and storage writes.
var GenerationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "generation_duration_seconds",
		Help:      "Duration of a completed generation request, from acceptance to result.",
		Buckets:   []float64{.25, .5, 1, 2.5, 5, 10, 30, 60, 120},
	},
	[]string{"kind"},
)

// ImageTierSuccessTotal counts which fallback tier ultimately served an
// image generation.
// Label:
//   - tier: provider name (e.g. "openai", "described_placeholder", "basic_placeholder")
var ImageTierSuccessTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "image_tier_success_total",
		Help:      "Total image generations served, by winning fallback tier.",
	},
	[]string{"tier"},
)

// ImageTierFailuresTotal counts failed attempts per fallback tier.
var ImageTierFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "image_tier_failures_total",
		Help:      "Total failed image provider attempts, by tier.",
	},
	[]string{"tier"},
)

// CreditsDeductedTotal accumulates credits charged, by deduction reason.
var CreditsDeductedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "credits_deducted_total",
		Help:      "Total credits deducted from user balances, by reason.",
	},
	[]string{"reason"},
)

// AccountsResetTotal counts per-account resets performed by the monthly
// sweep.
// Label:
//   - result: "ok" or "error"
var AccountsResetTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "accounts_reset_total",
		Help:      "Total accounts touched by the monthly credit reset sweep, by result.",
	},
	[]string{"result"},
)
