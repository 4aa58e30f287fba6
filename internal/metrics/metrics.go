// Package metrics records auction run outcomes and pushes them to a Prometheus Pushgateway.
package metrics

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const JobName = "auction_order_submitter"

const (
	OutcomeSubmitted = "submitted"
	OutcomeDryRun    = "dry_run"
	OutcomeAborted   = "aborted"
	OutcomeFailed    = "failed"
)

// Recorder owns a private registry so a one-shot run pushes only its own series.
type Recorder struct {
	reg *prometheus.Registry

	RunsTotal      *prometheus.CounterVec
	RunDuration    prometheus.Gauge
	GasPriceGwei   prometheus.Gauge
	RotationIndex  prometheus.Gauge
	LastSuccessSec prometheus.Gauge
}

func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "auction_runs_total", Help: "Auction runs by outcome"},
			[]string{"outcome"},
		),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "auction_run_duration_seconds", Help: "Wall time of the last run",
		}),
		GasPriceGwei: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "auction_gas_price_gwei", Help: "Gas price used for the last submission",
		}),
		RotationIndex: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "auction_rotation_index", Help: "Strategy index selected by the last run",
		}),
		LastSuccessSec: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "auction_last_success_timestamp_seconds", Help: "Unix time of the last successful run",
		}),
	}
	r.reg.MustRegister(r.RunsTotal, r.RunDuration, r.GasPriceGwei, r.RotationIndex, r.LastSuccessSec)
	return r
}

// ObserveRun counts a finished run and, unless it failed or aborted, marks it successful at end.
func (r *Recorder) ObserveRun(outcome string, elapsed time.Duration, end time.Time) {
	if r == nil {
		return
	}
	r.RunsTotal.WithLabelValues(outcome).Inc()
	r.RunDuration.Set(elapsed.Seconds())
	if outcome == OutcomeSubmitted || outcome == OutcomeDryRun {
		r.LastSuccessSec.Set(float64(end.Unix()))
	}
}

func (r *Recorder) ObserveSelection(rotationIndex int, gasPriceWei *big.Int) {
	if r == nil {
		return
	}
	r.RotationIndex.Set(float64(rotationIndex))
	if gasPriceWei != nil {
		gwei, _ := new(big.Float).Quo(new(big.Float).SetInt(gasPriceWei), big.NewFloat(1e9)).Float64()
		r.GasPriceGwei.Set(gwei)
	}
}

// Push replaces this job's series on the gateway, grouped by network and account.
func (r *Recorder) Push(ctx context.Context, gatewayURL, network, account string) error {
	if r == nil || strings.TrimSpace(gatewayURL) == "" {
		return nil
	}
	p := push.New(strings.TrimSpace(gatewayURL), JobName).Gatherer(r.reg)
	if network != "" {
		p = p.Grouping("network", network)
	}
	if account != "" {
		p = p.Grouping("account", strings.ToLower(account))
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
