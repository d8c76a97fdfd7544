// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics export. Components count into a go-metrics registry; this file
// bridges that registry to a prometheus endpoint.

package control

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	mp "github.com/nbrownus/go-metrics-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rcrowley/go-metrics"
	"github.com/sirupsen/logrus"
)

// NewPrometheusHandler exposes reg in the prometheus text format, refreshed every
// c.Interval until ctx is done. The build info gauge carries version as a label.
func NewPrometheusHandler(ctx context.Context, l logrus.FieldLogger, reg metrics.Registry, c StatsConfig, version string) (http.Handler, error) {
	h, refresh, err := newPrometheusHandler(l, reg, c, version)
	if err != nil {
		return nil, err
	}
	go every(ctx, c.Interval, refresh)
	return h, nil
}

func newPrometheusHandler(l logrus.FieldLogger, reg metrics.Registry, c StatsConfig, version string) (http.Handler, func(), error) {
	if c.Interval <= 0 {
		return nil, nil, fmt.Errorf("stats.interval was an invalid duration: %s", c.Interval)
	}

	pr := prometheus.NewRegistry()
	pClient := mp.NewPrometheusProvider(reg, c.Namespace, c.Subsystem, pr, c.Interval)

	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: c.Namespace,
		Subsystem: c.Subsystem,
		Name:      "info",
		Help:      "Version information for the NIC bring-up binary",
		ConstLabels: prometheus.Labels{
			"version":   version,
			"goversion": runtime.Version(),
		},
	})
	pr.MustRegister(g)
	g.Set(1)

	refresh := func() {
		if err := pClient.UpdatePrometheusMetricsOnce(); err != nil {
			l.WithError(err).Warn("Failed to refresh prometheus metrics")
		}
	}
	return promhttp.HandlerFor(pr, promhttp.HandlerOpts{ErrorLog: l}), refresh, nil
}

// every runs fn each interval until ctx is done.
func every(ctx context.Context, interval time.Duration, fn func()) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fn()
		}
	}
}

// StatsServer serves the stats endpoint and owns its background refreshers.
type StatsServer struct {
	srv    *http.Server
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Addr returns the configured listen address.
func (s *StatsServer) Addr() string { return s.srv.Addr }

// Close stops the listener and the refreshers and waits for them to exit.
func (s *StatsServer) Close() error {
	s.cancel()
	err := s.srv.Close()
	s.wg.Wait()
	return err
}

// StartStats serves the configured stats endpoint and, when probes is not nil, the
// probe dump at /debug/state. It returns a nil server when stats are disabled.
// Everything it starts stops on Close or when ctx is done.
func StartStats(ctx context.Context, l logrus.FieldLogger, reg metrics.Registry, c StatsConfig, probes *DebugProbes, version string) (*StatsServer, error) {
	switch c.Type {
	case "", "none":
		return nil, nil
	case "prometheus":
	default:
		return nil, fmt.Errorf("stats.type was not understood: %s", c.Type)
	}
	if c.Listen == "" {
		return nil, fmt.Errorf("stats.listen should not be empty")
	}
	if c.Path == "" {
		return nil, fmt.Errorf("stats.path should not be empty")
	}

	h, refresh, err := newPrometheusHandler(l, reg, c, version)
	if err != nil {
		return nil, err
	}
	metrics.RegisterRuntimeMemStats(reg)

	mux := http.NewServeMux()
	mux.Handle(c.Path, h)
	if probes != nil {
		mux.Handle("/debug/state", probes)
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &StatsServer{srv: &http.Server{Addr: c.Listen, Handler: mux}, cancel: cancel}
	s.wg.Add(4)
	go func() {
		defer s.wg.Done()
		every(ctx, c.Interval, refresh)
	}()
	go func() {
		defer s.wg.Done()
		every(ctx, c.Interval, func() { metrics.CaptureRuntimeMemStatsOnce(reg) })
	}()
	go func() {
		defer s.wg.Done()
		l.Infof("Prometheus stats listening on %s at %s", c.Listen, c.Path)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.WithError(err).Error("Stats server stopped")
		}
	}()
	go func() {
		defer s.wg.Done()
		<-ctx.Done()
		_ = s.srv.Close()
	}()
	return s, nil
}
