// Package buffer enforces the two retention invariants on the Store (spec
// section 4.3): no record survives past 24 hours, and total usage stays
// under the configured cap. Its re-entrancy guard is grounded in the
// teacher's CircuitBreaker (internal/capture/circuit_breaker.go): a small,
// independently-locked state machine with named transitions, rather than a
// generic worker pool.
package buffer

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/browserclip/engine/internal/config"
	"github.com/browserclip/engine/internal/model"
	"github.com/browserclip/engine/internal/store"
	"github.com/browserclip/engine/internal/ttl"
)

// perRecordEstimate is the coarse per-record byte estimate used to size an
// eviction pass (spec section 4.3). Convergence across passes, not within
// one, is the design: the next scheduled pass keeps evicting if needed.
const perRecordEstimate = 2000

// PassInterval is the scheduled cadence of the Buffer Manager (spec section 4.3).
const PassInterval = 5 * time.Minute

var streams = [3]model.Stream{model.StreamHTTP, model.StreamWS, model.StreamSSE}

// Pressure classifies usage against the configured cap (spec section 4.3).
type Pressure string

const (
	PressureNormal   Pressure = "normal"
	PressureWarning  Pressure = "warning"
	PressureCritical Pressure = "critical"
)

// Manager runs the scheduled retention pass and answers status queries.
type Manager struct {
	store *store.Store
	cfg   *config.Config
	log   *logrus.Entry

	mu             sync.Mutex
	running        bool
	rerunRequested bool

	metrics *metrics
}

type metrics struct {
	usageBytes prometheus.Gauge
	capBytes   prometheus.Gauge
	pressure   prometheus.Gauge
	evicted    *prometheus.CounterVec
}

// New builds a Manager. If reg is non-nil, Prometheus collectors are
// registered on it (spec section 4.3: usage_bytes, cap_bytes, pressure,
// per-stream eviction counters), grounded in rockstar-0000-aistore's and
// etalazz-vsa's use of prometheus/client_golang.
func New(s *store.Store, cfg *config.Config, reg prometheus.Registerer, log *logrus.Logger) *Manager {
	if log == nil {
		log = logrus.New()
	}
	m := &Manager{store: s, cfg: cfg, log: log.WithField("component", "buffer")}

	met := &metrics{
		usageBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "browserclip_store_usage_bytes",
			Help: "Estimated on-disk usage across all streams.",
		}),
		capBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "browserclip_store_cap_bytes",
			Help: "Configured storage cap in bytes.",
		}),
		pressure: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "browserclip_store_pressure",
			Help: "0=normal, 1=warning, 2=critical.",
		}),
		evicted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "browserclip_store_evicted_records_total",
			Help: "Records evicted by the buffer manager, by stream and reason.",
		}, []string{"stream", "reason"}),
	}
	if reg != nil {
		reg.MustRegister(met.usageBytes, met.capBytes, met.pressure, met.evicted)
	}
	m.metrics = met
	return m
}

// Trigger requests a pass. If one is already running, the request is
// coalesced into a single queued follow-up (spec section 5: "at most one
// queued follow-up").
func (m *Manager) Trigger(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.rerunRequested = true
		m.mu.Unlock()
		return
	}
	m.running = true
	m.mu.Unlock()

	go m.runLoop(ctx)
}

// runLoop executes RunPass, then re-executes once more if a follow-up was
// coalesced in while the first pass was running.
func (m *Manager) runLoop(ctx context.Context) {
	for {
		if err := m.RunPass(ctx); err != nil {
			m.log.WithError(err).Error("buffer pass failed")
		}
		m.mu.Lock()
		if !m.rerunRequested {
			m.running = false
			m.mu.Unlock()
			return
		}
		m.rerunRequested = false
		m.mu.Unlock()
	}
}

// RunSchedule runs RunPass every PassInterval until ctx is cancelled, and
// triggers an immediate pass whenever storage_cap_class changes.
func (m *Manager) RunSchedule(ctx context.Context) {
	t := time.NewTicker(PassInterval)
	defer t.Stop()
	changes := m.cfg.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Trigger(ctx)
		case change := <-changes:
			if change.Key == "storage_cap_class" {
				m.Trigger(ctx)
			}
		}
	}
}

// RunPass computes t_cut = now - 24h, evicts anything older, then evicts by
// usage pressure against the configured cap (spec section 4.3, steps 1-4).
func (m *Manager) RunPass(ctx context.Context) error {
	tCut := time.Now().Add(-ttl.MaxAge).UnixMilli()

	for _, s := range streams {
		n, err := m.store.DeleteOlderThan(s, tCut)
		if err != nil {
			return fmt.Errorf("buffer: delete_older_than %s: %w", s, err)
		}
		if n > 0 {
			m.metrics.evicted.WithLabelValues(string(s), "age").Add(float64(n))
		}
	}

	usage, _, err := m.store.EstimateUsage()
	if err != nil {
		return fmt.Errorf("buffer: estimate_usage: %w", err)
	}
	capBytes := m.cfg.Snapshot().StorageCapClass.Bytes()

	m.metrics.usageBytes.Set(float64(usage))
	m.metrics.capBytes.Set(float64(capBytes))
	m.metrics.pressure.Set(float64(pressureLevel(usage, capBytes)))

	if usage > capBytes {
		target := int64(0.9 * float64(capBytes))
		toEvictBytes := usage - target
		perStreamN := perStreamEvictionCount(toEvictBytes, len(streams))
		for _, s := range streams {
			n, err := m.store.DeleteOldest(s, perStreamN)
			if err != nil {
				return fmt.Errorf("buffer: delete_oldest %s: %w", s, err)
			}
			if n > 0 {
				m.metrics.evicted.WithLabelValues(string(s), "cap").Add(float64(n))
			}
		}
	}

	if err := m.store.PutMeta(store.MetaLastCleanupAt, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("buffer: put last-cleanup-at: %w", err)
	}
	if err := m.store.PutMeta(store.MetaLastUsageBytes, usage); err != nil {
		return fmt.Errorf("buffer: put last-usage-bytes: %w", err)
	}
	return nil
}

// perStreamEvictionCount implements per_stream_n = ceil((to_evict_bytes /
// perRecordEstimate) / numStreams) (spec section 4.3). Convergence is not
// required in one pass.
func perStreamEvictionCount(toEvictBytes int64, numStreams int) int {
	return int(math.Ceil(math.Ceil(float64(toEvictBytes)/perRecordEstimate) / float64(numStreams)))
}

func pressureFromUsage(usage, capBytes int64) Pressure {
	switch pressureLevel(usage, capBytes) {
	case 2:
		return PressureCritical
	case 1:
		return PressureWarning
	default:
		return PressureNormal
	}
}

func pressureLevel(usage, capBytes int64) int {
	if capBytes <= 0 {
		return 0
	}
	ratio := float64(usage) / float64(capBytes)
	switch {
	case ratio >= 0.95:
		return 2
	case ratio >= 0.8:
		return 1
	default:
		return 0
	}
}
