package buffer

// Span reports buffer_span(): the min across streams of oldest and the max
// across streams of newest, plus the resulting duration (spec section 4.3).
type Span struct {
	OldestTS   *int64
	NewestTS   *int64
	DurationMs int64
}

// BufferSpan computes Span across the three streams.
func (m *Manager) BufferSpan() (Span, error) {
	var oldest, newest *int64
	for _, s := range streams {
		lo, hi, err := m.store.Extremes(s)
		if err != nil {
			return Span{}, err
		}
		if lo != nil && (oldest == nil || *lo < *oldest) {
			oldest = lo
		}
		if hi != nil && (newest == nil || *hi > *newest) {
			newest = hi
		}
	}
	var duration int64
	if oldest != nil && newest != nil {
		duration = *newest - *oldest
	}
	return Span{OldestTS: oldest, NewestTS: newest, DurationMs: duration}, nil
}

// Pressure returns the current usage pressure against the configured cap.
func (m *Manager) Pressure() (Pressure, error) {
	usage, _, err := m.store.EstimateUsage()
	if err != nil {
		return PressureNormal, err
	}
	capBytes := m.cfg.Snapshot().StorageCapClass.Bytes()
	return pressureFromUsage(usage, capBytes), nil
}

// Truncated reports whether the cap, not age, is limiting retention: true
// iff duration_ms < 24h AND usage > 0.8 * cap (spec section 4.3).
func (m *Manager) Truncated() (bool, error) {
	span, err := m.BufferSpan()
	if err != nil {
		return false, err
	}
	usage, _, err := m.store.EstimateUsage()
	if err != nil {
		return false, err
	}
	capBytes := m.cfg.Snapshot().StorageCapClass.Bytes()

	durationLimited := span.DurationMs < maxAgeMs
	usageOverWarn := float64(usage) > 0.8*float64(capBytes)
	return durationLimited && usageOverWarn, nil
}

const maxAgeMs = int64(24 * 60 * 60 * 1000)
