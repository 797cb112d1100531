package monitor

import (
	"context"
	"sync"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fastygo/taskhub/domain"
)

// HistorySizer is the part of the run history store the monitor probes.
type HistorySizer interface {
	Size() (int, error)
}

// SyncClock reports when a source was last fully synced.
type SyncClock interface {
	SyncedAt(source domain.Source) (time.Time, bool)
}

type Monitor struct {
	redis      *redislib.Client
	history    HistorySizer
	syncs      SyncClock
	sources    []domain.Source
	staleAfter time.Duration

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	now      func() time.Time
	logger   *zap.Logger
}

type Options struct {
	Redis      *redislib.Client
	History    HistorySizer
	Syncs      SyncClock
	Sources    []domain.Source
	StaleAfter time.Duration
	Interval   time.Duration
}

func New(opts Options, logger *zap.Logger) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		redis:      opts.Redis,
		history:    opts.History,
		syncs:      opts.Syncs,
		sources:    opts.Sources,
		staleAfter: opts.StaleAfter,
		interval:   opts.Interval,
		stopCh:     make(chan struct{}),
		now:        time.Now,
		logger:     logger,
	}
}

func (m *Monitor) Start() {
	go m.loop()
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

func (m *Monitor) IsOnline() bool {
	return m.GetStatus().Healthy()
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Refresh()
	for {
		select {
		case <-ticker.C:
			m.Refresh()
		case <-m.stopCh:
			return
		}
	}
}

// Refresh probes every dependency once and stores the result.
func (m *Monitor) Refresh() Status {
	historyOK, runs := m.checkHistory()
	status := Status{
		Redis:        m.checkRedis(),
		RedisEnabled: m.redis != nil,
		History:      historyOK,
		HistoryRuns:  runs,
		Sources:      m.checkSources(),
		LastCheck:    m.now(),
	}

	m.mu.Lock()
	m.status = status
	m.mu.Unlock()
	return status
}

func (m *Monitor) checkRedis() bool {
	if m.redis == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return m.redis.Ping(ctx).Err() == nil
}

func (m *Monitor) checkHistory() (bool, int) {
	if m.history == nil {
		return false, 0
	}
	size, err := m.history.Size()
	if err != nil {
		m.logger.Warn("history size check failed", zap.Error(err))
		return false, size
	}
	return true, size
}

func (m *Monitor) checkSources() map[string]SourceStatus {
	out := make(map[string]SourceStatus, len(m.sources))
	for _, source := range m.sources {
		var st SourceStatus
		at, ok := time.Time{}, false
		if m.syncs != nil {
			at, ok = m.syncs.SyncedAt(source)
		}
		if ok {
			st.SyncedAt = &at
			st.Stale = m.staleAfter > 0 && m.now().Sub(at) > m.staleAfter
		} else {
			st.Stale = true
		}
		if st.Stale {
			m.logger.Debug("source cache is stale", zap.String("source", string(source)))
		}
		out[string(source)] = st
	}
	return out
}
