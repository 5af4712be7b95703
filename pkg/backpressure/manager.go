// Package backpressure grades egress queue utilization into discrete
// levels so the producer can shed load before the queue overflows.
package backpressure

import (
	"sync"

	"github.com/sirupsen/logrus"

	"streamteam/internal/metrics"
)

// Level of backpressure.
type Level int

const (
	LevelNone Level = iota
	LevelLow
	LevelMedium
	LevelHigh
	LevelCritical
)

func (l Level) String() string {
	switch l {
	case LevelNone:
		return "none"
	case LevelLow:
		return "low"
	case LevelMedium:
		return "medium"
	case LevelHigh:
		return "high"
	case LevelCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Config holds the utilization thresholds per level.
type Config struct {
	LowThreshold      float64 `yaml:"lowThreshold"`
	MediumThreshold   float64 `yaml:"mediumThreshold"`
	HighThreshold     float64 `yaml:"highThreshold"`
	CriticalThreshold float64 `yaml:"criticalThreshold"`
}

// Manager tracks the current level from reported queue utilization.
type Manager struct {
	config Config
	logger *logrus.Logger

	mu    sync.Mutex
	level Level
}

// NewManager builds a manager with the usual 60/75/90/95% defaults.
func NewManager(config Config, logger *logrus.Logger) *Manager {
	if config.LowThreshold == 0 {
		config.LowThreshold = 0.6
	}
	if config.MediumThreshold == 0 {
		config.MediumThreshold = 0.75
	}
	if config.HighThreshold == 0 {
		config.HighThreshold = 0.9
	}
	if config.CriticalThreshold == 0 {
		config.CriticalThreshold = 0.95
	}
	return &Manager{config: config, logger: logger}
}

// Observe feeds the current queue utilization (0-1) and returns the
// resulting level.
func (m *Manager) Observe(utilization float64) Level {
	next := LevelNone
	switch {
	case utilization >= m.config.CriticalThreshold:
		next = LevelCritical
	case utilization >= m.config.HighThreshold:
		next = LevelHigh
	case utilization >= m.config.MediumThreshold:
		next = LevelMedium
	case utilization >= m.config.LowThreshold:
		next = LevelLow
	}

	m.mu.Lock()
	changed := next != m.level
	m.level = next
	m.mu.Unlock()

	if changed {
		metrics.BackpressureLevel.Set(float64(next))
		if m.logger != nil {
			m.logger.WithFields(logrus.Fields{
				"level":       next.String(),
				"utilization": utilization,
			}).Info("backpressure level change")
		}
	}
	return next
}

// Level returns the last observed level.
func (m *Manager) Level() Level {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

// ShouldShed reports whether new work should be dropped rather than
// queued: only at the critical level.
func (m *Manager) ShouldShed() bool {
	return m.Level() >= LevelCritical
}
