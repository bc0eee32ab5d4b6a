package memory

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrExceeded is returned when a reservation would go over the limit
var ErrExceeded = errors.New("memory budget exceeded")

// Budget caps the combined size of the entries a cache holds. Sizes are in
// whatever unit the caller measures, e.g. tree nodes. A nil *Budget is
// unlimited.
type Budget struct {
	limit      int64
	usage      int64
	entries    map[string]int64 // key -> reserved size
	thresholds Thresholds
	mu         sync.RWMutex
}

// Config defines budget configuration
type Config struct {
	Limit                int64 // Maximum combined size
	WarningThresholdPct  int   // Warning threshold percentage
	CriticalThresholdPct int   // Critical threshold percentage
}

// Thresholds defines usage thresholds
type Thresholds struct {
	Warning  int64
	Critical int64
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Limit:                1 << 20,
		WarningThresholdPct:  75,
		CriticalThresholdPct: 90,
	}
}

// NewBudget creates a budget. A nil config uses DefaultConfig.
func NewBudget(config *Config) *Budget {
	if config == nil {
		config = DefaultConfig()
	}
	return &Budget{
		limit:   config.Limit,
		entries: make(map[string]int64),
		thresholds: Thresholds{
			Warning:  config.Limit * int64(config.WarningThresholdPct) / 100,
			Critical: config.Limit * int64(config.CriticalThresholdPct) / 100,
		},
	}
}

// Reserve records size for key, replacing any earlier reservation for it
func (b *Budget) Reserve(key string, size int64) error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	delta := size - b.entries[key]
	if b.usage+delta > b.limit {
		return fmt.Errorf("%w: %d + %d > %d", ErrExceeded, b.usage, delta, b.limit)
	}
	b.entries[key] = size
	b.usage += delta
	return nil
}

// Release frees the reservation for key, if any
func (b *Budget) Release(key string) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if size, ok := b.entries[key]; ok {
		b.usage -= size
		delete(b.entries, key)
	}
}

// Reset frees every reservation
func (b *Budget) Reset() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.usage = 0
	b.entries = make(map[string]int64)
}

// Status returns current usage information
func (b *Budget) Status() Status {
	if b == nil {
		return Status{Level: LevelOK, Limit: -1}
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	status := Status{
		Usage:    b.usage,
		Limit:    b.limit,
		Entries:  len(b.entries),
		Warning:  b.thresholds.Warning,
		Critical: b.thresholds.Critical,
	}
	if b.limit > 0 {
		status.UsagePercentage = float64(b.usage) / float64(b.limit) * 100
	}

	switch {
	case b.usage >= b.thresholds.Critical:
		status.Level = LevelCritical
	case b.usage >= b.thresholds.Warning:
		status.Level = LevelWarning
	default:
		status.Level = LevelOK
	}

	if len(b.entries) > 0 {
		status.AverageEntrySize = b.usage / int64(len(b.entries))
	}
	return status
}

// Usage levels reported by Status
const (
	LevelOK       = "OK"
	LevelWarning  = "WARNING"
	LevelCritical = "CRITICAL"
)

// Status contains usage information
type Status struct {
	Usage            int64   `json:"usage"`
	Limit            int64   `json:"limit"` // -1 when unlimited
	UsagePercentage  float64 `json:"usage_percentage"`
	Level            string  `json:"level"`
	Entries          int     `json:"entries"`
	AverageEntrySize int64   `json:"average_entry_size"`
	Warning          int64   `json:"warning_threshold"`
	Critical         int64   `json:"critical_threshold"`
}

// Entry is one reservation
type Entry struct {
	Key  string `json:"key"`
	Size int64  `json:"size"`
}

// Largest returns up to limit reservations, biggest first
func (b *Budget) Largest(limit int) []Entry {
	if b == nil {
		return nil
	}
	b.mu.RLock()
	entries := make([]Entry, 0, len(b.entries))
	for key, size := range b.entries {
		entries = append(entries, Entry{Key: key, Size: size})
	}
	b.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Size != entries[j].Size {
			return entries[i].Size > entries[j].Size
		}
		return entries[i].Key < entries[j].Key
	})
	if limit < len(entries) {
		entries = entries[:limit]
	}
	return entries
}
