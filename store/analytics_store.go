// analytics/store/analytics_store.go
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"spaceclouds/analytics/models"
)

const (
	DefaultStorageKey = "spaceclouds_analytics"
	DefaultMaxEvents  = 10000
)

// TimestampLayout renders times the way a browser's toISOString does.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Options tune an EventLog. Zero values fall back to the defaults.
type Options struct {
	Key       string
	MaxEvents int
	Logger    *slog.Logger
	Now       func() time.Time
	Random    func() float64
}

// EventLog records display events into a single storage key.
//
// Every EventLog derived from the same NewEventLog call shares one
// mutex, so the load-mutate-save cycle is serialized within a process.
// Separate processes writing the same key are not coordinated: the
// last writer wins.
type EventLog struct {
	storage   Storage
	key       string
	maxEvents int
	logger    *slog.Logger
	now       func() time.Time
	random    func() float64
	location  string
	mu        *sync.Mutex
}

func NewEventLog(storage Storage, opts Options) *EventLog {
	l := &EventLog{
		storage:   storage,
		key:       opts.Key,
		maxEvents: opts.MaxEvents,
		logger:    opts.Logger,
		now:       opts.Now,
		random:    opts.Random,
		mu:        &sync.Mutex{},
	}
	if l.key == "" {
		l.key = DefaultStorageKey
	}
	if l.maxEvents <= 0 {
		l.maxEvents = DefaultMaxEvents
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.random == nil {
		l.random = rand.Float64
	}
	return l
}

// ForLocation returns a log bound to the page at path. It shares the
// storage and the lock of l.
func (l *EventLog) ForLocation(path string) *EventLog {
	c := *l
	c.location = path
	c.logger = l.logger.With("path", path)
	return &c
}

func (l *EventLog) Location() string { return l.location }

func (l *EventLog) MaxEvents() int { return l.maxEvents }

// Now is the clock of the log, shared with the trackers built on it.
func (l *EventLog) Now() time.Time { return l.now() }

// Random is the random source of the log in [0, 1).
func (l *EventLog) Random() float64 { return l.random() }

// ResolveScreen maps the bound page path to a screen identifier.
func (l *EventLog) ResolveScreen() string { return ResolveScreen(l.location) }

// ResolveScreen maps a page path to a screen. Rules are checked in
// order left, center, right and the first match wins.
func ResolveScreen(path string) string {
	switch {
	case strings.Contains(path, "l.html") || strings.Contains(path, "left"):
		return models.ScreenLeft
	case strings.Contains(path, "c.html") || strings.Contains(path, "center"):
		return models.ScreenCenter
	case strings.Contains(path, "r.html") || strings.Contains(path, "right"):
		return models.ScreenRight
	default:
		return models.ScreenUnknown
	}
}

func (l *EventLog) timestamp() string {
	return l.now().UTC().Format(TimestampLayout)
}

// Load returns the persisted store, or a fresh one when it is absent or
// cannot be read. It never fails.
func (l *EventLog) Load() *models.AnalyticsStore {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}

func (l *EventLog) load() *models.AnalyticsStore {
	raw, ok, err := l.storage.GetItem(l.key)
	if err != nil {
		l.logger.Warn("Error reading analytics", "key", l.key, "error", err)
		return models.NewAnalyticsStore(l.timestamp())
	}
	return l.decode(raw, ok)
}

func (l *EventLog) decode(raw string, ok bool) *models.AnalyticsStore {
	if !ok || raw == "" {
		return models.NewAnalyticsStore(l.timestamp())
	}

	var s models.AnalyticsStore
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		l.logger.Warn("Error reading analytics", "key", l.key, "error", err)
		return models.NewAnalyticsStore(l.timestamp())
	}
	s.Normalize()
	return &s
}

// Save persists s, keeping at most MaxEvents events. When the backend
// reports ErrQuotaExceeded the newest half of that cap is retried once.
// Failures are only logged.
func (l *EventLog) Save(s *models.AnalyticsStore) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.save(s)
}

func (l *EventLog) save(s *models.AnalyticsStore) {
	s.Events = keepNewest(s.Events, l.maxEvents)
	s.LastUpdated = l.timestamp()

	err := l.write(s)
	if err == nil {
		return
	}
	l.logger.Error("Error saving analytics", "key", l.key, "events", len(s.Events), "error", err)
	if !errors.Is(err, ErrQuotaExceeded) {
		return
	}

	s.Events = keepNewest(s.Events, l.maxEvents/2)
	if err := l.write(s); err != nil {
		l.logger.Error("Failed to save after cleanup", "key", l.key, "events", len(s.Events), "error", err)
	}
}

func (l *EventLog) write(s *models.AnalyticsStore) error {
	data, err := encodeJSON(s, "")
	if err != nil {
		return err
	}
	return l.storage.SetItem(l.key, data)
}

func keepNewest(events []models.Event, n int) []models.Event {
	if len(events) <= n {
		return events
	}
	return slices.Clone(events[len(events)-n:])
}

// LogEvent appends an event of eventType to the store, updates the
// screen totals and saves. Keys of extra are merged over the fixed
// fields, so a caller may replace id, timestamp, type or screen on the
// recorded event. Totals always follow eventType and the resolved
// screen.
func (l *EventLog) LogEvent(eventType string, extra map[string]any) models.Event {
	screen := l.ResolveScreen()
	event := models.Event{
		ID:        float64(l.now().UnixMilli()) + l.random(),
		Timestamp: l.timestamp(),
		Type:      eventType,
		Screen:    screen,
	}
	if rejected := event.Merge(extra); len(rejected) > 0 {
		l.logger.Warn("Ignoring event overrides of the wrong type", "type", eventType, "fields", rejected)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	s := l.load()
	s.Events = append(s.Events, event)

	if totals, ok := s.Totals[screen]; ok {
		switch eventType {
		case models.EventPageView:
			totals.Views++
		case models.EventVideoPlay:
			totals.VideoPlays++
		case models.EventVideoLoop:
			if d, ok := truthyNumber(extra["duration"]); ok {
				totals.TotalDuration += d
			}
		}
	}

	l.save(s)
	return event
}

func truthyNumber(v any) (float64, bool) {
	n, ok := models.AsNumber(v)
	if !ok || n == 0 || math.IsNaN(n) {
		return 0, false
	}
	return n, true
}

// Clear removes the store; the next Load starts empty.
func (l *EventLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.storage.RemoveItem(l.key); err != nil {
		l.logger.Error("Error clearing analytics", "key", l.key, "error", err)
		return
	}
	l.logger.Info("Analytics data cleared", "key", l.key)
}

// Export returns the store as indented JSON. Unlike Load it fails when
// the backend cannot be read, so a download never passes an empty
// store off as the real history.
func (l *EventLog) Export() (string, error) {
	l.mu.Lock()
	raw, ok, err := l.storage.GetItem(l.key)
	l.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("read analytics: %w", err)
	}
	data, err := encodeJSON(l.decode(raw, ok), "  ")
	if err != nil {
		return "", fmt.Errorf("encode analytics: %w", err)
	}
	return data, nil
}

// ExportJSON is Export with failures logged and reported as "".
func (l *EventLog) ExportJSON() string {
	data, err := l.Export()
	if err != nil {
		l.logger.Error("Error exporting analytics", "key", l.key, "error", err)
		return ""
	}
	return data
}

func encodeJSON(v any, indent string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
