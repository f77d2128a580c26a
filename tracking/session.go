// Package tracking turns page lifecycle and media signals of a display
// page into analytics events.
//
// Every handler maps one raw signal to at most one LogEvent call; there
// is no debouncing or coalescing.
package tracking

import (
	"sync"
	"time"

	"spaceclouds/analytics/models"
	"spaceclouds/analytics/utils"
)

// EventLogger is the part of store.EventLog the trackers need.
type EventLogger interface {
	LogEvent(eventType string, extra map[string]any) models.Event
	Now() time.Time
	Random() float64
}

// Session tracks one page session from load to unload.
type Session struct {
	ID string

	log     EventLogger
	started time.Time
	endOnce sync.Once
}

// StartSession logs session_start and returns the running session.
func StartSession(log EventLogger) *Session {
	now := log.Now()
	s := &Session{
		ID:      utils.GenerateSessionID(now, log.Random()),
		log:     log,
		started: now,
	}
	log.LogEvent(models.EventSessionStart, map[string]any{"sessionId": s.ID})
	return s
}

// Unload logs session_end with the elapsed whole seconds. Only the first
// call records anything.
func (s *Session) Unload() {
	s.endOnce.Do(func() {
		s.log.LogEvent(models.EventSessionEnd, map[string]any{
			"sessionId": s.ID,
			"duration":  elapsedSeconds(s.started, s.log.Now()),
		})
	})
}

// VisibilityChanged logs session_pause when the page is hidden and
// session_resume when it is shown again.
func (s *Session) VisibilityChanged(hidden bool) {
	eventType := models.EventSessionResume
	if hidden {
		eventType = models.EventSessionPause
	}
	s.log.LogEvent(eventType, map[string]any{"sessionId": s.ID})
}

func elapsedSeconds(from, to time.Time) int64 {
	return int64(to.Sub(from) / time.Second)
}
