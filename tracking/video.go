package tracking

import (
	"math"
	"sync"
	"time"

	"spaceclouds/analytics/models"
)

// VideoElementID is the element id of the slide video on a display page.
const VideoElementID = "video-slide"

const unknownVideoError = "Unknown error"

// MediaState is the element snapshot sent along with a media signal.
type MediaState struct {
	// Duration is nil while the element does not know its length.
	Duration    *float64 `json:"duration"`
	VideoWidth  int      `json:"videoWidth"`
	VideoHeight int      `json:"videoHeight"`
	Error       string   `json:"error"`
}

func (m MediaState) duration() (float64, bool) {
	if m.Duration == nil || math.IsNaN(*m.Duration) || math.IsInf(*m.Duration, 0) {
		return 0, false
	}
	return *m.Duration, true
}

// Video playback states.
const (
	VideoIdle    = "idle"
	VideoPlaying = "playing"
)

// VideoTracker follows one video element. It is idle until play and
// returns to idle on pause; ended keeps it playing for the next loop.
type VideoTracker struct {
	log EventLogger

	mu        sync.Mutex
	loopCount int
	playStart time.Time
	playing   bool
}

func TrackVideo(log EventLogger) *VideoTracker {
	return &VideoTracker{log: log}
}

func (v *VideoTracker) State() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.playing {
		return VideoPlaying
	}
	return VideoIdle
}

func (v *VideoTracker) LoopCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loopCount
}

func (v *VideoTracker) OnPlay() {
	v.mu.Lock()
	v.playStart = v.log.Now()
	v.playing = true
	v.mu.Unlock()

	v.log.LogEvent(models.EventVideoPlay, map[string]any{})
}

// OnPause logs video_pause with the whole seconds played, but only
// while a play is being timed.
func (v *VideoTracker) OnPause() {
	v.mu.Lock()
	if !v.playing {
		v.mu.Unlock()
		return
	}
	played := elapsedSeconds(v.playStart, v.log.Now())
	v.playing = false
	v.playStart = time.Time{}
	v.mu.Unlock()

	v.log.LogEvent(models.EventVideoPause, map[string]any{"duration": played})
}

// OnEnded counts a completed loop and re-arms the play timer.
func (v *VideoTracker) OnEnded(state MediaState) {
	d, _ := state.duration()

	v.mu.Lock()
	v.loopCount++
	loop := v.loopCount
	v.mu.Unlock()

	v.log.LogEvent(models.EventVideoLoop, map[string]any{"loopCount": loop, "duration": d})

	v.mu.Lock()
	v.playStart = v.log.Now()
	v.playing = true
	v.mu.Unlock()
}

func (v *VideoTracker) OnError(state MediaState) {
	msg := state.Error
	if msg == "" {
		msg = unknownVideoError
	}
	v.log.LogEvent(models.EventVideoError, map[string]any{"error": msg})
}

// OnLoadedData logs the media metadata. An unknown duration is
// recorded as null.
func (v *VideoTracker) OnLoadedData(state MediaState) {
	var duration any
	if d, ok := state.duration(); ok {
		duration = d
	}
	v.log.LogEvent(models.EventVideoLoaded, map[string]any{
		"duration":    duration,
		"videoWidth":  state.VideoWidth,
		"videoHeight": state.VideoHeight,
	})
}
