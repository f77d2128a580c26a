package tracking

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spaceclouds/analytics/models"
	"spaceclouds/analytics/store"
)

type loggedEvent struct {
	Type  string
	Extra map[string]any
}

type fakeLog struct {
	mu     sync.Mutex
	now    time.Time
	events []loggedEvent
}

func newFakeLog() *fakeLog {
	return &fakeLog{now: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
}

func (f *fakeLog) LogEvent(eventType string, extra map[string]any) models.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, loggedEvent{Type: eventType, Extra: extra})
	return models.Event{Type: eventType}
}

func (f *fakeLog) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeLog) Random() float64 { return 0.5 }

func (f *fakeLog) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (f *fakeLog) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.Type
	}
	return out
}

func (f *fakeLog) last() loggedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events[len(f.events)-1]
}

func (f *fakeLog) count(eventType string) int {
	n := 0
	for _, t := range f.types() {
		if t == eventType {
			n++
		}
	}
	return n
}

func float(v float64) *float64 { return &v }

func TestSessionLifecycle(t *testing.T) {
	log := newFakeLog()
	s := StartSession(log)

	assert.Regexp(t, regexp.MustCompile(`^session_1714550400000_[0-9a-z]{1,9}$`), s.ID)
	assert.Equal(t, loggedEvent{Type: models.EventSessionStart, Extra: map[string]any{"sessionId": s.ID}}, log.last())

	s.VisibilityChanged(true)
	assert.Equal(t, models.EventSessionPause, log.last().Type)
	s.VisibilityChanged(false)
	assert.Equal(t, models.EventSessionResume, log.last().Type)
	s.VisibilityChanged(false)
	assert.Equal(t, models.EventSessionResume, log.last().Type)

	log.advance(90*time.Second + 700*time.Millisecond)
	s.Unload()
	s.Unload()

	assert.Equal(t, 1, log.count(models.EventSessionEnd))
	assert.Equal(t, map[string]any{"sessionId": s.ID, "duration": int64(90)}, log.last().Extra)
}

func TestVideoPlayPause(t *testing.T) {
	log := newFakeLog()
	v := TrackVideo(log)
	assert.Equal(t, VideoIdle, v.State())

	v.OnPause()
	assert.Empty(t, log.types(), "pause before play records nothing")

	v.OnPlay()
	assert.Equal(t, VideoPlaying, v.State())
	assert.Equal(t, models.EventVideoPlay, log.last().Type)

	log.advance(42*time.Second + 900*time.Millisecond)
	v.OnPause()
	assert.Equal(t, VideoIdle, v.State())
	assert.Equal(t, loggedEvent{Type: models.EventVideoPause, Extra: map[string]any{"duration": int64(42)}}, log.last())

	v.OnPause()
	assert.Equal(t, 1, log.count(models.EventVideoPause))
}

func TestVideoLoopRearmsTimer(t *testing.T) {
	log := newFakeLog()
	v := TrackVideo(log)

	v.OnEnded(MediaState{Duration: float(30)})
	assert.Equal(t, loggedEvent{Type: models.EventVideoLoop, Extra: map[string]any{"loopCount": 1, "duration": 30.0}}, log.last())
	assert.Equal(t, VideoPlaying, v.State())

	v.OnEnded(MediaState{})
	assert.Equal(t, map[string]any{"loopCount": 2, "duration": 0.0}, log.last().Extra)
	assert.Equal(t, 2, v.LoopCount())

	log.advance(5 * time.Second)
	v.OnPause()
	assert.Equal(t, map[string]any{"duration": int64(5)}, log.last().Extra)
}

func TestVideoErrorAndLoaded(t *testing.T) {
	log := newFakeLog()
	v := TrackVideo(log)

	v.OnError(MediaState{Error: "MEDIA_ERR_DECODE"})
	assert.Equal(t, map[string]any{"error": "MEDIA_ERR_DECODE"}, log.last().Extra)
	v.OnError(MediaState{})
	assert.Equal(t, map[string]any{"error": "Unknown error"}, log.last().Extra)

	v.OnLoadedData(MediaState{Duration: float(31.5), VideoWidth: 1920, VideoHeight: 1080})
	assert.Equal(t, map[string]any{"duration": 31.5, "videoWidth": 1920, "videoHeight": 1080}, log.last().Extra)
	v.OnLoadedData(MediaState{})
	assert.Nil(t, log.last().Extra["duration"])
}

func TestPageInitAndHeartbeat(t *testing.T) {
	log := newFakeLog()
	p := NewPage("/c.html", log, 5*time.Millisecond)
	p.Init(context.Background(), true)

	assert.Equal(t, []string{models.EventPageView, models.EventSessionStart}, log.types()[:2])
	require.NotNil(t, p.Video())
	require.NotNil(t, p.Session())

	assert.Eventually(t, func() bool { return log.count(models.EventHeartbeat) >= 2 }, time.Second, time.Millisecond)

	p.FullscreenChanged(true)
	assert.Equal(t, 1, log.count(models.EventFullscreenChange))

	p.Unload()
	beats := log.count(models.EventHeartbeat)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, beats, log.count(models.EventHeartbeat), "heartbeat must stop on unload")
	assert.Equal(t, models.EventSessionEnd, log.last().Type)
}

func TestPageWithoutVideo(t *testing.T) {
	p := NewPage("/l.html", newFakeLog(), time.Hour)
	p.Init(context.Background(), false)
	defer p.Unload()
	assert.Nil(t, p.Video())
}

func TestPageHeartbeatStopsWithContext(t *testing.T) {
	log := newFakeLog()
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPage("/r.html", log, time.Millisecond)
	p.Init(ctx, false)
	cancel()
	p.stop()

	beats := log.count(models.EventHeartbeat)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, beats, log.count(models.EventHeartbeat))
}

func TestRegistryRoutesSignals(t *testing.T) {
	logs := map[string]*fakeLog{}
	var mu sync.Mutex
	r := NewRegistry(context.Background(), func(path string) EventLogger {
		mu.Lock()
		defer mu.Unlock()
		logs[path] = newFakeLog()
		return logs[path]
	}, time.Hour)

	err := r.Handle(Signal{Path: "/l.html", Name: SignalPlay})
	assert.ErrorIs(t, err, ErrPageNotReady)

	require.NoError(t, r.Handle(Signal{Path: "/l.html", Name: SignalReady, HasVideo: true}))
	require.NoError(t, r.Handle(Signal{Path: "/c.html", Name: SignalReady}))
	assert.Equal(t, 2, r.Len())

	left := logs["/l.html"]
	require.NoError(t, r.Handle(Signal{Path: "/l.html", Name: SignalPlay}))
	require.NoError(t, r.Handle(Signal{Path: "/l.html", Name: SignalEnded, Media: MediaState{Duration: float(12.5)}}))
	require.NoError(t, r.Handle(Signal{Path: "/l.html", Name: SignalLoadedData}))
	require.NoError(t, r.Handle(Signal{Path: "/l.html", Name: SignalError}))
	require.NoError(t, r.Handle(Signal{Path: "/l.html", Name: SignalPause}))
	require.NoError(t, r.Handle(Signal{Path: "/l.html", Name: SignalVisibilityChange, Hidden: true}))
	require.NoError(t, r.Handle(Signal{Path: "/l.html", Name: SignalFullscreenChange, IsFullscreen: true}))
	assert.Equal(t, []string{
		models.EventPageView, models.EventSessionStart,
		models.EventVideoPlay, models.EventVideoLoop, models.EventVideoLoaded, models.EventVideoError,
		models.EventVideoPause, models.EventSessionPause, models.EventFullscreenChange,
	}, left.types())

	err = r.Handle(Signal{Path: "/c.html", Name: SignalPlay})
	assert.ErrorIs(t, err, ErrNoVideo)
	err = r.Handle(Signal{Path: "/c.html", Name: "scroll"})
	assert.ErrorIs(t, err, ErrUnknownSignal)

	require.NoError(t, r.Handle(Signal{Path: "/l.html", Name: SignalBeforeUnload}))
	assert.Equal(t, models.EventSessionEnd, left.last().Type)

	r.Shutdown()
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, models.EventSessionEnd, logs["/c.html"].last().Type)
}

func TestRegistryRoutesSignalsAfterUnload(t *testing.T) {
	log := newFakeLog()
	r := NewRegistry(context.Background(), func(string) EventLogger { return log }, time.Millisecond)
	defer r.Shutdown()

	require.NoError(t, r.Handle(Signal{Path: "/l.html", Name: SignalReady, HasVideo: true}))
	require.NoError(t, r.Handle(Signal{Path: "/l.html", Name: SignalBeforeUnload}))
	_, open := r.Page("/l.html")
	assert.True(t, open)

	beats := log.count(models.EventHeartbeat)
	require.NoError(t, r.Handle(Signal{Path: "/l.html", Name: SignalVisibilityChange, Hidden: true}))
	assert.Equal(t, models.EventSessionPause, log.last().Type)

	// unload was cancelled; the listeners keep recording
	require.NoError(t, r.Handle(Signal{Path: "/l.html", Name: SignalVisibilityChange}))
	require.NoError(t, r.Handle(Signal{Path: "/l.html", Name: SignalFullscreenChange, IsFullscreen: true}))
	require.NoError(t, r.Handle(Signal{Path: "/l.html", Name: SignalPlay}))
	require.NoError(t, r.Handle(Signal{Path: "/l.html", Name: SignalBeforeUnload}))

	types := log.types()
	assert.Equal(t, []string{
		models.EventSessionEnd, models.EventSessionPause, models.EventSessionResume,
		models.EventFullscreenChange, models.EventVideoPlay,
	}, types[len(types)-5:])
	assert.Equal(t, 1, log.count(models.EventSessionEnd), "session ends once")

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, beats, log.count(models.EventHeartbeat), "heartbeat stays stopped")

	require.NoError(t, r.Handle(Signal{Path: "/l.html", Name: SignalReady}))
	assert.Equal(t, 2, log.count(models.EventSessionStart))
	assert.Equal(t, 1, r.Len())
}

func TestRegistryReadyReplacesPage(t *testing.T) {
	log := newFakeLog()
	r := NewRegistry(context.Background(), func(string) EventLogger { return log }, time.Hour)

	require.NoError(t, r.Handle(Signal{Path: "/r.html", Name: SignalReady}))
	first, _ := r.Page("/r.html")
	require.NoError(t, r.Handle(Signal{Path: "/r.html", Name: SignalReady}))
	second, _ := r.Page("/r.html")

	assert.NotSame(t, first, second)
	assert.Equal(t, 2, log.count(models.EventPageView))
	assert.Equal(t, 0, log.count(models.EventSessionEnd))
	r.Shutdown()
}

func TestSignalsThroughEventLog(t *testing.T) {
	eventLog := store.NewEventLog(store.NewMemoryStorage(0), store.Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	r := NewRegistry(context.Background(), func(path string) EventLogger { return eventLog.ForLocation(path) }, time.Hour)
	defer r.Shutdown()

	require.NoError(t, r.Handle(Signal{Path: "/display/l.html", Name: SignalReady, HasVideo: true}))
	require.NoError(t, r.Handle(Signal{Path: "/display/l.html", Name: SignalPlay}))
	require.NoError(t, r.Handle(Signal{Path: "/display/l.html", Name: SignalEnded, Media: MediaState{Duration: float(30)}}))

	s := eventLog.Load()
	assert.Equal(t, models.ScreenTotals{Views: 1, VideoPlays: 1, TotalDuration: 30}, *s.Totals[models.ScreenLeft])
	require.Len(t, s.Events, 4)
	assert.Equal(t, 1.0, s.Events[3].Fields["loopCount"])
	assert.Contains(t, s.Events[1].Fields["sessionId"], "session_")
}
