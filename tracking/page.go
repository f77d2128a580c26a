package tracking

import (
	"context"
	"sync"
	"time"

	"spaceclouds/analytics/models"
)

// DefaultHeartbeatInterval is how often an open page logs a heartbeat.
const DefaultHeartbeatInterval = 5 * time.Minute

// Page is one open display page and the trackers attached to it.
type Page struct {
	Path string

	log       EventLogger
	heartbeat time.Duration

	mu      sync.Mutex
	session *Session
	video   *VideoTracker
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewPage(path string, log EventLogger, heartbeat time.Duration) *Page {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeatInterval
	}
	return &Page{Path: path, log: log, heartbeat: heartbeat}
}

// Init runs once the page is ready: page_view, a new session, video
// tracking when the page has a video element and the heartbeat, which
// runs until Unload or until ctx is done.
func (p *Page) Init(ctx context.Context, hasVideo bool) {
	p.log.LogEvent(models.EventPageView, nil)
	session := StartSession(p.log)

	var video *VideoTracker
	if hasVideo {
		video = TrackVideo(p.log)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	p.mu.Lock()
	p.session = session
	p.video = video
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	go p.runHeartbeat(ctx, done)
}

func (p *Page) runHeartbeat(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.log.LogEvent(models.EventHeartbeat, map[string]any{})
		}
	}
}

func (p *Page) Session() *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

// Video returns the video tracker, or nil when the page has no video.
func (p *Page) Video() *VideoTracker {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.video
}

func (p *Page) FullscreenChanged(isFullscreen bool) {
	p.log.LogEvent(models.EventFullscreenChange, map[string]any{"isFullscreen": isFullscreen})
}

// Unload stops the heartbeat and ends the session.
func (p *Page) Unload() {
	p.stop()
	if s := p.Session(); s != nil {
		s.Unload()
	}
}

// stop halts the heartbeat and waits for it to exit.
func (p *Page) stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}
