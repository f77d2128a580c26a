package tracking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrUnknownSignal is returned for a signal name no tracker handles.
	ErrUnknownSignal = errors.New("unknown signal")
	// ErrPageNotReady is returned for a signal on a page that never sent ready.
	ErrPageNotReady = errors.New("page is not ready")
	// ErrNoVideo is returned for a media signal on a page without a video.
	ErrNoVideo = errors.New("page has no video element")
)

// Signal names forwarded by a display page.
const (
	SignalReady            = "ready"
	SignalBeforeUnload     = "beforeunload"
	SignalVisibilityChange = "visibilitychange"
	SignalFullscreenChange = "fullscreenchange"
	SignalPlay             = "play"
	SignalPause            = "pause"
	SignalEnded            = "ended"
	SignalError            = "error"
	SignalLoadedData       = "loadeddata"
)

// Signal is one raw DOM or media event of a page.
type Signal struct {
	Path         string     `json:"path" binding:"required"`
	Name         string     `json:"signal" binding:"required"`
	Hidden       bool       `json:"hidden"`
	IsFullscreen bool       `json:"isFullscreen"`
	HasVideo     bool       `json:"hasVideo"`
	Media        MediaState `json:"media"`
}

// Registry keeps the open pages by path and routes signals to them.
type Registry struct {
	ctx       context.Context
	newLog    func(path string) EventLogger
	heartbeat time.Duration

	mu    sync.Mutex
	pages map[string]*Page
}

// NewRegistry builds pages whose events go to newLog(path). Heartbeats
// of its pages stop when ctx is done.
func NewRegistry(ctx context.Context, newLog func(path string) EventLogger, heartbeat time.Duration) *Registry {
	return &Registry{ctx: ctx, newLog: newLog, heartbeat: heartbeat, pages: make(map[string]*Page)}
}

// Page returns the open page at path.
func (r *Registry) Page(path string) (*Page, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pages[path]
	return p, ok
}

// Len reports the number of open pages.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pages)
}

// Handle routes sig to its page. A ready signal opens the page; opening
// a path that is already open replaces the old page after stopping its
// heartbeat. Pages stay routable after beforeunload until the next ready
// for their path or Shutdown.
func (r *Registry) Handle(sig Signal) error {
	if sig.Name == SignalReady {
		page := NewPage(sig.Path, r.newLog(sig.Path), r.heartbeat)
		page.Init(r.ctx, sig.HasVideo)
		r.mu.Lock()
		old := r.pages[sig.Path]
		r.pages[sig.Path] = page
		r.mu.Unlock()
		if old != nil {
			old.stop()
		}
		return nil
	}

	page, ok := r.Page(sig.Path)
	if !ok {
		return fmt.Errorf("%s on %q: %w", sig.Name, sig.Path, ErrPageNotReady)
	}

	switch sig.Name {
	case SignalBeforeUnload:
		// the page stays registered: an unload may be cancelled and a
		// hidden visibilitychange still follows a real one
		page.Unload()
		return nil
	case SignalVisibilityChange:
		page.Session().VisibilityChanged(sig.Hidden)
		return nil
	case SignalFullscreenChange:
		page.FullscreenChanged(sig.IsFullscreen)
		return nil
	case SignalPlay, SignalPause, SignalEnded, SignalError, SignalLoadedData:
		return handleMedia(page, sig)
	default:
		return fmt.Errorf("%q: %w", sig.Name, ErrUnknownSignal)
	}
}

func handleMedia(page *Page, sig Signal) error {
	video := page.Video()
	if video == nil {
		return fmt.Errorf("%s on %q: %w", sig.Name, sig.Path, ErrNoVideo)
	}
	switch sig.Name {
	case SignalPlay:
		video.OnPlay()
	case SignalPause:
		video.OnPause()
	case SignalEnded:
		video.OnEnded(sig.Media)
	case SignalError:
		video.OnError(sig.Media)
	case SignalLoadedData:
		video.OnLoadedData(sig.Media)
	}
	return nil
}

// Shutdown unloads every open page.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	pages := make([]*Page, 0, len(r.pages))
	for path, p := range r.pages {
		pages = append(pages, p)
		delete(r.pages, path)
	}
	r.mu.Unlock()

	for _, p := range pages {
		p.Unload()
	}
}
