package replay

import (
	"context"
	"sync"
	"time"
)

// DefaultFrameInterval approximates one display refresh.
const DefaultFrameInterval = time.Second / 60

// Loop is the single logical thread of a site. Input events and log
// notifications are posted as tasks; Tick runs every queued task and then at
// most one repaint, however many repaints were requested since the last
// tick.
type Loop struct {
	mu      sync.Mutex
	tasks   []func()
	pending bool
	full    bool

	render  func(full bool)
	onFrame func()
	wake    chan struct{}
}

func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// SetRenderer installs the repaint callback. It runs on the loop.
func (l *Loop) SetRenderer(fn func(full bool)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.render = fn
}

// OnFrame installs a callback run after every tick that did any work.
func (l *Loop) OnFrame(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onFrame = fn
}

// Post queues task for the next tick. Safe to call from any goroutine.
func (l *Loop) Post(task func()) {
	l.mu.Lock()
	l.tasks = append(l.tasks, task)
	l.mu.Unlock()
	l.signal()
}

// RequestRepaint schedules a repaint on the next tick. Requests coalesce; a
// single full request makes the coalesced repaint full.
func (l *Loop) RequestRepaint(full bool) {
	l.mu.Lock()
	l.pending = true
	l.full = l.full || full
	l.mu.Unlock()
	l.signal()
}

// Pending reports how many tasks are queued.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks)
}

// Tick runs queued tasks, including tasks they post, then the coalesced
// repaint. It reports whether anything ran.
func (l *Loop) Tick() bool {
	worked := false
	for {
		l.mu.Lock()
		batch := l.tasks
		l.tasks = nil
		l.mu.Unlock()
		if len(batch) == 0 {
			break
		}
		worked = true
		for _, task := range batch {
			task()
		}
	}

	l.mu.Lock()
	pending, full, render, onFrame := l.pending, l.full, l.render, l.onFrame
	l.pending, l.full = false, false
	l.mu.Unlock()

	if pending && render != nil {
		render(full)
		worked = true
	}
	if worked && onFrame != nil {
		onFrame()
	}
	return worked
}

// Run ticks every interval until ctx is done.
func (l *Loop) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.Tick()
		}
	}
}

// Wake is signalled whenever work is queued. Tests and headless drivers can
// use it instead of a ticker.
func (l *Loop) Wake() <-chan struct{} {
	return l.wake
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}
