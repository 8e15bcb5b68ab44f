package state

import (
	"slices"
	"sync"
)

// Log is the shared ordered log of StrokeCommands as seen from one site.
//
// Entries are only ever appended at the tail or removed all at once by
// Truncate. Mutations are fire-and-forget: on a replicated log they may
// become visible later, in the order the log converges to.
type Log interface {
	// SiteID is the author identity of this site for the session.
	SiteID() string
	Append(cmds ...StrokeCommand)
	Truncate()
	Len() int
	// Get returns the entry at index i. Entries are stable once observed.
	Get(i int) (StrokeCommand, bool)
	// OnChange registers fn to be called with the new length whenever the
	// length changes, for local or remote reasons.
	OnChange(fn func(n int)) (cancel func())
}

// MemoryLog is an in-process ordered log shared by any number of site views.
// Notifications are delivered synchronously, in mutation order; subscribers
// must not mutate the log from inside a callback.
type MemoryLog struct {
	notifyMu sync.Mutex // held across mutate+notify so callbacks see changes in order

	mu      sync.RWMutex
	entries []StrokeCommand
	epoch   uint64
	subs    map[int]func(int)
	nextSub int
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{subs: make(map[int]func(int))}
}

// Site returns a view of the log that appends as the given author.
func (l *MemoryLog) Site(id string) Log {
	return &siteLog{MemoryLog: l, id: id}
}

func (l *MemoryLog) Append(cmds ...StrokeCommand) {
	if len(cmds) == 0 {
		return
	}
	l.notifyMu.Lock()
	defer l.notifyMu.Unlock()

	l.mu.Lock()
	for _, c := range cmds {
		c.Points = slices.Clone(c.Points)
		l.entries = append(l.entries, c)
	}
	n := len(l.entries)
	subs := l.subscribers()
	l.mu.Unlock()

	notify(subs, n)
}

func (l *MemoryLog) Truncate() {
	l.notifyMu.Lock()
	defer l.notifyMu.Unlock()

	l.mu.Lock()
	if len(l.entries) == 0 {
		l.mu.Unlock()
		return
	}
	l.entries = nil
	l.epoch++
	subs := l.subscribers()
	l.mu.Unlock()

	notify(subs, 0)
}

func (l *MemoryLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

func (l *MemoryLog) Get(i int) (StrokeCommand, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i < 0 || i >= len(l.entries) {
		return StrokeCommand{}, false
	}
	return l.entries[i], true
}

func (l *MemoryLog) OnChange(fn func(n int)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextSub
	l.nextSub++
	l.subs[id] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.subs, id)
	}
}

// Snapshot returns the current entries together with the truncation epoch.
// The epoch increases on every truncate, so a relay can tell a log that was
// cleared and refilled from one that only grew.
func (l *MemoryLog) Snapshot() (uint64, []StrokeCommand) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.epoch, slices.Clone(l.entries)
}

// subscribers must be called with mu held.
func (l *MemoryLog) subscribers() []func(int) {
	subs := make([]func(int), 0, len(l.subs))
	keys := make([]int, 0, len(l.subs))
	for k := range l.subs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		subs = append(subs, l.subs[k])
	}
	return subs
}

func notify(subs []func(int), n int) {
	for _, fn := range subs {
		fn(n)
	}
}

// Entries copies the current contents of log in order.
func Entries(log Log) []StrokeCommand {
	n := log.Len()
	out := make([]StrokeCommand, 0, n)
	for i := range n {
		c, ok := log.Get(i)
		if !ok {
			break
		}
		out = append(out, c)
	}
	return out
}

type siteLog struct {
	*MemoryLog
	id string
}

func (s *siteLog) SiteID() string { return s.id }

// WithSite returns log with its author identity replaced by id. Used to run a
// second, synthetic author against the same log.
func WithSite(log Log, id string) Log {
	return &aliasLog{Log: log, id: id}
}

type aliasLog struct {
	Log
	id string
}

func (a *aliasLog) SiteID() string { return a.id }
