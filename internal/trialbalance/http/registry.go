package http

import (
	"context"
	"sync"
	"time"

	"github.com/odyssey-erp/tbview/internal/credentials"
	"github.com/odyssey-erp/tbview/internal/trialbalance"
)

// PageFactory builds an unmounted page fetching with creds.
type PageFactory func(creds credentials.Provider) *trialbalance.Page

// Registry keeps one mounted trial balance page per browser session.
type Registry struct {
	ctx      context.Context
	newPage  PageFactory
	onChange func(int)
	now      func() time.Time

	mu    sync.Mutex
	pages map[string]*registryEntry
}

type registryEntry struct {
	page     *trialbalance.Page
	lastSeen time.Time
}

// NewRegistry creates a registry whose pages fetch under ctx. onChange, when
// set, is told the number of mounted pages after every change.
func NewRegistry(ctx context.Context, newPage PageFactory, onChange func(int)) *Registry {
	return &Registry{
		ctx:      ctx,
		newPage:  newPage,
		onChange: onChange,
		now:      time.Now,
		pages:    make(map[string]*registryEntry),
	}
}

// Acquire returns the page mounted for key, mounting a new one on first display.
func (r *Registry) Acquire(key string, creds credentials.Provider) *trialbalance.Page {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.pages[key]; ok {
		entry.lastSeen = r.now()
		return entry.page
	}
	return r.mountLocked(key, creds)
}

// Lookup returns the page mounted for key without mounting one.
func (r *Registry) Lookup(key string) (*trialbalance.Page, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.pages[key]
	if !ok {
		return nil, false
	}
	entry.lastSeen = r.now()
	return entry.page, true
}

// Remount discards the page for key and mounts a fresh one.
func (r *Registry) Remount(key string, creds credentials.Provider) *trialbalance.Page {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.pages[key]; ok {
		entry.page.Unmount()
		delete(r.pages, key)
	}
	return r.mountLocked(key, creds)
}

// Sweep unmounts pages not seen for longer than maxIdle and returns how many
// were removed.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-maxIdle)
	removed := 0
	for key, entry := range r.pages {
		if entry.lastSeen.Before(cutoff) {
			entry.page.Unmount()
			delete(r.pages, key)
			removed++
		}
	}
	if removed > 0 {
		r.notifyLocked()
	}
	return removed
}

// Close unmounts every page.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, entry := range r.pages {
		entry.page.Unmount()
		delete(r.pages, key)
	}
	r.notifyLocked()
}

// Len reports the number of mounted pages.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pages)
}

func (r *Registry) mountLocked(key string, creds credentials.Provider) *trialbalance.Page {
	page := r.newPage(creds)
	page.Mount(r.ctx)
	r.pages[key] = &registryEntry{page: page, lastSeen: r.now()}
	r.notifyLocked()
	return page
}

func (r *Registry) notifyLocked() {
	if r.onChange != nil {
		r.onChange(len(r.pages))
	}
}
