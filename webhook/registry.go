// Package webhook serves webhook deliveries for one or more bots. Each bot
// token maps to the bot facade and the router its updates go to.
package webhook

import (
	"errors"
	"sort"
	"sync"

	"github.com/go-telegram/bot"

	"github.com/bjaus/tgroute"
)

var (
	// ErrEmptyToken is returned by Add for an empty token.
	ErrEmptyToken = errors.New("webhook: empty bot token")

	// ErrNilRouter is returned by Add without a router.
	ErrNilRouter = errors.New("webhook: nil router")
)

// Entry is what a registered token resolves to.
type Entry struct {
	Bot    *bot.Bot
	Router *tgroute.Router
}

// Registry maps bot tokens to their entries. It is safe for concurrent use
// and is shared by reference with the Server.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Add registers a bot under token, replacing any previous entry. It reports
// whether an entry was replaced.
func (r *Registry) Add(token string, b *bot.Bot, router *tgroute.Router) (bool, error) {
	if token == "" {
		return false, ErrEmptyToken
	}
	if router == nil {
		return false, ErrNilRouter
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, replaced := r.entries[token]
	r.entries[token] = Entry{Bot: b, Router: router}
	return replaced, nil
}

// Lookup returns the entry registered under token.
func (r *Registry) Lookup(token string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[token]
	return e, ok
}

// Remove drops token and reports whether it was registered.
func (r *Registry) Remove(token string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[token]
	delete(r.entries, token)
	return ok
}

// Len returns the number of registered bots.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Tokens returns the registered tokens, sorted.
func (r *Registry) Tokens() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.entries))
	for t := range r.entries {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
