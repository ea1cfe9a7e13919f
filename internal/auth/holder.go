// Package auth holds the bearer token shared by every view of the client.
package auth

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"golang.org/x/oauth2"

	"taskdash/internal/localstore"
)

// TokenKey is the storage key the token is persisted under.
const TokenKey = "token"

var (
	// ErrNotLoggedIn is returned by Token when no token is held.
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrEmptyToken is returned by Login for a blank token.
	ErrEmptyToken = errors.New("empty token")
)

// Storage is the persistent key/value store backing the holder.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Watch(ctx context.Context, key string, fn func(localstore.Change)) (func(), error)
}

// Holder mirrors the persisted token in memory and keeps it in sync with
// changes other processes make to storage. It is created once per process
// and passed to whatever needs the token; there is no package-level state.
type Holder struct {
	store  Storage
	logger log.Logger

	// writeMu orders storage writes with the in-memory update so a late
	// storage notification cannot resurrect an older value.
	writeMu sync.Mutex

	mu     sync.RWMutex
	token  string
	subs   map[int]func(string)
	nextID int

	stopWatch func()
}

var _ oauth2.TokenSource = (*Holder)(nil)

// New loads the persisted token and subscribes to storage changes for it.
// Call Close to unsubscribe.
func New(ctx context.Context, store Storage, logger log.Logger) (*Holder, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	tok, _, err := store.Get(ctx, TokenKey)
	if err != nil {
		return nil, err
	}

	h := &Holder{
		store:  store,
		logger: logger,
		token:  tok,
		subs:   make(map[int]func(string)),
	}

	stop, err := store.Watch(ctx, TokenKey, func(localstore.Change) {
		h.writeMu.Lock()
		defer h.writeMu.Unlock()
		// Re-read: the change may already be superseded.
		tok, _, err := h.store.Get(context.Background(), TokenKey)
		if err != nil {
			level.Warn(h.logger).Log("msg", "reading token after storage change", "err", err)
			return
		}
		level.Debug(h.logger).Log("msg", "token changed in storage", "logged_in", tok != "")
		h.set(tok)
	})
	if err != nil {
		return nil, err
	}
	h.stopWatch = stop
	return h, nil
}

// Current returns the token, or "" when logged out.
func (h *Holder) Current() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

// LoggedIn reports whether a token is held.
func (h *Holder) LoggedIn() bool {
	return h.Current() != ""
}

// Token implements oauth2.TokenSource so HTTP clients always send the
// current token.
func (h *Holder) Token() (*oauth2.Token, error) {
	tok := h.Current()
	if tok == "" {
		return nil, ErrNotLoggedIn
	}
	return &oauth2.Token{AccessToken: tok, TokenType: "Bearer"}, nil
}

// Login stores token in storage and memory.
func (h *Holder) Login(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	if err := h.store.Set(ctx, TokenKey, token); err != nil {
		return err
	}
	h.set(token)
	return nil
}

// Logout clears the token from storage and memory.
func (h *Holder) Logout(ctx context.Context) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	if err := h.store.Remove(ctx, TokenKey); err != nil {
		return err
	}
	h.set("")
	return nil
}

// Subscribe registers fn to be called with the new token whenever it
// changes. The returned func unsubscribes. fn must not call Login or
// Logout.
func (h *Holder) Subscribe(fn func(token string)) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Close stops following storage changes.
func (h *Holder) Close() {
	if h.stopWatch != nil {
		h.stopWatch()
	}
}

func (h *Holder) set(token string) {
	h.mu.Lock()
	if h.token == token {
		h.mu.Unlock()
		return
	}
	h.token = token
	subs := make([]func(string), 0, len(h.subs))
	for _, fn := range h.subs {
		subs = append(subs, fn)
	}
	h.mu.Unlock()

	for _, fn := range subs {
		fn(token)
	}
}
