package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"bilancio/internal/cache"
	"bilancio/internal/core"
)

// ErrSuperseded is returned by a session read whose result arrived after a
// newer request was issued on the same session.
var ErrSuperseded = errors.New("superseded by a newer request")

// Session is one client's view state: the current params, the last view
// derived for them, the last error message and whether a request is pending.
// The most recently issued read wins; results of older reads are dropped.
type Session struct {
	svc *TransactionService

	mu      sync.Mutex
	params  core.Params
	view    *View
	lastErr string
	gen     uint64
	pending int
}

// SessionState is a point-in-time copy of a session.
type SessionState struct {
	Params core.Params
	View   *View
	Error  string
	Busy   bool
}

func NewSession(svc *TransactionService) *Session {
	return &Session{svc: svc, params: core.DefaultParams()}
}

func (s *Session) Params() core.Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionState{
		Params: s.params,
		View:   s.view,
		Error:  s.lastErr,
		Busy:   s.pending > 0,
	}
}

// Apply makes p the current params and loads its view. Reads leave the
// last mutation error in place.
func (s *Session) Apply(ctx context.Context, p core.Params) (View, error) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.params = p
	s.pending++
	s.mu.Unlock()

	v, err := s.svc.Query(ctx, p)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending--
	if gen != s.gen {
		return View{}, ErrSuperseded
	}
	if err != nil {
		return View{}, err
	}
	s.params = v.Params
	s.view = &v
	return v, nil
}

// Update derives new params from the current ones and applies them.
func (s *Session) Update(ctx context.Context, change func(core.Params) core.Params) (View, error) {
	return s.Apply(ctx, change(s.Params()))
}

// Refresh reloads the view for the current params.
func (s *Session) Refresh(ctx context.Context) (View, error) {
	return s.Apply(ctx, s.Params())
}

// Create stores a transaction and reloads the current view. A failed reload
// is recorded in the session but does not undo the create.
func (s *Session) Create(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	s.begin()
	tx, err := s.svc.Create(ctx, in)
	s.end(err)
	if err != nil {
		return core.Transaction{}, err
	}
	s.refreshAfterMutation(ctx)
	return tx, nil
}

// Delete removes a transaction and reloads the current view.
func (s *Session) Delete(ctx context.Context, id string) error {
	s.begin()
	err := s.svc.Delete(ctx, id)
	s.end(err)
	if err != nil {
		return err
	}
	s.refreshAfterMutation(ctx)
	return nil
}

// Fail records err as the session's last mutation error. Used for requests
// rejected before they reach Create or Delete.
func (s *Session) Fail(err error) {
	s.mu.Lock()
	s.lastErr = Message(err)
	s.mu.Unlock()
}

func (s *Session) begin() {
	s.mu.Lock()
	s.lastErr = ""
	s.pending++
	s.mu.Unlock()
}

func (s *Session) end(err error) {
	s.mu.Lock()
	s.pending--
	if err != nil {
		s.lastErr = Message(err)
	}
	s.mu.Unlock()
}

func (s *Session) refreshAfterMutation(ctx context.Context) {
	if _, err := s.Refresh(ctx); err != nil && !errors.Is(err, ErrSuperseded) {
		s.svc.logger.WarnContext(ctx, "View reload after mutation failed", "error", err.Error())
	}
}

// Sessions keeps one Session per client id in an expiring cache. Every
// lookup extends the session's lifetime.
type Sessions struct {
	svc   *TransactionService
	cache cache.Cache[*Session]
	mu    sync.Mutex
}

func NewSessions(svc *TransactionService, c cache.Cache[*Session]) *Sessions {
	if c == nil {
		c = cache.NewLRUCache[*Session](1000, 30*time.Minute)
	}
	return &Sessions{svc: svc, cache: c}
}

// Get returns the session for id, creating it under a fresh id when id is
// empty or unknown. The returned id is the one to hand back to the client.
func (r *Sessions) Get(id string) (string, *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id != "" {
		if s, ok := r.cache.Get(id); ok {
			r.cache.Set(id, s)
			return id, s
		}
	}
	id = uuid.NewString()
	s := NewSession(r.svc)
	r.cache.Set(id, s)
	return id, s
}

// Len returns the number of live sessions.
func (r *Sessions) Len() int {
	return r.cache.Size()
}
