// Package authstate keeps a consumer-side view of the Auth Context for one session and
// re-resolves it when the session changes or on demand.
package authstate

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	domainauth "github.com/clanhall/gatekeeper/internal/domain/auth"
	"github.com/clanhall/gatekeeper/internal/portalclient"
)

const defaultLoadTimeout = 10 * time.Second

// Source resolves the Auth Context for a session token. *portalclient.Client satisfies it.
type Source interface {
	Status(ctx context.Context, token string) (portalclient.StatusResponse, error)
	RefreshRoles(ctx context.Context, token string) (domainauth.RankAssignment, error)
}

var _ Source = (*portalclient.Client)(nil)

// Snapshot is the state delivered to subscribers.
type Snapshot struct {
	State             domainauth.AuthState
	Profile           *domainauth.ProfileSummary
	DaysUntilNextRank int
	Loading           bool
	Err               error
}

// Options configures a Tracker.
type Options struct {
	Logger      *slog.Logger
	LoadTimeout time.Duration
}

// Tracker holds the current session token and its resolved state. It is safe for concurrent use.
type Tracker struct {
	src     Source
	logger  *slog.Logger
	timeout time.Duration

	group singleflight.Group

	mu    sync.Mutex
	token string
	gen   uint64
	// epoch advances after each server-side rank write; loads started before it are stale.
	epoch   uint64
	snap    Snapshot
	subs    map[int]func(Snapshot)
	nextSub int
}

// NewTracker creates a Tracker with no session.
func NewTracker(src Source, opts Options) *Tracker {
	t := &Tracker{
		src:     src,
		logger:  opts.Logger,
		timeout: opts.LoadTimeout,
		subs:    map[int]func(Snapshot){},
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	if t.timeout <= 0 {
		t.timeout = defaultLoadTimeout
	}
	return t
}

// State returns the latest snapshot.
func (t *Tracker) State() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap
}

// Subscribe registers fn for every new snapshot and returns a function that removes it.
// fn runs without the tracker lock held and may call back into the Tracker.
func (t *Tracker) Subscribe(fn func(Snapshot)) func() {
	t.mu.Lock()
	id := t.nextSub
	t.nextSub++
	t.subs[id] = fn
	t.mu.Unlock()
	return func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
	}
}

// OnSessionChange records a new session token ("" when signed out). The profile is loaded on a
// separate goroutine, never inside this call; the returned channel closes when that load finishes.
// Loads started for an older token are discarded.
func (t *Tracker) OnSessionChange(token string) <-chan struct{} {
	t.mu.Lock()
	t.gen++
	gen := t.gen
	t.token = token
	snap := Snapshot{Loading: token != ""}
	snap.State.IsAuthenticated = token != ""
	t.snap = snap
	subs := t.subscribersLocked()
	t.mu.Unlock()

	notify(subs, snap)

	done := make(chan struct{})
	if token == "" {
		close(done)
		return done
	}
	go func() {
		defer close(done)
		_, _ = t.load(context.Background(), gen, token)
	}()
	return done
}

// Reload re-reads the Auth Context for the current session.
func (t *Tracker) Reload(ctx context.Context) (Snapshot, error) {
	token, gen := t.current()
	if token == "" {
		return t.State(), domainauth.ErrSessionNotFound
	}
	return t.load(ctx, gen, token)
}

// Refresh asks the server to re-derive the rank from live Discord roles, then reloads.
// A no_role or not_member rejection clears access immediately.
func (t *Tracker) Refresh(ctx context.Context) (Snapshot, error) {
	token, gen := t.current()
	if token == "" {
		return t.State(), domainauth.ErrSessionNotFound
	}

	_, err := t.src.RefreshRoles(ctx, token)
	if err == nil || portalclient.IsRejection(err) {
		t.mu.Lock()
		t.epoch++
		t.mu.Unlock()
	}
	if err != nil {
		switch {
		case portalclient.IsRejection(err):
			t.apply(gen, func(s *Snapshot) {
				s.State.HasAccess = false
				s.State.IsAdmin = false
				s.State.Rank = domainauth.RankNone
				s.Err = err
			})
		case errors.Is(err, domainauth.ErrSessionNotFound):
			t.apply(gen, func(s *Snapshot) { *s = Snapshot{Err: err} })
		default:
			t.logger.WarnContext(ctx, "refresh roles failed", "error", err)
		}
		return t.State(), err
	}
	return t.load(ctx, gen, token)
}

func (t *Tracker) current() (string, uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.token, t.gen
}

func (t *Tracker) load(ctx context.Context, gen uint64, token string) (Snapshot, error) {
	t.mu.Lock()
	epoch := t.epoch
	t.mu.Unlock()

	// Only reads started in the same epoch may share a call.
	key := token + "#" + strconv.FormatUint(epoch, 10)
	v, err, _ := t.group.Do(key, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.timeout)
		defer cancel()
		return t.src.Status(lctx, token)
	})

	var next Snapshot
	switch {
	case errors.Is(err, domainauth.ErrSessionNotFound):
		next = Snapshot{Err: err}
	case err != nil:
		// The session may still be valid; keep it authenticated without access.
		next = Snapshot{Err: err}
		next.State.IsAuthenticated = true
	default:
		st := v.(portalclient.StatusResponse)
		next = Snapshot{State: st.AuthState, Profile: st.Profile, DaysUntilNextRank: st.DaysUntilNextRank}
	}

	if !t.applyLoad(gen, epoch, func(s *Snapshot) { *s = next }) {
		t.logger.Debug("discarded stale auth state load")
	}
	return t.State(), err
}

// apply mutates the snapshot when gen is still current and notifies subscribers.
func (t *Tracker) apply(gen uint64, fn func(*Snapshot)) bool {
	return t.update(func() bool { return gen == t.gen }, fn)
}

// applyLoad is apply for a load result; results read before the current epoch are dropped.
func (t *Tracker) applyLoad(gen, epoch uint64, fn func(*Snapshot)) bool {
	return t.update(func() bool { return gen == t.gen && epoch == t.epoch }, fn)
}

func (t *Tracker) update(current func() bool, fn func(*Snapshot)) bool {
	t.mu.Lock()
	if !current() {
		t.mu.Unlock()
		return false
	}
	fn(&t.snap)
	snap := t.snap
	subs := t.subscribersLocked()
	t.mu.Unlock()

	notify(subs, snap)
	return true
}

func (t *Tracker) subscribersLocked() []func(Snapshot) {
	out := make([]func(Snapshot), 0, len(t.subs))
	for _, fn := range t.subs {
		out = append(out, fn)
	}
	return out
}

func notify(subs []func(Snapshot), snap Snapshot) {
	for _, fn := range subs {
		fn(snap)
	}
}
