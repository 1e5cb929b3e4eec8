package services

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/dmitrijs2005/keyproxy/internal/apperr"
)

type attemptState struct {
	failures    int
	lastFailure time.Time
	lockedUntil time.Time
}

// idleSince is the moment the entry stopped mattering: the end of its lock,
// or its last failure when it never locked.
func (st *attemptState) idleSince() time.Time {
	if st.lockedUntil.After(st.lastFailure) {
		return st.lockedUntil
	}
	return st.lastFailure
}

// LoginThrottle counts failed logins per username in process memory.
// Reaching maxAttempts locks the username for lockFor; while locked, attempts
// are rejected without touching the counter. Once the lock expires the old
// count is kept, so the next failure locks again. A success clears the entry.
// An entry idle for longer than lockFor is forgotten.
type LoginThrottle struct {
	mu          sync.Mutex
	maxAttempts int
	lockFor     time.Duration
	now         func() time.Time
	state       map[string]*attemptState
	lastSweep   time.Time
}

func NewLoginThrottle(maxAttempts int, lockFor time.Duration, now func() time.Time) *LoginThrottle {
	if now == nil {
		now = time.Now
	}
	return &LoginThrottle{
		maxAttempts: maxAttempts,
		lockFor:     lockFor,
		now:         now,
		state:       make(map[string]*attemptState),
	}
}

// Check returns a Locked error while username is locked.
func (t *LoginThrottle) Check(username string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	st := t.lookup(username, now)
	if st == nil {
		return nil
	}

	if st.lockedUntil.After(now) {
		left := st.lockedUntil.Sub(now)
		minutes := int(left/time.Minute) + 1
		return apperr.Locked(fmt.Sprintf("Account locked, retry in %d minutes", minutes))
	}
	return nil
}

// Fail records a failed attempt. It returns the attempts left before the
// lock and whether this failure locked the username.
func (t *LoginThrottle) Fail(username string) (remaining int, locked bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.sweep(now)

	st := t.lookup(username, now)
	if st == nil {
		st = &attemptState{}
		t.state[username] = st
	}

	st.failures++
	st.lastFailure = now
	if st.failures >= t.maxAttempts {
		st.lockedUntil = now.Add(t.lockFor)
		return 0, true
	}
	return t.maxAttempts - st.failures, false
}

func (t *LoginThrottle) stale(st *attemptState, now time.Time) bool {
	return now.Sub(st.idleSince()) > t.lockFor
}

// lookup returns the live entry for username, dropping a stale one.
func (t *LoginThrottle) lookup(username string, now time.Time) *attemptState {
	st, ok := t.state[username]
	if !ok {
		return nil
	}
	if t.stale(st, now) {
		delete(t.state, username)
		return nil
	}
	return st
}

// sweep drops stale entries, at most once per lockFor.
func (t *LoginThrottle) sweep(now time.Time) {
	if now.Sub(t.lastSweep) < t.lockFor {
		return
	}
	t.lastSweep = now
	for name, st := range t.state {
		if t.stale(st, now) {
			delete(t.state, name)
		}
	}
}

// Reset forgets username.
func (t *LoginThrottle) Reset(username string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.state, username)
}

// LockMinutes is the lock duration rounded up to whole minutes.
func (t *LoginThrottle) LockMinutes() int {
	return int(math.Ceil(t.lockFor.Minutes()))
}
