package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/darasahq/darasa/core/user"
)

// fakeWhoAmI resolves Me calls on demand so tests control timing. Each call
// latches err and release at entry, so tests may reconfigure the fake between
// calls while an earlier call is still blocked.
type fakeWhoAmI struct {
	mu      sync.Mutex
	err     error         // result once released
	release chan struct{} // closed to let Me return; nil resolves immediately
	calls   int64
}

func (c *fakeWhoAmI) Me(ctx context.Context, token string) (user.User, error) {
	atomic.AddInt64(&c.calls, 1)
	c.mu.Lock()
	err, release := c.err, c.release
	c.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return user.User{}, ctx.Err()
		}
	}
	if err != nil {
		return user.User{}, err
	}
	return testUser(), nil
}

func (c *fakeWhoAmI) set(err error, release chan struct{}) {
	c.mu.Lock()
	c.err, c.release = err, release
	c.mu.Unlock()
}

func authedStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(nil, nopLogger{})
	if err := store.LoginSucceeded(testUser(), "tok"); err != nil {
		t.Fatalf("LoginSucceeded() failed: %v", err)
	}
	return store
}

func TestVerifier_credentialRejectionInvalidates(t *testing.T) {
	store := authedStore(t)
	client := &fakeWhoAmI{err: ErrCredentialRejected}
	v := NewVerifier(store, client, nopLogger{})

	cancel := v.Mount()
	defer cancel()

	assert.Eventually(t, func() bool {
		return !store.IsAuthenticated()
	}, time.Second, 5*time.Millisecond, "credential rejection must invalidate the session")

	if snap := store.Snapshot(); snap.User != nil || snap.Token != "" {
		t.Errorf("Snapshot() = %+v after invalidation; want empty", snap)
	}
}

func TestVerifier_wrappedCredentialRejectionInvalidates(t *testing.T) {
	store := authedStore(t)
	client := &fakeWhoAmI{err: errors.Wrap(ErrCredentialRejected, "fetching identity")}
	v := NewVerifier(store, client, nopLogger{})

	cancel := v.Mount()
	defer cancel()

	assert.Eventually(t, func() bool {
		return !store.IsAuthenticated()
	}, time.Second, 5*time.Millisecond)
}

func TestVerifier_transientFailureKeepsSession(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "network failure", err: errors.New("connection refused")},
		{name: "server error", err: errors.New("portal API: internal server error (status 500)")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := authedStore(t)
			client := &fakeWhoAmI{err: tt.err}
			v := NewVerifier(store, client, nopLogger{})

			cancel := v.Mount()
			defer cancel()

			assert.Never(t, func() bool {
				return !store.IsAuthenticated()
			}, 100*time.Millisecond, 5*time.Millisecond, "transient failure must not invalidate the session")
		})
	}
}

func TestVerifier_successKeepsSession(t *testing.T) {
	store := authedStore(t)
	client := &fakeWhoAmI{}
	v := NewVerifier(store, client, nopLogger{})

	cancel := v.Mount()
	defer cancel()

	assert.Never(t, func() bool {
		return !store.IsAuthenticated()
	}, 100*time.Millisecond, 5*time.Millisecond)
}

func TestVerifier_cancelBeforeResolveDiscardsResult(t *testing.T) {
	store := authedStore(t)
	release := make(chan struct{})
	client := &fakeWhoAmI{err: ErrCredentialRejected, release: release}
	v := NewVerifier(store, client, nopLogger{})

	cancel := v.Mount()
	cancel() // page unmounts before the check resolves
	close(release)

	assert.Never(t, func() bool {
		return !store.IsAuthenticated()
	}, 100*time.Millisecond, 5*time.Millisecond, "a result arriving after unmount must be discarded")
}

func TestVerifier_staleMountSupersededByNewerOne(t *testing.T) {
	store := authedStore(t)

	// the first page's check hangs; a later page mounts and re-validates fast
	release := make(chan struct{})
	slow := &fakeWhoAmI{err: ErrCredentialRejected, release: release}
	v := NewVerifier(store, slow, nopLogger{})

	cancelSlow := v.Mount()
	defer cancelSlow()

	slow.set(nil, nil) // the later check succeeds immediately
	cancelFast := v.Mount()
	defer cancelFast()

	close(release) // the slow, stale rejection finally lands

	assert.Never(t, func() bool {
		return !store.IsAuthenticated()
	}, 100*time.Millisecond, 5*time.Millisecond, "a stale rejection must not override a fresher validation")
}

func TestVerifier_noTokenNoCheck(t *testing.T) {
	store := NewStore(nil, nopLogger{})
	client := &fakeWhoAmI{}
	v := NewVerifier(store, client, nopLogger{})

	cancel := v.Mount()
	cancel()

	time.Sleep(50 * time.Millisecond)
	if n := atomic.LoadInt64(&client.calls); n != 0 {
		t.Errorf("Me() called %d times with no session; want 0", n)
	}
}

func TestVerifier_invalidatesOnlyOnce(t *testing.T) {
	keyring := &memKeyring{}
	store := NewStore(keyring, nopLogger{})
	if err := store.LoginSucceeded(testUser(), "tok"); err != nil {
		t.Fatalf("LoginSucceeded() failed: %v", err)
	}
	client := &fakeWhoAmI{err: ErrCredentialRejected}
	v := NewVerifier(store, client, nopLogger{})

	cancel := v.Mount()
	defer cancel()

	assert.Eventually(t, func() bool {
		return !store.IsAuthenticated()
	}, time.Second, 5*time.Millisecond)

	// a second mount finds no token and does nothing
	cancel2 := v.Mount()
	cancel2()
	time.Sleep(50 * time.Millisecond)

	if keyring.clears != 1 {
		t.Errorf("keyring.clears = %d; want exactly 1", keyring.clears)
	}
}
