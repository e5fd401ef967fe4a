package client

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/session"
	"github.com/darasahq/darasa/core/user"
)

type nopLogger struct{}

var _ core.Logger = (*nopLogger)(nil)

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

// portalStub fakes the portal API for navigator tests.
type portalStub struct {
	meCalls  int64
	rejectMe bool
}

func (p *portalStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/login", func(w http.ResponseWriter, r *http.Request) {
		var body loginRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Password != "s3cret" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(apiError{Error: "authentication failed"})
			return
		}
		_ = json.NewEncoder(w).Encode(authResponse{
			Token: "tok",
			User:  user.User{ID: "u1", Username: body.Username, Roles: []string{user.RoleStudent}},
		})
	})
	mux.HandleFunc("/api/users/register", func(w http.ResponseWriter, r *http.Request) {
		var body user.RegisterUser
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(authResponse{
			Token: "tok",
			User:  user.User{ID: "u2", Username: body.Username, Roles: []string{user.RoleStudent}},
		})
	})
	mux.HandleFunc("/api/users/me", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&p.meCalls, 1)
		if p.rejectMe {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(user.User{ID: "u1", Username: "awe"})
	})
	return mux
}

func setupNavigator(t *testing.T, stub *portalStub) (*Navigator, *session.Store) {
	t.Helper()
	api := newTestClient(t, stub.handler())
	store := session.NewStore(nil, nopLogger{})
	return NewNavigator(api, store, nopLogger{}), store
}

func TestNavigator_LoginLogout(t *testing.T) {
	nav, store := setupNavigator(t, &portalStub{})

	require.Error(t, nav.Login(context.Background(), "awe", "nope"))
	assert.False(t, store.IsAuthenticated())

	require.NoError(t, nav.Login(context.Background(), "awe", "s3cret"))
	assert.True(t, store.IsAuthenticated())
	assert.Equal(t, "tok", store.Token())

	nav.Logout()
	assert.False(t, store.IsAuthenticated())
}

func TestNavigator_Register(t *testing.T) {
	nav, store := setupNavigator(t, &portalStub{})

	err := nav.Register(context.Background(), user.RegisterUser{
		Username: "newbie",
		Email:    "newbie@test.cd",
		Password: "s3cretzz",
	})
	require.NoError(t, err)

	// registration auto-authenticates
	assert.True(t, store.IsAuthenticated())
	usr, ok := store.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, "newbie", usr.Username)
}

func TestNavigator_Navigate(t *testing.T) {
	t.Run("denied navigation does not mount the verifier", func(t *testing.T) {
		stub := &portalStub{}
		nav, _ := setupNavigator(t, stub)

		decision, cancel := nav.Navigate("/courses", session.CapabilityAuthenticated)
		defer cancel()

		assert.False(t, decision.Allow)
		assert.Equal(t, session.LoginPath, decision.RedirectPath)
		assert.Equal(t, "/courses", decision.From)

		time.Sleep(50 * time.Millisecond)
		assert.Zero(t, atomic.LoadInt64(&stub.meCalls))
	})

	t.Run("public page does not mount the verifier", func(t *testing.T) {
		stub := &portalStub{}
		nav, _ := setupNavigator(t, stub)
		require.NoError(t, nav.Login(context.Background(), "awe", "s3cret"))

		decision, cancel := nav.Navigate("/", session.CapabilityNone)
		defer cancel()

		assert.True(t, decision.Allow)
		time.Sleep(50 * time.Millisecond)
		assert.Zero(t, atomic.LoadInt64(&stub.meCalls))
	})

	t.Run("allowed protected page mounts the verifier", func(t *testing.T) {
		stub := &portalStub{}
		nav, store := setupNavigator(t, stub)
		require.NoError(t, nav.Login(context.Background(), "awe", "s3cret"))

		decision, cancel := nav.Navigate("/courses", session.CapabilityAuthenticated)
		defer cancel()

		assert.True(t, decision.Allow)
		assert.Eventually(t, func() bool {
			return atomic.LoadInt64(&stub.meCalls) == 1
		}, time.Second, 5*time.Millisecond)
		assert.True(t, store.IsAuthenticated())
	})

	t.Run("rejected token invalidates the session in the background", func(t *testing.T) {
		stub := &portalStub{rejectMe: true}
		nav, store := setupNavigator(t, stub)
		require.NoError(t, nav.Login(context.Background(), "awe", "s3cret"))

		decision, cancel := nav.Navigate("/courses", session.CapabilityAuthenticated)
		defer cancel()

		// the page renders; invalidation lands asynchronously
		assert.True(t, decision.Allow)
		assert.Eventually(t, func() bool {
			return !store.IsAuthenticated()
		}, time.Second, 5*time.Millisecond)

		// the next navigation bounces to login
		redo, cancel2 := nav.Navigate("/courses", session.CapabilityAuthenticated)
		defer cancel2()
		assert.False(t, redo.Allow)
		assert.Equal(t, session.LoginPath, redo.RedirectPath)
	})
}
