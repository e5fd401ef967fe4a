package session

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/user"
)

// ErrCredentialRejected is returned by a WhoAmI client when the backing
// service rejects the token itself (invalid or expired credential).
var ErrCredentialRejected = errors.New("credential rejected")

// WhoAmI confirms a bearer token against the backing service's identity
// endpoint.
type WhoAmI interface {
	Me(ctx context.Context, token string) (user.User, error)
}

// Verifier opportunistically confirms, once per protected-page mount, that the
// held token is still accepted, without ever blocking the render. Only a
// credential rejection invalidates the session; transient failures (network,
// server errors) are logged and absorbed, since they are not trustworthy
// evidence of an invalid session.
type Verifier struct {
	store  *Store
	client WhoAmI
	logger core.Logger

	mu  sync.Mutex
	gen uint64 // liveness generation; each mount supersedes the previous one
}

func NewVerifier(store *Store, client WhoAmI, logger core.Logger) *Verifier {
	return &Verifier{store: store, client: client, logger: logger}
}

// Mount fires one asynchronous identity check with the current token and
// returns a cancel func to call on page unmount. A result arriving after the
// page unmounted, or after a later page mounted, is discarded: a slow, stale
// request must not invalidate a session that a faster page already
// re-validated.
func (v *Verifier) Mount() (cancel func()) {
	snap := v.store.Snapshot()
	if snap.Token == "" {
		return func() {}
	}

	v.mu.Lock()
	v.gen++
	gen := v.gen
	v.mu.Unlock()

	ctx, cancelReq := context.WithCancel(context.Background())
	go v.verify(ctx, gen, snap.Token)

	return func() {
		v.mu.Lock()
		if v.gen == gen {
			v.gen++
		}
		v.mu.Unlock()
		cancelReq()
	}
}

func (v *Verifier) verify(ctx context.Context, gen uint64, token string) {
	_, err := v.client.Me(ctx, token)
	if err == nil {
		return // session already correct
	}
	if !v.live(gen) {
		return // unmounted or superseded; discard
	}
	if errors.Cause(err) == ErrCredentialRejected {
		v.store.Invalidate()
		return
	}
	// transient failure: not evidence of an invalid session
	v.logger.Debug("token verification failed transiently", err)
}

func (v *Verifier) live(gen uint64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.gen == gen
}
