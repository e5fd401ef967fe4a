package client

import (
	"context"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/session"
	"github.com/darasahq/darasa/core/user"
)

// Navigator is the view layer's adapter over the session store, the guard and
// the passive verifier. Route wrappers call Navigate on every navigation; the
// login/registration forms and the logout button call the action methods.
type Navigator struct {
	api      *Client
	store    *session.Store
	verifier *session.Verifier
}

func NewNavigator(api *Client, store *session.Store, logger core.Logger) *Navigator {
	return &Navigator{
		api:      api,
		store:    store,
		verifier: session.NewVerifier(store, api, logger),
	}
}

// Navigate evaluates the guard for a single navigation. When the target page
// is allowed and protected, the verifier is mounted and the returned cancel
// func must be called on page unmount; otherwise the cancel func is a no-op.
func (n *Navigator) Navigate(targetPath string, required session.Capability) (session.Decision, func()) {
	decision := session.Decide(
		session.Attempt{TargetPath: targetPath, Required: required},
		n.store.Snapshot(),
	)
	if decision.Allow && required != session.CapabilityNone {
		return decision, n.verifier.Mount()
	}
	return decision, func() {}
}

// Login authenticates against the portal and installs the session on success.
func (n *Navigator) Login(ctx context.Context, username, password string) error {
	usr, token, err := n.api.Login(ctx, username, password)
	if err != nil {
		return err
	}
	return n.store.LoginSucceeded(usr, token)
}

// Register creates an account and installs the auto-authenticated session.
func (n *Navigator) Register(ctx context.Context, ru user.RegisterUser) error {
	usr, token, err := n.api.Register(ctx, ru)
	if err != nil {
		return err
	}
	return n.store.RegisterSucceeded(usr, token)
}

// Logout invalidates the session wholesale.
func (n *Navigator) Logout() {
	n.store.Invalidate()
}
