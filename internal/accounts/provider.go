// internal/accounts/provider.go
package accounts

import (
	"context"
	"errors"
)

var (
	// ErrInteractionRequired is returned by a provider when a silent
	// sign-in cannot complete and the interactive chooser is needed.
	ErrInteractionRequired = errors.New("accounts: interactive sign-in required")

	// ErrSwitchInProgress is returned when a switch is requested while
	// another one has not settled yet.
	ErrSwitchInProgress = errors.New("accounts: account switch already in progress")

	// ErrNotSignedIn is returned when an operation needs an active identity.
	ErrNotSignedIn = errors.New("accounts: not signed in")
)

// SignInOptions steer a provider sign-in attempt. Silent attempts carry a
// login hint and must not surface an account chooser; providers that cannot
// satisfy that return ErrInteractionRequired.
type SignInOptions struct {
	Silent    bool
	LoginHint string
}

// Provider is the identity-provider capability the switcher drives. Silent
// sign-in is optional: implementations without it simply always return
// ErrInteractionRequired for silent attempts, which makes the interactive
// chooser the portable fallback.
type Provider interface {
	SignIn(ctx context.Context, opts SignInOptions) (*Identity, error)
	SignOut(ctx context.Context) error
}
