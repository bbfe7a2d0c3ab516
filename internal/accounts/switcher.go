// internal/accounts/switcher.go
package accounts

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type State string

const (
	StateSignedOut State = "signed_out"
	StateSignedIn  State = "signed_in"
	StateSwitching State = "switching"
)

// Switcher coordinates sign-in, sign-out and account switching against one
// provider and one remembered-account store. The Switching state is a guard:
// a second switch while one is in flight is rejected, never run concurrently.
type Switcher struct {
	mu       sync.Mutex
	state    State
	active   *Identity
	store    ListStore
	provider Provider

	// SignOut needs a moment to settle before a silent re-auth is attempted.
	settleDelay time.Duration
	now         func() time.Time
	sleep       func(time.Duration)
}

type SwitcherOption func(*Switcher)

// WithSettleDelay overrides the pause between terminating a session and
// re-initiating the provider flow.
func WithSettleDelay(d time.Duration) SwitcherOption {
	return func(s *Switcher) { s.settleDelay = d }
}

// WithClock injects time and sleep functions, used by tests.
func WithClock(now func() time.Time, sleep func(time.Duration)) SwitcherOption {
	return func(s *Switcher) {
		s.now = now
		s.sleep = sleep
	}
}

func NewSwitcher(store ListStore, provider Provider, opts ...SwitcherOption) *Switcher {
	s := &Switcher{
		state:       StateSignedOut,
		store:       store,
		provider:    provider,
		settleDelay: 500 * time.Millisecond,
		now:         time.Now,
		sleep:       time.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Switcher) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Active returns the currently signed-in identity, if any.
func (s *Switcher) Active() (*Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return nil, false
	}
	cp := *s.active
	return &cp, true
}

// OtherAccounts returns the remembered identities excluding the active one,
// most recently used first.
func (s *Switcher) OtherAccounts() ([]Identity, error) {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()

	list, err := s.store.Load()
	if err != nil {
		return nil, err
	}

	if active != nil {
		list = remove(list, active.Email)
	}
	sortByLastUsed(list)
	return list, nil
}

// AddAccount runs the interactive consent flow with a forced account
// chooser. On success the new identity becomes active and is remembered.
func (s *Switcher) AddAccount(ctx context.Context) (*Identity, error) {
	s.mu.Lock()
	if s.state == StateSwitching {
		s.mu.Unlock()
		return nil, ErrSwitchInProgress
	}
	s.mu.Unlock()

	id, err := s.provider.SignIn(ctx, SignInOptions{Silent: false})
	if err != nil {
		// Prior stable state is untouched.
		return nil, err
	}

	s.establish(*id)
	return id, nil
}

// SwitchAccount suspends the active session and establishes target. Already-
// active targets are a no-op. The silent flow is tried first; when the
// provider requires interaction the interactive chooser is the fallback.
// Any failure restores the prior stable state.
func (s *Switcher) SwitchAccount(ctx context.Context, email string) (*Identity, error) {
	s.mu.Lock()
	if s.state == StateSwitching {
		s.mu.Unlock()
		return nil, ErrSwitchInProgress
	}
	if s.active != nil && strings.EqualFold(s.active.Email, email) {
		cp := *s.active
		s.mu.Unlock()
		return &cp, nil
	}

	prevState := s.state
	prevActive := s.active
	s.state = StateSwitching
	s.mu.Unlock()

	s.touch(email)

	restore := func() {
		s.mu.Lock()
		s.state = prevState
		s.active = prevActive
		s.mu.Unlock()
	}

	if prevActive != nil {
		if err := s.provider.SignOut(ctx); err != nil {
			restore()
			return nil, err
		}
	}

	s.sleep(s.settleDelay)

	id, err := s.provider.SignIn(ctx, SignInOptions{Silent: true, LoginHint: email})
	if errors.Is(err, ErrInteractionRequired) {
		id, err = s.provider.SignIn(ctx, SignInOptions{Silent: false, LoginHint: email})
	}
	if err != nil {
		restore()
		return nil, err
	}

	s.establish(*id)
	return id, nil
}

// RemoveAccount forgets an identity on this device. Removing the active
// identity also terminates the provider session.
func (s *Switcher) RemoveAccount(ctx context.Context, email string) error {
	list, err := s.store.Load()
	if err == nil {
		if err := s.store.Save(remove(list, email)); err != nil {
			logrus.WithError(err).Warn("Failed to persist account list")
		}
	} else {
		logrus.WithError(err).Warn("Failed to load account list")
	}

	s.mu.Lock()
	activeMatch := s.active != nil && strings.EqualFold(s.active.Email, email)
	s.mu.Unlock()

	if !activeMatch {
		return nil
	}

	if err := s.provider.SignOut(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.active = nil
	s.state = StateSignedOut
	s.mu.Unlock()
	return nil
}

// SignOut terminates the provider session and clears the active identity.
// The remembered list survives.
func (s *Switcher) SignOut(ctx context.Context) error {
	if err := s.provider.SignOut(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.active = nil
	s.state = StateSignedOut
	s.mu.Unlock()
	return nil
}

// establish records id as active and remembers it with a fresh LastUsed.
func (s *Switcher) establish(id Identity) {
	id.LastUsed = s.now()

	s.mu.Lock()
	s.active = &id
	s.state = StateSignedIn
	s.mu.Unlock()

	list, err := s.store.Load()
	if err != nil {
		logrus.WithError(err).Warn("Failed to load account list")
		list = nil
	}
	if err := s.store.Save(upsert(list, id)); err != nil {
		logrus.WithError(err).Warn("Failed to persist account list")
	}
}

// touch refreshes LastUsed for a remembered identity before a switch.
func (s *Switcher) touch(email string) {
	list, err := s.store.Load()
	if err != nil {
		return
	}
	if id, ok := find(list, email); ok {
		id.LastUsed = s.now()
		if err := s.store.Save(upsert(list, id)); err != nil {
			logrus.WithError(err).Warn("Failed to persist account list")
		}
	}
}
