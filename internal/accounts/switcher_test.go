// internal/accounts/switcher_test.go
package accounts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory ListStore for switcher tests.
type memStore struct {
	mu   sync.Mutex
	list []Identity
	fail bool
}

func (m *memStore) Load() ([]Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errors.New("store unavailable")
	}
	out := make([]Identity, len(m.list))
	copy(out, m.list)
	return out, nil
}

func (m *memStore) Save(list []Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("store unavailable")
	}
	m.list = make([]Identity, len(list))
	copy(m.list, list)
	return nil
}

// fakeProvider scripts sign-in outcomes. Silent sign-ins succeed only for
// emails in sessions; interactive sign-ins pop the queued identities.
type fakeProvider struct {
	mu       sync.Mutex
	sessions map[string]Identity
	queue    []Identity

	signIns  []SignInOptions
	signOuts int

	signInErr  error
	signOutErr error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{sessions: make(map[string]Identity)}
}

func (f *fakeProvider) enqueue(id Identity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, id)
}

func (f *fakeProvider) addSession(id Identity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[id.Email] = id
}

func (f *fakeProvider) SignIn(ctx context.Context, opts SignInOptions) (*Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signIns = append(f.signIns, opts)

	if f.signInErr != nil {
		return nil, f.signInErr
	}

	if opts.Silent {
		if id, ok := f.sessions[opts.LoginHint]; ok {
			cp := id
			return &cp, nil
		}
		return nil, ErrInteractionRequired
	}

	if len(f.queue) == 0 {
		return nil, ErrInteractionRequired
	}
	id := f.queue[0]
	f.queue = f.queue[1:]
	f.sessions[id.Email] = id
	return &id, nil
}

func (f *fakeProvider) SignOut(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signOuts++
	return f.signOutErr
}

func newTestSwitcher(store ListStore, provider Provider) *Switcher {
	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	tick := 0
	return NewSwitcher(store, provider,
		WithSettleDelay(0),
		WithClock(func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * time.Minute)
		}, func(time.Duration) {}),
	)
}

func TestAddAccountBecomesActiveAndRemembered(t *testing.T) {
	store := &memStore{}
	provider := newFakeProvider()
	provider.enqueue(Identity{Email: "a@example.com", Name: "A"})

	sw := newTestSwitcher(store, provider)
	assert.Equal(t, StateSignedOut, sw.State())

	id, err := sw.AddAccount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", id.Email)
	assert.Equal(t, StateSignedIn, sw.State())

	active, ok := sw.Active()
	require.True(t, ok)
	assert.Equal(t, "a@example.com", active.Email)

	list, err := store.Load()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].LastUsed.IsZero())
}

func TestAddAccountDeduplicatesByEmail(t *testing.T) {
	store := &memStore{}
	provider := newFakeProvider()
	provider.enqueue(Identity{Email: "a@example.com", Name: "A"})
	provider.enqueue(Identity{Email: "A@Example.com", Name: "A renamed"})

	sw := newTestSwitcher(store, provider)
	_, err := sw.AddAccount(context.Background())
	require.NoError(t, err)
	_, err = sw.AddAccount(context.Background())
	require.NoError(t, err)

	list, err := store.Load()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "A renamed", list[0].Name)
}

func TestOtherAccountsExcludesActiveAndSortsByRecency(t *testing.T) {
	store := &memStore{}
	provider := newFakeProvider()
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		provider.enqueue(Identity{Email: email})
	}

	sw := newTestSwitcher(store, provider)
	for i := 0; i < 3; i++ {
		_, err := sw.AddAccount(context.Background())
		require.NoError(t, err)
	}

	// c is active; a was used before b.
	others, err := sw.OtherAccounts()
	require.NoError(t, err)
	require.Len(t, others, 2)
	assert.Equal(t, "b@example.com", others[0].Email)
	assert.Equal(t, "a@example.com", others[1].Email)
}

func TestSwitchAccountSilentPath(t *testing.T) {
	store := &memStore{}
	provider := newFakeProvider()
	provider.enqueue(Identity{Email: "a@example.com"})
	provider.enqueue(Identity{Email: "b@example.com"})

	sw := newTestSwitcher(store, provider)
	_, err := sw.AddAccount(context.Background())
	require.NoError(t, err)
	_, err = sw.AddAccount(context.Background())
	require.NoError(t, err)

	id, err := sw.SwitchAccount(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", id.Email)
	assert.Equal(t, StateSignedIn, sw.State())
	assert.Equal(t, 1, provider.signOuts)

	// The switch went through the silent flow with the target as hint.
	last := provider.signIns[len(provider.signIns)-1]
	assert.True(t, last.Silent)
	assert.Equal(t, "a@example.com", last.LoginHint)
}

func TestSwitchAccountFallsBackToInteractive(t *testing.T) {
	store := &memStore{}
	provider := newFakeProvider()
	provider.enqueue(Identity{Email: "a@example.com"})

	sw := newTestSwitcher(store, provider)
	_, err := sw.AddAccount(context.Background())
	require.NoError(t, err)

	// No provider session for the target: silent fails, the interactive
	// chooser supplies the identity.
	delete(provider.sessions, "never-seen@example.com")
	provider.enqueue(Identity{Email: "never-seen@example.com"})

	id, err := sw.SwitchAccount(context.Background(), "never-seen@example.com")
	require.NoError(t, err)
	assert.Equal(t, "never-seen@example.com", id.Email)

	n := len(provider.signIns)
	require.GreaterOrEqual(t, n, 2)
	assert.True(t, provider.signIns[n-2].Silent)
	assert.False(t, provider.signIns[n-1].Silent)
}

func TestSwitchAccountToActiveIsNoOp(t *testing.T) {
	store := &memStore{}
	provider := newFakeProvider()
	provider.enqueue(Identity{Email: "a@example.com"})

	sw := newTestSwitcher(store, provider)
	_, err := sw.AddAccount(context.Background())
	require.NoError(t, err)

	id, err := sw.SwitchAccount(context.Background(), "A@EXAMPLE.COM")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", id.Email)
	assert.Zero(t, provider.signOuts)
}

func TestSwitchAccountRestoresPriorStateOnFailure(t *testing.T) {
	store := &memStore{}
	provider := newFakeProvider()
	provider.enqueue(Identity{Email: "a@example.com"})

	sw := newTestSwitcher(store, provider)
	_, err := sw.AddAccount(context.Background())
	require.NoError(t, err)

	provider.signInErr = errors.New("provider down")
	_, err = sw.SwitchAccount(context.Background(), "b@example.com")
	require.Error(t, err)

	assert.Equal(t, StateSignedIn, sw.State())
	active, ok := sw.Active()
	require.True(t, ok)
	assert.Equal(t, "a@example.com", active.Email)
}

func TestSwitchAccountRejectedWhileSwitching(t *testing.T) {
	store := &memStore{}
	provider := newFakeProvider()
	provider.enqueue(Identity{Email: "a@example.com"})
	provider.addSession(Identity{Email: "b@example.com"})

	release := make(chan struct{})
	entered := make(chan struct{})

	sw := NewSwitcher(store, provider,
		WithSettleDelay(time.Millisecond),
		WithClock(time.Now, func(time.Duration) {
			close(entered)
			<-release
		}),
	)

	_, err := sw.AddAccount(context.Background())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := sw.SwitchAccount(context.Background(), "b@example.com")
		done <- err
	}()

	<-entered
	assert.Equal(t, StateSwitching, sw.State())

	_, err = sw.SwitchAccount(context.Background(), "a@example.com")
	assert.ErrorIs(t, err, ErrSwitchInProgress)
	_, err = sw.AddAccount(context.Background())
	assert.ErrorIs(t, err, ErrSwitchInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateSignedIn, sw.State())
}

func TestRemoveAccountKeepsSessionForInactive(t *testing.T) {
	store := &memStore{}
	provider := newFakeProvider()
	provider.enqueue(Identity{Email: "a@example.com"})
	provider.enqueue(Identity{Email: "b@example.com"})

	sw := newTestSwitcher(store, provider)
	_, err := sw.AddAccount(context.Background())
	require.NoError(t, err)
	_, err = sw.AddAccount(context.Background())
	require.NoError(t, err)

	require.NoError(t, sw.RemoveAccount(context.Background(), "a@example.com"))

	// Still signed in as b.
	assert.Equal(t, StateSignedIn, sw.State())
	active, ok := sw.Active()
	require.True(t, ok)
	assert.Equal(t, "b@example.com", active.Email)
	assert.Zero(t, provider.signOuts)

	list, err := store.Load()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "b@example.com", list[0].Email)
}

func TestRemoveActiveAccountSignsOut(t *testing.T) {
	store := &memStore{}
	provider := newFakeProvider()
	provider.enqueue(Identity{Email: "a@example.com"})

	sw := newTestSwitcher(store, provider)
	_, err := sw.AddAccount(context.Background())
	require.NoError(t, err)

	require.NoError(t, sw.RemoveAccount(context.Background(), "A@example.com"))

	assert.Equal(t, StateSignedOut, sw.State())
	_, ok := sw.Active()
	assert.False(t, ok)
	assert.Equal(t, 1, provider.signOuts)

	list, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSignOutKeepsRememberedList(t *testing.T) {
	store := &memStore{}
	provider := newFakeProvider()
	provider.enqueue(Identity{Email: "a@example.com"})

	sw := newTestSwitcher(store, provider)
	_, err := sw.AddAccount(context.Background())
	require.NoError(t, err)

	require.NoError(t, sw.SignOut(context.Background()))
	assert.Equal(t, StateSignedOut, sw.State())

	list, err := store.Load()
	require.NoError(t, err)
	require.Len(t, list, 1)

	// Signed out, so nothing is excluded from the remembered list.
	others, err := sw.OtherAccounts()
	require.NoError(t, err)
	assert.Len(t, others, 1)
}
