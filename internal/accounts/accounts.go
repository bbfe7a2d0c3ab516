// internal/accounts/accounts.go

// Package accounts implements the multi-account session model: a
// remembered list of identities previously used on a device, plus the
// single identity currently active with the OAuth provider. The list is a
// best-effort cache, never the system of record.
package accounts

import (
	"sort"
	"strings"
	"time"
)

// Identity is one remembered account.
type Identity struct {
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	Picture  string    `json:"picture,omitempty"`
	LastUsed time.Time `json:"lastUsed"`
}

// ListStore persists the remembered-account list for one device.
type ListStore interface {
	Load() ([]Identity, error)
	Save(list []Identity) error
}

// upsert adds or refreshes id in list, keyed by case-insensitive email,
// and returns the list sorted most-recently-used first. The invariant that
// the list never holds duplicate emails lives here.
func upsert(list []Identity, id Identity) []Identity {
	out := make([]Identity, 0, len(list)+1)
	for _, existing := range list {
		if !strings.EqualFold(existing.Email, id.Email) {
			out = append(out, existing)
		}
	}
	out = append(out, id)
	sortByLastUsed(out)
	return out
}

// remove deletes the entry with the given email, if present.
func remove(list []Identity, email string) []Identity {
	out := make([]Identity, 0, len(list))
	for _, existing := range list {
		if !strings.EqualFold(existing.Email, email) {
			out = append(out, existing)
		}
	}
	return out
}

func find(list []Identity, email string) (Identity, bool) {
	for _, id := range list {
		if strings.EqualFold(id.Email, email) {
			return id, true
		}
	}
	return Identity{}, false
}

func sortByLastUsed(list []Identity) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].LastUsed.After(list[j].LastUsed)
	})
}
