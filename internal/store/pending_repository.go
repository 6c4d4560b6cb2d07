/**
 * @description
 * This file implements the data access layer for pending subscription
 * requests. The backing file is a JSON object keyed by confirmation token.
 * A mutex serializes every read-modify-write cycle so concurrent requests
 * cannot lose each other's updates.
 */
package store

import (
	"sync"
	"time"

	"github.com/rabbithole/newsletter-service/internal/domain"
)

// PendingRepository owns the pending-subscribers file.
type PendingRepository struct {
	mu   sync.Mutex
	path string
}

// NewPendingRepository creates a repository backed by the given file path.
func NewPendingRepository(path string) *PendingRepository {
	return &PendingRepository{path: path}
}

// Init seeds the backing file with an empty collection if it is absent.
func (r *PendingRepository) Init() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ensureFile(r.path, map[string]domain.PendingSubscriber{})
}

// Insert stores a pending subscriber under its confirmation token.
func (r *PendingRepository) Insert(token string, pending domain.PendingSubscriber) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := map[string]domain.PendingSubscriber{}
	if err := readSnapshot(r.path, &entries); err != nil {
		return err
	}
	entries[token] = pending
	return writeSnapshot(r.path, entries)
}

// Take looks up a pending subscriber by token and removes it under the same
// lock, so a token can be confirmed at most once.
func (r *PendingRepository) Take(token string) (domain.PendingSubscriber, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := map[string]domain.PendingSubscriber{}
	if err := readSnapshot(r.path, &entries); err != nil {
		return domain.PendingSubscriber{}, false, err
	}
	pending, ok := entries[token]
	if !ok {
		return domain.PendingSubscriber{}, false, nil
	}
	delete(entries, token)
	if err := writeSnapshot(r.path, entries); err != nil {
		return domain.PendingSubscriber{}, false, err
	}
	return pending, true, nil
}

// FindByEmail reports whether any pending entry holds the given email.
func (r *PendingRepository) FindByEmail(email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := map[string]domain.PendingSubscriber{}
	if err := readSnapshot(r.path, &entries); err != nil {
		return false, err
	}
	for _, pending := range entries {
		if pending.Email == email {
			return true, nil
		}
	}
	return false, nil
}

// SweepExpired removes every entry strictly older than ttl at the given
// instant and returns the number of evicted entries. An entry whose age is
// exactly ttl is retained.
func (r *PendingRepository) SweepExpired(now time.Time, ttl time.Duration) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := map[string]domain.PendingSubscriber{}
	if err := readSnapshot(r.path, &entries); err != nil {
		return 0, err
	}

	evicted := 0
	for token, pending := range entries {
		if now.Sub(pending.CreatedAt) > ttl {
			delete(entries, token)
			evicted++
		}
	}
	if evicted == 0 {
		return 0, nil
	}
	if err := writeSnapshot(r.path, entries); err != nil {
		return 0, err
	}
	return evicted, nil
}
