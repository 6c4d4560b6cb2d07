/**
 * @description
 * This file implements the data access layer for confirmed subscribers.
 * The backing file is a JSON array in subscription order; the repository
 * serializes writes so two concurrent mutations cannot drop each other.
 */
package store

import (
	"sync"

	"github.com/rabbithole/newsletter-service/internal/domain"
)

// SubscriberRepository owns the subscribers file.
type SubscriberRepository struct {
	mu   sync.Mutex
	path string
}

// NewSubscriberRepository creates a repository backed by the given file path.
func NewSubscriberRepository(path string) *SubscriberRepository {
	return &SubscriberRepository{path: path}
}

// Init seeds the backing file with an empty collection if it is absent.
func (r *SubscriberRepository) Init() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ensureFile(r.path, []domain.Subscriber{})
}

// Insert appends a subscriber to the registry.
func (r *SubscriberRepository) Insert(sub domain.Subscriber) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := []domain.Subscriber{}
	if err := readSnapshot(r.path, &subs); err != nil {
		return err
	}
	subs = append(subs, sub)
	return writeSnapshot(r.path, subs)
}

// All returns every subscriber in storage order.
func (r *SubscriberRepository) All() ([]domain.Subscriber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := []domain.Subscriber{}
	if err := readSnapshot(r.path, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// Page returns the 1-indexed page of the given size along with the total
// subscriber count and total page count. Out-of-range pages yield an empty
// slice, not an error.
func (r *SubscriberRepository) Page(page, size int) ([]domain.Subscriber, int, int, error) {
	subs, err := r.All()
	if err != nil {
		return nil, 0, 0, err
	}

	total := len(subs)
	totalPages := (total + size - 1) / size

	start := (page - 1) * size
	if start < 0 || start >= total {
		return []domain.Subscriber{}, total, totalPages, nil
	}
	end := start + size
	if end > total {
		end = total
	}
	return subs[start:end], total, totalPages, nil
}

// FindByEmail reports whether a confirmed subscriber holds the given email.
func (r *SubscriberRepository) FindByEmail(email string) (bool, error) {
	subs, err := r.All()
	if err != nil {
		return false, err
	}
	for _, sub := range subs {
		if sub.Email == email {
			return true, nil
		}
	}
	return false, nil
}

// FindByUnsubscribeToken resolves a subscriber from its unsubscribe token.
func (r *SubscriberRepository) FindByUnsubscribeToken(token string) (domain.Subscriber, bool, error) {
	subs, err := r.All()
	if err != nil {
		return domain.Subscriber{}, false, err
	}
	for _, sub := range subs {
		if sub.UnsubscribeToken == token {
			return sub, true, nil
		}
	}
	return domain.Subscriber{}, false, nil
}

// DeleteByUnsubscribeToken removes the subscriber holding the given token.
// It reports whether a matching subscriber existed.
func (r *SubscriberRepository) DeleteByUnsubscribeToken(token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := []domain.Subscriber{}
	if err := readSnapshot(r.path, &subs); err != nil {
		return false, err
	}

	for i, sub := range subs {
		if sub.UnsubscribeToken == token {
			subs = append(subs[:i], subs[i+1:]...)
			if err := writeSnapshot(r.path, subs); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}
