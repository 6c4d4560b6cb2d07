/**
 * @description
 * This file contains the core business logic for the newsletter service:
 * the subscription lifecycle (request, confirm, unsubscribe), subscriber
 * pagination, and post publication with notification fan-out. The Service
 * layer orchestrates the file-backed repositories and applies business
 * rules; HTTP concerns stay in the api package.
 */
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rabbithole/newsletter-service/internal/domain"
	"github.com/rabbithole/newsletter-service/pkg/mailer"
)

const (
	// pendingTTL is the confirmation window for a pending subscription.
	pendingTTL = 30 * time.Minute
	// subscriberPageSize is the fixed page size of GET /get-subscribers.
	subscriberPageSize = 10
)

// PendingStore defines the pending-confirmation operations the service needs.
type PendingStore interface {
	Insert(token string, pending domain.PendingSubscriber) error
	Take(token string) (domain.PendingSubscriber, bool, error)
	FindByEmail(email string) (bool, error)
	SweepExpired(now time.Time, ttl time.Duration) (int, error)
}

// SubscriberStore defines the confirmed-subscriber operations the service needs.
type SubscriberStore interface {
	Insert(sub domain.Subscriber) error
	All() ([]domain.Subscriber, error)
	Page(page, size int) ([]domain.Subscriber, int, int, error)
	FindByEmail(email string) (bool, error)
	FindByUnsubscribeToken(token string) (domain.Subscriber, bool, error)
	DeleteByUnsubscribeToken(token string) (bool, error)
}

// PostStore defines the post registry operations the service needs.
type PostStore interface {
	Insert(post domain.Post) error
	All() ([]domain.Post, error)
	FindByID(id string) (domain.Post, bool, error)
}

// Service provides the business logic for the newsletter backend.
type Service struct {
	pending     PendingStore
	subscribers SubscriberStore
	posts       PostStore
	mailer      mailer.Mailer
	notifier    *Notifier
	logger      *slog.Logger

	frontendURL string
	backendURL  string

	// now and newToken are injectable for tests.
	now      func() time.Time
	newToken func() string
}

// NewService creates the newsletter service.
func NewService(
	pending PendingStore,
	subscribers SubscriberStore,
	posts PostStore,
	m mailer.Mailer,
	notifier *Notifier,
	logger *slog.Logger,
	frontendURL, backendURL string,
) *Service {
	return &Service{
		pending:     pending,
		subscribers: subscribers,
		posts:       posts,
		mailer:      m,
		notifier:    notifier,
		logger:      logger,
		frontendURL: frontendURL,
		backendURL:  backendURL,
		now:         time.Now,
		newToken:    uuid.NewString,
	}
}

// RequestSubscription registers a pending subscription for the given email
// and sends the confirmation email. The email must not already belong to a
// confirmed or pending subscriber.
func (s *Service) RequestSubscription(ctx context.Context, req domain.SubscriptionRequest) error {
	// Opportunistic sweep so an expired entry never blocks a re-request
	// between scheduler ticks.
	s.SweepExpired()

	email := strings.TrimSpace(req.Email)
	if email == "" {
		return domain.ErrMissingField
	}

	subscribed, err := s.subscribers.FindByEmail(email)
	if err != nil {
		return fmt.Errorf("failed to check subscribers: %w", err)
	}
	pending, err := s.pending.FindByEmail(email)
	if err != nil {
		return fmt.Errorf("failed to check pending subscribers: %w", err)
	}
	if subscribed || pending {
		return domain.ErrDuplicateSubscriber
	}

	firstName := strings.TrimSpace(req.Name)
	if firstName == "" {
		firstName = strings.SplitN(email, "@", 2)[0]
	}

	token := s.newToken()
	entry := domain.PendingSubscriber{
		FirstName: firstName,
		LastName:  strings.TrimSpace(req.Surname),
		Email:     email,
		CreatedAt: s.now(),
	}
	if err := s.pending.Insert(token, entry); err != nil {
		return fmt.Errorf("failed to store pending subscription: %w", err)
	}

	msg, err := confirmationEmail(entry, s.backendURL, token)
	if err != nil {
		return err
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send confirmation email: %w", err)
	}

	s.logger.Info("confirmation email sent", "email", email)
	return nil
}

// Confirm promotes a pending subscription to a confirmed subscriber and
// sends the welcome email. A token that is unknown, already used, or
// strictly older than the confirmation window fails; an expired entry is
// evicted as a side effect of the attempt.
func (s *Service) Confirm(ctx context.Context, token string) (domain.Subscriber, error) {
	entry, ok, err := s.pending.Take(token)
	if err != nil {
		return domain.Subscriber{}, fmt.Errorf("failed to look up confirmation token: %w", err)
	}
	if !ok {
		return domain.Subscriber{}, domain.ErrInvalidOrExpiredToken
	}
	if s.now().Sub(entry.CreatedAt) > pendingTTL {
		// Take already removed the entry, which is exactly the eviction
		// the expiry path requires.
		return domain.Subscriber{}, domain.ErrInvalidOrExpiredToken
	}

	sub := domain.Subscriber{
		FirstName:        entry.FirstName,
		LastName:         entry.LastName,
		Email:            entry.Email,
		UnsubscribeToken: s.newToken(),
	}
	if err := s.subscribers.Insert(sub); err != nil {
		return domain.Subscriber{}, fmt.Errorf("failed to store subscriber: %w", err)
	}

	msg, err := welcomeEmail(sub, s.frontendURL)
	if err != nil {
		return domain.Subscriber{}, err
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return domain.Subscriber{}, fmt.Errorf("failed to send welcome email: %w", err)
	}

	s.logger.Info("subscription confirmed", "email", sub.Email)
	return sub, nil
}

// Unsubscribe removes the subscriber holding the given unsubscribe token.
func (s *Service) Unsubscribe(token string) error {
	removed, err := s.subscribers.DeleteByUnsubscribeToken(token)
	if err != nil {
		return fmt.Errorf("failed to remove subscriber: %w", err)
	}
	if !removed {
		return domain.ErrSubscriberNotFound
	}
	s.logger.Info("subscriber removed")
	return nil
}

// VerifyUnsubscribe resolves an unsubscribe token to the subscriber email it
// belongs to, so the frontend can show who is about to be removed.
func (s *Service) VerifyUnsubscribe(token string) (string, error) {
	sub, ok, err := s.subscribers.FindByUnsubscribeToken(token)
	if err != nil {
		return "", fmt.Errorf("failed to look up unsubscribe token: %w", err)
	}
	if !ok {
		return "", domain.ErrSubscriberNotFound
	}
	return sub.Email, nil
}

// ListSubscribers returns the requested 1-indexed page of subscribers.
func (s *Service) ListSubscribers(page int) (domain.SubscriberPage, error) {
	if page < 1 {
		page = 1
	}
	subs, total, totalPages, err := s.subscribers.Page(page, subscriberPageSize)
	if err != nil {
		return domain.SubscriberPage{}, fmt.Errorf("failed to read subscribers: %w", err)
	}
	return domain.SubscriberPage{
		Page:             page,
		TotalPages:       totalPages,
		TotalSubscribers: total,
		Subscribers:      subs,
	}, nil
}

// CreatePost publishes a post and notifies every subscriber. Notification
// failures are logged per recipient and never fail the publish; the call
// returns only after all dispatch attempts have completed.
func (s *Service) CreatePost(ctx context.Context, req domain.PostRequest) (domain.Post, error) {
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Content) == "" {
		return domain.Post{}, domain.ErrMissingField
	}

	post := domain.Post{
		ID:          s.newToken(),
		Title:       req.Title,
		Content:     req.Content,
		PublishedAt: s.now(),
	}
	if err := s.posts.Insert(post); err != nil {
		return domain.Post{}, fmt.Errorf("failed to store post: %w", err)
	}

	subs, err := s.subscribers.All()
	if err != nil {
		// The post is already published; a failed subscriber read is the
		// same outcome as every send failing.
		s.logger.Error("failed to load subscribers for notification", "post_id", post.ID, "error", err)
		return post, nil
	}
	s.notifier.NotifySubscribers(ctx, post, subs)

	return post, nil
}

// ListPosts returns every post, oldest first.
func (s *Service) ListPosts() ([]domain.Post, error) {
	posts, err := s.posts.All()
	if err != nil {
		return nil, fmt.Errorf("failed to read posts: %w", err)
	}
	return posts, nil
}

// GetPost resolves a post by id.
func (s *Service) GetPost(id string) (domain.Post, error) {
	post, ok, err := s.posts.FindByID(id)
	if err != nil {
		return domain.Post{}, fmt.Errorf("failed to read posts: %w", err)
	}
	if !ok {
		return domain.Post{}, domain.ErrPostNotFound
	}
	return post, nil
}

// SweepExpired evicts every pending entry older than the confirmation
// window. It runs on the scheduler tick and at the start of subscription
// requests.
func (s *Service) SweepExpired() {
	evicted, err := s.pending.SweepExpired(s.now(), pendingTTL)
	if err != nil {
		s.logger.Error("pending sweep failed", "error", err)
		return
	}
	if evicted > 0 {
		s.logger.Info("evicted expired pending subscriptions", "count", evicted)
	}
}
