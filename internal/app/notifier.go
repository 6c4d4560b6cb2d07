/**
 * @description
 * This file implements the notification dispatcher: when a post is
 * published, every subscriber is emailed independently. A failed send is
 * logged and counted but never aborts the batch, and the caller only gets
 * control back once every attempt has finished.
 */
package app

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rabbithole/newsletter-service/internal/domain"
	"github.com/rabbithole/newsletter-service/pkg/mailer"
)

// Notifier fans a new-post email out to the subscriber list.
type Notifier struct {
	mailer      mailer.Mailer
	frontendURL string
	logger      *slog.Logger
}

// NewNotifier creates a notification dispatcher.
func NewNotifier(m mailer.Mailer, frontendURL string, logger *slog.Logger) *Notifier {
	return &Notifier{mailer: m, frontendURL: frontendURL, logger: logger}
}

// NotifySubscribers sends one notification per subscriber and blocks until
// every attempt has completed. It returns the number of failed sends; the
// failures themselves are only logged, never retried.
func (n *Notifier) NotifySubscribers(ctx context.Context, post domain.Post, subscribers []domain.Subscriber) int {
	if len(subscribers) == 0 {
		return 0
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	failed := 0

	for _, sub := range subscribers {
		wg.Add(1)
		go func(sub domain.Subscriber) {
			defer wg.Done()

			msg, err := newPostEmail(sub, post, n.frontendURL)
			if err == nil {
				err = n.mailer.Send(ctx, msg)
			}
			if err != nil {
				n.logger.Error("failed to send post notification",
					"post_id", post.ID, "recipient", sub.Email, "error", err)
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}(sub)
	}
	wg.Wait()

	if failed > 0 {
		n.logger.Warn("post notification batch finished with failures",
			"post_id", post.ID, "subscribers", len(subscribers), "failed", failed)
	} else {
		n.logger.Info("post notification batch finished",
			"post_id", post.ID, "subscribers", len(subscribers))
	}
	return failed
}
