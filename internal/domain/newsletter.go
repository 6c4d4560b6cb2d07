/**
 * @description
 * This file defines the core domain models for the newsletter service:
 * pending subscription requests, confirmed subscribers, and blog posts.
 * These structs map one-to-one onto the JSON files the store persists.
 */
package domain

import "time"

// PendingSubscriber is a subscription request awaiting email confirmation.
// It lives in the pending file keyed by its confirmation token and expires
// thirty minutes after creation.
type PendingSubscriber struct {
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"timestamp"`
}

// Subscriber is a confirmed newsletter subscriber. The unsubscribe token is
// the per-subscriber secret that permits self-service removal without any
// other authentication.
type Subscriber struct {
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	Email            string `json:"email"`
	UnsubscribeToken string `json:"unsubscribeToken"`
}

// Post is a published blog post. Posts are immutable once published and are
// never removed.
type Post struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	PublishedAt time.Time `json:"timestamp"`
}

// SubscriptionRequest is the payload of POST /send-email. Name and surname
// are optional; a missing name falls back to the email local-part.
type SubscriptionRequest struct {
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Email   string `json:"email"`
}

// LoginRequest is the payload of POST /admin-login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// PostRequest is the payload of POST /add-post.
type PostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// SubscriberPage is the response of GET /get-subscribers.
type SubscriberPage struct {
	Page             int          `json:"page"`
	TotalPages       int          `json:"totalPages"`
	TotalSubscribers int          `json:"totalSubscribers"`
	Subscribers      []Subscriber `json:"subscribers"`
}
