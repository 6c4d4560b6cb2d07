package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rabbithole/newsletter-service/internal/domain"
	"github.com/rabbithole/newsletter-service/internal/store"
	"github.com/rabbithole/newsletter-service/pkg/mailer"
)

// mailerStub records every message and can be told to fail for specific
// recipients or for everyone.
type mailerStub struct {
	mu       sync.Mutex
	sent     []mailer.Message
	failFor  map[string]error
	failWith error
}

func (m *mailerStub) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	if m.failWith != nil {
		return m.failWith
	}
	if err, ok := m.failFor[msg.To]; ok {
		return err
	}
	return nil
}

func (m *mailerStub) messages() []mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mailer.Message, len(m.sent))
	copy(out, m.sent)
	return out
}

type serviceFixture struct {
	service *Service
	mailer  *mailerStub
	pending *store.PendingRepository
	subs    *store.SubscriberRepository
	posts   *store.PostRepository
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	dir := t.TempDir()

	pending := store.NewPendingRepository(filepath.Join(dir, "pendingSubscribers.json"))
	subs := store.NewSubscriberRepository(filepath.Join(dir, "subscribers.json"))
	posts := store.NewPostRepository(filepath.Join(dir, "posts.json"))
	for _, init := range []func() error{pending.Init, subs.Init, posts.Init} {
		if err := init(); err != nil {
			t.Fatalf("repo init returned error: %v", err)
		}
	}

	m := &mailerStub{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	notifier := NewNotifier(m, "https://rabbithole.example", logger)
	service := NewService(pending, subs, posts, m, notifier, logger,
		"https://rabbithole.example", "https://api.rabbithole.example")

	return &serviceFixture{service: service, mailer: m, pending: pending, subs: subs, posts: posts}
}

func TestRequestSubscription_CreatesPendingAndSendsConfirmation(t *testing.T) {
	f := newServiceFixture(t)
	f.service.newToken = func() string { return "tok-1" }

	req := domain.SubscriptionRequest{Name: "Ada", Surname: "Lovelace", Email: "ada@example.com"}
	if err := f.service.RequestSubscription(context.Background(), req); err != nil {
		t.Fatalf("RequestSubscription returned error: %v", err)
	}

	found, err := f.pending.FindByEmail("ada@example.com")
	if err != nil {
		t.Fatalf("FindByEmail returned error: %v", err)
	}
	if !found {
		t.Fatal("expected a pending entry for the requested email")
	}

	msgs := f.mailer.messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 email, got %d", len(msgs))
	}
	if msgs[0].To != "ada@example.com" {
		t.Fatalf("expected confirmation sent to ada@example.com, got %s", msgs[0].To)
	}
	if !strings.Contains(msgs[0].HTMLBody, "https://api.rabbithole.example/confirm/tok-1") {
		t.Fatal("expected confirmation body to carry the confirm link")
	}
}

func TestRequestSubscription_MissingEmail(t *testing.T) {
	f := newServiceFixture(t)

	err := f.service.RequestSubscription(context.Background(), domain.SubscriptionRequest{Name: "Ada"})
	if !errors.Is(err, domain.ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
	if len(f.mailer.messages()) != 0 {
		t.Fatal("expected no email for a rejected request")
	}
}

func TestRequestSubscription_DerivesNameFromEmailLocalPart(t *testing.T) {
	f := newServiceFixture(t)
	f.service.newToken = func() string { return "tok-1" }

	req := domain.SubscriptionRequest{Email: "ada.lovelace@example.com"}
	if err := f.service.RequestSubscription(context.Background(), req); err != nil {
		t.Fatalf("RequestSubscription returned error: %v", err)
	}

	entry, ok, err := f.pending.Take("tok-1")
	if err != nil || !ok {
		t.Fatalf("expected pending entry, got ok=%v err=%v", ok, err)
	}
	if entry.FirstName != "ada.lovelace" {
		t.Fatalf("expected first name derived from local part, got %q", entry.FirstName)
	}
	if entry.LastName != "" {
		t.Fatalf("expected empty last name, got %q", entry.LastName)
	}
}

func TestRequestSubscription_RejectsDuplicates(t *testing.T) {
	f := newServiceFixture(t)

	req := domain.SubscriptionRequest{Email: "ada@example.com"}
	if err := f.service.RequestSubscription(context.Background(), req); err != nil {
		t.Fatalf("first request returned error: %v", err)
	}

	// Duplicate against the pending registry.
	err := f.service.RequestSubscription(context.Background(), req)
	if !errors.Is(err, domain.ErrDuplicateSubscriber) {
		t.Fatalf("expected ErrDuplicateSubscriber for pending email, got %v", err)
	}

	// Duplicate against the confirmed registry.
	if err := f.subs.Insert(domain.Subscriber{Email: "grace@example.com", UnsubscribeToken: "u1"}); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}
	err = f.service.RequestSubscription(context.Background(), domain.SubscriptionRequest{Email: "grace@example.com"})
	if !errors.Is(err, domain.ErrDuplicateSubscriber) {
		t.Fatalf("expected ErrDuplicateSubscriber for confirmed email, got %v", err)
	}
}

func TestRequestSubscription_SweepsExpiredBeforeDuplicateCheck(t *testing.T) {
	f := newServiceFixture(t)

	stale := domain.PendingSubscriber{
		Email:     "ada@example.com",
		CreatedAt: time.Now().Add(-31 * time.Minute),
	}
	if err := f.pending.Insert("old-token", stale); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}

	// The expired entry must not count as a duplicate.
	req := domain.SubscriptionRequest{Email: "ada@example.com"}
	if err := f.service.RequestSubscription(context.Background(), req); err != nil {
		t.Fatalf("RequestSubscription returned error: %v", err)
	}
	if _, ok, _ := f.pending.Take("old-token"); ok {
		t.Fatal("expected the expired entry to be swept")
	}
}

func TestConfirm_FullLifecycle(t *testing.T) {
	f := newServiceFixture(t)

	tokens := []string{"confirm-token", "unsub-token"}
	f.service.newToken = func() string {
		token := tokens[0]
		tokens = tokens[1:]
		return token
	}

	req := domain.SubscriptionRequest{Email: "a@x.com"}
	if err := f.service.RequestSubscription(context.Background(), req); err != nil {
		t.Fatalf("RequestSubscription returned error: %v", err)
	}

	sub, err := f.service.Confirm(context.Background(), "confirm-token")
	if err != nil {
		t.Fatalf("Confirm returned error: %v", err)
	}
	if sub.Email != "a@x.com" || sub.UnsubscribeToken != "unsub-token" {
		t.Fatalf("unexpected subscriber: %+v", sub)
	}

	found, err := f.subs.FindByEmail("a@x.com")
	if err != nil || !found {
		t.Fatalf("expected confirmed subscriber, found=%v err=%v", found, err)
	}

	// Welcome email carries the unsubscribe link.
	msgs := f.mailer.messages()
	welcome := msgs[len(msgs)-1]
	if !strings.Contains(welcome.HTMLBody, "unsubscribe?token=unsub-token") {
		t.Fatal("expected welcome email to carry the unsubscribe link")
	}

	if err := f.service.Unsubscribe("unsub-token"); err != nil {
		t.Fatalf("Unsubscribe returned error: %v", err)
	}
	if found, _ := f.subs.FindByEmail("a@x.com"); found {
		t.Fatal("expected subscriber to be removed")
	}

	// Retry is a no-op that reports not found.
	if err := f.service.Unsubscribe("unsub-token"); !errors.Is(err, domain.ErrSubscriberNotFound) {
		t.Fatalf("expected ErrSubscriberNotFound on retry, got %v", err)
	}
}

func TestConfirm_UnknownToken(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.Confirm(context.Background(), "missing")
	if !errors.Is(err, domain.ErrInvalidOrExpiredToken) {
		t.Fatalf("expected ErrInvalidOrExpiredToken, got %v", err)
	}
}

func TestConfirm_TokenUsableExactlyOnce(t *testing.T) {
	f := newServiceFixture(t)
	f.service.newToken = func() string { return "tok-1" }

	req := domain.SubscriptionRequest{Email: "ada@example.com"}
	if err := f.service.RequestSubscription(context.Background(), req); err != nil {
		t.Fatalf("RequestSubscription returned error: %v", err)
	}

	if _, err := f.service.Confirm(context.Background(), "tok-1"); err != nil {
		t.Fatalf("first Confirm returned error: %v", err)
	}
	if _, err := f.service.Confirm(context.Background(), "tok-1"); !errors.Is(err, domain.ErrInvalidOrExpiredToken) {
		t.Fatalf("expected second Confirm to fail with ErrInvalidOrExpiredToken, got %v", err)
	}
}

func TestConfirm_ExpiryBoundary(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		age     time.Duration
		wantErr bool
	}{
		{name: "within window", age: 29 * time.Minute, wantErr: false},
		{name: "exactly at TTL", age: 30 * time.Minute, wantErr: false},
		{name: "past TTL", age: 30*time.Minute + time.Second, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(t)
			f.service.now = func() time.Time { return base }

			entry := domain.PendingSubscriber{
				FirstName: "Ada",
				Email:     "ada@example.com",
				CreatedAt: base.Add(-tt.age),
			}
			if err := f.pending.Insert("tok-1", entry); err != nil {
				t.Fatalf("Insert returned error: %v", err)
			}

			_, err := f.service.Confirm(context.Background(), "tok-1")
			if tt.wantErr {
				if !errors.Is(err, domain.ErrInvalidOrExpiredToken) {
					t.Fatalf("expected ErrInvalidOrExpiredToken, got %v", err)
				}
				// The expired entry is evicted by the failed attempt.
				if _, ok, _ := f.pending.Take("tok-1"); ok {
					t.Fatal("expected expired entry to be evicted")
				}
			} else if err != nil {
				t.Fatalf("Confirm returned error: %v", err)
			}
		})
	}
}

func TestVerifyUnsubscribe(t *testing.T) {
	f := newServiceFixture(t)

	if err := f.subs.Insert(domain.Subscriber{Email: "ada@example.com", UnsubscribeToken: "u1"}); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}

	email, err := f.service.VerifyUnsubscribe("u1")
	if err != nil {
		t.Fatalf("VerifyUnsubscribe returned error: %v", err)
	}
	if email != "ada@example.com" {
		t.Fatalf("expected ada@example.com, got %s", email)
	}

	if _, err := f.service.VerifyUnsubscribe("ghost"); !errors.Is(err, domain.ErrSubscriberNotFound) {
		t.Fatalf("expected ErrSubscriberNotFound, got %v", err)
	}
}

func TestListSubscribers_Pagination(t *testing.T) {
	f := newServiceFixture(t)

	for i := 0; i < 25; i++ {
		sub := domain.Subscriber{
			Email:            fmt.Sprintf("sub%d@example.com", i),
			UnsubscribeToken: fmt.Sprintf("u%d", i),
		}
		if err := f.subs.Insert(sub); err != nil {
			t.Fatalf("Insert(%d) returned error: %v", i, err)
		}
	}

	wantSizes := map[int]int{1: 10, 2: 10, 3: 5, 4: 0}
	for page, wantSize := range wantSizes {
		result, err := f.service.ListSubscribers(page)
		if err != nil {
			t.Fatalf("ListSubscribers(%d) returned error: %v", page, err)
		}
		if len(result.Subscribers) != wantSize {
			t.Fatalf("page %d: expected %d subscribers, got %d", page, wantSize, len(result.Subscribers))
		}
		if result.TotalPages != 3 {
			t.Fatalf("page %d: expected 3 total pages, got %d", page, result.TotalPages)
		}
		if result.TotalSubscribers != 25 {
			t.Fatalf("page %d: expected 25 total subscribers, got %d", page, result.TotalSubscribers)
		}
	}
}

func TestCreatePost_MissingFieldsPersistNothing(t *testing.T) {
	f := newServiceFixture(t)

	tests := []struct {
		name string
		req  domain.PostRequest
	}{
		{name: "empty title", req: domain.PostRequest{Content: "body"}},
		{name: "empty content", req: domain.PostRequest{Title: "title"}},
		{name: "both empty", req: domain.PostRequest{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.service.CreatePost(context.Background(), tt.req); !errors.Is(err, domain.ErrMissingField) {
				t.Fatalf("expected ErrMissingField, got %v", err)
			}
		})
	}

	posts, err := f.posts.All()
	if err != nil {
		t.Fatalf("All returned error: %v", err)
	}
	if len(posts) != 0 {
		t.Fatalf("expected no posts to be stored, got %d", len(posts))
	}
}

func TestCreatePost_NotifiesEverySubscriberDespiteFailures(t *testing.T) {
	f := newServiceFixture(t)
	f.mailer.failFor = map[string]error{"sub1@example.com": errors.New("mailbox full")}

	for i := 0; i < 3; i++ {
		sub := domain.Subscriber{
			Email:            fmt.Sprintf("sub%d@example.com", i),
			UnsubscribeToken: fmt.Sprintf("u%d", i),
		}
		if err := f.subs.Insert(sub); err != nil {
			t.Fatalf("Insert(%d) returned error: %v", i, err)
		}
	}

	post, err := f.service.CreatePost(context.Background(), domain.PostRequest{Title: "Hello", Content: "World"})
	if err != nil {
		t.Fatalf("CreatePost returned error despite send failure: %v", err)
	}
	if post.ID == "" {
		t.Fatal("expected a generated post id")
	}

	msgs := f.mailer.messages()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 notification attempts, got %d", len(msgs))
	}

	posts, err := f.posts.All()
	if err != nil {
		t.Fatalf("All returned error: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("expected 1 stored post, got %d", len(posts))
	}
}

func TestGetPost(t *testing.T) {
	f := newServiceFixture(t)

	created, err := f.service.CreatePost(context.Background(), domain.PostRequest{Title: "Hello", Content: "World"})
	if err != nil {
		t.Fatalf("CreatePost returned error: %v", err)
	}

	got, err := f.service.GetPost(created.ID)
	if err != nil {
		t.Fatalf("GetPost returned error: %v", err)
	}
	if got.Title != "Hello" {
		t.Fatalf("expected stored post, got %+v", got)
	}

	if _, err := f.service.GetPost("missing"); !errors.Is(err, domain.ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound, got %v", err)
	}
}
