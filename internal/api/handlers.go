/**
 * @description
 * This file contains the HTTP handler functions for the newsletter service.
 * Handlers are responsible for parsing incoming requests, calling the
 * appropriate business logic in the service layer, translating sentinel
 * errors to status codes, and writing the HTTP response.
 */
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rabbithole/newsletter-service/internal/app"
	"github.com/rabbithole/newsletter-service/internal/domain"
)

// Handler holds the application services that handlers interact with.
type Handler struct {
	service *app.Service
	auth    *app.Auth
	logger  *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(service *app.Service, auth *app.Auth, logger *slog.Logger) *Handler {
	return &Handler{service: service, auth: auth, logger: logger}
}

// handleSendEmail handles POST /send-email: it registers a pending
// subscription and sends the confirmation email.
func (h *Handler) handleSendEmail(w http.ResponseWriter, r *http.Request) {
	var req domain.SubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	err := h.service.RequestSubscription(r.Context(), req)
	switch {
	case err == nil:
		respondWithText(w, http.StatusOK, "Confirmation email sent.")
	case errors.Is(err, domain.ErrMissingField):
		http.Error(w, "Email is required.", http.StatusBadRequest)
	case errors.Is(err, domain.ErrDuplicateSubscriber):
		http.Error(w, "User is already subscribed or pending confirmation.", http.StatusBadRequest)
	default:
		h.logger.Error("subscription request failed", "error", err)
		http.Error(w, "Error sending confirmation email.", http.StatusInternalServerError)
	}
}

// handleConfirm handles GET /confirm/{token}: it promotes a pending
// subscription and responds with a small HTML welcome page.
func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	_, err := h.service.Confirm(r.Context(), token)
	switch {
	case err == nil:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `<h1 style="font-family: sans-serif; color: #4caf50;">Subscription confirmed!</h1>
<p>Thanks for subscribing to RabbitHole 🐇. We'll keep you posted!</p>`)
	case errors.Is(err, domain.ErrInvalidOrExpiredToken):
		http.Error(w, "Invalid or expired confirmation link.", http.StatusBadRequest)
	default:
		h.logger.Error("confirmation failed", "error", err)
		http.Error(w, "Error sending welcome email.", http.StatusInternalServerError)
	}
}

// handleAdminLogin handles POST /admin-login with the brute-force throttle.
func (h *Handler) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	token, err := h.auth.Login(clientAddr(r), req.Username, req.Password)
	var locked *domain.LockedError
	switch {
	case err == nil:
		respondWithJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"token":   token,
		})
	case errors.As(err, &locked):
		remaining := int(math.Ceil(locked.RetryAfter.Seconds()))
		respondWithJSON(w, http.StatusTooManyRequests, map[string]any{
			"success": false,
			"message": fmt.Sprintf("Too many attempts. Try again in %d seconds.", remaining),
		})
	case errors.Is(err, domain.ErrInvalidCredentials):
		respondWithJSON(w, http.StatusUnauthorized, map[string]any{
			"success": false,
			"message": "Incorrect username or password.",
		})
	default:
		h.logger.Error("admin login failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// handleGetSubscribers handles GET /get-subscribers?page=N.
func (h *Handler) handleGetSubscribers(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	result, err := h.service.ListSubscribers(page)
	if err != nil {
		h.logger.Error("failed to list subscribers", "error", err)
		respondWithJSON(w, http.StatusInternalServerError, map[string]any{
			"message": "Failed to read subscriber data.",
		})
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// handleUnsubscribe handles DELETE /unsubscribe?token=.
func (h *Handler) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Token is required.", http.StatusBadRequest)
		return
	}

	err := h.service.Unsubscribe(token)
	switch {
	case err == nil:
		respondWithText(w, http.StatusOK, "You have been unsubscribed successfully.")
	case errors.Is(err, domain.ErrSubscriberNotFound):
		http.Error(w, "Subscriber not found.", http.StatusNotFound)
	default:
		h.logger.Error("unsubscribe failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// handleVerifyUnsubscribe handles GET /verify-unsubscribe?token=. It lets
// the frontend confirm which email a token belongs to before removal.
func (h *Handler) handleVerifyUnsubscribe(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondWithJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "Token is required.",
		})
		return
	}

	email, err := h.service.VerifyUnsubscribe(token)
	switch {
	case err == nil:
		respondWithJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"email":   email,
		})
	case errors.Is(err, domain.ErrSubscriberNotFound):
		respondWithJSON(w, http.StatusNotFound, map[string]any{
			"success": false,
			"message": "Invalid or expired token.",
		})
	default:
		h.logger.Error("unsubscribe verification failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// handleAddPost handles POST /add-post: it publishes a post and notifies
// subscribers before responding.
func (h *Handler) handleAddPost(w http.ResponseWriter, r *http.Request) {
	var req domain.PostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	post, err := h.service.CreatePost(r.Context(), req)
	switch {
	case err == nil:
		respondWithJSON(w, http.StatusCreated, map[string]any{
			"message": "Post added and notification sent.",
			"post":    post,
		})
	case errors.Is(err, domain.ErrMissingField):
		respondWithJSON(w, http.StatusBadRequest, map[string]any{
			"message": "Title and content are required.",
		})
	default:
		h.logger.Error("post creation failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// handleGetPosts handles GET /get-posts.
func (h *Handler) handleGetPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.ListPosts()
	if err != nil {
		h.logger.Error("failed to list posts", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	respondWithJSON(w, http.StatusOK, posts)
}

// handleGetPost handles GET /get-post/{id}.
func (h *Handler) handleGetPost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	post, err := h.service.GetPost(id)
	switch {
	case err == nil:
		respondWithJSON(w, http.StatusOK, post)
	case errors.Is(err, domain.ErrPostNotFound):
		respondWithJSON(w, http.StatusNotFound, map[string]any{
			"message": "Post not found",
		})
	default:
		h.logger.Error("failed to get post", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// clientAddr returns the request's client host with any port stripped, so
// the login throttle keys on the address rather than the ephemeral port.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// respondWithJSON is a helper function to write JSON responses.
func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// respondWithText writes a plain-text response body.
func respondWithText(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	fmt.Fprint(w, message)
}
