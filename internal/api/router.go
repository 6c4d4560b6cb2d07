/**
 * @description
 * This file sets up the HTTP router for the newsletter service using the
 * go-chi/chi router. It defines the API routes, applies middleware for
 * logging, panic recovery, and CORS, and falls back to the static frontend
 * build for unmatched routes.
 */
package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new Chi router and registers the newsletter routes.
// Unmatched paths are served from staticDir, falling back to its index.html
// so the single-page frontend can handle client-side routes.
func NewRouter(h *Handler, frontendURL, staticDir string) *chi.Mux {
	r := chi.NewRouter()

	// Setup middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{frontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any major browsers
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Newsletter service is healthy"))
	})

	r.Post("/send-email", h.handleSendEmail)
	r.Get("/confirm/{token}", h.handleConfirm)
	r.Post("/admin-login", h.handleAdminLogin)
	r.Get("/get-subscribers", h.handleGetSubscribers)
	r.Delete("/unsubscribe", h.handleUnsubscribe)
	r.Get("/verify-unsubscribe", h.handleVerifyUnsubscribe)
	r.Post("/add-post", h.handleAddPost)
	r.Get("/get-posts", h.handleGetPosts)
	r.Get("/get-post/{id}", h.handleGetPost)

	r.NotFound(staticHandler(staticDir))

	return r
}

// staticHandler serves files from the frontend build directory and answers
// every other GET with index.html.
func staticHandler(staticDir string) http.HandlerFunc {
	fileServer := http.FileServer(http.Dir(staticDir))
	indexPath := filepath.Join(staticDir, "index.html")

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.NotFound(w, r)
			return
		}

		requested := filepath.Join(staticDir, filepath.Clean("/"+strings.TrimPrefix(r.URL.Path, "/")))
		if info, err := os.Stat(requested); err == nil && !info.IsDir() {
			fileServer.ServeHTTP(w, r)
			return
		}

		http.ServeFile(w, r, indexPath)
	}
}
