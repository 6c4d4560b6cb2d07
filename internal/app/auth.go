/**
 * @description
 * This file implements admin authentication: the per-client-address
 * brute-force throttle and the credential check. Successful logins are
 * issued a short-lived signed session token instead of a fixed string, and
 * the password is compared against a bcrypt hash rather than plaintext.
 */
package app

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rabbithole/newsletter-service/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

const (
	maxLoginAttempts = 5
	lockoutWindow    = 5 * time.Minute
	sessionTokenTTL  = 12 * time.Hour
)

// loginAttempt tracks consecutive failures from one client address.
type loginAttempt struct {
	count       int
	lockedUntil time.Time
}

// Auth holds the admin credentials and the in-memory login throttle. The
// throttle state lives for the process lifetime and is keyed by client
// address; restarting the service clears it.
type Auth struct {
	username     string
	passwordHash string
	tokenSecret  []byte
	logger       *slog.Logger
	now          func() time.Time

	mu       sync.Mutex
	attempts map[string]*loginAttempt
}

// NewAuth creates the admin authenticator.
func NewAuth(username, passwordHash, tokenSecret string, logger *slog.Logger) *Auth {
	return &Auth{
		username:     username,
		passwordHash: passwordHash,
		tokenSecret:  []byte(tokenSecret),
		logger:       logger,
		now:          time.Now,
		attempts:     make(map[string]*loginAttempt),
	}
}

// Login validates the credential pair for the given client address. While
// the address is locked out every attempt is rejected up front with the
// remaining lockout duration, without consuming an attempt. The fifth
// consecutive failure starts a five-minute lockout and resets the counter.
func (a *Auth) Login(clientAddr, username, password string) (string, error) {
	now := a.now()

	a.mu.Lock()
	attempt, ok := a.attempts[clientAddr]
	if ok && now.Before(attempt.lockedUntil) {
		remaining := attempt.lockedUntil.Sub(now)
		a.mu.Unlock()
		return "", &domain.LockedError{RetryAfter: remaining}
	}
	a.mu.Unlock()

	if a.credentialsMatch(username, password) {
		a.mu.Lock()
		delete(a.attempts, clientAddr)
		a.mu.Unlock()

		token, err := a.issueSessionToken(now)
		if err != nil {
			return "", err
		}
		a.logger.Info("admin login succeeded", "client", clientAddr)
		return token, nil
	}

	a.mu.Lock()
	attempt = a.attempts[clientAddr]
	if attempt == nil {
		attempt = &loginAttempt{}
		a.attempts[clientAddr] = attempt
	}
	attempt.count++
	if attempt.count >= maxLoginAttempts {
		attempt.lockedUntil = now.Add(lockoutWindow)
		attempt.count = 0
		a.logger.Warn("admin login locked out", "client", clientAddr, "window", lockoutWindow)
	}
	a.mu.Unlock()

	return "", domain.ErrInvalidCredentials
}

func (a *Auth) credentialsMatch(username, password string) bool {
	usernameOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passwordOK := bcrypt.CompareHashAndPassword([]byte(a.passwordHash), []byte(password)) == nil
	return usernameOK && passwordOK
}

// issueSessionToken signs a fresh HS256 session token with a random jti.
func (a *Auth) issueSessionToken(now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   a.username,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(sessionTokenTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.tokenSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// VerifySessionToken parses and validates a session token issued by Login.
// It returns the subject claim on success.
func (a *Auth) VerifySessionToken(tokenString string) (string, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))
	claims := &jwt.RegisteredClaims{}

	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return a.tokenSecret, nil
	})
	if err != nil || !token.Valid {
		return "", domain.ErrInvalidOrExpiredToken
	}
	return claims.Subject, nil
}
