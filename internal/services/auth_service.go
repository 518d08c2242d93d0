// internal/services/auth_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rfmontes/angel-fit-app/internal/config"
	"github.com/rfmontes/angel-fit-app/internal/models"
	"github.com/rfmontes/angel-fit-app/internal/store"
	"github.com/rfmontes/angel-fit-app/internal/utils"
)

type SessionEvent string

const (
	SessionSignedIn  SessionEvent = "signed_in"
	SessionSignedOut SessionEvent = "signed_out"
)

// AuthService signs the operator in with email and password and tracks the
// resulting sessions in memory. A session lives until it expires or is
// signed out; restarting the process signs everyone out.
type AuthService struct {
	users  store.UserStore
	cfg    *config.Config
	logger *logrus.Logger
	now    func() time.Time

	mu        sync.RWMutex
	sessions  map[string]*Session
	nextSub   int
	listeners map[int]func(SessionEvent, *Session)
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type Session struct {
	ID          string       `json:"-"`
	User        *models.User `json:"user"`
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	ExpiresIn   int          `json:"expires_in"` // in seconds
}

func NewAuthService(users store.UserStore, cfg *config.Config, logger *logrus.Logger) *AuthService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AuthService{
		users:     users,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
		sessions:  make(map[string]*Session),
		listeners: make(map[int]func(SessionEvent, *Session)),
	}
}

// EnsureOperator creates the operator account if no user has that email.
func (s *AuthService) EnsureOperator(ctx context.Context, email, password, name string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}

	if _, err := s.users.FindUserByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to look up operator: %w", err)
	}

	user := &models.User{
		Email:  email,
		Name:   name,
		Status: models.UserStatusActive,
	}
	if err := user.SetPassword(password); err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("failed to create operator: %w", err)
	}

	s.logger.WithField("email", email).Info("Operator account created")
	return nil
}

func (s *AuthService) SignInWithPassword(ctx context.Context, req *LoginRequest) (*Session, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	user, err := s.users.FindUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if err := user.CheckPassword(req.Password); err != nil {
		s.logger.WithField("email", req.Email).Warn("Failed sign-in attempt")
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive() {
		return nil, ErrUserSuspended
	}

	if err := s.users.TouchLastLogin(ctx, user.ID); err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Warn("Failed to record last login")
	}

	sessionID, err := utils.GenerateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}
	token, expiresAt, err := utils.GenerateJWT(user.ID, user.Email, sessionID, s.cfg.JWT.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	session := &Session{
		ID:          sessionID,
		User:        user,
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		ExpiresIn:   s.cfg.JWT.AccessTokenTTL * 3600, // Convert hours to seconds
	}

	s.mu.Lock()
	s.sessions[sessionID] = session
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   user.Email,
	}).Info("Operator signed in")
	s.notify(SessionSignedIn, session)
	return session, nil
}

// GetSession returns the live session a token belongs to.
func (s *AuthService) GetSession(token string) (*Session, error) {
	claims, err := utils.ValidateJWT(token)
	if err != nil {
		return nil, ErrNoSession
	}

	s.mu.RLock()
	session, ok := s.sessions[claims.ID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNoSession
	}
	if !s.now().Before(session.ExpiresAt) {
		s.expire(session)
		return nil, ErrNoSession
	}
	return session, nil
}

// SignOut revokes the session of token. Unknown tokens are ignored.
func (s *AuthService) SignOut(token string) error {
	claims, err := utils.ValidateJWT(token)
	if err != nil {
		return ErrNoSession
	}

	s.mu.Lock()
	session, ok := s.sessions[claims.ID]
	delete(s.sessions, claims.ID)
	s.mu.Unlock()

	if ok {
		s.logger.WithField("user_id", session.User.ID).Info("Operator signed out")
		s.notify(SessionSignedOut, session)
	}
	return nil
}

func (s *AuthService) expire(session *Session) {
	s.mu.Lock()
	_, ok := s.sessions[session.ID]
	delete(s.sessions, session.ID)
	s.mu.Unlock()
	if ok {
		s.notify(SessionSignedOut, session)
	}
}

// PruneExpired drops expired sessions and returns how many were removed.
func (s *AuthService) PruneExpired() int {
	now := s.now()
	var expired []*Session

	s.mu.Lock()
	for id, session := range s.sessions {
		if !now.Before(session.ExpiresAt) {
			expired = append(expired, session)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, session := range expired {
		s.notify(SessionSignedOut, session)
	}
	return len(expired)
}

// OnSessionChange registers fn to be called on sign-in and sign-out. The
// returned function removes it.
func (s *AuthService) OnSessionChange(fn func(SessionEvent, *Session)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *AuthService) notify(ev SessionEvent, session *Session) {
	s.mu.RLock()
	fns := make([]func(SessionEvent, *Session), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(ev, session)
	}
}
