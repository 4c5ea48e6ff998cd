package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"recon-engine/internal/domain"
	"recon-engine/internal/repository"
)

const sessionTTL = 24 * time.Hour

// ErrInvalidCredentials is returned by Login on a bad username/password.
var ErrInvalidCredentials = fmt.Errorf("auth: invalid credentials")

// ErrSessionExpired is returned by ResolveSession for an expired or unknown token.
var ErrSessionExpired = fmt.Errorf("auth: session expired or not found")

// AuthService registers/authenticates Users and issues opaque session
// tokens consumed by middleware.Auth.
type AuthService interface {
	Register(username, email, password string) (*domain.User, error)
	Login(username, password string) (token string, user *domain.User, err error)
	ResolveSession(token string) (*domain.User, error)
	Logout(token string)
}

type session struct {
	userID    int
	expiresAt time.Time
}

type authService struct {
	users repository.UserRepository

	mu       sync.RWMutex
	sessions map[string]session
}

func NewAuthService(users repository.UserRepository) AuthService {
	return &authService{users: users, sessions: map[string]session{}}
}

func (s *authService) Register(username, email, password string) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := s.users.Create(u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (s *authService) Login(username, password string) (string, *domain.User, error) {
	u, err := s.users.GetByUsername(username)
	if err != nil {
		return "", nil, fmt.Errorf("lookup user: %w", err)
	}
	if u == nil || !u.IsActive {
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := newToken()
	if err != nil {
		return "", nil, fmt.Errorf("issue session token: %w", err)
	}

	s.mu.Lock()
	s.sessions[token] = session{userID: u.ID, expiresAt: time.Now().Add(sessionTTL)}
	s.mu.Unlock()

	_ = s.users.UpdateLastLogin(u.ID)
	return token, u, nil
}

func (s *authService) ResolveSession(token string) (*domain.User, error) {
	s.mu.RLock()
	sess, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok || time.Now().After(sess.expiresAt) {
		return nil, ErrSessionExpired
	}
	return s.users.GetByID(sess.userID)
}

func (s *authService) Logout(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
