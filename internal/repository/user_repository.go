package repository

import (
	"database/sql"
	"fmt"

	"recon-engine/internal/domain"
)

// UserRepository persists the authenticated principals that own batches and
// reconciliation projects.
type UserRepository interface {
	Create(u *domain.User) error
	GetByID(id int) (*domain.User, error)
	GetByUsername(username string) (*domain.User, error)
	GetByEmail(email string) (*domain.User, error)
	UpdateLastLogin(id int) error
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(u *domain.User) error {
	query := `
		INSERT INTO users (username, email, password_hash, is_active, is_admin)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(query, u.Username, u.Email, u.PasswordHash, u.IsActive, u.IsAdmin).
		Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *userRepository) GetByID(id int) (*domain.User, error) {
	return r.scanOne(`SELECT id, username, email, password_hash, is_active, is_admin, created_at, last_login
		FROM users WHERE id = $1`, id)
}

func (r *userRepository) GetByUsername(username string) (*domain.User, error) {
	return r.scanOne(`SELECT id, username, email, password_hash, is_active, is_admin, created_at, last_login
		FROM users WHERE username = $1`, username)
}

func (r *userRepository) GetByEmail(email string) (*domain.User, error) {
	return r.scanOne(`SELECT id, username, email, password_hash, is_active, is_admin, created_at, last_login
		FROM users WHERE email = $1`, email)
}

func (r *userRepository) scanOne(query string, arg interface{}) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRow(query, arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsActive, &u.IsAdmin, &u.CreatedAt, &u.LastLogin,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (r *userRepository) UpdateLastLogin(id int) error {
	_, err := r.db.Exec(`UPDATE users SET last_login = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}
