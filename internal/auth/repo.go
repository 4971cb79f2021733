package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"tvcompare/internal/localstore"
)

const MinPasswordLen = 4

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPasswordTooShort   = fmt.Errorf("password must be at least %d characters", MinPasswordLen)
	ErrPasswordMismatch   = errors.New("new password and confirmation do not match")
)

// CredentialStore holds the single shared admin credential.
type CredentialStore interface {
	AdminCredentialHash(ctx context.Context) (string, error)
	SetAdminCredentialHash(ctx context.Context, hash string) error
	TokenVersion(ctx context.Context) (int, error)
	BumpTokenVersion(ctx context.Context) (int, error)
}

type Repo struct {
	Store CredentialStore
	// DefaultPassword is hashed and stored the first time it is needed.
	DefaultPassword string
	Cost            int
}

func NewRepo(store CredentialStore, defaultPassword string) *Repo {
	return &Repo{Store: store, DefaultPassword: defaultPassword, Cost: bcrypt.DefaultCost}
}

func (r *Repo) hash(ctx context.Context) (string, error) {
	h, err := r.Store.AdminCredentialHash(ctx)
	if err == nil {
		return h, nil
	}
	if !errors.Is(err, localstore.ErrMissing) {
		return "", fmt.Errorf("get admin credential: %w", err)
	}

	b, err := bcrypt.GenerateFromPassword([]byte(r.DefaultPassword), r.Cost)
	if err != nil {
		return "", fmt.Errorf("hash default password: %w", err)
	}
	if err := r.Store.SetAdminCredentialHash(ctx, string(b)); err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify checks password against the stored credential and returns the
// current token version on success.
func (r *Repo) Verify(ctx context.Context, password string) (int, error) {
	h, err := r.hash(ctx)
	if err != nil {
		return 0, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(h), []byte(password)); err != nil {
		return 0, ErrInvalidCredentials
	}
	return r.Store.TokenVersion(ctx)
}

// ChangePassword replaces the credential and invalidates issued tokens.
func (r *Repo) ChangePassword(ctx context.Context, current, next, confirm string) error {
	if _, err := r.Verify(ctx, current); err != nil {
		return err
	}
	if len(next) < MinPasswordLen {
		return ErrPasswordTooShort
	}
	if next != confirm {
		return ErrPasswordMismatch
	}

	b, err := bcrypt.GenerateFromPassword([]byte(next), r.Cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := r.Store.SetAdminCredentialHash(ctx, string(b)); err != nil {
		return err
	}
	if _, err := r.Store.BumpTokenVersion(ctx); err != nil {
		return err
	}
	return nil
}

func (r *Repo) GetTokenVersion(ctx context.Context) (int, error) {
	return r.Store.TokenVersion(ctx)
}

func (r *Repo) Logout(ctx context.Context) error {
	_, err := r.Store.BumpTokenVersion(ctx)
	return err
}
