package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/auth"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-krishi-connect/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/pkg/utilities"
)

// PasswordHasher defines minimal hashing interface (abstract so we can swap to argon2 later).
type PasswordHasher interface {
	Hash(pw string) (hash string, algo string, err error)
	Verify(hash, pw string) bool
	NeedsRehash(hash string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) cost() int {
	if b.Cost == 0 {
		return bcrypt.DefaultCost
	}
	return b.Cost
}

func (b BcryptHasher) Hash(pw string) (string, string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(pw), b.cost())
	if err != nil {
		return "", "", err
	}
	return string(h), fmt.Sprintf("bcrypt:%d", b.cost()), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// NeedsRehash reports whether hash was produced with a lower cost than configured.
func (b BcryptHasher) NeedsRehash(hash string) bool {
	c, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return false
	}
	return c < b.cost()
}

// Store is the credential store used by the service.
type Store interface {
	Create(ctx context.Context, u *entity.User) error
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByID(ctx context.Context, id string) (*entity.User, error)
	TouchLastLogin(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, hash, algo string) error
	Deactivate(ctx context.Context, id string) error
}

// TokenIssuer mints bearer tokens for authenticated principals.
type TokenIssuer interface {
	Issue(p auth.Principal) (string, time.Time, error)
}

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrBadCredentials   = errors.New("invalid credentials")
	ErrEmailExists      = errors.New("email already registered")
	ErrUserTypeMismatch = errors.New("user type does not match")
)

const minPasswordLen = 8

// Registration validation shares the request-wide error types.
type (
	FieldError      = utilities.FieldError
	ValidationError = utilities.ValidationError
)

// UserService orchestrates registration and authentication.
type UserService struct {
	repo   Store
	hasher PasswordHasher
	tokens TokenIssuer
}

func NewUserService(r Store, hasher PasswordHasher, tokens TokenIssuer) *UserService {
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	return &UserService{repo: r, hasher: hasher, tokens: tokens}
}

// NewDBUserService wires the service to the users table.
func NewDBUserService(db *sqlx.DB, tokens TokenIssuer) *UserService {
	return NewUserService(userrepo.NewUserRepo(db), nil, tokens)
}

// RegisterInput is the registration payload.
type RegisterInput struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     string  `json:"name"`
	Phone    *string `json:"phone,omitempty"`
	UserType string  `json:"user_type"`
	Location *string `json:"location,omitempty"`
}

// Session is returned by Register and Login.
type Session struct {
	User      entity.Profile `json:"user"`
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// Register creates an account and returns a session for it.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	name := strings.TrimSpace(in.Name)
	var v utilities.Violations
	if v.Required("email", email); email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			v.Add("email", "email is not a valid address")
		}
	}
	if len(in.Password) < minPasswordLen {
		v.Add("password", "password must be at least %d characters", minPasswordLen)
	}
	v.Required("name", name)
	role, ok := auth.ParseRole(in.UserType)
	if !ok {
		v.Add("user_type", "user_type must be farmer or government")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	hash, algo, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &entity.User{
		ID:           utilities.NewSnowflakeID(),
		Email:        email,
		PasswordHash: hash,
		PasswordAlgo: &algo,
		Name:         name,
		Phone:        utilities.Trimmed(in.Phone),
		UserType:     string(role),
		Location:     utilities.Trimmed(in.Location),
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, userrepo.ErrDuplicateEmail) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return s.session(u)
}

// LoginInput is the login payload. UserType is optional.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	UserType string `json:"user_type,omitempty"`
}

// Login authenticates by email and password.
func (s *UserService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return nil, ErrBadCredentials
	}
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBadCredentials
		} // avoid user enumeration
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !u.IsActive || !s.hasher.Verify(u.PasswordHash, in.Password) {
		return nil, ErrBadCredentials
	}
	if in.UserType != "" && !strings.EqualFold(in.UserType, u.UserType) {
		return nil, ErrUserTypeMismatch
	}
	if err := s.repo.TouchLastLogin(ctx, u.ID); err != nil {
		return nil, fmt.Errorf("touch last login: %w", err)
	}
	if s.hasher.NeedsRehash(u.PasswordHash) {
		if newHash, algo, hErr := s.hasher.Hash(in.Password); hErr == nil {
			_ = s.repo.UpdatePassword(ctx, u.ID, newHash, algo)
		}
	}
	return s.session(u)
}

// Profile returns the stored profile for id.
func (s *UserService) Profile(ctx context.Context, id string) (*entity.Profile, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	p := u.Profile()
	return &p, nil
}

// Deactivate disables an account. Tokens already issued remain valid until they expire.
func (s *UserService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	return s.repo.Deactivate(ctx, id)
}

func (s *UserService) session(u *entity.User) (*Session, error) {
	tok, exp, err := s.tokens.Issue(auth.Principal{
		ID:    u.ID,
		Role:  auth.Role(u.UserType),
		Name:  u.Name,
		Email: u.Email,
	})
	if err != nil {
		return nil, err
	}
	return &Session{User: u.Profile(), Token: tok, ExpiresAt: exp}, nil
}

