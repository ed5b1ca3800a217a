package user

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/auth"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-krishi-connect/internal/user/repo"
)

type memStore struct {
	mu       sync.Mutex
	byID     map[string]*entity.User
	logins   int
	rehashed int
}

func newMemStore() *memStore { return &memStore{byID: map[string]*entity.User{}} }

func (m *memStore) Create(_ context.Context, u *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.byID {
		if x.Email == u.Email {
			return userrepo.ErrDuplicateEmail
		}
	}
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memStore) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.byID {
		if x.Email == email {
			cp := *x
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memStore) GetByID(_ context.Context, id string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if x, ok := m.byID[id]; ok {
		cp := *x
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memStore) TouchLastLogin(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	m.byID[id].LastLogin = &now
	m.logins++
	return nil
}

func (m *memStore) UpdatePassword(_ context.Context, id, hash, algo string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[id].PasswordHash = hash
	m.byID[id].PasswordAlgo = &algo
	m.rehashed++
	return nil
}

func (m *memStore) Deactivate(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[id].IsActive = false
	return nil
}

func newTestService(store *memStore) (*UserService, *auth.TokenService) {
	tokens := auth.NewTokenService(auth.Config{Secret: "s", TTL: time.Hour, Issuer: "krishi-connect"})
	return NewUserService(store, BcryptHasher{Cost: bcrypt.MinCost}, tokens), tokens
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc, tokens := newTestService(store)

	sess, err := svc.Register(ctx, RegisterInput{
		Email:    " Farmer@Example.com ",
		Password: "s3cret-pass",
		Name:     "Sita Devi",
		UserType: "farmer",
	})
	require.NoError(t, err)
	assert.Equal(t, "farmer@example.com", sess.User.Email)
	assert.Equal(t, "farmer", sess.User.UserType)

	p, err := tokens.Verify(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, p.ID)
	assert.Equal(t, auth.RoleFarmer, p.Role)
	assert.Equal(t, "Sita Devi", p.Name)

	login, err := svc.Login(ctx, LoginInput{Email: "FARMER@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, login.User.ID)
	assert.Equal(t, 1, store.logins)

	_, err = svc.Login(ctx, LoginInput{Email: "farmer@example.com", Password: "wrong-pass"})
	assert.ErrorIs(t, err, ErrBadCredentials)

	_, err = svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "s3cret-pass"})
	assert.ErrorIs(t, err, ErrBadCredentials)

	_, err = svc.Login(ctx, LoginInput{Email: "farmer@example.com", Password: "s3cret-pass", UserType: "government"})
	assert.ErrorIs(t, err, ErrUserTypeMismatch)
}

func TestRegisterValidationListsEveryField(t *testing.T) {
	svc, _ := newTestService(newMemStore())
	_, err := svc.Register(context.Background(), RegisterInput{Email: "bad", Password: "short", UserType: "admin"})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	fields := map[string]bool{}
	for _, f := range verr.Fields {
		fields[f.Field] = true
	}
	assert.Equal(t, map[string]bool{"email": true, "password": true, "name": true, "user_type": true}, fields)
}

func TestRegisterReportsMessages(t *testing.T) {
	svc, _ := newTestService(newMemStore())
	_, err := svc.Register(context.Background(), RegisterInput{Email: "not-an-address", Password: "password1", Name: " ", UserType: "farmer"})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []FieldError{
		{Field: "email", Message: "email is not a valid address"},
		{Field: "name", Message: "name is required"},
	}, verr.Fields)
}

func TestRegisterTrimsOptionalFields(t *testing.T) {
	svc, _ := newTestService(newMemStore())
	blank, loc := "   ", "  Pune  "
	sess, err := svc.Register(context.Background(), RegisterInput{
		Email: "c@example.com", Password: "password1", Name: "C", UserType: "farmer",
		Phone: &blank, Location: &loc,
	})
	require.NoError(t, err)
	assert.Nil(t, sess.User.Phone)
	require.NotNil(t, sess.User.Location)
	assert.Equal(t, "Pune", *sess.User.Location)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(newMemStore())
	in := RegisterInput{Email: "a@example.com", Password: "password1", Name: "A", UserType: "government"}
	_, err := svc.Register(context.Background(), in)
	require.NoError(t, err)
	_, err = svc.Register(context.Background(), in)
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestDeactivatedUserCannotLogin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(newMemStore())
	sess, err := svc.Register(ctx, RegisterInput{Email: "b@example.com", Password: "password1", Name: "B", UserType: "farmer"})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, sess.User.ID))
	_, err = svc.Login(ctx, LoginInput{Email: "b@example.com", Password: "password1"})
	assert.ErrorIs(t, err, ErrBadCredentials)

	assert.ErrorIs(t, svc.Deactivate(ctx, "missing"), ErrUserNotFound)
}

func TestLoginRehashesWeakHash(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	weak, _ := newTestService(store)
	_, err := weak.Register(ctx, RegisterInput{Email: "c@example.com", Password: "password1", Name: "C", UserType: "farmer"})
	require.NoError(t, err)

	tokens := auth.NewTokenService(auth.Config{Secret: "s", TTL: time.Hour})
	strong := NewUserService(store, BcryptHasher{Cost: bcrypt.MinCost + 1}, tokens)
	_, err = strong.Login(ctx, LoginInput{Email: "c@example.com", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, 1, store.rehashed)
}

func TestBcryptHasher(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}
	hash, algo, err := h.Hash("pw-12345")
	require.NoError(t, err)
	assert.Equal(t, "bcrypt:4", algo)
	assert.True(t, h.Verify(hash, "pw-12345"))
	assert.False(t, h.Verify(hash, "nope"))
	assert.False(t, h.NeedsRehash(hash))
	assert.True(t, BcryptHasher{Cost: 10}.NeedsRehash(hash))
	assert.False(t, h.NeedsRehash("not-a-hash"))
}
