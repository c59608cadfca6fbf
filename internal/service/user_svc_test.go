package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KattaManasa0402/Marine-life/internal/model"
	"github.com/KattaManasa0402/Marine-life/internal/repository"
)

type memUsers struct {
	byID   map[int64]*model.User
	nextID int64
}

func newMemUsers() *memUsers {
	return &memUsers{byID: make(map[int64]*model.User)}
}

func (m *memUsers) Create(_ context.Context, email, username, hashed string) (*model.User, error) {
	for _, u := range m.byID {
		if strings.EqualFold(u.Email, email) || u.Username == username {
			return nil, repository.ErrDuplicate
		}
	}
	m.nextID++
	u := &model.User{ID: m.nextID, Email: email, Username: username, HashedPassword: hashed, IsActive: true}
	m.byID[u.ID] = u
	cp := *u
	return &cp, nil
}

func (m *memUsers) FindByID(_ context.Context, id int64) (*model.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.byID {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) Update(_ context.Context, id int64, username, email, hashed *string) (*model.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if username != nil {
		u.Username = *username
	}
	if email != nil {
		u.Email = *email
	}
	if hashed != nil {
		u.HashedPassword = *hashed
	}
	cp := *u
	return &cp, nil
}

func newTestUserService(repo UserStore) *UserService {
	return NewUserService(repo, "test-secret", time.Hour)
}

func registerDiver(t *testing.T, svc *UserService) *model.User {
	t.Helper()
	u, err := svc.Register(context.Background(), model.RegisterRequest{
		Username: "diver", Email: "diver@example.org", Password: "coral-reef-1",
	})
	require.NoError(t, err)
	return u
}

func TestRegister_Validation(t *testing.T) {
	svc := newTestUserService(newMemUsers())

	tests := []struct {
		name string
		req  model.RegisterRequest
	}{
		{"bad email", model.RegisterRequest{Username: "diver", Email: "not-an-email", Password: "longenough"}},
		{"short username", model.RegisterRequest{Username: "ab", Email: "a@b.org", Password: "longenough"}},
		{"short password", model.RegisterRequest{Username: "diver", Email: "a@b.org", Password: "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestRegister_Duplicate(t *testing.T) {
	svc := newTestUserService(newMemUsers())
	registerDiver(t, svc)

	_, err := svc.Register(context.Background(), model.RegisterRequest{
		Username: "other", Email: "DIVER@example.org", Password: "coral-reef-2",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLogin(t *testing.T) {
	repo := newMemUsers()
	svc := newTestUserService(repo)
	u := registerDiver(t, svc)
	assert.NotEqual(t, "coral-reef-1", repo.byID[u.ID].HashedPassword)

	tok, err := svc.Login(context.Background(), model.LoginRequest{Email: "diver@example.org", Password: "coral-reef-1"})
	require.NoError(t, err)
	assert.Equal(t, "bearer", tok.TokenType)

	id, err := svc.ParseToken(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)

	_, err = svc.Login(context.Background(), model.LoginRequest{Email: "diver@example.org", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), model.LoginRequest{Email: "nobody@example.org", Password: "coral-reef-1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_InactiveUser(t *testing.T) {
	repo := newMemUsers()
	svc := newTestUserService(repo)
	u := registerDiver(t, svc)
	repo.byID[u.ID].IsActive = false

	_, err := svc.Login(context.Background(), model.LoginRequest{Email: "diver@example.org", Password: "coral-reef-1"})
	assert.ErrorIs(t, err, ErrInactiveUser)
}

func TestParseToken_Rejects(t *testing.T) {
	svc := newTestUserService(newMemUsers())
	u := &model.User{ID: 3, IsActive: true}

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ParseToken("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		tok, err := svc.issueToken(u)
		require.NoError(t, err)
		svc.now = time.Now

		_, err = svc.ParseToken(tok.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewUserService(newMemUsers(), "another-secret", time.Hour)
		tok, err := other.issueToken(u)
		require.NoError(t, err)

		_, err = svc.ParseToken(tok.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unsigned", func(t *testing.T) {
		claims := jwt.RegisteredClaims{Subject: "3", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
		tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.ParseToken(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestAuthenticate(t *testing.T) {
	repo := newMemUsers()
	svc := newTestUserService(repo)
	u := registerDiver(t, svc)
	tok, err := svc.issueToken(u)
	require.NoError(t, err)

	got, err := svc.Authenticate(context.Background(), tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "diver", got.Username)

	delete(repo.byID, u.ID)
	_, err = svc.Authenticate(context.Background(), tok.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestUpdateMe(t *testing.T) {
	repo := newMemUsers()
	svc := newTestUserService(repo)
	u := registerDiver(t, svc)
	oldHash := repo.byID[u.ID].HashedPassword

	name := "  reefwatcher "
	pw := "new-password-9"
	got, err := svc.UpdateMe(context.Background(), u.ID, model.UserUpdate{Username: &name, Password: &pw})
	require.NoError(t, err)
	assert.Equal(t, "reefwatcher", got.Username)
	assert.Equal(t, "diver@example.org", got.Email)
	assert.NotEqual(t, oldHash, repo.byID[u.ID].HashedPassword)

	_, err = svc.Login(context.Background(), model.LoginRequest{Email: "diver@example.org", Password: pw})
	assert.NoError(t, err)

	bad := "nope"
	_, err = svc.UpdateMe(context.Background(), u.ID, model.UserUpdate{Email: &bad})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.UpdateMe(context.Background(), 999, model.UserUpdate{})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestLookup_Public(t *testing.T) {
	svc := newTestUserService(newMemUsers())
	u := registerDiver(t, svc)

	p, err := svc.Lookup(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "diver", p.Username)

	_, err = svc.Lookup(context.Background(), 404)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
