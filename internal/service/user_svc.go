package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/KattaManasa0402/Marine-life/internal/model"
	"github.com/KattaManasa0402/Marine-life/internal/repository"
)

const minPasswordLen = 8

// UserStore is the user persistence the account service needs.
type UserStore interface {
	Create(ctx context.Context, email, username, hashedPassword string) (*model.User, error)
	FindByID(ctx context.Context, id int64) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, id int64, username, email, hashedPassword *string) (*model.User, error)
}

// UserService handles registration, login and profiles.
type UserService struct {
	repo   UserStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewUserService(repo UserStore, jwtSecret string, ttl time.Duration) *UserService {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &UserService{repo: repo, secret: []byte(jwtSecret), ttl: ttl, now: time.Now}
}

// Register creates an active account.
func (s *UserService) Register(ctx context.Context, req model.RegisterRequest) (*model.User, error) {
	email := strings.TrimSpace(req.Email)
	username := strings.TrimSpace(req.Username)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if len(username) < 3 || len(username) > 50 {
		return nil, fmt.Errorf("%w: username must be 3-50 characters", ErrInvalidInput)
	}
	if len(req.Password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLen)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u, err := s.repo.Create(ctx, email, username, string(hash))
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return u, nil
}

// Login checks credentials and issues a bearer token.
func (s *UserService) Login(ctx context.Context, req model.LoginRequest) (*model.TokenResponse, error) {
	u, err := s.repo.FindByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrInactiveUser
	}
	return s.issueToken(u)
}

func (s *UserService) issueToken(u *model.User) (*model.TokenResponse, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(u.ID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &model.TokenResponse{AccessToken: signed, TokenType: "bearer", ExpiresAt: exp.Unix()}, nil
}

// ParseToken validates a bearer token and returns the user id it names.
func (s *UserService) ParseToken(token string) (int64, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return 0, ErrInvalidToken
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}

// Authenticate resolves a token to an active user.
func (s *UserService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	id, err := s.ParseToken(token)
	if err != nil {
		return nil, err
	}
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrInactiveUser
	}
	return u, nil
}

// UpdateMe applies a partial update to the caller's own profile.
func (s *UserService) UpdateMe(ctx context.Context, userID int64, upd model.UserUpdate) (*model.User, error) {
	var username, email, hashed *string
	if upd.Username != nil {
		v := strings.TrimSpace(*upd.Username)
		if len(v) < 3 || len(v) > 50 {
			return nil, fmt.Errorf("%w: username must be 3-50 characters", ErrInvalidInput)
		}
		username = &v
	}
	if upd.Email != nil {
		v := strings.TrimSpace(*upd.Email)
		if err := validateEmail(v); err != nil {
			return nil, err
		}
		email = &v
	}
	if upd.Password != nil {
		if len(*upd.Password) < minPasswordLen {
			return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLen)
		}
		h, err := bcrypt.GenerateFromPassword([]byte(*upd.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		v := string(h)
		hashed = &v
	}

	u, err := s.repo.Update(ctx, userID, username, email, hashed)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, repository.ErrDuplicate):
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return u, nil
}

// Lookup returns the public profile of a user.
func (s *UserService) Lookup(ctx context.Context, userID int64) (*model.PublicUser, error) {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	p := u.Public()
	return &p, nil
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: invalid email address", ErrInvalidInput)
	}
	return nil
}
