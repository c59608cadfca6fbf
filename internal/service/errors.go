package service

import (
	"errors"

	"github.com/KattaManasa0402/Marine-life/internal/model"
)

var (
	ErrMediaNotFound = errors.New("media item not found")
	ErrVoteNotFound  = errors.New("vote not found")
	ErrUserNotFound  = errors.New("user not found")

	ErrEmptyVote      = model.ErrEmptyVote
	ErrInvalidVerdict = model.ErrInvalidVerdict

	ErrEmailTaken         = errors.New("email or username already registered")
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrInactiveUser       = errors.New("inactive user")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrForbidden          = errors.New("not allowed")

	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrInvalidInput     = errors.New("invalid input")
)
