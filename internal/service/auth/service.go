package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"chat-app/internal/database"
	internaljwt "chat-app/internal/jwt"
	"chat-app/internal/model"
)

const maxUsernameLength = 32

type Service struct {
	repo   Repository
	issuer *internaljwt.Issuer
	now    func() time.Time
}

func New(db *database.DynamoDBClient, issuer *internaljwt.Issuer) *Service {
	return &Service{
		repo:   NewDynamoRepository(db),
		issuer: issuer,
		now:    time.Now,
	}
}

func NewWithRepository(repo Repository, issuer *internaljwt.Issuer, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}

	return &Service{
		repo:   repo,
		issuer: issuer,
		now:    now,
	}
}

func (s *Service) Register(ctx context.Context, params RegisterParams) (model.UserItem, error) {
	username := strings.TrimSpace(params.Username)
	password := params.Password

	if username == "" || strings.TrimSpace(password) == "" {
		return model.UserItem{}, newError(ErrorCodeValidation, "username and password are required", nil)
	}
	if len(username) > maxUsernameLength || strings.ContainsAny(username, " \t\r\n") {
		return model.UserItem{}, newError(ErrorCodeValidation, "invalid username", nil)
	}

	if _, err := s.repo.GetUserByUsername(ctx, username); err == nil {
		return model.UserItem{}, newError(ErrorCodeConflict, "username already taken", nil)
	} else if !errors.Is(err, ErrNotFound) {
		return model.UserItem{}, newError(ErrorCodeInternal, "failed to check username", err)
	}

	hashed, err := internaljwt.NewUser(internaljwt.RegisterUser{
		Username: username,
		Password: password,
	})
	if err != nil {
		return model.UserItem{}, newError(ErrorCodeInternal, "failed to prepare user", err)
	}

	userID, err := s.repo.NextUserID(ctx)
	if err != nil {
		return model.UserItem{}, newError(ErrorCodeInternal, "failed to allocate user id", err)
	}

	user := model.UserItem{
		Username:     username,
		UserID:       userID,
		PasswordHash: hashed.PasswordHash,
		CreatedAt:    s.now().UTC().Format(time.RFC3339),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrConflict) {
			return model.UserItem{}, newError(ErrorCodeConflict, "username already taken", err)
		}
		return model.UserItem{}, newError(ErrorCodeInternal, "failed to save user", err)
	}

	return user, nil
}

func (s *Service) Login(ctx context.Context, params LoginParams) (LoginResult, error) {
	username := strings.TrimSpace(params.Username)
	if username == "" || params.Password == "" {
		return LoginResult{}, newError(ErrorCodeValidation, "username and password are required", nil)
	}

	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return LoginResult{}, newError(ErrorCodeUnauthorized, "invalid credentials", nil)
		}
		return LoginResult{}, newError(ErrorCodeInternal, "failed to fetch user", err)
	}

	if !internaljwt.ValidatePassword(user.PasswordHash, params.Password) {
		return LoginResult{}, newError(ErrorCodeUnauthorized, "invalid credentials", nil)
	}

	token, err := s.issuer.CreateToken(internaljwt.User{
		ID:       user.UserID,
		Username: user.Username,
	})
	if err != nil {
		return LoginResult{}, newError(ErrorCodeInternal, "failed to issue token", err)
	}

	return LoginResult{User: user, Token: token}, nil
}

func (s *Service) IdentityFromAuthorizationHeader(header string) (Identity, error) {
	authHeader := strings.TrimSpace(header)
	if authHeader == "" {
		return Identity{}, newError(ErrorCodeUnauthorized, "missing authorization header", nil)
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		return Identity{}, newError(ErrorCodeUnauthorized, "invalid authorization header format", nil)
	}

	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	return s.IdentityFromToken(token)
}

func (s *Service) IdentityFromToken(token string) (Identity, error) {
	if token == "" {
		return Identity{}, newError(ErrorCodeUnauthorized, "empty token", nil)
	}

	claims, err := s.issuer.ParseToken(token)
	if err != nil {
		return Identity{}, newError(ErrorCodeUnauthorized, "invalid token", err)
	}

	return Identity{
		UserID:   claims.UserID,
		Username: claims.Username,
	}, nil
}
