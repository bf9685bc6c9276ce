package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"gochat/internal/common"
)

const searchLimit = 20

type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileInput changes only the non-empty fields. A new password needs the current one.
type ProfileInput struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type AuthResult struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type UserService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, in LoginInput) (*AuthResult, error)
	GetProfile(ctx context.Context, userID string) (*User, error)
	UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*User, error)
	SetAvatar(ctx context.Context, userID, url string) (*User, error)
	SearchUsers(ctx context.Context, callerID, query string) ([]*User, error)
	ListUsers(ctx context.Context, callerID string) ([]*User, error)
}

// Service implements UserService and is also the identity provider of the
// chat engine (common.Authenticator, common.IdentityResolver).
type Service struct {
	users     UserRepository
	tokens    *common.TokenManager
	passwords *common.PasswordHasher
	log       zerolog.Logger
	now       func() time.Time
}

func NewService(users UserRepository, tokens *common.TokenManager, passwords *common.PasswordHasher, log zerolog.Logger) *Service {
	return &Service{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	username := strings.TrimSpace(in.Username)
	if err := common.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := common.ValidateEmail(in.Email); err != nil {
		return nil, err
	}
	if err := common.ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	hashed, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &User{
		ID:           primitive.NewObjectID().Hex(),
		Username:     username,
		Email:        common.NormalizeEmail(in.Email),
		PasswordHash: hashed,
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Username)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", user.ID).Msg("user registered")
	return &AuthResult{User: user, Token: token}, nil
}

func (s *Service) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	if strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return nil, common.ValidationError("email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, common.NormalizeEmail(in.Email))
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.UnauthenticatedError("invalid login credentials")
	}
	if err != nil {
		return nil, err
	}
	if err := s.passwords.Check(in.Password, user.PasswordHash); err != nil {
		return nil, common.UnauthenticatedError("invalid login credentials")
	}
	if s.passwords.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user, in.Password)
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Username)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token}, nil
}

// rehash upgrades a stored hash to the configured cost. Login still succeeds
// when the upgrade fails.
func (s *Service) rehash(ctx context.Context, user *User, password string) {
	hashed, err := s.passwords.Hash(password)
	if err == nil {
		user.PasswordHash = hashed
		err = s.users.Update(ctx, user)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("password rehash failed")
		return
	}
	s.log.Info().Str("user_id", user.ID).Int("cost", s.passwords.Cost()).Msg("password rehashed")
}

func (s *Service) GetProfile(ctx context.Context, userID string) (*User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.NewPassword != "" {
		if err := s.passwords.Check(in.CurrentPassword, user.PasswordHash); err != nil {
			return nil, common.ValidationError("current password is incorrect")
		}
		if err := common.ValidatePassword(in.NewPassword); err != nil {
			return nil, err
		}
		hashed, err := s.passwords.Hash(in.NewPassword)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hashed
	}

	if username := strings.TrimSpace(in.Username); username != "" && username != user.Username {
		if err := common.ValidateUsername(username); err != nil {
			return nil, err
		}
		user.Username = username
	}

	if in.Email != "" {
		if err := common.ValidateEmail(in.Email); err != nil {
			return nil, err
		}
		user.Email = common.NormalizeEmail(in.Email)
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) SetAvatar(ctx context.Context, userID, url string) (*User, error) {
	if url == "" {
		return nil, common.ValidationError("avatar url is required")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Avatar = url
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) SearchUsers(ctx context.Context, callerID, query string) ([]*User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, common.ValidationError("search query is required")
	}
	return s.users.Search(ctx, query, callerID, searchLimit)
}

func (s *Service) ListUsers(ctx context.Context, callerID string) ([]*User, error) {
	return s.users.List(ctx, callerID)
}

// Authenticate resolves a bearer token to a user that still exists.
func (s *Service) Authenticate(ctx context.Context, token string) (*common.UserProjection, error) {
	claims, err := s.tokens.ValidToken(token)
	if err != nil {
		return nil, common.UnauthenticatedError("invalid token")
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.UnauthenticatedError("user no longer exists")
	}
	if err != nil {
		return nil, err
	}
	p := user.Projection()
	return &p, nil
}

func (s *Service) ResolveUsers(ctx context.Context, ids []string) (map[string]common.UserProjection, error) {
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]common.UserProjection, len(users))
	for _, u := range users {
		out[u.ID] = u.Projection()
	}
	return out, nil
}
