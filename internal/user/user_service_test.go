package user

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"gochat/internal/common"
)

func newTestHasher(t *testing.T, cost int) *common.PasswordHasher {
	t.Helper()
	h, err := common.NewPasswordHasher(cost)
	require.NoError(t, err)
	return h
}

func newTestService(t *testing.T, repo UserRepository) *Service {
	t.Helper()
	return NewService(repo, common.NewTokenManager("test-secret", time.Hour), newTestHasher(t, bcrypt.MinCost), zerolog.Nop())
}

func register(t *testing.T, svc *Service, username, email string) *AuthResult {
	t.Helper()
	res, err := svc.Register(context.Background(), RegisterInput{Username: username, Email: email, Password: "secret1"})
	require.NoError(t, err)
	return res
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("creates user and token", func(t *testing.T) {
		svc := newTestService(t, NewMemoryRepository())

		res, err := svc.Register(ctx, RegisterInput{Username: " alice ", Email: "Alice@Example.com", Password: "secret1"})
		require.NoError(t, err)
		assert.Equal(t, "alice", res.User.Username)
		assert.Equal(t, "alice@example.com", res.User.Email)
		assert.NotEqual(t, "secret1", res.User.PasswordHash)
		assert.NotEmpty(t, res.Token)

		projection, err := svc.Authenticate(ctx, res.Token)
		require.NoError(t, err)
		assert.Equal(t, res.User.ID, projection.ID)
	})

	t.Run("validation", func(t *testing.T) {
		svc := newTestService(t, NewMemoryRepository())
		tests := []RegisterInput{
			{Username: "al", Email: "a@example.com", Password: "secret1"},
			{Username: "alice", Email: "not-an-email", Password: "secret1"},
			{Username: "alice", Email: "a@example.com", Password: "123"},
		}
		for _, in := range tests {
			_, err := svc.Register(ctx, in)
			assert.ErrorIs(t, err, common.ErrValidation)
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		svc := newTestService(t, NewMemoryRepository())
		register(t, svc, "alice", "alice@example.com")

		_, err := svc.Register(ctx, RegisterInput{Username: "alice2", Email: "ALICE@example.com", Password: "secret1"})
		assert.ErrorIs(t, err, common.ErrConflict)
	})

	t.Run("repository failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := NewMockUserRepository(ctrl)
		repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(assert.AnError)

		_, err := newTestService(t, repo).Register(ctx, RegisterInput{Username: "alice", Email: "a@example.com", Password: "secret1"})
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, NewMemoryRepository())
	registered := register(t, svc, "alice", "alice@example.com")

	res, err := svc.Login(ctx, LoginInput{Email: "ALICE@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, res.User.ID)
	assert.NotEmpty(t, res.Token)

	_, err = svc.Login(ctx, LoginInput{Email: "alice@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, common.ErrUnauthenticated)

	_, err = svc.Login(ctx, LoginInput{Email: "bob@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, common.ErrUnauthenticated)

	_, err = svc.Login(ctx, LoginInput{Email: "", Password: ""})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestService_Login_UpgradesHashCost(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	tokens := common.NewTokenManager("test-secret", time.Hour)

	weak := NewService(repo, tokens, newTestHasher(t, bcrypt.MinCost), zerolog.Nop())
	registered := register(t, weak, "alice", "alice@example.com")
	oldHash := registered.User.PasswordHash

	stronger := NewService(repo, tokens, newTestHasher(t, bcrypt.MinCost+1), zerolog.Nop())
	_, err := stronger.Login(ctx, LoginInput{Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)

	stored, err := repo.GetByID(ctx, registered.User.ID)
	require.NoError(t, err)
	assert.NotEqual(t, oldHash, stored.PasswordHash)
	cost, err := bcrypt.Cost([]byte(stored.PasswordHash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost+1, cost)

	// the upgraded hash still logs in
	_, err = stronger.Login(ctx, LoginInput{Email: "alice@example.com", Password: "secret1"})
	assert.NoError(t, err)
}

func TestService_Login_RehashFailureStillLogsIn(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockUserRepository(ctrl)
	old, err := newTestHasher(t, bcrypt.MinCost+1).Hash("secret1")
	require.NoError(t, err)
	repo.EXPECT().GetByEmail(gomock.Any(), "alice@example.com").
		Return(&User{ID: "u1", Username: "alice", Email: "alice@example.com", PasswordHash: old}, nil)
	repo.EXPECT().Update(gomock.Any(), gomock.Any()).Return(assert.AnError)

	res, err := newTestService(t, repo).Login(context.Background(), LoginInput{Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
}

func TestService_Login_RepositoryFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockUserRepository(ctrl)
	repo.EXPECT().GetByEmail(gomock.Any(), "alice@example.com").Return(nil, assert.AnError)

	_, err := newTestService(t, repo).Login(context.Background(), LoginInput{Email: "alice@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, assert.AnError)
	assert.NotErrorIs(t, err, common.ErrUnauthenticated)
}

func TestService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, NewMemoryRepository())
	alice := register(t, svc, "alice", "alice@example.com").User
	register(t, svc, "bob", "bob@example.com")

	updated, err := svc.UpdateProfile(ctx, alice.ID, ProfileInput{Username: "alice_w"})
	require.NoError(t, err)
	assert.Equal(t, "alice_w", updated.Username)
	assert.Equal(t, "alice@example.com", updated.Email)

	_, err = svc.UpdateProfile(ctx, alice.ID, ProfileInput{Username: "bob"})
	assert.ErrorIs(t, err, common.ErrConflict)

	_, err = svc.UpdateProfile(ctx, alice.ID, ProfileInput{NewPassword: "another1", CurrentPassword: "nope"})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = svc.UpdateProfile(ctx, alice.ID, ProfileInput{NewPassword: "another1", CurrentPassword: "secret1"})
	require.NoError(t, err)
	_, err = svc.Login(ctx, LoginInput{Email: "alice@example.com", Password: "another1"})
	assert.NoError(t, err)

	_, err = svc.UpdateProfile(ctx, "missing", ProfileInput{Username: "x_y_z"})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestService_SetAvatar(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, NewMemoryRepository())
	alice := register(t, svc, "alice", "alice@example.com").User

	updated, err := svc.SetAvatar(ctx, alice.ID, "/media/abc")
	require.NoError(t, err)
	assert.Equal(t, "/media/abc", updated.Avatar)

	resolved, err := svc.ResolveUsers(ctx, []string{alice.ID})
	require.NoError(t, err)
	assert.Equal(t, "/media/abc", resolved[alice.ID].Avatar)

	_, err = svc.SetAvatar(ctx, alice.ID, "")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestService_SearchAndList(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, NewMemoryRepository())
	alice := register(t, svc, "alice", "alice@example.com").User
	register(t, svc, "alina", "alina@example.com")
	register(t, svc, "bob", "bob@example.com")

	found, err := svc.SearchUsers(ctx, alice.ID, "AL")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "alina", found[0].Username)

	_, err = svc.SearchUsers(ctx, alice.ID, "  ")
	assert.ErrorIs(t, err, common.ErrValidation)

	all, err := svc.ListUsers(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "alina", all[0].Username)
	assert.Equal(t, "bob", all[1].Username)
}

func TestService_Authenticate(t *testing.T) {
	ctx := context.Background()

	_, err := newTestService(t, NewMemoryRepository()).Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, common.ErrUnauthenticated)

	// token signed for a user the repository no longer knows
	token, err := common.NewTokenManager("test-secret", time.Hour).GenerateToken("ghost", "ghost")
	require.NoError(t, err)
	_, err = newTestService(t, NewMemoryRepository()).Authenticate(ctx, token)
	assert.ErrorIs(t, err, common.ErrUnauthenticated)
}

func TestService_ResolveUsers_SkipsUnknown(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockUserRepository(ctrl)
	repo.EXPECT().FindByIDs(gomock.Any(), []string{"u1", "u2"}).
		Return([]*User{{ID: "u1", Username: "alice"}}, nil)

	resolved, err := newTestService(t, repo).ResolveUsers(context.Background(), []string{"u1", "u2"})
	require.NoError(t, err)
	assert.Len(t, resolved, 1)
	assert.Equal(t, "alice", resolved["u1"].Username)
}
