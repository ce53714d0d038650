package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"learnhub/internal/model"
)

func newAuthFixture() (*AuthService, *fakeUserStore) {
	users := newFakeUserStore()
	return NewAuthService(users, "test-secret", time.Hour), users
}

func TestRegisterCreatesStandardUser(t *testing.T) {
	svc, users := newAuthFixture()

	result, err := svc.Register(RegisterInput{
		Username: "alice",
		Email:    "Alice@Example.com",
		Password: "long-enough-password",
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	assert.Equal(t, model.RoleStandard, result.User.Role)
	assert.Equal(t, "alice@example.com", result.User.Email)
	assert.Equal(t, "alice", result.User.DisplayName) // defaults to username

	stored, err := users.GetByUsername("alice")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("long-enough-password")))
}

func TestRegisterDuplicates(t *testing.T) {
	svc, _ := newAuthFixture()
	_, err := svc.Register(RegisterInput{Username: "alice", Email: "a@example.com", Password: "long-enough-password"})
	require.NoError(t, err)

	_, err = svc.Register(RegisterInput{Username: "alice", Email: "b@example.com", Password: "long-enough-password"})
	assert.ErrorIs(t, err, ErrUsernameExists)

	_, err = svc.Register(RegisterInput{Username: "bob", Email: "a@example.com", Password: "long-enough-password"})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestRegisterShortPassword(t *testing.T) {
	svc, _ := newAuthFixture()
	_, err := svc.Register(RegisterInput{Username: "alice", Email: "a@example.com", Password: "short"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLogin(t *testing.T) {
	svc, _ := newAuthFixture()
	_, err := svc.Register(RegisterInput{Username: "alice", Email: "a@example.com", Password: "long-enough-password"})
	require.NoError(t, err)

	result, err := svc.Login(LoginInput{Username: "alice", Password: "long-enough-password"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)

	_, err = svc.Login(LoginInput{Username: "alice", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredential)

	_, err = svc.Login(LoginInput{Username: "nobody", Password: "long-enough-password"})
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestEnsureAdminIdempotent(t *testing.T) {
	svc, users := newAuthFixture()

	require.NoError(t, svc.EnsureAdmin("root", "root@example.com", "admin-password"))
	admin, err := users.GetByUsername("root")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.Equal(t, model.RoleAdmin, admin.Role)

	// Second call neither fails nor duplicates.
	require.NoError(t, svc.EnsureAdmin("root", "root@example.com", "admin-password"))
	assert.Len(t, users.users, 1)
}

func TestEnsureAdminPromotesExistingUser(t *testing.T) {
	svc, users := newAuthFixture()
	_, err := svc.Register(RegisterInput{Username: "root", Email: "root@example.com", Password: "long-enough-password"})
	require.NoError(t, err)

	require.NoError(t, svc.EnsureAdmin("root", "root@example.com", "admin-password"))
	admin, err := users.GetByUsername("root")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, admin.Role)
}
