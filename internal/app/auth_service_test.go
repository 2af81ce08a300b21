package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-api/internal/pkg/jwtutil"
	"portfolio-api/internal/platform/sqlite"
	"portfolio-api/internal/repository"
)

func newTestStore(t *testing.T) *repository.Store {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.New(ctx, ":memory:")
	require.NoError(t, err)
	store := repository.NewGormStore(db)
	require.NoError(t, store.Migrate(ctx))
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	return store
}

func newTestAuthService(t *testing.T) *AuthService {
	t.Helper()
	store := newTestStore(t)
	return NewAuthService(store.Users, jwtutil.NewManager("test-secret", 7*24*time.Hour), nil)
}

func TestRegister_Validation(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input RegisterInput
		want  error
	}{
		{"missing email", RegisterInput{Password: "secret1"}, ErrMissingCredentials},
		{"missing password", RegisterInput{Email: "a@b.co"}, ErrMissingCredentials},
		{"bad email", RegisterInput{Email: "not-an-email", Password: "secret1"}, ErrInvalidEmail},
		{"no tld", RegisterInput{Email: "a@b", Password: "secret1"}, ErrInvalidEmail},
		{"short password", RegisterInput{Email: "a@b.co", Password: "12345"}, ErrPasswordTooShort},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.input)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestRegister_DefaultsNameAndHashesPassword(t *testing.T) {
	svc := newTestAuthService(t)

	result, err := svc.Register(context.Background(), RegisterInput{Email: "jane.doe@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "jane.doe", result.User.Name)
	assert.NotEmpty(t, result.User.ID)
	assert.NotEqual(t, "secret1", result.User.PasswordHash)
	assert.True(t, strings.HasPrefix(result.User.PasswordHash, "$2"))
	assert.NotEmpty(t, result.Token)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "dup@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Email: "dup@example.com", Password: "another1"})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestRegisterThenLogin_SameUser(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterInput{Email: "me@example.com", Password: "secret1", Name: "Me"})
	require.NoError(t, err)

	loggedIn, err := svc.Login(ctx, LoginInput{Email: "me@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, loggedIn.User.ID)

	claims, err := svc.Authenticate(loggedIn.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, claims.UserID)
	assert.Equal(t, "me@example.com", claims.Email)

	user, err := svc.CurrentUser(ctx, claims.UserID)
	require.NoError(t, err)
	assert.Equal(t, "Me", user.Name)
}

func TestLogin_DoesNotRevealWhichCheckFailed(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "known@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, wrongPassword := svc.Login(ctx, LoginInput{Email: "known@example.com", Password: "wrong-secret"})
	_, unknownEmail := svc.Login(ctx, LoginInput{Email: "unknown@example.com", Password: "secret1"})

	require.ErrorIs(t, wrongPassword, ErrInvalidCredential)
	require.ErrorIs(t, unknownEmail, ErrInvalidCredential)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestLogin_MissingFields(t *testing.T) {
	svc := newTestAuthService(t)
	_, err := svc.Login(context.Background(), LoginInput{Email: "a@b.co"})
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestAuthenticate_RejectsBadTokens(t *testing.T) {
	svc := newTestAuthService(t)

	for _, token := range []string{"", "garbage", "a.b.c"} {
		_, err := svc.Authenticate(token)
		assert.ErrorIs(t, err, ErrUnauthenticated, token)
	}

	other := jwtutil.NewManager("other-secret", time.Hour)
	forged, err := other.Generate("id", "a@b.co")
	require.NoError(t, err)
	_, err = svc.Authenticate(forged)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestCurrentUser_DeletedUser(t *testing.T) {
	svc := newTestAuthService(t)
	_, err := svc.CurrentUser(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAuthService_WithoutStore(t *testing.T) {
	svc := NewAuthService(nil, jwtutil.NewManager("s", time.Hour), nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "a@b.co", Password: "secret1"})
	assert.ErrorIs(t, err, ErrStorageNotConfigured)
	_, err = svc.Login(ctx, LoginInput{Email: "a@b.co", Password: "secret1"})
	assert.ErrorIs(t, err, ErrStorageNotConfigured)
}
