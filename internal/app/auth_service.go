package app

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"portfolio-api/internal/model"
	"portfolio-api/internal/pkg/jwtutil"
	"portfolio-api/internal/pkg/password"
	"portfolio-api/internal/repository"
)

const minPasswordLength = 6

var (
	ErrMissingCredentials = errors.New("email and password are required")
	ErrInvalidEmail       = errors.New("email format is invalid")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters")
	ErrEmailExists        = errors.New("email already registered")
	// ErrInvalidCredential covers both an unknown email and a wrong password.
	ErrInvalidCredential = errors.New("invalid email or password")
	ErrUnauthenticated   = errors.New("not authenticated")
	ErrUserNotFound      = errors.New("user not found")
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// unknownUserHash is compared against when the email has no account so both
// login failures cost one bcrypt comparison.
var unknownUserHash = sync.OnceValue(func() string {
	hash, _ := password.Hash("unknown-user")
	return hash
})

type AuthService struct {
	userRepo repository.UserRepository
	tokens   *jwtutil.Manager
	now      func() time.Time
	logger   *zap.Logger
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResult struct {
	Token string
	User  *model.User
}

// NewAuthService accepts a nil userRepo; every operation that reads or
// writes accounts then fails with ErrStorageNotConfigured. Authenticate only
// checks the token and keeps working.
func NewAuthService(userRepo repository.UserRepository, tokens *jwtutil.Manager, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		userRepo: userRepo,
		tokens:   tokens,
		now:      time.Now,
		logger:   logger.Named("auth"),
	}
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	if input.Email == "" || input.Password == "" {
		return nil, ErrMissingCredentials
	}
	if !emailPattern.MatchString(input.Email) {
		return nil, ErrInvalidEmail
	}
	if utf8.RuneCountInString(input.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}
	if s.userRepo == nil {
		return nil, ErrStorageNotConfigured
	}

	existing, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailExists
	}

	hash, err := password.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	name := input.Name
	if name == "" {
		name = strings.SplitN(input.Email, "@", 2)[0]
	}
	now := s.now()
	user := &model.User{
		Email:        input.Email,
		PasswordHash: hash,
		Name:         name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailExists
		}
		return nil, err
	}

	token, err := s.tokens.Generate(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return &AuthResult{Token: token, User: user}, nil
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	if input.Email == "" || input.Password == "" {
		return nil, ErrMissingCredentials
	}
	if s.userRepo == nil {
		return nil, ErrStorageNotConfigured
	}

	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		password.Verify(unknownUserHash(), input.Password)
		return nil, ErrInvalidCredential
	}
	if !password.Verify(user.PasswordHash, input.Password) {
		return nil, ErrInvalidCredential
	}

	token, err := s.tokens.Generate(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

// Authenticate verifies a session token without touching storage.
func (s *AuthService) Authenticate(token string) (*jwtutil.Claims, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return claims, nil
}

// CurrentUser loads the user a verified token points at.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if s.userRepo == nil {
		return nil, ErrStorageNotConfigured
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}
