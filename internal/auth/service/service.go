// Package service implements login and token validation for the admin and
// reporting surface.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"taptrail/internal/auth/models"
	"taptrail/internal/platform/middleware"
	dErrors "taptrail/pkg/domain-errors"
	"taptrail/pkg/platform/sentinel"
	"taptrail/pkg/requestcontext"
)

// DefaultTokenTTL bounds how long an access token stays valid.
const DefaultTokenTTL = 12 * time.Hour

const issuer = "taptrail"

// dummyHash is a valid bcrypt hash of a throwaway value, compared against
// when the account does not exist.
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Count(ctx context.Context) (int, error)
}

// Claims are the token claims taptrail issues.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Service issues and validates access tokens.
type Service struct {
	users      UserStore
	signingKey []byte
	tokenTTL   time.Duration
	logger     *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

// New constructs a Service. signingKey must be non-empty; there is no
// unsigned mode.
func New(users UserStore, signingKey string, opts ...Option) (*Service, error) {
	if signingKey == "" {
		return nil, errors.New("jwt signing key is required")
	}
	s := &Service{
		users:      users,
		signingKey: []byte(signingKey),
		tokenTTL:   DefaultTokenTTL,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// LoginResult carries the issued token and its subject.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

// Login verifies the credentials and issues an access token. Unknown email
// and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Burn comparable time so a missing account is not observable.
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "account lookup failed")
	}
	if !user.Active {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.WarnContext(ctx, "failed login attempt", "email", email)
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}

	now := requestcontext.Now(ctx)
	expiresAt := now.Add(s.tokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "token signing failed")
	}
	return &LoginResult{Token: signed, ExpiresAt: expiresAt, User: user}, nil
}

// ValidateToken checks the signature and expiry and returns the claims the
// middleware propagates. Implements middleware.TokenValidator.
func (s *Service) ValidateToken(tokenString string) (middleware.Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return middleware.Claims{}, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return middleware.Claims{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return middleware.Claims{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return middleware.Claims{UserID: claims.Subject, Role: claims.Role}, nil
}

// Bootstrap seeds the first admin account when the user table is empty. It
// is a no-op otherwise, so restarts are safe.
func (s *Service) Bootstrap(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	count, err := s.users.Count(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "account store unavailable")
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "password hashing failed")
	}
	user, err := models.New(email, string(hash), "Administrator", models.RoleAdmin, requestcontext.Now(ctx))
	if err != nil {
		return err
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Another replica seeded first.
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "bootstrap admin creation failed")
	}
	s.logger.InfoContext(ctx, "bootstrap admin created", "email", user.Email)
	return nil
}
