package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"taptrail/internal/auth/models"
	"taptrail/internal/auth/store"
	dErrors "taptrail/pkg/domain-errors"
	"taptrail/pkg/requestcontext"
)

type AuthSuite struct {
	suite.Suite
	users *store.InMemory
	svc   *Service
	ctx   context.Context
}

func TestAuthSuite(t *testing.T) {
	suite.Run(t, new(AuthSuite))
}

func (s *AuthSuite) SetupTest() {
	s.users = store.NewInMemory()
	svc, err := New(s.users, "test-signing-key")
	s.Require().NoError(err)
	s.svc = svc
	s.ctx = context.Background()
}

func (s *AuthSuite) createUser(email, password string, role models.Role) *models.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	s.Require().NoError(err)
	user, err := models.New(email, string(hash), "Test User", role, time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.users.Create(s.ctx, user))
	return user
}

func (s *AuthSuite) TestNewRequiresSigningKey() {
	_, err := New(s.users, "")
	s.Require().Error(err)
}

func (s *AuthSuite) TestLoginAndValidateRoundTrip() {
	user := s.createUser("admin@example.com", "s3cret", models.RoleAdmin)

	result, err := s.svc.Login(s.ctx, "Admin@Example.com", "s3cret")
	s.Require().NoError(err)
	s.NotEmpty(result.Token)
	s.Equal(user.ID, result.User.ID)

	claims, err := s.svc.ValidateToken(result.Token)
	s.Require().NoError(err)
	s.Equal(user.ID.String(), claims.UserID)
	s.Equal("admin", claims.Role)
}

func (s *AuthSuite) TestLoginFailures() {
	s.createUser("admin@example.com", "s3cret", models.RoleAdmin)

	s.Run("wrong password", func() {
		_, err := s.svc.Login(s.ctx, "admin@example.com", "wrong")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("unknown account gets the same error", func() {
		_, err := s.svc.Login(s.ctx, "ghost@example.com", "s3cret")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("missing fields", func() {
		_, err := s.svc.Login(s.ctx, "", "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *AuthSuite) TestExpiredTokenRejected() {
	s.createUser("admin@example.com", "s3cret", models.RoleAdmin)

	past := time.Now().UTC().Add(-48 * time.Hour)
	ctx := requestcontext.WithTime(s.ctx, past)
	result, err := s.svc.Login(ctx, "admin@example.com", "s3cret")
	s.Require().NoError(err)

	_, err = s.svc.ValidateToken(result.Token)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *AuthSuite) TestTamperedTokenRejected() {
	s.createUser("admin@example.com", "s3cret", models.RoleAdmin)
	result, err := s.svc.Login(s.ctx, "admin@example.com", "s3cret")
	s.Require().NoError(err)

	other, err := New(s.users, "some-other-key")
	s.Require().NoError(err)
	_, err = other.ValidateToken(result.Token)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *AuthSuite) TestBootstrap() {
	s.Run("seeds the first admin", func() {
		s.Require().NoError(s.svc.Bootstrap(s.ctx, "root@example.com", "changeme"))

		result, err := s.svc.Login(s.ctx, "root@example.com", "changeme")
		s.Require().NoError(err)
		s.Equal(models.RoleAdmin, result.User.Role)
	})

	s.Run("is a no-op when accounts exist", func() {
		s.Require().NoError(s.svc.Bootstrap(s.ctx, "second@example.com", "other"))
		_, err := s.users.FindByEmail(s.ctx, "second@example.com")
		s.Require().Error(err)
	})

	s.Run("is a no-op without credentials configured", func() {
		fresh := store.NewInMemory()
		svc, err := New(fresh, "key")
		s.Require().NoError(err)
		s.Require().NoError(svc.Bootstrap(s.ctx, "", ""))
		count, err := fresh.Count(s.ctx)
		s.Require().NoError(err)
		s.Zero(count)
	})
}
