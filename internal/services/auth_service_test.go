// internal/services/auth_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/groundfund/groundfund-backend/internal/apperrors"
	"github.com/groundfund/groundfund-backend/internal/models"
	"github.com/groundfund/groundfund-backend/internal/utils"
)

type AuthServiceTestSuite struct {
	suite.Suite
	env *testEnv
}

func (s *AuthServiceTestSuite) SetupTest() {
	s.env = newTestEnv(s.T())
	utils.SetJWTSecret(s.env.cfg.JWT.SecretKey)
}

func (s *AuthServiceTestSuite) TestRegisterBorrower() {
	resp, err := s.env.auth.Register(&RegisterRequest{
		Username: "acme_developments",
		Email:    "dev@acme.example.com",
		Password: "StrongPass123!",
		Role:     models.RoleBorrower,
	})
	require.NoError(s.T(), err)
	assert.NotEmpty(s.T(), resp.AccessToken)
	assert.NotEmpty(s.T(), resp.RefreshToken)

	// Borrowers are approved on registration.
	assert.True(s.T(), resp.User.Approved)
	assert.NotNil(s.T(), resp.User.ApprovedAt)
}

func (s *AuthServiceTestSuite) TestRegisterFunderNeedsApproval() {
	resp, err := s.env.auth.Register(&RegisterRequest{
		Username: "brick_capital",
		Email:    "desk@brickcapital.example.com",
		Password: "StrongPass123!",
		Role:     models.RoleFunder,
	})
	require.NoError(s.T(), err)
	assert.False(s.T(), resp.User.Approved)
	assert.Equal(s.T(), models.SubscriptionInactive, resp.User.SubscriptionStatus)
}

func (s *AuthServiceTestSuite) TestRegisterAdminRejected() {
	_, err := s.env.auth.Register(&RegisterRequest{
		Username: "wannabe_admin",
		Email:    "admin@evil.example.com",
		Password: "StrongPass123!",
		Role:     models.RoleAdmin,
	})
	assert.Error(s.T(), err)
}

func (s *AuthServiceTestSuite) TestRegisterDuplicateEmail() {
	req := &RegisterRequest{
		Username: "first_user",
		Email:    "dup@example.com",
		Password: "StrongPass123!",
		Role:     models.RoleBorrower,
	}
	_, err := s.env.auth.Register(req)
	require.NoError(s.T(), err)

	req.Username = "second_user"
	_, err = s.env.auth.Register(req)
	assert.ErrorIs(s.T(), err, apperrors.ErrConflict)
}

func (s *AuthServiceTestSuite) TestLogin() {
	_, err := s.env.auth.Register(&RegisterRequest{
		Username: "login_user",
		Email:    "login@example.com",
		Password: "StrongPass123!",
		Role:     models.RoleBorrower,
	})
	require.NoError(s.T(), err)

	resp, err := s.env.auth.Login(&LoginRequest{Email: "login@example.com", Password: "StrongPass123!"})
	require.NoError(s.T(), err)
	assert.NotEmpty(s.T(), resp.AccessToken)
	assert.NotNil(s.T(), resp.User.LastLoginAt)

	_, err = s.env.auth.Login(&LoginRequest{Email: "login@example.com", Password: "WrongPass123!"})
	assert.ErrorIs(s.T(), err, apperrors.ErrUnauthorized)
}

func (s *AuthServiceTestSuite) TestLoginSuspended() {
	resp, err := s.env.auth.Register(&RegisterRequest{
		Username: "suspended_user",
		Email:    "suspended@example.com",
		Password: "StrongPass123!",
		Role:     models.RoleBorrower,
	})
	require.NoError(s.T(), err)

	require.NoError(s.T(), s.env.db.Model(resp.User).
		Update("status", models.UserStatusSuspended).Error)

	_, err = s.env.auth.Login(&LoginRequest{Email: "suspended@example.com", Password: "StrongPass123!"})
	assert.ErrorIs(s.T(), err, apperrors.ErrUnauthorized)
}

func (s *AuthServiceTestSuite) TestRefreshToken() {
	registered, err := s.env.auth.Register(&RegisterRequest{
		Username: "refresh_user",
		Email:    "refresh@example.com",
		Password: "StrongPass123!",
		Role:     models.RoleFunder,
	})
	require.NoError(s.T(), err)

	refreshed, err := s.env.auth.RefreshToken(registered.RefreshToken)
	require.NoError(s.T(), err)
	assert.NotEmpty(s.T(), refreshed.AccessToken)
	assert.Equal(s.T(), registered.User.ID, refreshed.User.ID)

	_, err = s.env.auth.RefreshToken("not-a-token")
	assert.ErrorIs(s.T(), err, apperrors.ErrUnauthorized)
}

func TestAuthServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}
