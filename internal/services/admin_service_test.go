// internal/services/admin_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/groundfund/groundfund-backend/internal/apperrors"
	"github.com/groundfund/groundfund-backend/internal/models"
)

type AdminServiceTestSuite struct {
	suite.Suite
	env   *testEnv
	admin *models.User
}

func (s *AdminServiceTestSuite) SetupTest() {
	s.env = newTestEnv(s.T())
	s.admin = s.env.createAdmin(s.T())
}

func (s *AdminServiceTestSuite) TestApproveFunder() {
	funder := s.env.createUser(s.T(), models.RoleFunder, false, models.SubscriptionInactive)

	approved, err := s.env.admin.ApproveFunder(funder.ID, s.admin.ID)
	require.NoError(s.T(), err)
	assert.True(s.T(), approved.Approved)
	assert.NotNil(s.T(), approved.ApprovedAt)

	var audit models.AuditLog
	require.NoError(s.T(), s.env.db.
		Where("action = ? AND resource_id = ?", "user.approve_funder", funder.ID).
		First(&audit).Error)
}

func (s *AdminServiceTestSuite) TestApproveFunderAlreadyApproved() {
	funder := s.env.createFunder(s.T())

	_, err := s.env.admin.ApproveFunder(funder.ID, s.admin.ID)
	assert.ErrorIs(s.T(), err, apperrors.ErrInvalidState)
}

func (s *AdminServiceTestSuite) TestApproveFunderRejectsNonFunder() {
	borrower := s.env.createBorrower(s.T())

	_, err := s.env.admin.ApproveFunder(borrower.ID, s.admin.ID)
	assert.Error(s.T(), err)
}

func (s *AdminServiceTestSuite) TestListUsersFilters() {
	s.env.createBorrower(s.T())
	s.env.createFunder(s.T())
	s.env.createUser(s.T(), models.RoleFunder, false, models.SubscriptionInactive)

	role := models.RoleFunder
	approved := false
	users, total, err := s.env.admin.ListUsers(UserSearchParams{
		PaginationParams: paginationDefaults(),
		Role:             &role,
		Approved:         &approved,
	})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1), total)
	require.Len(s.T(), users, 1)
	assert.False(s.T(), users[0].Approved)
}

func (s *AdminServiceTestSuite) TestListProjectsPendingReview() {
	borrower := s.env.createBorrower(s.T())

	complete := s.env.createProject(s.T(), borrower.ID, false)
	require.NoError(s.T(), s.env.db.Model(complete).Update("documents_complete", true).Error)

	s.env.createProject(s.T(), borrower.ID, false)
	s.env.createProject(s.T(), borrower.ID, true)

	projects, total, err := s.env.admin.ListProjectsPendingReview(paginationDefaults())
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1), total)
	require.Len(s.T(), projects, 1)
	assert.Equal(s.T(), complete.ID, projects[0].ID)
}

func (s *AdminServiceTestSuite) TestDashboardStats() {
	borrower := s.env.createBorrower(s.T())
	funder := s.env.createFunder(s.T())
	s.env.createUser(s.T(), models.RoleFunder, false, models.SubscriptionInactive)

	project := s.env.createProject(s.T(), borrower.ID, true)
	request := s.env.createApprovedRequest(s.T(), project, funder.ID)
	_, err := s.env.deals.CreateDeal(funder.ID, &CreateDealRequest{AccessRequestID: request.ID})
	require.NoError(s.T(), err)

	stats, err := s.env.admin.GetDashboardStats()
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(4), stats.TotalUsers)
	assert.Equal(s.T(), int64(1), stats.PendingFunders)
	assert.Equal(s.T(), int64(1), stats.TotalProjects)
	assert.Equal(s.T(), int64(1), stats.PublishedProjects)
	assert.Equal(s.T(), int64(1), stats.ActiveDeals)
}

func TestAdminServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AdminServiceTestSuite))
}
