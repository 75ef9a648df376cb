// internal/services/subscription_service_test.go
package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/groundfund/groundfund-backend/internal/apperrors"
	"github.com/groundfund/groundfund-backend/internal/models"
)

type SubscriptionServiceTestSuite struct {
	suite.Suite
	env    *testEnv
	funder *models.User
}

func (s *SubscriptionServiceTestSuite) SetupTest() {
	s.env = newTestEnv(s.T())
	s.funder = s.env.createUser(s.T(), models.RoleFunder, true, models.SubscriptionInactive)
}

func (s *SubscriptionServiceTestSuite) TestStartCheckout() {
	checkout, err := s.env.subscriptions.StartCheckout(s.funder.ID)
	require.NoError(s.T(), err)
	assert.True(s.T(), strings.HasPrefix(checkout.PaymentIntentID, "pi_local_"))
	assert.Equal(s.T(), s.env.cfg.Payment.SubscriptionFee, checkout.Amount)
}

func (s *SubscriptionServiceTestSuite) TestStartCheckoutRequiresApproval() {
	unapproved := s.env.createUser(s.T(), models.RoleFunder, false, models.SubscriptionInactive)

	_, err := s.env.subscriptions.StartCheckout(unapproved.ID)

	deny, ok := apperrors.AsDeny(err)
	require.True(s.T(), ok)
	assert.Equal(s.T(), apperrors.DenyUnapproved, deny.Reason)
}

func (s *SubscriptionServiceTestSuite) TestActivate() {
	user, err := s.env.subscriptions.Activate(s.funder.ID, &ActivateSubscriptionRequest{
		PaymentIntentID: "pi_test_sub",
	})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.SubscriptionActive, user.SubscriptionStatus)
	require.NotNil(s.T(), user.SubscriptionEndDate)

	expected := time.Now().AddDate(0, 0, s.env.cfg.Payment.SubscriptionDays)
	assert.WithinDuration(s.T(), expected, *user.SubscriptionEndDate, time.Minute)
}

func (s *SubscriptionServiceTestSuite) TestActivateAlreadyActive() {
	_, err := s.env.subscriptions.Activate(s.funder.ID, &ActivateSubscriptionRequest{PaymentIntentID: "pi_one"})
	require.NoError(s.T(), err)

	_, err = s.env.subscriptions.Activate(s.funder.ID, &ActivateSubscriptionRequest{PaymentIntentID: "pi_two"})
	assert.ErrorIs(s.T(), err, apperrors.ErrInvalidState)
}

func (s *SubscriptionServiceTestSuite) TestCancel() {
	_, err := s.env.subscriptions.Activate(s.funder.ID, &ActivateSubscriptionRequest{PaymentIntentID: "pi_cancel"})
	require.NoError(s.T(), err)

	user, err := s.env.subscriptions.Cancel(s.funder.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.SubscriptionPendingCancellation, user.SubscriptionStatus)

	// Cancelling twice, or without an active subscription, is rejected.
	_, err = s.env.subscriptions.Cancel(s.funder.ID)
	assert.ErrorIs(s.T(), err, apperrors.ErrInvalidState)
}

func (s *SubscriptionServiceTestSuite) TestExpireDue() {
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(24 * time.Hour)

	due := s.env.createUser(s.T(), models.RoleFunder, true, models.SubscriptionPendingCancellation)
	require.NoError(s.T(), s.env.db.Model(due).Update("subscription_end_date", past).Error)

	notDue := s.env.createUser(s.T(), models.RoleFunder, true, models.SubscriptionPendingCancellation)
	require.NoError(s.T(), s.env.db.Model(notDue).Update("subscription_end_date", future).Error)

	count, err := s.env.subscriptions.ExpireDue(time.Now())
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1), count)

	var got models.User
	require.NoError(s.T(), s.env.db.First(&got, "id = ?", due.ID).Error)
	assert.Equal(s.T(), models.SubscriptionCancelled, got.SubscriptionStatus)

	got = models.User{}
	require.NoError(s.T(), s.env.db.First(&got, "id = ?", notDue.ID).Error)
	assert.Equal(s.T(), models.SubscriptionPendingCancellation, got.SubscriptionStatus)
}

// During pending cancellation existing approved access keeps working but
// new engagement stops.
func (s *SubscriptionServiceTestSuite) TestPendingCancellationScope() {
	borrower := s.env.createBorrower(s.T())
	project := s.env.createProject(s.T(), borrower.ID, true)
	other := s.env.createProject(s.T(), borrower.ID, true)

	_, err := s.env.subscriptions.Activate(s.funder.ID, &ActivateSubscriptionRequest{PaymentIntentID: "pi_scope"})
	require.NoError(s.T(), err)

	request := s.env.createApprovedRequest(s.T(), project, s.funder.ID)

	_, err = s.env.subscriptions.Cancel(s.funder.ID)
	require.NoError(s.T(), err)

	_, err = s.env.accessRequests.Create(other.ID, s.funder.ID, nil)
	deny, ok := apperrors.AsDeny(err)
	require.True(s.T(), ok)
	assert.Equal(s.T(), apperrors.DenySubscriptionInactive, deny.Reason)

	deal, err := s.env.deals.CreateDeal(s.funder.ID, &CreateDealRequest{AccessRequestID: request.ID})
	require.NoError(s.T(), err)

	_, err = s.env.deals.PostComment(deal.ID, s.funder.ID, &PostCommentRequest{Body: "Still here until period end."})
	assert.NoError(s.T(), err)
}

func (s *SubscriptionServiceTestSuite) TestStatus() {
	status, err := s.env.subscriptions.Status(s.funder.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.SubscriptionInactive, status.Status)

	_, err = s.env.subscriptions.Activate(s.funder.ID, &ActivateSubscriptionRequest{PaymentIntentID: "pi_status"})
	require.NoError(s.T(), err)

	status, err = s.env.subscriptions.Status(s.funder.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.SubscriptionActive, status.Status)
	assert.NotNil(s.T(), status.EndDate)
}

func TestSubscriptionServiceTestSuite(t *testing.T) {
	suite.Run(t, new(SubscriptionServiceTestSuite))
}
