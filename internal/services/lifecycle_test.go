// internal/services/lifecycle_test.go
package services

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundfund/groundfund-backend/internal/models"
	"github.com/groundfund/groundfund-backend/internal/utils"
)

// TestMarketplaceLifecycle walks the happy path end to end: registration,
// funder approval, subscription, listing, access, deal room, quotes.
func TestMarketplaceLifecycle(t *testing.T) {
	env := newTestEnv(t)
	utils.SetJWTSecret(env.cfg.JWT.SecretKey)
	admin := env.createAdmin(t)

	// Registration: borrower usable immediately, funder gated.
	borrowerAuth, err := env.auth.Register(&RegisterRequest{
		Username: "northern_homes",
		Email:    "projects@northernhomes.example.com",
		Password: "StrongPass123!",
		Role:     models.RoleBorrower,
	})
	require.NoError(t, err)
	borrower := borrowerAuth.User

	funderAuth, err := env.auth.Register(&RegisterRequest{
		Username: "pennine_capital",
		Email:    "desk@penninecapital.example.com",
		Password: "StrongPass123!",
		Role:     models.RoleFunder,
	})
	require.NoError(t, err)
	funder := funderAuth.User

	_, err = env.admin.ApproveFunder(funder.ID, admin.ID)
	require.NoError(t, err)

	checkout, err := env.subscriptions.StartCheckout(funder.ID)
	require.NoError(t, err)
	_, err = env.subscriptions.Activate(funder.ID, &ActivateSubscriptionRequest{
		PaymentIntentID: checkout.PaymentIntentID,
	})
	require.NoError(t, err)

	// Listing: draft, documents, publication.
	project, err := env.projects.CreateProject(borrower.ID, &CreateProjectRequest{
		Title:            "Mill Conversion, Saltaire",
		Location:         "Bradford",
		DevelopmentStage: models.StagePreConstruction,
		LoanAmount:       1200000,
		ProjectCost:      1800000,
		ExpectedGDV:      2600000,
		LoanTermMonths:   24,
	})
	require.NoError(t, err)

	types, err := env.projects.ListRequiredDocumentTypes()
	require.NoError(t, err)
	for _, dt := range types {
		file, header := multipartFile(t, dt.DocumentType+".pdf", "content")
		_, err := env.projects.UploadDocument(project.ID, borrower.ID, dt.DocumentType, file, header)
		require.NoError(t, err)
	}

	published, err := env.projects.PublishProject(project.ID, borrower.ID, &PublishProjectRequest{
		PaymentIntentID: "pi_lifecycle_listing",
		Amount:          495,
	})
	require.NoError(t, err)
	require.Equal(t, models.PaymentStatusPaid, published.PaymentStatus)

	// Access: request, approval, concurrent deal-room opening.
	request, err := env.accessRequests.Create(project.ID, funder.ID, &CreateAccessRequest{
		InitialMessage: "We fund northern heritage conversions.",
	})
	require.NoError(t, err)

	_, err = env.accessRequests.Approve(request.ID, borrower.ID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	ids := make([]uuid.UUID, 4)
	errs := make([]error, len(ids))
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			deal, err := env.deals.CreateDeal(funder.ID, &CreateDealRequest{AccessRequestID: request.ID})
			if err == nil {
				ids[i] = deal.ID
			}
			errs[i] = err
		}(i)
	}
	wg.Wait()
	for i := range ids {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}

	dealID := ids[0]

	// Diligence: the funder asks, the borrower answers.
	docRequest, err := env.deals.RequestDocument(dealID, funder.ID, &CreateDocumentRequestRequest{
		DocumentName: "Section 106 agreement",
	})
	require.NoError(t, err)

	file, header := multipartFile(t, "s106.pdf", "agreement")
	fulfilled, err := env.deals.FulfillDocumentRequest(dealID, docRequest.ID, borrower.ID, file, header)
	require.NoError(t, err)
	require.Equal(t, models.DocumentRequestFulfilled, fulfilled.Status)

	// Terms: two quotes, most recent first.
	_, err = env.deals.SubmitQuote(dealID, funder.ID, &SubmitQuoteRequest{
		Amount: 1200000, InterestRate: 10.25, TermMonths: 24,
	})
	require.NoError(t, err)
	revised, err := env.deals.SubmitQuote(dealID, funder.ID, &SubmitQuoteRequest{
		Amount: 1150000, InterestRate: 9.75, TermMonths: 24,
	})
	require.NoError(t, err)

	quotes, err := env.deals.ListQuotes(dealID, borrower.ID)
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, revised.ID, quotes[0].ID)

	// Wrap-up.
	closed, err := env.deals.CloseDeal(dealID, funder.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DealStatusClosed, closed.Status)
}
