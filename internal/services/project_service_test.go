// internal/services/project_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/groundfund/groundfund-backend/internal/apperrors"
	"github.com/groundfund/groundfund-backend/internal/models"
)

type ProjectServiceTestSuite struct {
	suite.Suite
	env      *testEnv
	borrower *models.User
}

func (s *ProjectServiceTestSuite) SetupTest() {
	s.env = newTestEnv(s.T())
	s.borrower = s.env.createBorrower(s.T())
}

func (s *ProjectServiceTestSuite) newDraft() *models.Project {
	project, err := s.env.projects.CreateProject(s.borrower.ID, &CreateProjectRequest{
		Title:            "Canalside Apartments",
		Location:         "Leeds",
		DevelopmentStage: models.StageConstruction,
		LoanAmount:       950000,
		ProjectCost:      1400000,
		ExpectedGDV:      2000000,
		LoanTermMonths:   24,
	})
	require.NoError(s.T(), err)
	return project
}

// uploadRequiredDocuments covers every configured required type.
func (s *ProjectServiceTestSuite) uploadRequiredDocuments(project *models.Project) {
	types, err := s.env.projects.ListRequiredDocumentTypes()
	require.NoError(s.T(), err)
	require.NotEmpty(s.T(), types)

	for _, dt := range types {
		file, header := multipartFile(s.T(), dt.DocumentType+".pdf", "content of "+dt.DocumentType)
		_, err := s.env.projects.UploadDocument(project.ID, s.borrower.ID, dt.DocumentType, file, header)
		require.NoError(s.T(), err)
	}
}

func (s *ProjectServiceTestSuite) TestCreateProject() {
	project := s.newDraft()

	assert.Equal(s.T(), models.PaymentStatusUnpaid, project.PaymentStatus)
	assert.Nil(s.T(), project.PaidAt)
	assert.False(s.T(), project.DocumentsComplete)
}

func (s *ProjectServiceTestSuite) TestCreateProjectBorrowerOnly() {
	funder := s.env.createFunder(s.T())

	_, err := s.env.projects.CreateProject(funder.ID, &CreateProjectRequest{
		Title:      "Should not exist",
		LoanAmount: 100000,
	})

	deny, ok := apperrors.AsDeny(err)
	require.True(s.T(), ok)
	assert.Equal(s.T(), apperrors.DenyWrongRole, deny.Reason)
}

func (s *ProjectServiceTestSuite) TestUploadsDriveCompleteness() {
	project := s.newDraft()

	file, header := multipartFile(s.T(), "plan.pdf", "business plan")
	_, err := s.env.projects.UploadDocument(project.ID, s.borrower.ID, "business_plan", file, header)
	require.NoError(s.T(), err)

	var got models.Project
	require.NoError(s.T(), s.env.db.First(&got, "id = ?", project.ID).Error)
	assert.False(s.T(), got.DocumentsComplete)

	s.uploadRequiredDocuments(project)

	require.NoError(s.T(), s.env.db.First(&got, "id = ?", project.ID).Error)
	assert.True(s.T(), got.DocumentsComplete)
}

func (s *ProjectServiceTestSuite) TestDocumentAnalysisOverridesUploads() {
	project := s.newDraft()
	s.uploadRequiredDocuments(project)

	// The analyzer reports the business plan file does not actually contain
	// a business plan.
	updated, err := s.env.projects.ApplyDocumentAnalysis(project.ID, s.borrower.ID, []DocumentPresenceUpdate{
		{DocumentType: "business_plan", IsPresent: false},
	})
	require.NoError(s.T(), err)
	assert.False(s.T(), updated.DocumentsComplete)

	updated, err = s.env.projects.ApplyDocumentAnalysis(project.ID, s.borrower.ID, []DocumentPresenceUpdate{
		{DocumentType: "business_plan", IsPresent: true},
	})
	require.NoError(s.T(), err)
	assert.True(s.T(), updated.DocumentsComplete)
}

func (s *ProjectServiceTestSuite) TestPublishRequiresCompleteDocuments() {
	project := s.newDraft()

	_, err := s.env.projects.PublishProject(project.ID, s.borrower.ID, &PublishProjectRequest{
		PaymentIntentID: "pi_test_incomplete",
		Amount:          495,
	})
	assert.ErrorIs(s.T(), err, apperrors.ErrPreconditionFailed)

	// The rejected confirmation leaves no record behind.
	var count int64
	s.env.db.Model(&models.PaymentConfirmation{}).Where("project_id = ?", project.ID).Count(&count)
	assert.Equal(s.T(), int64(0), count)
}

func (s *ProjectServiceTestSuite) TestPublish() {
	project := s.newDraft()
	s.uploadRequiredDocuments(project)

	published, err := s.env.projects.PublishProject(project.ID, s.borrower.ID, &PublishProjectRequest{
		PaymentIntentID: "pi_test_ok",
		Amount:          495,
	})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.PaymentStatusPaid, published.PaymentStatus)
	assert.NotNil(s.T(), published.PaidAt)
}

func (s *ProjectServiceTestSuite) TestPublishReplayedConfirmation() {
	project := s.newDraft()
	s.uploadRequiredDocuments(project)

	_, err := s.env.projects.PublishProject(project.ID, s.borrower.ID, &PublishProjectRequest{
		PaymentIntentID: "pi_test_replay",
	})
	require.NoError(s.T(), err)

	_, err = s.env.projects.PublishProject(project.ID, s.borrower.ID, &PublishProjectRequest{
		PaymentIntentID: "pi_test_replay",
	})
	assert.ErrorIs(s.T(), err, apperrors.ErrConflict)
}

func (s *ProjectServiceTestSuite) TestPublishAlreadyPublished() {
	project := s.newDraft()
	s.uploadRequiredDocuments(project)

	_, err := s.env.projects.PublishProject(project.ID, s.borrower.ID, &PublishProjectRequest{
		PaymentIntentID: "pi_test_first",
	})
	require.NoError(s.T(), err)

	// A different confirmation against a published project is not a replay.
	_, err = s.env.projects.PublishProject(project.ID, s.borrower.ID, &PublishProjectRequest{
		PaymentIntentID: "pi_test_second",
	})
	assert.ErrorIs(s.T(), err, apperrors.ErrInvalidState)
}

func (s *ProjectServiceTestSuite) TestUpdateFrozenAfterPublish() {
	project := s.newDraft()
	s.uploadRequiredDocuments(project)

	newTitle := "Renamed while editable"
	_, err := s.env.projects.UpdateProject(project.ID, s.borrower.ID, &UpdateProjectRequest{Title: &newTitle})
	require.NoError(s.T(), err)

	_, err = s.env.projects.PublishProject(project.ID, s.borrower.ID, &PublishProjectRequest{
		PaymentIntentID: "pi_test_freeze",
	})
	require.NoError(s.T(), err)

	frozen := "Renamed after publication"
	_, err = s.env.projects.UpdateProject(project.ID, s.borrower.ID, &UpdateProjectRequest{Title: &frozen})
	assert.ErrorIs(s.T(), err, apperrors.ErrInvalidState)
}

func (s *ProjectServiceTestSuite) TestReturnToDraft() {
	admin := s.env.createAdmin(s.T())
	funder := s.env.createFunder(s.T())
	project := s.newDraft()
	s.uploadRequiredDocuments(project)

	_, err := s.env.projects.PublishProject(project.ID, s.borrower.ID, &PublishProjectRequest{
		PaymentIntentID: "pi_test_takedown",
	})
	require.NoError(s.T(), err)

	request := s.env.createApprovedRequest(s.T(), project, funder.ID)
	deal, err := s.env.deals.CreateDeal(funder.ID, &CreateDealRequest{AccessRequestID: request.ID})
	require.NoError(s.T(), err)

	returned, err := s.env.projects.ReturnToDraft(project.ID, admin.ID, &ReturnToDraftRequest{
		Reason: "Listing fee charged back.",
	})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.PaymentStatusUnpaid, returned.PaymentStatus)
	assert.Nil(s.T(), returned.PaidAt)

	// The takedown is recorded with its reason.
	var audit models.AuditLog
	require.NoError(s.T(), s.env.db.
		Where("action = ? AND resource_id = ?", "project.return_to_draft", project.ID).
		First(&audit).Error)
	assert.Equal(s.T(), "Listing fee charged back.", audit.Reason)

	// The open deal survives the takedown.
	var got models.Deal
	require.NoError(s.T(), s.env.db.First(&got, "id = ?", deal.ID).Error)
	assert.Equal(s.T(), models.DealStatusActive, got.Status)

	// Re-publication needs a fresh confirmation but the documents are still
	// complete.
	_, err = s.env.projects.PublishProject(project.ID, s.borrower.ID, &PublishProjectRequest{
		PaymentIntentID: "pi_test_relist",
	})
	assert.NoError(s.T(), err)
}

func (s *ProjectServiceTestSuite) TestReturnToDraftAdminOnly() {
	project := s.env.createProject(s.T(), s.borrower.ID, true)

	_, err := s.env.projects.ReturnToDraft(project.ID, s.borrower.ID, &ReturnToDraftRequest{Reason: "nope"})

	deny, ok := apperrors.AsDeny(err)
	require.True(s.T(), ok)
	assert.Equal(s.T(), apperrors.DenyWrongRole, deny.Reason)
}

func (s *ProjectServiceTestSuite) TestReturnToDraftRequiresReason() {
	admin := s.env.createAdmin(s.T())
	project := s.env.createProject(s.T(), s.borrower.ID, true)

	_, err := s.env.projects.ReturnToDraft(project.ID, admin.ID, &ReturnToDraftRequest{})
	assert.Error(s.T(), err)
}

func (s *ProjectServiceTestSuite) TestGetProjectRedaction() {
	project := s.env.createProject(s.T(), s.borrower.ID, true)
	funder := s.env.createFunder(s.T())

	// Without approved access the funder sees the summary only.
	got, err := s.env.projects.GetProject(project.ID, funder.ID, models.RoleFunder)
	require.NoError(s.T(), err)
	assert.Zero(s.T(), got.LoanAmount)
	assert.Zero(s.T(), got.ExpectedGDV)
	assert.Equal(s.T(), project.Title, got.Title)

	s.env.createApprovedRequest(s.T(), project, funder.ID)

	got, err = s.env.projects.GetProject(project.ID, funder.ID, models.RoleFunder)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), project.LoanAmount, got.LoanAmount)
	assert.Equal(s.T(), project.ExpectedGDV, got.ExpectedGDV)
}

func (s *ProjectServiceTestSuite) TestGetProjectDraftHiddenFromOthers() {
	draft := s.env.createProject(s.T(), s.borrower.ID, false)
	funder := s.env.createFunder(s.T())

	_, err := s.env.projects.GetProject(draft.ID, funder.ID, models.RoleFunder)
	assert.ErrorIs(s.T(), err, apperrors.ErrNotFound)

	// Owner and admin still see it.
	_, err = s.env.projects.GetProject(draft.ID, s.borrower.ID, models.RoleBorrower)
	assert.NoError(s.T(), err)

	admin := s.env.createAdmin(s.T())
	_, err = s.env.projects.GetProject(draft.ID, admin.ID, models.RoleAdmin)
	assert.NoError(s.T(), err)
}

func (s *ProjectServiceTestSuite) TestSearchProjectsVisibility() {
	s.env.createProject(s.T(), s.borrower.ID, true)
	s.env.createProject(s.T(), s.borrower.ID, false)
	funder := s.env.createFunder(s.T())

	// Funders see only published listings, redacted.
	projects, total, err := s.env.projects.SearchProjects(ProjectSearchParams{PaginationParams: paginationDefaults()}, funder.ID, models.RoleFunder)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1), total)
	require.Len(s.T(), projects, 1)
	assert.Zero(s.T(), projects[0].LoanAmount)

	// The borrower sees both of their own projects.
	projects, total, err = s.env.projects.SearchProjects(ProjectSearchParams{PaginationParams: paginationDefaults()}, s.borrower.ID, models.RoleBorrower)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(2), total)
	assert.Len(s.T(), projects, 2)
}

func TestProjectServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ProjectServiceTestSuite))
}
