// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess = "success"
	KeyError   = "error"

	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthTokenExpired       = "auth.token_expired"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthUserExists         = "auth.user_exists"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthRegisterSuccess    = "auth.register_success"
	KeyAccessDenied           = "auth.access_denied"

	// Users
	KeyUserNotFound       = "user.not_found"
	KeyUserFunderApproved = "user.funder_approved"

	// Projects
	KeyProjectCreated         = "project.created"
	KeyProjectUpdated         = "project.updated"
	KeyProjectNotFound        = "project.not_found"
	KeyProjectPublished       = "project.published"
	KeyProjectReturnedToDraft = "project.returned_to_draft"
	KeyProjectDocumentAdded   = "project.document_added"

	// Access requests
	KeyAccessRequestCreated   = "access_request.created"
	KeyAccessRequestApproved  = "access_request.approved"
	KeyAccessRequestDeclined  = "access_request.declined"
	KeyAccessRequestWithdrawn = "access_request.withdrawn"
	KeyAccessRequestNotFound  = "access_request.not_found"

	// Deals
	KeyDealCreated          = "deal.created"
	KeyDealNotFound         = "deal.not_found"
	KeyDealClosed           = "deal.closed"
	KeyDealDocumentRequest  = "deal.document_requested"
	KeyDealRequestFulfilled = "deal.request_fulfilled"
	KeyDealQuoteSubmitted   = "deal.quote_submitted"
	KeyDealCommentPosted    = "deal.comment_posted"

	// Subscriptions
	KeySubscriptionActivated = "subscription.activated"
	KeySubscriptionCancelled = "subscription.cancelled"

	// Validation
	KeyValidationInvalid = "validation.invalid"
)
