// internal/services/notification_service.go
package services

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/smtp"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/groundfund/groundfund-backend/internal/apperrors"
	"github.com/groundfund/groundfund-backend/internal/config"
	"github.com/groundfund/groundfund-backend/internal/models"
	"github.com/groundfund/groundfund-backend/internal/utils"
)

// NotificationService persists in-app notification rows and sends the
// matching emails. Callers invoke it after their transaction commits,
// usually from a goroutine; failures are logged and never surface to the
// caller.
type NotificationService struct {
	db     *gorm.DB
	config *config.Config
}

type EmailTemplate struct {
	Subject string
	Body    string
}

func NewNotificationService(db *gorm.DB, config *config.Config) *NotificationService {
	return &NotificationService{
		db:     db,
		config: config,
	}
}

// Emit records an in-app notification and sends an email to the recipient.
func (s *NotificationService) Emit(recipientID uuid.UUID, event, title, message string, payload map[string]interface{}) {
	notification := &models.Notification{
		RecipientID: recipientID,
		Event:       event,
		Title:       title,
		Message:     message,
		Payload:     models.JSONB(payload),
	}

	if err := s.db.Create(notification).Error; err != nil {
		logrus.WithError(err).WithField("event", event).Error("Failed to create notification")
		return
	}

	var recipient models.User
	if err := s.db.First(&recipient, recipientID).Error; err != nil {
		logrus.WithError(err).WithField("recipient_id", recipientID).Error("Failed to load notification recipient")
		return
	}

	if err := s.sendEmail(recipient.Email, title, s.renderEventEmail(recipient.Username, title, message)); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"event":     event,
			"recipient": recipient.Email,
		}).Warn("Failed to send notification email")
	}
}

// Access request notifications

func (s *NotificationService) NotifyAccessRequestReceived(request *models.AccessRequest) {
	s.Emit(request.Project.BorrowerID, models.EventAccessRequestReceived,
		"New access request",
		fmt.Sprintf("%s requested access to '%s'", request.Funder.Username, request.Project.Title),
		map[string]interface{}{
			"access_request_id": request.ID,
			"project_id":        request.ProjectID,
		})
}

func (s *NotificationService) NotifyAccessRequestApproved(request *models.AccessRequest) {
	s.Emit(request.FunderID, models.EventAccessRequestApproved,
		"Access request approved",
		fmt.Sprintf("Your access request for '%s' was approved", request.Project.Title),
		map[string]interface{}{
			"access_request_id": request.ID,
			"project_id":        request.ProjectID,
		})
}

func (s *NotificationService) NotifyAccessRequestDeclined(request *models.AccessRequest) {
	s.Emit(request.FunderID, models.EventAccessRequestDeclined,
		"Access request declined",
		fmt.Sprintf("Your access request for '%s' was declined", request.Project.Title),
		map[string]interface{}{
			"access_request_id": request.ID,
			"project_id":        request.ProjectID,
		})
}

// Deal notifications

func (s *NotificationService) NotifyDealRoomCreated(deal *models.Deal) {
	payload := map[string]interface{}{
		"deal_id":    deal.ID,
		"project_id": deal.ProjectID,
	}
	s.Emit(deal.BorrowerID, models.EventDealRoomCreated,
		"Deal room opened",
		"A deal room has been opened for your project", payload)
	s.Emit(deal.FunderID, models.EventDealRoomCreated,
		"Deal room opened",
		"A deal room has been opened", payload)
}

func (s *NotificationService) NotifyDocumentRequestOpened(deal *models.Deal, request *models.DocumentRequest) {
	s.Emit(deal.Counterparty(request.RequesterID), models.EventDocumentRequestOpened,
		"Document requested",
		fmt.Sprintf("The other party requested '%s'", request.DocumentName),
		map[string]interface{}{
			"deal_id":             deal.ID,
			"document_request_id": request.ID,
		})
}

func (s *NotificationService) NotifyDocumentRequestFulfilled(deal *models.Deal, request *models.DocumentRequest) {
	s.Emit(request.RequesterID, models.EventDocumentRequestFulfilled,
		"Document provided",
		fmt.Sprintf("'%s' has been provided", request.DocumentName),
		map[string]interface{}{
			"deal_id":             deal.ID,
			"document_request_id": request.ID,
		})
}

func (s *NotificationService) NotifyQuoteSubmitted(deal *models.Deal, quote *models.Quote) {
	s.Emit(deal.BorrowerID, models.EventQuoteSubmitted,
		"New quote",
		"The funder submitted updated indicative terms",
		map[string]interface{}{
			"deal_id":  deal.ID,
			"quote_id": quote.ID,
		})
}

// Project notifications

func (s *NotificationService) NotifyProjectPublished(project *models.Project) {
	s.Emit(project.BorrowerID, models.EventProjectPublished,
		"Project published",
		fmt.Sprintf("'%s' is now listed and visible to funders", project.Title),
		map[string]interface{}{"project_id": project.ID})
}

func (s *NotificationService) NotifyProjectReturnedToDraft(project *models.Project, recipientID uuid.UUID, reason string) {
	s.Emit(recipientID, models.EventProjectRejected,
		"Project returned to draft",
		fmt.Sprintf("'%s' was taken off the listing: %s", project.Title, reason),
		map[string]interface{}{
			"project_id": project.ID,
			"reason":     reason,
		})
}

// Account notifications

func (s *NotificationService) NotifyFunderApproved(user *models.User) {
	s.Emit(user.ID, models.EventSubscriptionApproved,
		"Account approved",
		"Your funder account has been approved. Activate a subscription to start requesting access.",
		nil)
}

func (s *NotificationService) NotifySubscriptionActivated(user *models.User) {
	s.Emit(user.ID, models.EventSubscriptionActivated,
		"Subscription active",
		"Your subscription is active. You can now request access to listed projects.",
		nil)
}

// Read side

func (s *NotificationService) ListForUser(userID uuid.UUID, params utils.PaginationParams) ([]models.Notification, int64, error) {
	query := s.db.Model(&models.Notification{}).Where("recipient_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	query = utils.ApplyPagination(query.Order("created_at DESC"), params)

	var notifications []models.Notification
	if err := query.Find(&notifications).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch notifications: %w", err)
	}

	return notifications, total, nil
}

func (s *NotificationService) MarkRead(notificationID, userID uuid.UUID) (*models.Notification, error) {
	var notification models.Notification
	if err := s.db.Where("id = ? AND recipient_id = ?", notificationID, userID).
		First(&notification).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFoundf("notification %s", notificationID)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if notification.ReadAt == nil {
		now := time.Now()
		notification.ReadAt = &now
		if err := s.db.Save(&notification).Error; err != nil {
			return nil, fmt.Errorf("failed to mark notification read: %w", err)
		}
	}

	return &notification, nil
}

// Helper methods

func (s *NotificationService) sendEmail(to, subject, body string) error {
	if s.config.Email.SMTPHost == "" {
		// Email not configured, just log
		logrus.WithFields(logrus.Fields{"to": to, "subject": subject}).Debug("Email delivery skipped (SMTP not configured)")
		return nil
	}

	auth := smtp.PlainAuth("", s.config.Email.SMTPUsername, s.config.Email.SMTPPassword, s.config.Email.SMTPHost)

	msg := []byte(fmt.Sprintf("To: %s\r\nSubject: %s\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s", to, subject, body))

	addr := fmt.Sprintf("%s:%s", s.config.Email.SMTPHost, s.config.Email.SMTPPort)
	return smtp.SendMail(addr, auth, s.config.Email.FromEmail, []string{to}, msg)
}

func (s *NotificationService) renderEventEmail(username, title, message string) string {
	data := map[string]interface{}{
		"Username": username,
		"Title":    title,
		"Message":  message,
		"BaseURL":  s.config.Frontend.BaseURL,
	}

	body, err := s.renderTemplate(eventEmailBody, data)
	if err != nil {
		logrus.WithError(err).Error("Failed to render email template")
		return message
	}
	return body
}

func (s *NotificationService) renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("email").Parse(templateStr)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

const eventEmailBody = `
<!DOCTYPE html>
<html>
<body>
	<h2>{{.Title}}</h2>
	<p>Hello {{.Username}},</p>
	<p>{{.Message}}</p>
	<p><a href="{{.BaseURL}}/dashboard">Open your dashboard</a></p>
	<p>Best regards,<br>GroundFund Team</p>
</body>
</html>`
