package service

import (
	"context"
	"fmt"
	"time"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"

	"github.com/rollcall-dev/rollcall-api/internal/models"
	"github.com/rollcall-dev/rollcall-api/pkg/config"
)

// NotifyService sends guardian SMS notifications through Twilio. When no
// Twilio credentials are configured the service is disabled and SendMarked
// returns immediately.
type NotifyService struct {
	client              *twilio.RestClient
	from                string
	messagingServiceSID string
	logger              *zap.Logger
}

// NewNotifyService constructs NotifyService from Twilio config.
func NewNotifyService(cfg config.TwilioConfig, logger *zap.Logger) *NotifyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &NotifyService{
		from:                cfg.From,
		messagingServiceSID: cfg.MessagingServiceSID,
		logger:              logger,
	}
	if cfg.AccountSID != "" && cfg.AuthToken != "" {
		svc.client = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		})
	} else {
		logger.Info("twilio credentials not configured, guardian notifications disabled")
	}
	return svc
}

// Enabled reports whether a Twilio client is configured.
func (s *NotifyService) Enabled() bool {
	return s.client != nil
}

// SendMarked texts the student's guardian that attendance was recorded.
func (s *NotifyService) SendMarked(ctx context.Context, student models.Student, class models.Class, at time.Time) error {
	if s.client == nil {
		return nil
	}
	if student.Phone == nil || *student.Phone == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body := fmt.Sprintf("%s %s was marked present in %s at %s on %s.",
		student.FirstName, student.LastName, class.Name,
		at.Format("3:04 PM"), at.Format("Jan 2, 2006"))

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(*student.Phone)
	params.SetBody(body)
	if s.messagingServiceSID != "" {
		params.SetMessagingServiceSid(s.messagingServiceSID)
	} else {
		params.SetFrom(s.from)
	}

	resp, err := s.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("send guardian sms: %w", err)
	}
	if resp.Sid != nil {
		s.logger.Debug("guardian sms sent",
			zap.String("student_id", student.ID),
			zap.String("message_sid", *resp.Sid))
	}
	return nil
}
