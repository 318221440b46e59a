// internal/service/notification_service.go
package service

import (
	"strconv"

	"github.com/unclebandit/partnerconnex-backend/internal/logger"
	"github.com/unclebandit/partnerconnex-backend/internal/queue"
)

// Mailer defines what the notifier needs from the mail transport
type Mailer interface {
	Send(to, subject, body string) error
}

const (
	submissionSubject = "[PartnerConnex] New application for {campaign_title}"
	submissionBody    = `A new influencer application was received.

Campaign:      {campaign_title}
Activity name: {activity_name}
Main SNS:      {main_sns} ({main_account})
Email:         {contact_email}
LINE ID:       {contact_line_id}
Attachments:   {attachments}
Record ID:     {record_id}
`
	optInSubject = "[PartnerConnex] Contact request from {activity_name}"
	optInBody    = `An influencer declined {campaign_title} but would like to hear about future campaigns.

Activity name: {activity_name}
Email:         {contact_email}
LINE ID:       {contact_line_id}
Record ID:     {record_id}
`
)

// NotificationService mails the campaign contact about each submission event.
type NotificationService struct {
	Mailer Mailer
}

func (s *NotificationService) HandleSubmissionEvent(ev queue.SubmissionEvent) error {
	if ev.CampaignContact == "" {
		logger.GetLogger().WithField("campaign_id", ev.CampaignID).Warn("⚠️ Campaign has no contact email, skipping notification")
		return nil // no retry
	}

	data := map[string]string{
		"campaign_title":  ev.CampaignTitle,
		"activity_name":   ev.ActivityName,
		"main_sns":        ev.MainSNS,
		"main_account":    ev.MainAccount,
		"contact_email":   ev.ContactEmail,
		"contact_line_id": ev.ContactLineID,
		"attachments":     strconv.Itoa(ev.Attachments),
		"record_id":       ev.RecordID,
	}
	subject, body := submissionSubject, submissionBody
	if ev.Kind == queue.KindOptIn {
		subject, body = optInSubject, optInBody
	}
	return s.Mailer.Send(ev.CampaignContact, RenderTemplate(subject, data), RenderTemplate(body, data))
}
