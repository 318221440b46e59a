package queue

import (
	"github.com/unclebandit/partnerconnex-backend/internal/logger"
)

// StartSubmissionSubscriber registers handle for TopicSubmissionReceived.
// Payloads that cannot be decoded are dropped without retry.
func StartSubmissionSubscriber(q Queue, handle func(ev SubmissionEvent) error) error {
	err := q.Subscribe(TopicSubmissionReceived, func(payload any) error {
		ev, err := DecodeSubmissionEvent(payload)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("⚠️ Invalid submission event, dropping")
			return nil
		}

		log := logger.GetLogger().WithFields(map[string]interface{}{
			"campaign_id": ev.CampaignID,
			"record_id":   ev.RecordID,
			"kind":        ev.Kind,
		})
		log.Info("📩 Processing submission event")
		if err := handle(ev); err != nil {
			return err // triggers retry in queue
		}
		log.Info("✅ Submission event processed")
		return nil
	})
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("⚠️ Failed to start subscriber for " + TopicSubmissionReceived)
	}
	return err
}

// LogSubmission is the handler used when no mail worker is attached.
func LogSubmission(ev SubmissionEvent) error {
	logger.GetLogger().WithFields(map[string]interface{}{
		"campaign_id":   ev.CampaignID,
		"record_id":     ev.RecordID,
		"kind":          ev.Kind,
		"activity_name": ev.ActivityName,
	}).Info("📝 Submission received")
	return nil
}
