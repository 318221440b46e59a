// internal/service/submission_service.go
package service

import (
	"context"
	"fmt"

	appErrors "github.com/unclebandit/partnerconnex-backend/internal/errors"
	"github.com/unclebandit/partnerconnex-backend/internal/logger"
	"github.com/unclebandit/partnerconnex-backend/internal/model"
	"github.com/unclebandit/partnerconnex-backend/internal/queue"
	"github.com/unclebandit/partnerconnex-backend/internal/repository"
	"github.com/unclebandit/partnerconnex-backend/internal/validator"
)

// SubmissionService validates and persists wizard results, then announces
// them on the queue.
type SubmissionService struct {
	CampaignRepo   repository.CampaignRepositoryInterface
	SubmissionRepo repository.SubmissionRepositoryInterface
	Queue          queue.Queue
}

// Submit validates the draft in full before any I/O. On failure nothing is
// stored and the caller keeps the draft for a retry.
func (s *SubmissionService) Submit(ctx context.Context, campaignID string, draft model.SubmissionDraft, attachments []string) (*model.Submission, error) {
	if errs := validator.ValidateSubmission(draft); len(errs) > 0 {
		return nil, appErrors.NewValidationError(errs)
	}
	campaign, err := s.openCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	sub := draft.Build(campaignID)
	if len(attachments) > 0 {
		sub.Attachments = append([]string(nil), attachments...)
	}
	if err := s.SubmissionRepo.SaveSubmission(ctx, &sub); err != nil {
		logger.GetLogger().WithFields(map[string]interface{}{
			"campaign_id": campaignID,
			"error":       err,
		}).Error("❌ Failed to save submission")
		return nil, fmt.Errorf("save submission: %w", err)
	}

	s.publish(queue.SubmissionEvent{
		Kind:            queue.KindSubmission,
		RecordID:        sub.ID,
		CampaignID:      campaign.ID,
		CampaignTitle:   campaign.Title,
		CampaignContact: campaign.ContactEmail,
		ActivityName:    sub.ActivityName,
		MainSNS:         sub.MainSNS,
		MainAccount:     sub.MainAccount,
		ContactEmail:    sub.Contact.Email,
		ContactLineID:   sub.Contact.LineID,
		Attachments:     len(sub.Attachments),
		CreatedAt:       sub.CreatedAt,
	})
	return &sub, nil
}

// OptIn stores the decline-path contact request.
func (s *SubmissionService) OptIn(ctx context.Context, campaignID string, draft model.OptInDraft) (*model.OptIn, error) {
	if errs := validator.ValidateOptIn(draft); len(errs) > 0 {
		return nil, appErrors.NewValidationError(errs)
	}
	campaign, err := s.openCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	o := draft.Build(campaignID)
	if err := s.SubmissionRepo.SaveOptIn(ctx, &o); err != nil {
		logger.GetLogger().WithFields(map[string]interface{}{
			"campaign_id": campaignID,
			"error":       err,
		}).Error("❌ Failed to save opt-in")
		return nil, fmt.Errorf("save opt-in: %w", err)
	}

	s.publish(queue.SubmissionEvent{
		Kind:            queue.KindOptIn,
		RecordID:        o.ID,
		CampaignID:      campaign.ID,
		CampaignTitle:   campaign.Title,
		CampaignContact: campaign.ContactEmail,
		ActivityName:    o.ActivityName,
		ContactEmail:    o.Contact.Email,
		ContactLineID:   o.Contact.LineID,
		CreatedAt:       o.CreatedAt,
	})
	return &o, nil
}

func (s *SubmissionService) openCampaign(ctx context.Context, id string) (*model.Campaign, error) {
	c, err := s.CampaignRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.IsOpen() {
		return nil, appErrors.ErrCampaignClosed
	}
	return c, nil
}

// publish never fails the caller; the record is already stored.
func (s *SubmissionService) publish(ev queue.SubmissionEvent) {
	if s.Queue == nil {
		return
	}
	if err := s.Queue.Publish(queue.TopicSubmissionReceived, ev); err != nil {
		logger.GetLogger().WithFields(map[string]interface{}{
			"campaign_id": ev.CampaignID,
			"record_id":   ev.RecordID,
			"error":       err,
		}).Warn("⚠️ Failed to enqueue submission event")
	}
}
