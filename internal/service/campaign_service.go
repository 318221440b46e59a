// internal/service/campaign_service.go
package service

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/badoux/checkmail"
	"github.com/google/uuid"

	appErrors "github.com/unclebandit/partnerconnex-backend/internal/errors"
	"github.com/unclebandit/partnerconnex-backend/internal/logger"
	"github.com/unclebandit/partnerconnex-backend/internal/model"
	"github.com/unclebandit/partnerconnex-backend/internal/repository"
)

type CampaignService struct {
	CampaignRepo   repository.CampaignRepositoryInterface
	SubmissionRepo repository.SubmissionRepositoryInterface
	BaseURL        string
	Now            func() time.Time
}

type CampaignDetails struct {
	*model.Campaign
	DistributionURL string         `json:"distribution_url"`
	Stats           map[string]int `json:"stats"`
}

// CloseCampaignRequest records the tie-ups made when recruitment ends.
type CloseCampaignRequest struct {
	Creators           []model.Creator `json:"creators"`
	ManagementSheetURL string          `json:"management_sheet_url"`
	ReportURL          string          `json:"report_url"`
}

var slugPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func (s *CampaignService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// DistributionURL is the influencer-facing link for a slug.
func (s *CampaignService) DistributionURL(slug string) string {
	return strings.TrimRight(s.BaseURL, "/") + "/i/" + url.PathEscape(slug)
}

// CreateCampaign validates the draft, assigns id and creation time, and stores it.
// A slug already in use is rejected with ErrSlugTaken.
func (s *CampaignService) CreateCampaign(ctx context.Context, draft model.CampaignDraft) (*model.Campaign, error) {
	draft.Title = strings.TrimSpace(draft.Title)
	draft.Slug = strings.TrimSpace(draft.Slug)
	draft.ContactEmail = strings.TrimSpace(draft.ContactEmail)

	platforms, errs := validateCampaignDraft(draft)
	if len(errs) > 0 {
		return nil, appErrors.NewValidationError(errs)
	}
	draft.Platforms = platforms

	c := draft.ToCampaign(uuid.NewString(), s.now())
	if err := s.CampaignRepo.Create(ctx, c); err != nil {
		return nil, err
	}
	logger.GetLogger().WithFields(map[string]interface{}{
		"campaign_id": c.ID,
		"slug":        c.Slug,
	}).Info("✅ Campaign created")
	return c, nil
}

// validateCampaignDraft returns the normalized platform list and field errors.
func validateCampaignDraft(d model.CampaignDraft) ([]model.Platform, map[string]string) {
	errs := map[string]string{}
	if d.Title == "" {
		errs["title"] = "Title is required"
	}
	if !slugPattern.MatchString(d.Slug) {
		errs["slug"] = "Slug may only contain letters, digits, '-' and '_'"
	}

	var platforms []model.Platform
	seen := map[model.Platform]bool{}
	for _, raw := range d.Platforms {
		p, ok := model.ParsePlatform(string(raw))
		if !ok {
			errs["platforms"] = fmt.Sprintf("Unsupported platform %q", raw)
			continue
		}
		if !seen[p] {
			seen[p] = true
			platforms = append(platforms, p)
		}
	}
	if len(platforms) == 0 && errs["platforms"] == "" {
		errs["platforms"] = "At least one platform is required"
	}

	if d.Deadline.IsZero() {
		errs["deadline"] = "Deadline is required"
	}
	if d.Status != "" && !d.Status.Valid() {
		errs["status"] = fmt.Sprintf("Unknown status %q", d.Status)
	}
	if err := checkmail.ValidateFormat(d.ContactEmail); err != nil {
		errs["contact_email"] = "Please enter a valid email address"
	}
	for field, raw := range map[string]string{
		"nda_url":              d.NDAURL,
		"management_sheet_url": d.ManagementSheetURL,
		"report_url":           d.ReportURL,
	} {
		if raw != "" && !isHTTPURL(raw) {
			errs[field] = "Must be an http(s) URL"
		}
	}
	return platforms, errs
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// GetByToken resolves a distribution token by exact slug match.
func (s *CampaignService) GetByToken(ctx context.Context, token string) (*model.Campaign, error) {
	return s.CampaignRepo.GetBySlug(ctx, token)
}

// GetCampaignDetails fetches a campaign by ID
func (s *CampaignService) GetCampaignDetails(ctx context.Context, id string) (*model.Campaign, error) {
	return s.CampaignRepo.GetByID(ctx, id)
}

func (s *CampaignService) GetCampaignDetailsWithStats(ctx context.Context, id string) (*CampaignDetails, error) {
	log := logger.GetLogger().WithField("campaign_id", id)

	campaign, err := s.CampaignRepo.GetByID(ctx, id)
	if err != nil {
		log.WithField("error", err).Debug("Failed to fetch campaign")
		return nil, err
	}

	stats := map[string]int{"submissions": 0, "opt_ins": 0, "total": 0}
	if s.SubmissionRepo != nil {
		got, err := s.SubmissionRepo.GetCampaignStats(ctx, id)
		if err != nil {
			log.WithField("error", err).Error("Failed to count submissions")
			return nil, err
		}
		for k, v := range got {
			stats[k] = v
		}
	}

	return &CampaignDetails{
		Campaign:        campaign,
		DistributionURL: s.DistributionURL(campaign.Slug),
		Stats:           stats,
	}, nil
}

// ListCampaigns fetches campaigns with pagination, in creation order.
func (s *CampaignService) ListCampaigns(ctx context.Context, page, pageSize int, status string) ([]model.Campaign, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	if status != "" && !model.CampaignStatus(status).Valid() {
		return nil, nil, appErrors.NewValidationError(map[string]string{"status": fmt.Sprintf("Unknown status %q", status)})
	}
	offset := (page - 1) * pageSize

	ptrs, total, err := s.CampaignRepo.ListCampaigns(ctx, offset, pageSize, status)
	if err != nil {
		return nil, nil, err
	}

	campaigns := make([]model.Campaign, len(ptrs))
	for i, c := range ptrs {
		campaigns[i] = *c
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}

	return campaigns, pagination, nil
}

// CloseCampaign ends recruitment and records creators and report links.
func (s *CampaignService) CloseCampaign(ctx context.Context, id string, req CloseCampaignRequest) (*model.Campaign, error) {
	errs := map[string]string{}
	for i, c := range req.Creators {
		if strings.TrimSpace(c.Name) == "" {
			errs[fmt.Sprintf("creators[%d].name", i)] = "Creator name is required"
		}
		if c.AccountURL != "" && !isHTTPURL(c.AccountURL) {
			errs[fmt.Sprintf("creators[%d].account_url", i)] = "Must be an http(s) URL"
		}
		if c.DeliverableURL != "" && !isHTTPURL(c.DeliverableURL) {
			errs[fmt.Sprintf("creators[%d].deliverable_url", i)] = "Must be an http(s) URL"
		}
	}
	if req.ManagementSheetURL != "" && !isHTTPURL(req.ManagementSheetURL) {
		errs["management_sheet_url"] = "Must be an http(s) URL"
	}
	if req.ReportURL != "" && !isHTTPURL(req.ReportURL) {
		errs["report_url"] = "Must be an http(s) URL"
	}
	if len(errs) > 0 {
		return nil, appErrors.NewValidationError(errs)
	}

	if err := s.CampaignRepo.Close(ctx, id, req.Creators, req.ManagementSheetURL, req.ReportURL); err != nil {
		return nil, err
	}
	logger.GetLogger().WithField("campaign_id", id).Info("🔒 Campaign closed")
	return s.CampaignRepo.GetByID(ctx, id)
}
