// internal/controller/campaign_controller.go
package controller

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/partnerconnex-backend/internal/handler"
	"github.com/unclebandit/partnerconnex-backend/internal/logger"
	"github.com/unclebandit/partnerconnex-backend/internal/model"
	"github.com/unclebandit/partnerconnex-backend/internal/service"
)

// CampaignController serves the admin campaign routes.
type CampaignController struct {
	CampaignService *service.CampaignService
}

func (c *CampaignController) Routes(r chi.Router) {
	r.Post("/", c.CreateCampaign)
	r.Get("/", c.ListCampaigns)
	r.Get("/{id}", c.GetCampaignDetails)
	r.Post("/{id}/close", c.CloseCampaign)
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var draft model.CampaignDraft
	if err := handler.DecodeJSON(r, &draft); err != nil {
		handler.BadRequest(w, "invalid body")
		return
	}

	campaign, err := c.CampaignService.CreateCampaign(r.Context(), draft)
	if err != nil {
		handler.WriteError(w, err)
		return
	}

	handler.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"campaign":         campaign,
		"distribution_url": c.CampaignService.DistributionURL(campaign.Slug),
	})
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	status := r.URL.Query().Get("status")

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	campaigns, pagination, err := c.CampaignService.ListCampaigns(r.Context(), page, pageSize, status)
	if err != nil {
		handler.WriteError(w, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"data":       campaigns,
		"pagination": pagination,
	})
}

func (c *CampaignController) GetCampaignDetails(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	logger.GetLogger().WithField("campaign_id", id).Debug("📥 Campaign details requested")

	details, err := c.CampaignService.GetCampaignDetailsWithStats(r.Context(), id)
	if err != nil {
		handler.WriteError(w, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, details)
}

// CloseCampaign ends recruitment. Creators and report links are optional.
func (c *CampaignController) CloseCampaign(w http.ResponseWriter, r *http.Request) {
	var body service.CloseCampaignRequest
	if err := handler.DecodeJSON(r, &body); err != nil && !errors.Is(err, io.EOF) {
		handler.BadRequest(w, "invalid body")
		return
	}

	campaign, err := c.CampaignService.CloseCampaign(r.Context(), chi.URLParam(r, "id"), body)
	if err != nil {
		handler.WriteError(w, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, campaign)
}
