package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"

	appErrors "github.com/unclebandit/partnerconnex-backend/internal/errors"
	"github.com/unclebandit/partnerconnex-backend/internal/model"
)

// MemoryCampaignRepository keeps campaigns in process, keyed by slug for token
// lookup and in a slice for creation order. Stored entries are never handed out;
// callers always receive copies.
type MemoryCampaignRepository struct {
	mu     sync.RWMutex
	bySlug map[string]*model.Campaign
	byID   map[string]*model.Campaign
	order  []*model.Campaign
}

func NewMemoryCampaignRepository(seed ...*model.Campaign) *MemoryCampaignRepository {
	r := &MemoryCampaignRepository{
		bySlug: make(map[string]*model.Campaign),
		byID:   make(map[string]*model.Campaign),
	}
	for _, c := range seed {
		_ = r.Create(context.Background(), c)
	}
	return r
}

func (r *MemoryCampaignRepository) Create(_ context.Context, c *model.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bySlug[c.Slug]; ok {
		return appErrors.ErrSlugTaken
	}
	stored := cloneCampaign(c)
	r.bySlug[stored.Slug] = stored
	r.byID[stored.ID] = stored
	r.order = append(r.order, stored)
	return nil
}

func (r *MemoryCampaignRepository) GetByID(_ context.Context, id string) (*model.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byID[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	return cloneCampaign(c), nil
}

func (r *MemoryCampaignRepository) GetBySlug(_ context.Context, slug string) (*model.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.bySlug[slug]
	if !ok {
		return nil, appErrors.NewTokenNotFound(slug)
	}
	return cloneCampaign(c), nil
}

func (r *MemoryCampaignRepository) ListCampaigns(_ context.Context, offset, limit int, status string) ([]*model.Campaign, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var filtered []*model.Campaign
	for _, c := range r.order {
		if status != "" && string(c.Status) != status {
			continue
		}
		filtered = append(filtered, c)
	}
	total := len(filtered)

	out := []*model.Campaign{}
	if offset >= total {
		return out, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	for _, c := range filtered[offset:end] {
		out = append(out, cloneCampaign(c))
	}
	return out, total, nil
}

func (r *MemoryCampaignRepository) Close(_ context.Context, id string, creators []model.Creator, sheetURL, reportURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok {
		return appErrors.NewCampaignNotFound(id)
	}
	if !c.Status.CanTransition(model.CampaignClosed) {
		return appErrors.ErrInvalidStatusTransition
	}

	updated := cloneCampaign(c)
	updated.Status = model.CampaignClosed
	if sheetURL != "" {
		updated.ManagementSheetURL = sheetURL
	}
	if reportURL != "" {
		updated.ReportURL = reportURL
	}
	for _, cr := range creators {
		if cr.ID == "" {
			cr.ID = uuid.NewString()
		}
		updated.Creators = append(updated.Creators, cr)
	}

	// Swap the entry rather than editing it so earlier copies stay consistent.
	r.byID[id] = updated
	r.bySlug[updated.Slug] = updated
	for i, o := range r.order {
		if o.ID == id {
			r.order[i] = updated
			break
		}
	}
	return nil
}

func cloneCampaign(c *model.Campaign) *model.Campaign {
	out := *c
	out.Platforms = append([]model.Platform(nil), c.Platforms...)
	out.Creators = append([]model.Creator(nil), c.Creators...)
	return &out
}

var _ CampaignRepositoryInterface = (*MemoryCampaignRepository)(nil)
