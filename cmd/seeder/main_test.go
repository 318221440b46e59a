package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/partnerconnex-backend/internal/model"
	"github.com/unclebandit/partnerconnex-backend/internal/repository"
)

func TestSeedCampaigns_SkipsExistingSlugs(t *testing.T) {
	ctx := context.Background()
	demo := model.DemoCampaigns()
	repo := repository.NewMemoryCampaignRepository(demo[0])

	seeded, err := seedCampaigns(ctx, repo, model.DemoCampaigns())
	require.NoError(t, err)
	require.Len(t, seeded, 1)
	assert.Equal(t, "summer-fashion-2025", seeded[0].Slug)

	seeded, err = seedCampaigns(ctx, repo, model.DemoCampaigns())
	require.NoError(t, err)
	assert.Empty(t, seeded)
}

func TestRenderCampaigns(t *testing.T) {
	var buf bytes.Buffer
	renderCampaigns(&buf, model.DemoCampaigns())

	out := buf.String()
	assert.Contains(t, out, "SLUG")
	assert.Contains(t, out, "demo-token")
	assert.Contains(t, out, "Instagram, TikTok")
	assert.Contains(t, out, "2025-08-15")
}

func TestRootCommandWiring(t *testing.T) {
	root := rootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["seed"])
	assert.True(t, names["list"])
}
